// Package aggregate groups converted risk records by canonical buyer, sums
// their exposure, and assigns risk tiers.
package aggregate

import (
	"sort"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// Thresholds are the tier boundaries in tCO2e. Both comparisons are strictly
// greater-than: an entity at exactly Critical is ELEVATED, at exactly
// Elevated is STANDARD. Values come from configuration (screen.critical_tco2e,
// screen.elevated_tco2e).
type Thresholds struct {
	Critical float64
	Elevated float64
}

// DefaultThresholds mirrors the configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 1000, Elevated: 200}
}

// Tier classifies a total carbon exposure.
func (t Thresholds) Tier(totalCarbon float64) model.RiskTier {
	switch {
	case totalCarbon > t.Critical:
		return model.TierCritical
	case totalCarbon > t.Elevated:
		return model.TierElevated
	default:
		return model.TierStandard
	}
}

// Summarize is a pure aggregation over the full risk record set: group by
// canonical buyer, sum value and carbon, count contracts, tier. Output order
// is total carbon descending, then total value descending, then buyer name
// ascending, so identical input always yields an identical table.
func Summarize(records []model.RiskRecord, thresholds Thresholds) []model.EntityRiskSummary {
	byBuyer := make(map[string]*model.EntityRiskSummary)
	for _, r := range records {
		s, ok := byBuyer[r.CanonicalBuyer]
		if !ok {
			s = &model.EntityRiskSummary{CanonicalBuyer: r.CanonicalBuyer}
			byBuyer[r.CanonicalBuyer] = s
		}
		s.TotalValue += r.Value
		s.TotalCarbon += r.CarbonTCO2e
		s.ContractCount++
	}

	out := make([]model.EntityRiskSummary, 0, len(byBuyer))
	for _, s := range byBuyer {
		s.Tier = thresholds.Tier(s.TotalCarbon)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCarbon != out[j].TotalCarbon {
			return out[i].TotalCarbon > out[j].TotalCarbon
		}
		if out[i].TotalValue != out[j].TotalValue {
			return out[i].TotalValue > out[j].TotalValue
		}
		return out[i].CanonicalBuyer < out[j].CanonicalBuyer
	})

	return out
}

// Critical filters summaries to the CRITICAL tier, preserving Summarize
// order. This is the payload handed to the memo generator.
func Critical(summaries []model.EntityRiskSummary) []model.EntityRiskSummary {
	out := make([]model.EntityRiskSummary, 0)
	for _, s := range summaries {
		if s.Tier == model.TierCritical {
			out = append(out, s)
		}
	}
	return out
}
