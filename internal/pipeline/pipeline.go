// Package pipeline runs the price-to-quantity estimation screen end to end:
// entity resolution, deduplication, material classification, mass/carbon
// conversion, per-entity aggregation, and the critical-tier trigger.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carbonsight/carbon-cli/internal/aggregate"
	"github.com/carbonsight/carbon-cli/internal/classify"
	"github.com/carbonsight/carbon-cli/internal/convert"
	"github.com/carbonsight/carbon-cli/internal/model"
	"github.com/carbonsight/carbon-cli/internal/reference"
	"github.com/carbonsight/carbon-cli/internal/resolve"
)

// Options tunes a screening run. Zero MaxConcurrency means serial conversion.
type Options struct {
	MinValue       float64
	Thresholds     aggregate.Thresholds
	MaxConcurrency int
}

// Result is the complete outcome of one screening run: the converted record
// set, the aggregated table, the critical subset for the memo generator, the
// canonical entities observed, and the skip accounting. A run either
// produces all of this consistently or returns an error.
type Result struct {
	Records   []model.RiskRecord
	Summaries []model.EntityRiskSummary
	Critical  []model.EntityRiskSummary
	Entities  []model.CanonicalEntity
	Summary   model.RunSummary
}

// Pipeline screens contract records against one reference table. The
// resolver registry is created per run and discarded with it.
type Pipeline struct {
	table *reference.Table
	opts  Options
}

// New creates a Pipeline over a validated reference table.
func New(table *reference.Table, opts Options) *Pipeline {
	if opts.Thresholds == (aggregate.Thresholds{}) {
		opts.Thresholds = aggregate.DefaultThresholds()
	}
	return &Pipeline{table: table, opts: opts}
}

// Run executes the full screen over the input records. Per-record problems
// (non-positive or sub-minimum value) are skipped and counted; a rate <= 0
// surfacing during conversion indicates corrupt reference data and aborts
// the whole run.
func (p *Pipeline) Run(ctx context.Context, records []model.ContractRecord) (*Result, error) {
	runID := uuid.New().String()
	started := time.Now().UTC()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting screen", zap.Int("records", len(records)))

	summary := model.RunSummary{
		RunID:        runID,
		StartedAt:    started,
		InputRecords: len(records),
	}

	// Stage 1: entity resolution. Serial: the alias registry mutates as
	// unmapped names are observed.
	resolver := resolve.NewResolver(p.table.Aliases)
	resolved := make([]model.ContractRecord, 0, len(records))
	for _, rec := range records {
		rec.CanonicalBuyer = resolver.Resolve(rec.BuyerRaw)
		resolved = append(resolved, rec)
	}

	// Stage 2: exact-match dedup, first-seen wins.
	deduped, dropped := resolve.Dedupe(resolved)
	summary.Deduplicated = dropped

	// Stages 3-4: classification and conversion, independent per record.
	// The registry is no longer mutated past this point, so records can be
	// processed in parallel against a consistent view.
	classifier := classify.New(p.table)
	converted, err := p.convertAll(ctx, classifier, deduped, &summary)
	if err != nil {
		return nil, err
	}
	summary.Converted = len(converted)

	// Stage 5: pure aggregation.
	summaries := aggregate.Summarize(converted, p.opts.Thresholds)
	summary.Entities = len(summaries)

	// Stage 6: critical-tier trigger.
	critical := aggregate.Critical(summaries)
	summary.CriticalEntities = len(critical)

	summary.FinishedAt = time.Now().UTC()
	log.Info("pipeline: screen complete",
		zap.Int("converted", summary.Converted),
		zap.Int("deduplicated", summary.Deduplicated),
		zap.Int("skipped_invalid_value", summary.SkippedInvalid),
		zap.Int("skipped_low_value", summary.SkippedLowValue),
		zap.Int("entities", summary.Entities),
		zap.Int("critical_entities", summary.CriticalEntities),
	)

	return &Result{
		Records:   converted,
		Summaries: summaries,
		Critical:  critical,
		Entities:  resolver.Entities(),
		Summary:   summary,
	}, nil
}

// convertAll classifies and converts the deduplicated records, preserving
// input order in the output. Skip counts land in summary.
func (p *Pipeline) convertAll(ctx context.Context, classifier *classify.Classifier, records []model.ContractRecord, summary *model.RunSummary) ([]model.RiskRecord, error) {
	type slot struct {
		record      model.RiskRecord
		ok          bool
		lowValue    bool
		invalid     bool
		genFallback bool
	}

	slots := make([]slot, len(records))

	process := func(i int) error {
		rec := records[i]

		if rec.Value <= 0 {
			zap.L().Warn("pipeline: skipping record with non-positive value",
				zap.String("ocid", rec.OCID),
				zap.Float64("value", rec.Value),
			)
			slots[i].invalid = true
			return nil
		}
		if rec.Value < p.opts.MinValue {
			slots[i].lowValue = true
			return nil
		}

		profile := classifier.Classify(rec.Text())
		if profile.ID == reference.GeneralBlendID {
			slots[i].genFallback = true
		}
		rec.Profile = profile.Name

		rr, err := convert.Convert(rec, profile)
		if err != nil {
			if eris.Is(err, convert.ErrInvalidRate) {
				// Corrupt reference data: abort, all downstream
				// aggregation would be unreliable.
				return eris.Wrap(err, "pipeline: convert")
			}
			zap.L().Warn("pipeline: skipping unconvertible record",
				zap.String("ocid", rec.OCID),
				zap.Error(err),
			)
			slots[i].invalid = true
			return nil
		}

		slots[i].record = rr
		slots[i].ok = true
		return nil
	}

	if p.opts.MaxConcurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.MaxConcurrency)
		for i := range records {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return process(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range records {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "pipeline: cancelled")
			}
			if err := process(i); err != nil {
				return nil, err
			}
		}
	}

	out := make([]model.RiskRecord, 0, len(records))
	for _, s := range slots {
		switch {
		case s.ok:
			out = append(out, s.record)
			if s.genFallback {
				summary.UnmatchedProfiles++
			}
		case s.lowValue:
			summary.SkippedLowValue++
		default:
			summary.SkippedInvalid++
		}
	}
	return out, nil
}
