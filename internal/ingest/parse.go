package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// searchResponse is the slice of the OCDS search payload this client reads.
type searchResponse struct {
	Releases []release `json:"releases"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

type release struct {
	OCID           string          `json:"ocid"`
	Date           string          `json:"date"`
	Tender         *tender         `json:"tender"`
	Buyer          *party          `json:"buyer"`
	Parties        []party         `json:"parties"`
	Classification json.RawMessage `json:"classification"`
	Value          *amount         `json:"value"`
}

type tender struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
	Classification json.RawMessage `json:"classification"`
	Value          *amount         `json:"value"`
}

type party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address *struct {
		CountryName string `json:"countryName"`
	} `json:"address"`
}

type amount struct {
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

// parseRelease maps one OCDS release to a ContractRecord. Releases without
// an ocid or a recognizable CPV code, and releases outside the configured
// CPV prefixes, are dropped.
func (c *Client) parseRelease(rel release) (model.ContractRecord, bool) {
	if rel.OCID == "" {
		return model.ContractRecord{}, false
	}

	cpv := extractCPV(rel)
	if cpv == "" {
		return model.ContractRecord{}, false
	}
	if !MatchesPrefix(cpv, c.opts.CPVPrefixes) {
		return model.ContractRecord{}, false
	}

	value, currency := extractValue(rel)

	rec := model.ContractRecord{
		OCID:     rel.OCID,
		CPVCode:  cpv,
		Value:    value,
		Currency: currency,
		Source:   "UK Contracts Finder",
	}

	if rel.Tender != nil {
		rec.Title = rel.Tender.Title
		rec.Description = rel.Tender.Description
		rec.TenderStatus = rel.Tender.Status
	}
	if rec.Title == "" {
		rec.Title = "Unknown"
	}
	if len(rec.Description) > c.opts.MaxDescLen {
		rec.Description = rec.Description[:c.opts.MaxDescLen]
	}

	if rel.Buyer != nil {
		rec.BuyerRaw = rel.Buyer.Name
	}
	if rec.BuyerRaw == "" {
		rec.BuyerRaw = "Unknown"
	}

	rec.BuyerCountry = "GB"
	if rel.Buyer != nil {
		for _, p := range rel.Parties {
			if p.ID == rel.Buyer.ID && p.Address != nil && p.Address.CountryName != "" {
				rec.BuyerCountry = p.Address.CountryName
			}
		}
	}

	if rel.Date != "" {
		if ts, err := time.Parse(time.RFC3339, rel.Date); err == nil {
			rec.Published = ts
		}
	}

	return rec, true
}

// extractCPV digs the CPV code out of the release. The classification block
// moves around in practice: tender.classification as an object, as a list,
// or a release-level classification. Non-digits are stripped.
func extractCPV(rel release) string {
	if rel.Tender != nil {
		if id := classificationID(rel.Tender.Classification); id != "" {
			return normalizeCPV(id)
		}
	}
	if id := classificationID(rel.Classification); id != "" {
		return normalizeCPV(id)
	}
	return ""
}

type classification struct {
	ID string `json:"id"`
}

func classificationID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single classification
	if err := json.Unmarshal(raw, &single); err == nil && single.ID != "" {
		return single.ID
	}
	var list []classification
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, c := range list {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}

func normalizeCPV(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractValue prefers tender.value, falling back to the release-level
// value. Currency defaults to GBP.
func extractValue(rel release) (float64, string) {
	candidates := []*amount{}
	if rel.Tender != nil {
		candidates = append(candidates, rel.Tender.Value)
	}
	candidates = append(candidates, rel.Value)

	for _, a := range candidates {
		if a != nil && a.Amount != nil {
			currency := a.Currency
			if currency == "" {
				currency = "GBP"
			}
			return *a.Amount, currency
		}
	}
	return 0, "GBP"
}

// MatchesPrefix reports whether a CPV code starts with any of the given
// prefixes. An empty prefix list admits everything.
func MatchesPrefix(cpv string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(cpv, p) {
			return true
		}
	}
	return false
}
