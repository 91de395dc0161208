// Package classify assigns a material profile to a contract from its
// title/description text via ordered keyword rules.
package classify

import (
	"strings"

	"go.uber.org/zap"

	"github.com/carbonsight/carbon-cli/internal/model"
	"github.com/carbonsight/carbon-cli/internal/reference"
)

// Classifier matches contract text against the reference table's keyword
// rules. Rules are evaluated in table order and the first hit wins, so more
// specific terms ("bridge") are listed before generic ones ("resurfacing").
// The rule table is reference data; only the matching walk lives here.
type Classifier struct {
	table *reference.Table
}

// New builds a classifier over a validated reference table.
func New(table *reference.Table) *Classifier {
	return &Classifier{table: table}
}

// Classify returns the material profile for the given contract text.
// Matching is case-insensitive substring containment. Empty text, like text
// matching no rule, falls back to the General Blend composite.
func (c *Classifier) Classify(text string) model.MaterialProfile {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return c.table.GeneralBlend()
	}

	for _, p := range c.table.Profiles {
		if p.ID == reference.GeneralBlendID {
			continue
		}
		for _, kw := range p.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(text, kw) {
				return p
			}
		}
	}

	zap.L().Debug("classify: no rule matched, assigning general blend")
	return c.table.GeneralBlend()
}
