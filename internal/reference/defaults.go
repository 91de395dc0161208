package reference

import "github.com/carbonsight/carbon-cli/internal/model"

// DefaultProfiles returns the built-in material reference table. Rates are
// composite installed rates in GBP per tonne; factors are kgCO2e per tonne
// from the ICE embodied carbon database. Order is most-specific first: the
// classifier stops at the first keyword hit, so structural steel terms must
// precede generic surfacing terms.
func DefaultProfiles() []model.MaterialProfile {
	return []model.MaterialProfile{
		{
			ID:       "MAT_STEEL",
			Name:     "Structural Steel",
			Rate:     1500,
			Factor:   1610,
			Citation: "ICE DB v3.0 - Steel, section, UK average recycled content",
			Keywords: []string{"bridge", "steelwork", "steel", "gantry", "footbridge"},
		},
		{
			ID:       "MAT_CONC",
			Name:     "Reinforced Concrete",
			Rate:     120,
			Factor:   103,
			Citation: "ICE DB v3.0 - Concrete, RC 32/40 with CEM I",
			Keywords: []string{"concrete", "foundation", "culvert", "retaining wall", "pier"},
		},
		{
			ID:       "MAT_ASPHALT",
			Name:     "Asphalt",
			Rate:     85,
			Factor:   56.15,
			Citation: "ICE DB v3.0 - Asphalt, 4% binder content",
			Keywords: []string{"asphalt", "resurfacing", "surfacing", "carriageway", "pothole", "paving"},
		},
		{
			ID:       "MAT_AGG",
			Name:     "Bulk Aggregate",
			Rate:     25,
			Factor:   7.6,
			Citation: "ICE DB v3.0 - Aggregate, general UK mix",
			Keywords: []string{"aggregate", "earthworks", "excavation", "drainage", "embankment", "dredging"},
		},
		{
			ID:       "MAT_GEN",
			Name:     "General Blend",
			Rate:     150,
			Factor:   180,
			Citation: "Synthetic composite of ICE DB v3.0 civil materials, spend-weighted",
		},
	}
}

// DefaultAliases returns the built-in buyer alias dictionary. Keys are
// normalized raw forms, values the canonical identity. Deployments extend
// this through reference.aliases_path; the aliases command generates
// candidate entries from observed data.
func DefaultAliases() map[string]string {
	return map[string]string{}
}
