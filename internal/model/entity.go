package model

// CanonicalEntity is the single normalized identity a buyer's raw name
// variants resolve to. It owns no records; contracts reference it through
// their CanonicalBuyer field.
type CanonicalEntity struct {
	Name    string   `json:"canonical_name"`
	Aliases []string `json:"aliases"`
}
