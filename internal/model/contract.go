package model

import "time"

// ContractRecord is a single procurement notice as ingested from the
// Contracts Finder OCDS feed. The raw fields are immutable after ingestion;
// the pipeline only attaches derived fields (CanonicalBuyer, Profile).
type ContractRecord struct {
	OCID         string    `json:"ocid"`
	BuyerRaw     string    `json:"buyer_name_raw"`
	BuyerCountry string    `json:"buyer_country,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CPVCode      string    `json:"cpv_code"`
	Value        float64   `json:"value_amount"`
	Currency     string    `json:"currency"`
	Published    time.Time `json:"published_date"`
	TenderStatus string    `json:"tender_status,omitempty"`
	Source       string    `json:"source,omitempty"`

	// Derived by the pipeline.
	CanonicalBuyer string `json:"canonical_buyer,omitempty"`
	Profile        string `json:"material_profile,omitempty"`
}

// Text returns the lower-cased title+description concatenation the material
// classifier matches against.
func (c ContractRecord) Text() string {
	return c.Title + " " + c.Description
}
