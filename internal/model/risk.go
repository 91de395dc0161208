package model

import "time"

// RiskTier classifies an entity's aggregated carbon exposure.
type RiskTier string

const (
	TierCritical RiskTier = "CRITICAL"
	TierElevated RiskTier = "ELEVATED"
	TierStandard RiskTier = "STANDARD"
)

// MaterialProfile is one row of the reference table: a calibrated
// currency-per-tonne installed rate and an embodied-carbon factor, with the
// citation for where the factor came from. Loaded once per run, shared by
// many records, never mutated.
type MaterialProfile struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Rate     float64  `json:"composite_rate" yaml:"composite_rate"`   // GBP per tonne, > 0
	Factor   float64  `json:"carbon_factor" yaml:"carbon_factor"`     // kgCO2e per tonne, >= 0
	Citation string   `json:"citation" yaml:"citation"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// RiskRecord is the converted form of one contract:
// Mass = Value / Rate, CarbonTCO2e = Mass * Factor / 1000.
// Values are carried unrounded; presentation rounding belongs downstream.
type RiskRecord struct {
	ContractID     string  `json:"contract_id"`
	CanonicalBuyer string  `json:"canonical_buyer"`
	ProfileName    string  `json:"material_profile_name"`
	Value          float64 `json:"value_amount"`
	Mass           float64 `json:"est_material_tonnes"`
	CarbonTCO2e    float64 `json:"est_co2e_tonnes"`
	CarbonLow      float64 `json:"co2e_range_low"`
	CarbonHigh     float64 `json:"co2e_range_high"`
}

// EntityRiskSummary aggregates all RiskRecords for one canonical buyer.
// Recomputed in full on every run.
type EntityRiskSummary struct {
	CanonicalBuyer string   `json:"canonical_buyer"`
	TotalValue     float64  `json:"total_value"`
	TotalCarbon    float64  `json:"total_carbon_tco2e"`
	ContractCount  int      `json:"contract_count"`
	Tier           RiskTier `json:"risk_tier"`
}

// RunStatus represents the state of a screening run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is the accounting attached to a completed screening run. A run
// either produces a complete result set plus these skip counts, or fails
// outright; it never emits a silently partial table.
type RunSummary struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	InputRecords      int       `json:"input_records"`
	Deduplicated      int       `json:"deduplicated"`
	SkippedInvalid    int       `json:"skipped_invalid_value"`
	SkippedLowValue   int       `json:"skipped_low_value"`
	Converted         int       `json:"converted"`
	Entities          int       `json:"entities"`
	CriticalEntities  int       `json:"critical_entities"`
	UnmatchedProfiles int       `json:"general_blend_fallbacks"`
}
