// Package convert implements the price-to-quantity estimation arithmetic:
// contract value to estimated material mass to embodied carbon.
package convert

import (
	"github.com/rotisserie/eris"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// ErrInvalidRate indicates a composite rate <= 0. This is corrupt reference
// data and aborts the run: every downstream mass would be meaningless.
var ErrInvalidRate = eris.New("composite rate must be positive")

// ErrInvalidValue indicates a contract value <= 0. Per-record, recoverable:
// the pipeline skips the record and counts it.
var ErrInvalidValue = eris.New("contract value must be positive")

// Uncertainty band applied to the point estimate. The composite rate is a
// calibrated approximation, so each estimate carries a +/-25% range.
const (
	bandLow  = 0.75
	bandHigh = 1.25
)

// Convert derives a RiskRecord from a contract and its assigned material
// profile. mass = value / rate; carbon_tco2e = mass * factor / 1000 (factor
// is kgCO2e per tonne). No rounding: presentation rounding belongs to the
// reporting consumer.
func Convert(rec model.ContractRecord, profile model.MaterialProfile) (model.RiskRecord, error) {
	if rec.Value <= 0 {
		return model.RiskRecord{}, eris.Wrapf(ErrInvalidValue, "contract %s has value %v", rec.OCID, rec.Value)
	}
	if profile.Rate <= 0 {
		return model.RiskRecord{}, eris.Wrapf(ErrInvalidRate, "profile %s has rate %v", profile.ID, profile.Rate)
	}

	mass := rec.Value / profile.Rate
	carbon := mass * profile.Factor / 1000

	return model.RiskRecord{
		ContractID:     rec.OCID,
		CanonicalBuyer: rec.CanonicalBuyer,
		ProfileName:    profile.Name,
		Value:          rec.Value,
		Mass:           mass,
		CarbonTCO2e:    carbon,
		CarbonLow:      carbon * bandLow,
		CarbonHigh:     carbon * bandHigh,
	}, nil
}
