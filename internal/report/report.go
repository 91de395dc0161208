// Package report renders screening results for human review: the risk table
// as JSON, CSV or XLSX, and the outreach memo for critical-tier entities.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// Report bundles one run's results for export.
type Report struct {
	Summary   model.RunSummary          `json:"run_summary"`
	Summaries []model.EntityRiskSummary `json:"entities"`
	Critical  []model.EntityRiskSummary `json:"critical_entities"`
	Records   []model.RiskRecord        `json:"records,omitempty"`
}

var summaryHeader = []string{
	"canonical_buyer", "total_value", "total_carbon_tco2e", "contract_count", "risk_tier",
}

// WriteJSON writes the full report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "report: encode json")
}

// WriteCSV writes the entity summary table as CSV. Numbers are emitted
// unrounded; spreadsheet formatting is the consumer's concern.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, es := range r.Summaries {
		row := []string{
			es.CanonicalBuyer,
			strconv.FormatFloat(es.TotalValue, 'f', -1, 64),
			strconv.FormatFloat(es.TotalCarbon, 'f', -1, 64),
			strconv.Itoa(es.ContractCount),
			string(es.Tier),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write csv row for %s", es.CanonicalBuyer)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteXLSX writes a workbook with an entity summary sheet and, when records
// are present, a per-contract detail sheet.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Entity Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	hdr := sheet.AddRow()
	for _, h := range summaryHeader {
		hdr.AddCell().SetString(h)
	}
	for _, es := range r.Summaries {
		row := sheet.AddRow()
		row.AddCell().SetString(es.CanonicalBuyer)
		row.AddCell().SetFloat(es.TotalValue)
		row.AddCell().SetFloat(es.TotalCarbon)
		row.AddCell().SetInt(es.ContractCount)
		row.AddCell().SetString(string(es.Tier))
	}

	if len(r.Records) > 0 {
		detail, err := f.AddSheet("Contracts")
		if err != nil {
			return eris.Wrap(err, "report: add contracts sheet")
		}
		dhdr := detail.AddRow()
		for _, h := range []string{
			"contract_id", "canonical_buyer", "material_profile",
			"value_amount", "est_material_tonnes", "est_co2e_tonnes",
			"co2e_range_low", "co2e_range_high",
		} {
			dhdr.AddCell().SetString(h)
		}
		for _, rr := range r.Records {
			row := detail.AddRow()
			row.AddCell().SetString(rr.ContractID)
			row.AddCell().SetString(rr.CanonicalBuyer)
			row.AddCell().SetString(rr.ProfileName)
			row.AddCell().SetFloat(rr.Value)
			row.AddCell().SetFloat(rr.Mass)
			row.AddCell().SetFloat(rr.CarbonTCO2e)
			row.AddCell().SetFloat(rr.CarbonLow)
			row.AddCell().SetFloat(rr.CarbonHigh)
		}
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}

// WriteMemo writes the outreach memo for the critical tier: one paragraph per
// entity whose aggregated estimate crossed the critical threshold, largest
// exposure first. No critical entities produces no memo.
func (r *Report) WriteMemo(w io.Writer) error {
	if len(r.Critical) == 0 {
		return nil
	}

	p := message.NewPrinter(language.BritishEnglish)

	if _, err := fmt.Fprintf(w, "Embodied Carbon Screening: Critical Entities (run %s)\n\n", r.Summary.RunID); err != nil {
		return eris.Wrap(err, "report: write memo header")
	}
	for i, es := range r.Critical {
		_, err := p.Fprintf(w,
			"%d. %s\n   %d contracts totalling £%.0f, estimated %.1f tCO2e embodied carbon.\n\n",
			i+1, es.CanonicalBuyer, es.ContractCount, es.TotalValue, es.TotalCarbon,
		)
		if err != nil {
			return eris.Wrapf(err, "report: write memo entry for %s", es.CanonicalBuyer)
		}
	}
	return nil
}
