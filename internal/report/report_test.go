package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/carbonsight/carbon-cli/internal/model"
)

func testReport() *Report {
	return &Report{
		Summary: model.RunSummary{RunID: "run-1", InputRecords: 5, Converted: 4, Entities: 2, CriticalEntities: 1},
		Summaries: []model.EntityRiskSummary{
			{CanonicalBuyer: "national highways", TotalValue: 9000000, TotalCarbon: 1500.5, ContractCount: 4, Tier: model.TierCritical},
			{CanonicalBuyer: "kent county council", TotalValue: 250000, TotalCarbon: 233.25, ContractCount: 2, Tier: model.TierElevated},
		},
		Critical: []model.EntityRiskSummary{
			{CanonicalBuyer: "national highways", TotalValue: 9000000, TotalCarbon: 1500.5, ContractCount: 4, Tier: model.TierCritical},
		},
		Records: []model.RiskRecord{
			{ContractID: "ocds-1", CanonicalBuyer: "national highways", ProfileName: "Structural Steel", Value: 165000, Mass: 110, CarbonTCO2e: 177.1, CarbonLow: 132.825, CarbonHigh: 221.375},
		},
	}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testReport().WriteJSON(&buf))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.Summary.RunID)
	require.Len(t, got.Summaries, 2)
	assert.Equal(t, model.TierCritical, got.Summaries[0].Tier)
}

func TestWriteCSV_UnroundedValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testReport().WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, summaryHeader, rows[0])
	assert.Equal(t, []string{"national highways", "9000000", "1500.5", "4", "CRITICAL"}, rows[1])
	assert.Equal(t, "233.25", rows[2][2])
}

func TestWriteXLSX_TwoSheets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testReport().WriteXLSX(&buf))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Entity Summary", f.Sheets[0].Name)
	assert.Equal(t, "Contracts", f.Sheets[1].Name)

	// Header plus two entity rows.
	require.Len(t, f.Sheets[0].Rows, 3)
	assert.Equal(t, "national highways", f.Sheets[0].Rows[1].Cells[0].String())

	require.Len(t, f.Sheets[1].Rows, 2)
	assert.Equal(t, "ocds-1", f.Sheets[1].Rows[1].Cells[0].String())
}

func TestWriteXLSX_NoRecordsSingleSheet(t *testing.T) {
	r := testReport()
	r.Records = nil

	var buf bytes.Buffer
	require.NoError(t, r.WriteXLSX(&buf))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 1)
}

func TestWriteMemo_CriticalOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testReport().WriteMemo(&buf))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "national highways")
	assert.Contains(t, out, "4 contracts")
	// British English grouping on the value.
	assert.Contains(t, out, "£9,000,000")
	assert.NotContains(t, out, "kent county council")
}

func TestWriteMemo_NoCriticalNoOutput(t *testing.T) {
	r := testReport()
	r.Critical = nil

	var buf bytes.Buffer
	require.NoError(t, r.WriteMemo(&buf))
	assert.Empty(t, strings.TrimSpace(buf.String()))
}
