package main

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carbonsight/carbon-cli/internal/aggregate"
	"github.com/carbonsight/carbon-cli/internal/ingest"
	"github.com/carbonsight/carbon-cli/internal/model"
	"github.com/carbonsight/carbon-cli/internal/pipeline"
	"github.com/carbonsight/carbon-cli/internal/reference"
	"github.com/carbonsight/carbon-cli/internal/report"
	"github.com/carbonsight/carbon-cli/internal/store"
)

var (
	screenInputCSV string
	screenMemoPath string
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the embodied-carbon screen over stored contracts",
	Long:  "Resolves buyer entities, deduplicates notices, classifies each contract to a material profile, converts value to estimated mass and carbon, aggregates per entity, and persists the run. Contracts come from the store unless --input points at a CSV export.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		table, err := reference.Load(cfg.Reference.ProfilesPath, cfg.Reference.AliasesPath)
		if err != nil {
			return eris.Wrap(err, "screen: load reference")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var records []model.ContractRecord
		if screenInputCSV != "" {
			records, err = readContractsCSV(screenInputCSV)
			if err != nil {
				return err
			}
		} else {
			records, err = st.ListContracts(ctx)
			if err != nil {
				return eris.Wrap(err, "screen: list contracts")
			}
		}
		if len(records) == 0 {
			return eris.New("screen: no contracts to screen; run ingest first or pass --input")
		}

		p := pipeline.New(table, pipeline.Options{
			MinValue: cfg.Screen.MinValue,
			Thresholds: aggregate.Thresholds{
				Critical: cfg.Screen.CriticalTCO2e,
				Elevated: cfg.Screen.ElevatedTCO2e,
			},
			MaxConcurrency: cfg.Screen.MaxConcurrency,
		})

		result, err := p.Run(ctx, records)
		if err != nil {
			return eris.Wrap(err, "screen")
		}

		run := store.Run{Summary: result.Summary, Status: model.RunStatusComplete}
		if err := st.SaveRun(ctx, run, result.Summaries, result.Records); err != nil {
			return eris.Wrap(err, "screen: save run")
		}

		previewTop(result.Summaries, cfg.Screen.PreviewTopN)

		if screenMemoPath != "" && len(result.Critical) > 0 {
			rep := &report.Report{Summary: result.Summary, Critical: result.Critical}
			f, err := os.Create(screenMemoPath)
			if err != nil {
				return eris.Wrap(err, "screen: create memo file")
			}
			defer f.Close() //nolint:errcheck
			if err := rep.WriteMemo(f); err != nil {
				return err
			}
			zap.L().Info("screen: memo written",
				zap.String("path", screenMemoPath),
				zap.Int("critical_entities", len(result.Critical)),
			)
		}

		zap.L().Info("screen complete", zap.String("run_id", result.Summary.RunID))
		return nil
	},
}

// previewTop logs the highest-carbon entities for a quick look without
// opening the exported report.
func previewTop(summaries []model.EntityRiskSummary, n int) {
	if n > len(summaries) {
		n = len(summaries)
	}
	for i := 0; i < n; i++ {
		es := summaries[i]
		zap.L().Info("screen: top entity",
			zap.Int("rank", i+1),
			zap.String("buyer", es.CanonicalBuyer),
			zap.Float64("total_tco2e", es.TotalCarbon),
			zap.Float64("total_value", es.TotalValue),
			zap.Int("contracts", es.ContractCount),
			zap.String("tier", string(es.Tier)),
		)
	}
}

// csvColumns maps header names to record fields; the loader accepts exports
// with columns in any order.
func readContractsCSV(path string) ([]model.ContractRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "screen: open input csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "screen: read csv header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.ContractRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "screen: read csv row")
		}

		rec := model.ContractRecord{
			OCID:         field(row, "ocid"),
			BuyerRaw:     field(row, "buyer_name"),
			Title:        field(row, "title"),
			Description:  field(row, "description"),
			CPVCode:      field(row, "cpv_code"),
			Value:        ingest.CleanCurrency(field(row, "value_amount")),
			Currency:     field(row, "currency"),
			TenderStatus: field(row, "tender_status"),
			Source:       "CSV import",
		}
		if rec.Currency == "" {
			rec.Currency = "GBP"
		}
		if raw := field(row, "published_date"); raw != "" {
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if ts, err := time.Parse(layout, raw); err == nil {
					rec.Published = ts
					break
				}
			}
		}
		if rec.OCID == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func init() {
	screenCmd.Flags().StringVar(&screenInputCSV, "input", "", "screen a CSV export instead of stored contracts")
	screenCmd.Flags().StringVar(&screenMemoPath, "memo", "", "write the critical-tier memo to this path")
	rootCmd.AddCommand(screenCmd)
}
