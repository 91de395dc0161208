package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/carbonsight/carbon-cli/internal/report"
	"github.com/carbonsight/carbon-cli/internal/store"
)

var (
	reportRunID  string
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a screening run",
	Long:  "Exports the entity risk table and critical-tier memo of a screening run as json, csv, xlsx, or memo text. Defaults to the most recent run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runID := reportRunID
		if runID == "" {
			runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 1})
			if err != nil {
				return eris.Wrap(err, "report: list runs")
			}
			if len(runs) == 0 {
				return eris.New("report: no screening runs recorded")
			}
			runID = runs[0].Summary.RunID
		}

		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		summaries, err := st.ListSummaries(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		critical, err := st.ListCritical(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		records, err := st.ListRiskRecords(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "report")
		}

		rep := &report.Report{
			Summary:   run.Summary,
			Summaries: summaries,
			Critical:  critical,
			Records:   records,
		}

		var out io.Writer = os.Stdout
		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				return eris.Wrap(err, "report: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch reportFormat {
		case "json":
			return rep.WriteJSON(out)
		case "csv":
			return rep.WriteCSV(out)
		case "xlsx":
			if reportOut == "" {
				return eris.New("report: xlsx format requires --out")
			}
			return rep.WriteXLSX(out)
		case "memo":
			return rep.WriteMemo(out)
		default:
			return eris.Errorf("report: unknown format %q", reportFormat)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to export (default: most recent)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json, csv, xlsx, memo")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output file (default: stdout)")
	rootCmd.AddCommand(reportCmd)
}
