package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carbonsight/carbon-cli/internal/fetcher"
	"github.com/carbonsight/carbon-cli/internal/ingest"
)

var (
	ingestFrom        string
	ingestTo          string
	ingestResetCursor bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull contract notices from Contracts Finder into the store",
	Long:  "Crawls the Contracts Finder OCDS search API page by page, keeps construction-relevant notices (by CPV prefix), and upserts them into the contract store. An interrupted crawl resumes from the persisted cursor.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if ingestResetCursor && cfg.Ingest.CursorPath != "" {
			if err := os.Remove(cfg.Ingest.CursorPath); err != nil && !os.IsNotExist(err) {
				return eris.Wrap(err, "ingest: reset cursor")
			}
		}

		fetch := fetcher.New(fetcher.Options{
			UserAgent:  cfg.Ingest.UserAgent,
			Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Ingest.MaxRetries,
			RatePerSec: cfg.Ingest.RatePerSec,
		})

		client := ingest.NewClient(fetch, ingest.Options{
			BaseURL:       cfg.Ingest.BaseURL,
			PageLimit:     cfg.Ingest.PageLimit,
			MaxDescLen:    cfg.Ingest.MaxDescLen,
			CPVPrefixes:   cfg.Ingest.CPVPrefixes,
			PublishedFrom: ingestFrom,
			PublishedTo:   ingestTo,
			CursorPath:    cfg.Ingest.CursorPath,
		})

		records, err := client.FetchAll(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertContracts(ctx, records)
		if err != nil {
			return eris.Wrap(err, "ingest: store")
		}

		zap.L().Info("ingest complete",
			zap.Int("fetched", len(records)),
			zap.Int("stored", n),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "publishedFrom filter (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "publishedTo filter (YYYY-MM-DD)")
	ingestCmd.Flags().BoolVar(&ingestResetCursor, "reset-cursor", false, "discard the saved pagination cursor and start over")
	rootCmd.AddCommand(ingestCmd)
}
