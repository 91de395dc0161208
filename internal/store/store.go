package store

import (
	"context"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// Run is a persisted screening run: its accounting summary plus terminal
// status. Entity summaries and per-contract risk records hang off the run ID.
type Run struct {
	Summary model.RunSummary `json:"summary"`
	Status  model.RunStatus  `json:"status"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the screening pipeline.
type Store interface {
	// Contracts
	UpsertContracts(ctx context.Context, records []model.ContractRecord) (int, error)
	ListContracts(ctx context.Context) ([]model.ContractRecord, error)

	// Runs. SaveRun writes the run row, its entity summaries and its risk
	// records in one transaction: a run is visible in full or not at all.
	SaveRun(ctx context.Context, run Run, summaries []model.EntityRiskSummary, records []model.RiskRecord) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Results
	ListSummaries(ctx context.Context, runID string) ([]model.EntityRiskSummary, error)
	ListCritical(ctx context.Context, runID string) ([]model.EntityRiskSummary, error)
	ListRiskRecords(ctx context.Context, runID string) ([]model.RiskRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
