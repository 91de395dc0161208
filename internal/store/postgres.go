package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/carbonsight/carbon-cli/internal/db"
	"github.com/carbonsight/carbon-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_run":        `SELECT status, summary FROM screening_runs WHERE id = $1`,
	"list_summaries": `SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier FROM entity_summaries WHERE run_id = $1 ORDER BY total_carbon_tco2e DESC, total_value DESC, canonical_buyer ASC`,
	"list_critical":  `SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier FROM entity_summaries WHERE run_id = $1 AND risk_tier = $2 ORDER BY total_carbon_tco2e DESC, total_value DESC, canonical_buyer ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	ocid          TEXT PRIMARY KEY,
	buyer_raw     TEXT NOT NULL,
	buyer_country TEXT,
	title         TEXT NOT NULL,
	description   TEXT,
	cpv_code      TEXT NOT NULL,
	value_amount  DOUBLE PRECISION NOT NULL,
	currency      TEXT NOT NULL,
	published     TIMESTAMPTZ,
	tender_status TEXT,
	source        TEXT
);

CREATE TABLE IF NOT EXISTS screening_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	summary     JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS entity_summaries (
	run_id             TEXT NOT NULL REFERENCES screening_runs(id),
	canonical_buyer    TEXT NOT NULL,
	total_value        DOUBLE PRECISION NOT NULL,
	total_carbon_tco2e DOUBLE PRECISION NOT NULL,
	contract_count     INTEGER NOT NULL,
	risk_tier          TEXT NOT NULL,
	PRIMARY KEY (run_id, canonical_buyer)
);

CREATE TABLE IF NOT EXISTS risk_records (
	run_id              TEXT NOT NULL REFERENCES screening_runs(id),
	contract_id         TEXT NOT NULL,
	canonical_buyer     TEXT NOT NULL,
	material_profile    TEXT NOT NULL,
	value_amount        DOUBLE PRECISION NOT NULL,
	est_material_tonnes DOUBLE PRECISION NOT NULL,
	est_co2e_tonnes     DOUBLE PRECISION NOT NULL,
	co2e_range_low      DOUBLE PRECISION NOT NULL,
	co2e_range_high     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, contract_id)
);

CREATE INDEX IF NOT EXISTS idx_contracts_cpv ON contracts(cpv_code);
CREATE INDEX IF NOT EXISTS idx_runs_status ON screening_runs(status);
CREATE INDEX IF NOT EXISTS idx_entity_summaries_tier ON entity_summaries(run_id, risk_tier);
CREATE INDEX IF NOT EXISTS idx_risk_records_buyer ON risk_records(run_id, canonical_buyer);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var contractColumns = []string{
	"ocid", "buyer_raw", "buyer_country", "title", "description",
	"cpv_code", "value_amount", "currency", "published", "tender_status", "source",
}

func (s *PostgresStore) UpsertContracts(ctx context.Context, records []model.ContractRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.OCID, r.BuyerRaw, r.BuyerCountry, r.Title, r.Description,
			r.CPVCode, r.Value, r.Currency, r.Published.UTC(), r.TenderStatus, r.Source,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contracts",
		Columns:      contractColumns,
		ConflictKeys: []string{"ocid"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert contracts")
	}
	return int(n), nil
}

func (s *PostgresStore) ListContracts(ctx context.Context) ([]model.ContractRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ocid, buyer_raw, buyer_country, title, description, cpv_code, value_amount, currency, published, tender_status, source
		 FROM contracts ORDER BY published, ocid`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contracts")
	}
	defer rows.Close()

	var records []model.ContractRecord
	for rows.Next() {
		var r model.ContractRecord
		var country, desc, status, source *string
		var published *time.Time
		if err := rows.Scan(&r.OCID, &r.BuyerRaw, &country, &r.Title, &desc,
			&r.CPVCode, &r.Value, &r.Currency, &published, &status, &source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contract")
		}
		if country != nil {
			r.BuyerCountry = *country
		}
		if desc != nil {
			r.Description = *desc
		}
		if published != nil {
			r.Published = *published
		}
		if status != nil {
			r.TenderStatus = *status
		}
		if source != nil {
			r.Source = *source
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list contracts iterate")
}

func (s *PostgresStore) SaveRun(ctx context.Context, run Run, summaries []model.EntityRiskSummary, records []model.RiskRecord) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO screening_runs (id, status, summary, started_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		run.Summary.RunID, string(run.Status), summaryJSON,
		run.Summary.StartedAt.UTC(), run.Summary.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.Summary.RunID)
	}

	if len(summaries) > 0 {
		rows := make([][]any, 0, len(summaries))
		for _, es := range summaries {
			rows = append(rows, []any{
				run.Summary.RunID, es.CanonicalBuyer, es.TotalValue, es.TotalCarbon, es.ContractCount, string(es.Tier),
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"entity_summaries"},
			[]string{"run_id", "canonical_buyer", "total_value", "total_carbon_tco2e", "contract_count", "risk_tier"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return eris.Wrap(err, "postgres: copy entity summaries")
		}
	}

	if len(records) > 0 {
		rows := make([][]any, 0, len(records))
		for _, rr := range records {
			rows = append(rows, []any{
				run.Summary.RunID, rr.ContractID, rr.CanonicalBuyer, rr.ProfileName,
				rr.Value, rr.Mass, rr.CarbonTCO2e, rr.CarbonLow, rr.CarbonHigh,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"risk_records"},
			[]string{"run_id", "contract_id", "canonical_buyer", "material_profile", "value_amount", "est_material_tonnes", "est_co2e_tonnes", "co2e_range_low", "co2e_range_high"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return eris.Wrap(err, "postgres: copy risk records")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var status string
	var summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT status, summary FROM screening_runs WHERE id = $1`, runID,
	).Scan(&status, &summaryJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run summary")
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT status, summary FROM screening_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var status string
		var summaryJSON []byte
		if err := rows.Scan(&status, &summaryJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		run.Status = model.RunStatus(status)
		if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run summary")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListSummaries(ctx context.Context, runID string) ([]model.EntityRiskSummary, error) {
	return s.querySummaries(ctx,
		`SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier
		 FROM entity_summaries WHERE run_id = $1
		 ORDER BY total_carbon_tco2e DESC, total_value DESC, canonical_buyer ASC`,
		runID,
	)
}

func (s *PostgresStore) ListCritical(ctx context.Context, runID string) ([]model.EntityRiskSummary, error) {
	return s.querySummaries(ctx,
		`SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier
		 FROM entity_summaries WHERE run_id = $1 AND risk_tier = $2
		 ORDER BY total_carbon_tco2e DESC, total_value DESC, canonical_buyer ASC`,
		runID, string(model.TierCritical),
	)
}

func (s *PostgresStore) querySummaries(ctx context.Context, query string, args ...any) ([]model.EntityRiskSummary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query summaries")
	}
	defer rows.Close()

	var summaries []model.EntityRiskSummary
	for rows.Next() {
		var es model.EntityRiskSummary
		var tier string
		if err := rows.Scan(&es.CanonicalBuyer, &es.TotalValue, &es.TotalCarbon, &es.ContractCount, &tier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		es.Tier = model.RiskTier(tier)
		summaries = append(summaries, es)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: query summaries iterate")
}

func (s *PostgresStore) ListRiskRecords(ctx context.Context, runID string) ([]model.RiskRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contract_id, canonical_buyer, material_profile, value_amount, est_material_tonnes, est_co2e_tonnes, co2e_range_low, co2e_range_high
		 FROM risk_records WHERE run_id = $1
		 ORDER BY est_co2e_tonnes DESC, value_amount DESC, contract_id ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list risk records")
	}
	defer rows.Close()

	var records []model.RiskRecord
	for rows.Next() {
		var rr model.RiskRecord
		if err := rows.Scan(&rr.ContractID, &rr.CanonicalBuyer, &rr.ProfileName,
			&rr.Value, &rr.Mass, &rr.CarbonTCO2e, &rr.CarbonLow, &rr.CarbonHigh); err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk record")
		}
		records = append(records, rr)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list risk records iterate")
}

var _ Store = (*PostgresStore)(nil)
