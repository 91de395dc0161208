package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	ocid          TEXT PRIMARY KEY,
	buyer_raw     TEXT NOT NULL,
	buyer_country TEXT,
	title         TEXT NOT NULL,
	description   TEXT,
	cpv_code      TEXT NOT NULL,
	value_amount  REAL NOT NULL,
	currency      TEXT NOT NULL,
	published     DATETIME,
	tender_status TEXT,
	source        TEXT
);

CREATE TABLE IF NOT EXISTS screening_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	summary     TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS entity_summaries (
	run_id             TEXT NOT NULL REFERENCES screening_runs(id),
	canonical_buyer    TEXT NOT NULL,
	total_value        REAL NOT NULL,
	total_carbon_tco2e REAL NOT NULL,
	contract_count     INTEGER NOT NULL,
	risk_tier          TEXT NOT NULL,
	PRIMARY KEY (run_id, canonical_buyer)
);

CREATE TABLE IF NOT EXISTS risk_records (
	run_id              TEXT NOT NULL REFERENCES screening_runs(id),
	contract_id         TEXT NOT NULL,
	canonical_buyer     TEXT NOT NULL,
	material_profile    TEXT NOT NULL,
	value_amount        REAL NOT NULL,
	est_material_tonnes REAL NOT NULL,
	est_co2e_tonnes     REAL NOT NULL,
	co2e_range_low      REAL NOT NULL,
	co2e_range_high     REAL NOT NULL,
	PRIMARY KEY (run_id, contract_id)
);

CREATE INDEX IF NOT EXISTS idx_contracts_cpv ON contracts(cpv_code);
CREATE INDEX IF NOT EXISTS idx_runs_status ON screening_runs(status);
CREATE INDEX IF NOT EXISTS idx_entity_summaries_tier ON entity_summaries(run_id, risk_tier);
CREATE INDEX IF NOT EXISTS idx_risk_records_buyer ON risk_records(run_id, canonical_buyer);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertContracts(ctx context.Context, records []model.ContractRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contracts (ocid, buyer_raw, buyer_country, title, description, cpv_code, value_amount, currency, published, tender_status, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (ocid) DO UPDATE SET
		   buyer_raw = excluded.buyer_raw, buyer_country = excluded.buyer_country,
		   title = excluded.title, description = excluded.description,
		   cpv_code = excluded.cpv_code, value_amount = excluded.value_amount,
		   currency = excluded.currency, published = excluded.published,
		   tender_status = excluded.tender_status, source = excluded.source`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.OCID, r.BuyerRaw, r.BuyerCountry, r.Title, r.Description,
			r.CPVCode, r.Value, r.Currency, r.Published.UTC(), r.TenderStatus, r.Source,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert contract %s", r.OCID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListContracts(ctx context.Context) ([]model.ContractRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ocid, buyer_raw, buyer_country, title, description, cpv_code, value_amount, currency, published, tender_status, source
		 FROM contracts ORDER BY published, ocid`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contracts")
	}
	defer rows.Close()

	var records []model.ContractRecord
	for rows.Next() {
		var r model.ContractRecord
		var country, desc, status, source sql.NullString
		if err := rows.Scan(&r.OCID, &r.BuyerRaw, &country, &r.Title, &desc,
			&r.CPVCode, &r.Value, &r.Currency, &r.Published, &status, &source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contract")
		}
		r.BuyerCountry = country.String
		r.Description = desc.String
		r.TenderStatus = status.String
		r.Source = source.String
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list contracts iterate")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, summaries []model.EntityRiskSummary, records []model.RiskRecord) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save run")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO screening_runs (id, status, summary, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		run.Summary.RunID, string(run.Status), string(summaryJSON),
		run.Summary.StartedAt.UTC(), run.Summary.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.Summary.RunID)
	}

	for _, es := range summaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_summaries (run_id, canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.Summary.RunID, es.CanonicalBuyer, es.TotalValue, es.TotalCarbon, es.ContractCount, string(es.Tier),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert summary for %s", es.CanonicalBuyer)
		}
	}

	for _, rr := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO risk_records (run_id, contract_id, canonical_buyer, material_profile, value_amount, est_material_tonnes, est_co2e_tonnes, co2e_range_low, co2e_range_high)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.Summary.RunID, rr.ContractID, rr.CanonicalBuyer, rr.ProfileName,
			rr.Value, rr.Mass, rr.CarbonTCO2e, rr.CarbonLow, rr.CarbonHigh,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert risk record %s", rr.ContractID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, summary FROM screening_runs WHERE id = ?`, runID,
	)

	var run Run
	var status, summaryJSON string
	err := row.Scan(&status, &summaryJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT status, summary FROM screening_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var status, summaryJSON string
		if err := rows.Scan(&status, &summaryJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		run.Status = model.RunStatus(status)
		if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// summaryOrder mirrors the pipeline's deterministic sort so stored results
// read back in the same order they were reported.
const summaryOrder = ` ORDER BY total_carbon_tco2e DESC, total_value DESC, canonical_buyer ASC`

func (s *SQLiteStore) ListSummaries(ctx context.Context, runID string) ([]model.EntityRiskSummary, error) {
	return s.querySummaries(ctx,
		`SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier
		 FROM entity_summaries WHERE run_id = ?`+summaryOrder,
		runID,
	)
}

func (s *SQLiteStore) ListCritical(ctx context.Context, runID string) ([]model.EntityRiskSummary, error) {
	return s.querySummaries(ctx,
		`SELECT canonical_buyer, total_value, total_carbon_tco2e, contract_count, risk_tier
		 FROM entity_summaries WHERE run_id = ? AND risk_tier = ?`+summaryOrder,
		runID, string(model.TierCritical),
	)
}

func (s *SQLiteStore) querySummaries(ctx context.Context, query string, args ...any) ([]model.EntityRiskSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query summaries")
	}
	defer rows.Close()

	var summaries []model.EntityRiskSummary
	for rows.Next() {
		var es model.EntityRiskSummary
		var tier string
		if err := rows.Scan(&es.CanonicalBuyer, &es.TotalValue, &es.TotalCarbon, &es.ContractCount, &tier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		es.Tier = model.RiskTier(tier)
		summaries = append(summaries, es)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: query summaries iterate")
}

func (s *SQLiteStore) ListRiskRecords(ctx context.Context, runID string) ([]model.RiskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contract_id, canonical_buyer, material_profile, value_amount, est_material_tonnes, est_co2e_tonnes, co2e_range_low, co2e_range_high
		 FROM risk_records WHERE run_id = ?
		 ORDER BY est_co2e_tonnes DESC, value_amount DESC, contract_id ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list risk records")
	}
	defer rows.Close()

	var records []model.RiskRecord
	for rows.Next() {
		var rr model.RiskRecord
		if err := rows.Scan(&rr.ContractID, &rr.CanonicalBuyer, &rr.ProfileName,
			&rr.Value, &rr.Mass, &rr.CarbonTCO2e, &rr.CarbonLow, &rr.CarbonHigh); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk record")
		}
		records = append(records, rr)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list risk records iterate")
}

var _ Store = (*SQLiteStore)(nil)
