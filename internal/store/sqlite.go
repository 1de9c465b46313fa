package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/painel-rs/enrich-cli/internal/model"
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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	position INTEGER PRIMARY KEY,
	data     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS email_results (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	institution  TEXT NOT NULL,
	data         TEXT NOT NULL,
	attempted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS geo_cache (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	city_key TEXT NOT NULL,
	data     TEXT NOT NULL,
	PRIMARY KEY (run_id, city_key)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_email_results_run_id ON email_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(kind), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, summary, started_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return run, err
}

// LatestRun returns the most recently started run, or nil when the store has
// never recorded one.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, summary, started_at, updated_at FROM runs
		 ORDER BY started_at DESC LIMIT 1`,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ReplaceRecords(ctx context.Context, records []model.InstitutionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace records")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return eris.Wrap(err, "sqlite: clear records")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (position, data) VALUES (?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert record")
	}
	defer stmt.Close()

	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal record %d", i)
		}
		if _, err := stmt.ExecContext(ctx, i, string(data)); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d", i)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace records")
}

func (s *SQLiteStore) LoadRecords(ctx context.Context) ([]model.InstitutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM records ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load records")
	}
	defer rows.Close()

	var records []model.InstitutionRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		var rec model.InstitutionRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: load records iterate")
}

func (s *SQLiteStore) SaveEmailResults(ctx context.Context, runID string, results []model.EmailDiscoveryResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save email results")
	}
	defer tx.Rollback() //nolint:errcheck

	// Replace the run's snapshot so periodic checkpoints stay idempotent.
	if _, err := tx.ExecContext(ctx, `DELETE FROM email_results WHERE run_id = ?`, runID); err != nil {
		return eris.Wrap(err, "sqlite: clear email results")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO email_results (id, run_id, seq, institution, data, attempted_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert email result")
	}
	defer stmt.Close()

	for i, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal email result %s", res.Institution)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, i, res.Institution, string(data), res.AttemptedAt.UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert email result %s", res.Institution)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save email results")
}

func (s *SQLiteStore) LoadEmailResults(ctx context.Context, runID string) ([]model.EmailDiscoveryResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM email_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load email results")
	}
	defer rows.Close()

	var results []model.EmailDiscoveryResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email result")
		}
		var res model.EmailDiscoveryResult
		if err := json.Unmarshal([]byte(data), &res); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal email result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: load email results iterate")
}

func (s *SQLiteStore) SaveGeoCache(ctx context.Context, runID string, entries []model.GeoCacheEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save geo cache")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM geo_cache WHERE run_id = ?`, runID); err != nil {
		return eris.Wrap(err, "sqlite: clear geo cache")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geo_cache (run_id, city_key, data) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert geo cache")
	}
	defer stmt.Close()

	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal geo cache %s", entry.CityKey)
		}
		if _, err := stmt.ExecContext(ctx, runID, entry.CityKey, string(data)); err != nil {
			return eris.Wrapf(err, "sqlite: insert geo cache %s", entry.CityKey)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save geo cache")
}

func (s *SQLiteStore) LoadGeoCache(ctx context.Context, runID string) ([]model.GeoCacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM geo_cache WHERE run_id = ? ORDER BY city_key`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load geo cache")
	}
	defer rows.Close()

	var entries []model.GeoCacheEntry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geo cache entry")
		}
		var entry model.GeoCacheEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal geo cache entry")
		}
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: load geo cache iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Kind, &r.Status, &summaryJSON, &r.StartedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
