package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/painel-rs/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// too, which keeps the Postgres backend unit-testable without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":          `INSERT INTO runs (id, kind, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_run_status":   `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_run":        `UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":             `SELECT id, kind, status, summary, started_at, updated_at FROM runs WHERE id = $1`,
	"load_records":        `SELECT data FROM records ORDER BY position`,
	"load_email_results":  `SELECT data FROM email_results WHERE run_id = $1 ORDER BY seq`,
	"load_geo_cache":      `SELECT data FROM geo_cache WHERE run_id = $1 ORDER BY city_key`,
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

	// Prepare frequently-used statements on each new connection.
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	position INTEGER PRIMARY KEY,
	data     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS email_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	institution  TEXT NOT NULL,
	data         JSONB NOT NULL,
	attempted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS geo_cache (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	city_key TEXT NOT NULL,
	data     JSONB NOT NULL,
	PRIMARY KEY (run_id, city_key)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_email_results_run_id ON email_results(run_id);
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
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(kind), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, summary, started_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return run, err
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, summary, started_at, updated_at FROM runs
		 ORDER BY started_at DESC LIMIT 1`,
	)
	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ReplaceRecords swaps the registry snapshot in one transaction, bulk
// loading the new rows through the COPY protocol.
func (s *PostgresStore) ReplaceRecords(ctx context.Context, records []model.InstitutionRecord) error {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal record %d", i)
		}
		rows = append(rows, []any{i, data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace records")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return eris.Wrap(err, "postgres: clear records")
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"records"}, []string{"position", "data"}, pgx.CopyFromRows(rows),
	); err != nil {
		return eris.Wrap(err, "postgres: copy records")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace records")
}

func (s *PostgresStore) LoadRecords(ctx context.Context) ([]model.InstitutionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM records ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load records")
	}
	defer rows.Close()

	var records []model.InstitutionRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		var rec model.InstitutionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: load records iterate")
}

func (s *PostgresStore) SaveEmailResults(ctx context.Context, runID string, results []model.EmailDiscoveryResult) error {
	rows := make([][]any, 0, len(results))
	for i, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal email result %s", res.Institution)
		}
		rows = append(rows, []any{uuid.New().String(), runID, i, res.Institution, data, res.AttemptedAt.UTC()})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save email results")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM email_results WHERE run_id = $1`, runID); err != nil {
		return eris.Wrap(err, "postgres: clear email results")
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"email_results"},
		[]string{"id", "run_id", "seq", "institution", "data", "attempted_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return eris.Wrap(err, "postgres: copy email results")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save email results")
}

func (s *PostgresStore) LoadEmailResults(ctx context.Context, runID string) ([]model.EmailDiscoveryResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM email_results WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load email results")
	}
	defer rows.Close()

	var results []model.EmailDiscoveryResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email result")
		}
		var res model.EmailDiscoveryResult
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal email result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "postgres: load email results iterate")
}

func (s *PostgresStore) SaveGeoCache(ctx context.Context, runID string, entries []model.GeoCacheEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal geo cache %s", entry.CityKey)
		}
		rows = append(rows, []any{runID, entry.CityKey, data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save geo cache")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM geo_cache WHERE run_id = $1`, runID); err != nil {
		return eris.Wrap(err, "postgres: clear geo cache")
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"geo_cache"}, []string{"run_id", "city_key", "data"}, pgx.CopyFromRows(rows),
	); err != nil {
		return eris.Wrap(err, "postgres: copy geo cache")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save geo cache")
}

func (s *PostgresStore) LoadGeoCache(ctx context.Context, runID string) ([]model.GeoCacheEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM geo_cache WHERE run_id = $1 ORDER BY city_key`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load geo cache")
	}
	defer rows.Close()

	var entries []model.GeoCacheEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geo cache entry")
		}
		var entry model.GeoCacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal geo cache entry")
		}
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: load geo cache iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var summaryJSON []byte

	err := row.Scan(&r.ID, &r.Kind, &r.Status, &summaryJSON, &r.StartedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(summaryJSON) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}
