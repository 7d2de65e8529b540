package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/civicworks/projectwatch/internal/model"
)

// Pool abstracts the pgx pool operations the store needs, so tests can
// substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
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

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extraction_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id       TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	payload      JSONB NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	project_id     TEXT NOT NULL,
	project_name   TEXT NOT NULL,
	score          INTEGER NOT NULL,
	classification TEXT NOT NULL,
	payload        JSONB NOT NULL,
	analyzed_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_results_run_id ON extraction_results(run_id);
CREATE INDEX IF NOT EXISTS idx_extraction_results_source_id ON extraction_results(source_id);
CREATE INDEX IF NOT EXISTS idx_analyses_project_id ON analyses(project_id);
CREATE INDEX IF NOT EXISTS idx_analyses_classification ON analyses(classification);
CREATE INDEX IF NOT EXISTS idx_analyses_analyzed_at ON analyses(analyzed_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveExtractionResults(ctx context.Context, results []model.ExtractionResult) error {
	for _, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal extraction result")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO extraction_results (id, run_id, source_id, success, payload, extracted_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), r.RunID, r.SourceID, r.Success, payload, r.ExtractedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert extraction result %s", r.SourceID)
		}
	}
	return nil
}

func (s *PostgresStore) ListExtractionResults(ctx context.Context, runID string) ([]model.ExtractionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM extraction_results WHERE run_id = $1 ORDER BY source_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list extraction results %s", runID)
	}
	defer rows.Close()

	var results []model.ExtractionResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan extraction result")
		}
		var r model.ExtractionResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal extraction result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list extraction results iterate")
}

func (s *PostgresStore) SaveAnalyses(ctx context.Context, analyses []model.ProjectAnalysis) error {
	for _, a := range analyses {
		payload, err := json.Marshal(a)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal analysis")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO analyses (id, project_id, project_name, score, classification, payload, analyzed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), a.ProjectID, a.ProjectName, a.StalledScore,
			string(a.Classification), payload, a.AnalyzedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert analysis %s", a.ProjectID)
		}
	}
	return nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.ProjectAnalysis, error) {
	query := `SELECT payload FROM analyses WHERE 1=1`
	var args []any

	if filter.Classification != "" {
		args = append(args, string(filter.Classification))
		query += ` AND classification = $1`
	}
	query += ` ORDER BY analyzed_at DESC, score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	return scanPgAnalyses(rows)
}

func (s *PostgresStore) AnalysisHistory(ctx context.Context, projectID string, limit int) ([]model.ProjectAnalysis, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM analyses WHERE project_id = $1 ORDER BY analyzed_at DESC LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: analysis history %s", projectID)
	}
	defer rows.Close()

	analyses, err := scanPgAnalyses(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(analyses)-1; i < j; i, j = i+1, j-1 {
		analyses[i], analyses[j] = analyses[j], analyses[i]
	}
	return analyses, nil
}

func scanPgAnalyses(rows pgx.Rows) ([]model.ProjectAnalysis, error) {
	var analyses []model.ProjectAnalysis
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var a model.ProjectAnalysis
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}
