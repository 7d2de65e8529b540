package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/civicworks/projectwatch/internal/model"
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
CREATE TABLE IF NOT EXISTS extraction_results (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	success      INTEGER NOT NULL,
	payload      TEXT NOT NULL,
	extracted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	project_name   TEXT NOT NULL,
	score          INTEGER NOT NULL,
	classification TEXT NOT NULL,
	payload        TEXT NOT NULL,
	analyzed_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_results_run_id ON extraction_results(run_id);
CREATE INDEX IF NOT EXISTS idx_extraction_results_source_id ON extraction_results(source_id);
CREATE INDEX IF NOT EXISTS idx_analyses_project_id ON analyses(project_id);
CREATE INDEX IF NOT EXISTS idx_analyses_classification ON analyses(classification);
CREATE INDEX IF NOT EXISTS idx_analyses_analyzed_at ON analyses(analyzed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveExtractionResults(ctx context.Context, results []model.ExtractionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal extraction result")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO extraction_results (id, run_id, source_id, success, payload, extracted_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), r.RunID, r.SourceID, boolToInt(r.Success), string(payload), r.ExtractedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert extraction result %s", r.SourceID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit extraction results")
}

func (s *SQLiteStore) ListExtractionResults(ctx context.Context, runID string) ([]model.ExtractionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM extraction_results WHERE run_id = ? ORDER BY source_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list extraction results %s", runID)
	}
	defer rows.Close()

	var results []model.ExtractionResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan extraction result")
		}
		var r model.ExtractionResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extraction result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list extraction results iterate")
}

func (s *SQLiteStore) SaveAnalyses(ctx context.Context, analyses []model.ProjectAnalysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range analyses {
		payload, err := json.Marshal(a)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal analysis")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO analyses (id, project_id, project_name, score, classification, payload, analyzed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), a.ProjectID, a.ProjectName, a.StalledScore,
			string(a.Classification), string(payload), a.AnalyzedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert analysis %s", a.ProjectID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit analyses")
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.ProjectAnalysis, error) {
	query := `SELECT payload FROM analyses WHERE 1=1`
	var args []any

	if filter.Classification != "" {
		query += ` AND classification = ?`
		args = append(args, string(filter.Classification))
	}
	query += ` ORDER BY analyzed_at DESC, score DESC`

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
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

func (s *SQLiteStore) AnalysisHistory(ctx context.Context, projectID string, limit int) ([]model.ProjectAnalysis, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM analyses WHERE project_id = ? ORDER BY analyzed_at DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: analysis history %s", projectID)
	}
	defer rows.Close()

	analyses, err := scanAnalyses(rows)
	if err != nil {
		return nil, err
	}
	// Stored newest-first; return oldest-first so trends read left to right.
	for i, j := 0, len(analyses)-1; i < j; i, j = i+1, j-1 {
		analyses[i], analyses[j] = analyses[j], analyses[i]
	}
	return analyses, nil
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanAnalyses(rows *sql.Rows) ([]model.ProjectAnalysis, error) {
	var analyses []model.ProjectAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var a model.ProjectAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}
