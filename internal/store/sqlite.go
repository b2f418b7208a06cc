package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cx-engine/internal/model"
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
CREATE TABLE IF NOT EXISTS analyses (
	id              TEXT PRIMARY KEY,
	created_at      DATETIME NOT NULL,
	input_text      TEXT NOT NULL,
	priority        TEXT NOT NULL,
	action_required INTEGER NOT NULL DEFAULT 0,
	degraded        INTEGER NOT NULL DEFAULT 0,
	degraded_reason TEXT,
	intelligence    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_status (
	feedback_id  TEXT PRIMARY KEY,
	analysis_id  TEXT NOT NULL REFERENCES analyses(id),
	processed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_priority ON analyses(priority);
CREATE INDEX IF NOT EXISTS idx_analyses_degraded ON analyses(degraded);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_status_analysis_id ON feedback_status(analysis_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, outcome model.AnalysisOutcome) error {
	intel := outcome.Intelligence

	intelJSON, err := json.Marshal(intel)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal intelligence")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, created_at, input_text, priority, action_required, degraded, degraded_reason, intelligence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		intel.AnalysisID,
		intel.Timestamp.UTC(),
		intel.InputText,
		string(intel.BusinessImpact.ResolutionPriority),
		boolToInt(intel.ActionRequired),
		boolToInt(outcome.Degraded),
		outcome.DegradedReason,
		string(intelJSON),
	)
	return eris.Wrapf(err, "sqlite: insert analysis %s", intel.AnalysisID)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT intelligence, degraded, degraded_reason FROM analyses WHERE id = ?`,
		analysisID,
	)

	var intelJSON string
	var degraded int
	var reason sql.NullString
	err := row.Scan(&intelJSON, &degraded, &reason)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("analysis not found: %s", analysisID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis")
	}

	return buildOutcome(intelJSON, degraded != 0, reason.String)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisOutcome, error) {
	query := `SELECT intelligence, degraded, degraded_reason FROM analyses WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.Degraded != nil {
		query += ` AND degraded = ?`
		args = append(args, boolToInt(*filter.Degraded))
	}
	query += ` ORDER BY created_at DESC`

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

	var outcomes []model.AnalysisOutcome
	for rows.Next() {
		var intelJSON string
		var degraded int
		var reason sql.NullString
		if err := rows.Scan(&intelJSON, &degraded, &reason); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		outcome, err := buildOutcome(intelJSON, degraded != 0, reason.String)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) MarkFeedbackProcessed(ctx context.Context, feedbackID, analysisID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_status (feedback_id, analysis_id, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(feedback_id) DO UPDATE SET analysis_id = excluded.analysis_id, processed_at = excluded.processed_at`,
		feedbackID, analysisID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark feedback processed %s", feedbackID)
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func buildOutcome(intelJSON string, degraded bool, reason string) (*model.AnalysisOutcome, error) {
	var outcome model.AnalysisOutcome
	if err := json.Unmarshal([]byte(intelJSON), &outcome.Intelligence); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal intelligence")
	}
	outcome.Degraded = degraded
	if degraded {
		outcome.DegradedReason = reason
	}
	return &outcome, nil
}
