package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cx-engine/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (or a mock) as a PostgresStore.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id              TEXT PRIMARY KEY,
	created_at      TIMESTAMPTZ NOT NULL,
	input_text      TEXT NOT NULL,
	priority        TEXT NOT NULL,
	action_required BOOLEAN NOT NULL DEFAULT FALSE,
	degraded        BOOLEAN NOT NULL DEFAULT FALSE,
	degraded_reason TEXT,
	intelligence    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_status (
	feedback_id  TEXT PRIMARY KEY,
	analysis_id  TEXT NOT NULL REFERENCES analyses(id),
	processed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_priority ON analyses(priority);
CREATE INDEX IF NOT EXISTS idx_analyses_degraded ON analyses(degraded);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_status_analysis_id ON feedback_status(analysis_id);
`

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

func (s *PostgresStore) SaveAnalysis(ctx context.Context, outcome model.AnalysisOutcome) error {
	intel := outcome.Intelligence

	intelJSON, err := json.Marshal(intel)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal intelligence")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, created_at, input_text, priority, action_required, degraded, degraded_reason, intelligence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		intel.AnalysisID,
		intel.Timestamp.UTC(),
		intel.InputText,
		string(intel.BusinessImpact.ResolutionPriority),
		intel.ActionRequired,
		outcome.Degraded,
		outcome.DegradedReason,
		intelJSON,
	)
	return eris.Wrapf(err, "postgres: insert analysis %s", intel.AnalysisID)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisOutcome, error) {
	var intelJSON []byte
	var degraded bool
	var reason *string

	err := s.pool.QueryRow(ctx,
		`SELECT intelligence, degraded, degraded_reason FROM analyses WHERE id = $1`,
		analysisID,
	).Scan(&intelJSON, &degraded, &reason)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("analysis not found: %s", analysisID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get analysis")
	}

	reasonStr := ""
	if reason != nil {
		reasonStr = *reason
	}
	return buildOutcome(string(intelJSON), degraded, reasonStr)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisOutcome, error) {
	query := `SELECT intelligence, degraded, degraded_reason FROM analyses WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		query += ` AND priority = $1`
	}
	if filter.Degraded != nil {
		args = append(args, *filter.Degraded)
		query += ` AND degraded = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var outcomes []model.AnalysisOutcome
	for rows.Next() {
		var intelJSON []byte
		var degraded bool
		var reason *string
		if err := rows.Scan(&intelJSON, &degraded, &reason); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		reasonStr := ""
		if reason != nil {
			reasonStr = *reason
		}
		outcome, err := buildOutcome(string(intelJSON), degraded, reasonStr)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) MarkFeedbackProcessed(ctx context.Context, feedbackID, analysisID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback_status (feedback_id, analysis_id, processed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (feedback_id) DO UPDATE SET analysis_id = EXCLUDED.analysis_id, processed_at = EXCLUDED.processed_at`,
		feedbackID, analysisID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: mark feedback processed %s", feedbackID)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
