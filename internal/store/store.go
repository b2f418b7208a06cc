// Package store persists analysis outcomes for the upstream
// feedback-processing workflow. The engine itself is stateless; everything
// here happens after an analysis has been produced.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/model"
)

// AnalysisFilter specifies criteria for listing stored analyses.
type AnalysisFilter struct {
	Priority model.ResolutionPriority `json:"priority,omitempty"`
	Degraded *bool                    `json:"degraded,omitempty"`
	Limit    int                      `json:"limit,omitempty"`
	Offset   int                      `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis outcomes.
type Store interface {
	// Analyses
	SaveAnalysis(ctx context.Context, outcome model.AnalysisOutcome) error
	GetAnalysis(ctx context.Context, analysisID string) (*model.AnalysisOutcome, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisOutcome, error)

	// Feedback processing status
	MarkFeedbackProcessed(ctx context.Context, feedbackID, analysisID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
