// Package processor is the feedback-processing workflow that sits upstream of
// the analysis engine: it fans feedback items out to the engine under a
// provider rate limit, persists each outcome, and marks the originating
// feedback record processed.
package processor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/engine"
	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/store"
)

// BatchSummary tallies the outcome of one ProcessBatch call.
type BatchSummary struct {
	Total          int           `json:"total"`
	Analyzed       int           `json:"analyzed"`
	Degraded       int           `json:"degraded"`
	ActionRequired int           `json:"action_required"`
	StoreFailures  int           `json:"store_failures"`
	Duration       time.Duration `json:"duration"`
}

// Processor runs batches of feedback items through the engine.
type Processor struct {
	engine  *engine.Engine
	store   store.Store
	limiter *rate.Limiter
	workers int
}

// New creates a Processor. The rate limiter throttles analyses against the
// provider's limits; the engine itself does no throttling.
func New(eng *engine.Engine, st store.Store, cfg config.BatchConfig) *Processor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Processor{
		engine:  eng,
		store:   st,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		workers: workers,
	}
}

// ProcessBatch analyzes every item. Item-level problems (rate-limit wait
// cut short by cancellation, store write failures) are logged and counted,
// never abort the batch; the engine guarantees every analysis attempt yields
// a structurally valid outcome.
func (p *Processor) ProcessBatch(ctx context.Context, items []model.FeedbackItem) BatchSummary {
	start := time.Now()
	summary := BatchSummary{Total: len(items)}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, item := range items {
		g.Go(func() error {
			if err := p.limiter.Wait(gCtx); err != nil {
				zap.L().Warn("processor: rate limit wait interrupted",
					zap.String("feedback_id", item.ID),
					zap.Error(err),
				)
				return nil
			}

			outcome := p.engine.AnalyzeFeedback(gCtx, item.Text, item.Context)

			stored := true
			if err := p.store.SaveAnalysis(gCtx, outcome); err != nil {
				zap.L().Error("processor: save analysis failed",
					zap.String("feedback_id", item.ID),
					zap.String("analysis_id", outcome.Intelligence.AnalysisID),
					zap.Error(err),
				)
				stored = false
			} else if err := p.store.MarkFeedbackProcessed(gCtx, item.ID, outcome.Intelligence.AnalysisID); err != nil {
				zap.L().Error("processor: mark feedback processed failed",
					zap.String("feedback_id", item.ID),
					zap.Error(err),
				)
				stored = false
			}

			mu.Lock()
			summary.Analyzed++
			if outcome.Degraded {
				summary.Degraded++
			}
			if outcome.Intelligence.ActionRequired {
				summary.ActionRequired++
			}
			if !stored {
				summary.StoreFailures++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	summary.Duration = time.Since(start)

	zap.L().Info("processor: batch complete",
		zap.Int("total", summary.Total),
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("degraded", summary.Degraded),
		zap.Int("action_required", summary.ActionRequired),
		zap.Int("store_failures", summary.StoreFailures),
		zap.Duration("duration", summary.Duration),
	)
	return summary
}
