package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/resilience"
	"github.com/sells-group/cx-engine/pkg/anthropic"
)

// Engine sequences the three analysis stages: sentiment and driver run
// concurrently, business impact consumes both. The engine holds only
// immutable configuration and is safe for concurrent use; each analysis is a
// pure function of its inputs plus provider responses.
type Engine struct {
	sentiment *SentimentStage
	driver    *DriverStage
	impact    *ImpactStage
	business  config.BusinessConfig
	lexicon   *Lexicon
	modelID   string
	now       func() time.Time
}

// New builds an Engine from configuration and an injected LLM client.
// The churn lexicon is loaded from cfg.Engine.LexiconPath when set,
// otherwise the built-in table is used.
func New(client anthropic.Client, cfg *config.Config) (*Engine, error) {
	lexicon := DefaultLexicon()
	if cfg.Engine.LexiconPath != "" {
		loaded, err := LoadLexicon(cfg.Engine.LexiconPath)
		if err != nil {
			return nil, err
		}
		lexicon = loaded
	}

	timeout := time.Duration(cfg.Engine.StageTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Engine.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Engine.MaxAttempts
	}

	return &Engine{
		sentiment: NewSentimentStage(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, timeout, retry, lexicon),
		driver:    NewDriverStage(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, timeout, retry),
		impact:    NewImpactStage(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, timeout, retry, cfg.Business),
		business:  cfg.Business,
		lexicon:   lexicon,
		modelID:   cfg.Anthropic.Model,
		now:       time.Now,
	}, nil
}

// AnalyzeFeedback runs the full pipeline for one piece of feedback. It never
// returns an error: stage failures are absorbed by each stage's own fallback,
// and any unanticipated failure in assembly is converted into a degraded but
// fully-populated outcome.
func (e *Engine) AnalyzeFeedback(ctx context.Context, text string, customerContext map[string]any) (out model.AnalysisOutcome) {
	start := e.now().UTC()
	analysisID := newAnalysisID(start)
	log := zap.L().With(zap.String("analysis_id", analysisID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("engine: analysis panicked", zap.Any("panic", r))
			out = e.degraded(analysisID, start, text, customerContext, fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	log.Info("engine: starting analysis", zap.Int("text_len", len(text)))

	// Sentiment and driver have no mutual data dependency; launch both and
	// join before the impact stage.
	var sentiment model.SentimentResult
	var driver model.DriverResult
	var sentimentUsage, driverUsage anthropic.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sentiment, sentimentUsage = e.sentiment.Analyze(gCtx, text)
		return nil
	})
	g.Go(func() error {
		driver, driverUsage = e.driver.Analyze(gCtx, text)
		return nil
	})
	_ = g.Wait()

	impact, impactUsage := e.impact.Assess(ctx, text, sentiment, driver, customerContext)

	var usage anthropic.TokenUsage
	usage.Add(sentimentUsage)
	usage.Add(driverUsage)
	usage.Add(impactUsage)

	intel := model.CXIntelligence{
		AnalysisID:        analysisID,
		Timestamp:         start,
		InputText:         text,
		CustomerContext:   customerContext,
		SentimentAnalysis: sentiment,
		DriverAnalysis:    driver,
		BusinessImpact:    impact,
		ExecutiveSummary:  buildExecutiveSummary(sentiment, driver, impact),
		ActionRequired:    impact.ResolutionPriority.ActionRequired(),
	}

	log.Info("engine: analysis complete",
		zap.Int("csat", sentiment.CSATPrediction),
		zap.String("churn_risk", string(sentiment.ChurnRisk)),
		zap.String("primary_driver", string(driver.PrimaryDriver)),
		zap.String("priority", string(impact.ResolutionPriority)),
		zap.Bool("action_required", intel.ActionRequired),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
		zap.Float64("estimated_cost_usd", usage.EstimateCost(e.modelID)),
	)

	return model.AnalysisOutcome{Intelligence: intel}
}

// buildExecutiveSummary projects the three stage results into the
// denormalized stakeholder view.
func buildExecutiveSummary(sentiment model.SentimentResult, driver model.DriverResult, impact model.ImpactResult) model.ExecutiveSummary {
	return model.ExecutiveSummary{
		CustomerSatisfaction: model.CustomerSatisfaction{
			PredictedCSAT:        sentiment.CSATPrediction,
			ChurnRisk:            sentiment.ChurnRisk,
			RequiresIntervention: sentiment.RequiresFollowup,
		},
		BusinessIssue: model.BusinessIssue{
			PrimaryProblem:  driver.SpecificIssue,
			AffectedProcess: driver.AffectedJourneyStage,
			Severity:        driver.ImpactSeverity,
		},
		FinancialImpact: model.FinancialImpact{
			RevenueAtRisk:  impact.RevenueImpact.ExpectedLoss,
			ResolutionCost: impact.OperationalImpact.TotalSupportCost,
			ROIRatio:       impact.ResolutionROI.ROIRatio,
		},
		RecommendedAction: model.RecommendedAction{
			Priority:       impact.ResolutionPriority,
			Urgency:        sentiment.Urgency,
			ExpectedEffort: impact.OperationalImpact.EstimatedSupportHours,
		},
	}
}

// degraded assembles a minimal, fully-populated outcome from the stage
// fallbacks, tagged with the failure reason for diagnostics.
func (e *Engine) degraded(analysisID string, ts time.Time, text string, customerContext map[string]any, reason string) model.AnalysisOutcome {
	sentiment := model.FallbackSentiment()
	sentiment.ChurnRisk = e.lexicon.ChurnRiskFor(sentiment.CSATPrediction, text)
	driver := model.FallbackDriver()
	impact := fallbackImpact(sentiment.CSATPrediction, driver.ImpactSeverity)
	Derive(&impact, e.business)

	intel := model.CXIntelligence{
		AnalysisID:        analysisID,
		Timestamp:         ts,
		InputText:         text,
		CustomerContext:   customerContext,
		SentimentAnalysis: sentiment,
		DriverAnalysis:    driver,
		BusinessImpact:    impact,
		ExecutiveSummary:  buildExecutiveSummary(sentiment, driver, impact),
		ActionRequired:    impact.ResolutionPriority.ActionRequired(),
	}

	return model.AnalysisOutcome{
		Intelligence:   intel,
		Degraded:       true,
		DegradedReason: reason,
	}
}

// newAnalysisID builds a time-derived identifier with a random suffix so
// concurrent analyses started in the same instant stay distinct.
func newAnalysisID(ts time.Time) string {
	return fmt.Sprintf("CX-%s-%s", ts.Format("20060102T150405Z"), uuid.NewString()[:8])
}
