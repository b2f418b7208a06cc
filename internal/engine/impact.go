package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/resilience"
	"github.com/sells-group/cx-engine/pkg/anthropic"
)

const impactSystemPrompt = `You assess the business impact of customer feedback given prior analysis. Respond with a valid JSON object only, no prose, matching exactly this schema:
{"revenue_impact": {"monthly_value_at_risk": <number>, "risk_type": "<churn|downgrade|reduced_usage|referral_loss>", "risk_probability": <0.0-1.0>, "expected_loss": <number>}, "operational_impact": {"estimated_support_hours": <number>, "escalation_probability": <0.0-1.0>, "total_support_cost": <number>}, "brand_impact": {"nps_change": <integer>, "review_likelihood": <0.0-1.0>, "predicted_review_rating": <integer 1-5>, "viral_risk": "<low|medium|high>"}, "resolution_priority": "<P1|P2|P3|P4>", "resolution_roi": {"cost_to_resolve": <number>, "value_preserved": <number>, "roi_ratio": <number>}}
P1 is most urgent. Estimate monetary values for a typical SMB customer.`

const impactUserPrompt = `Customer feedback:
%s

Prior analysis:
- CSAT prediction: %d/5
- Primary driver: %s
- Impact severity: %s%s`

// impactRequiredKeys is the response schema minus the derived totals, which
// are recomputed locally either way. A missing estimate key means its zero
// value would masquerade as a real estimate, so the response is rejected.
var impactRequiredKeys = []string{
	"revenue_impact.monthly_value_at_risk",
	"revenue_impact.risk_type",
	"revenue_impact.risk_probability",
	"operational_impact.estimated_support_hours",
	"operational_impact.escalation_probability",
	"brand_impact.nps_change",
	"brand_impact.review_likelihood",
	"brand_impact.predicted_review_rating",
	"brand_impact.viral_risk",
	"resolution_priority",
}

// ImpactStage consumes the feedback text plus the outputs of the sentiment
// and driver stages and produces quantified business impact. The model's
// qualitative estimates are kept; its arithmetic is discarded and recomputed
// locally via Derive.
type ImpactStage struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	retry     resilience.RetryConfig
	business  config.BusinessConfig
}

// NewImpactStage creates a business impact stage with an injected LLM client.
func NewImpactStage(client anthropic.Client, modelID string, maxTokens int64, timeout time.Duration, retry resilience.RetryConfig, business config.BusinessConfig) *ImpactStage {
	return &ImpactStage{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		timeout:   timeout,
		retry:     retry,
		business:  business,
	}
}

// Assess never fails: any invocation, parse, or validation problem yields
// the deterministic fallback keyed by (csat, severity). Both paths run
// through Derive, so fallback and success records are structurally identical.
func (s *ImpactStage) Assess(ctx context.Context, text string, sentiment model.SentimentResult, driver model.DriverResult, customerContext map[string]any) (model.ImpactResult, anthropic.TokenUsage) {
	result, usage, err := s.query(ctx, text, sentiment, driver, customerContext)
	if err != nil {
		zap.L().Warn("impact: substituting fallback",
			zap.Int("csat", sentiment.CSATPrediction),
			zap.String("severity", string(driver.ImpactSeverity)),
			zap.Error(err),
		)
		result = fallbackImpact(sentiment.CSATPrediction, driver.ImpactSeverity)
	}

	Derive(&result, s.business)
	return result, usage
}

func (s *ImpactStage) query(ctx context.Context, text string, sentiment model.SentimentResult, driver model.DriverResult, customerContext map[string]any) (model.ImpactResult, anthropic.TokenUsage, error) {
	var zero model.ImpactResult
	var usage anthropic.TokenUsage

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contextBlock := ""
	if len(customerContext) > 0 {
		if data, err := json.Marshal(customerContext); err == nil {
			contextBlock = "\n\nCustomer context:\n" + string(data)
		}
	}

	temp := stageTemperature
	req := anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(impactSystemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(impactUserPrompt,
				text,
				sentiment.CSATPrediction,
				driver.PrimaryDriver,
				driver.ImpactSeverity,
				contextBlock,
			)},
		},
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("impact")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return zero, usage, eris.Wrap(err, "impact: create message")
	}
	usage = resp.Usage
	usage.LogCost(s.model, "impact")

	raw := anthropic.ExtractText(resp)
	if strings.TrimSpace(raw) == "" {
		return zero, usage, eris.New("impact: empty response")
	}

	cleaned := []byte(cleanJSON(raw))
	if err := requireKeys(cleaned, impactRequiredKeys...); err != nil {
		return zero, usage, eris.Wrap(err, "impact: incomplete response")
	}

	var result model.ImpactResult
	if err := json.Unmarshal(cleaned, &result); err != nil {
		return zero, usage, eris.Wrap(err, "impact: parse response")
	}
	if err := result.Validate(); err != nil {
		return zero, usage, err
	}
	return result, usage, nil
}

// fallbackImpact is the deterministic rule table applied when the model call
// or its validation fails, keyed by the already-computed CSAT prediction and
// impact severity.
func fallbackImpact(csat int, severity model.ImpactSeverity) model.ImpactResult {
	var valueAtRisk float64
	var priority model.ResolutionPriority
	switch {
	case csat <= 2 && (severity == model.SeverityCritical || severity == model.SeverityHigh):
		valueAtRisk = 2500
		priority = model.PriorityP2
	case csat <= 3:
		valueAtRisk = 1000
		priority = model.PriorityP3
	default:
		valueAtRisk = 250
		priority = model.PriorityP4
	}

	viralRisk := model.ViralRiskLow
	if priority == model.PriorityP2 {
		viralRisk = model.ViralRiskMedium
	}

	return model.ImpactResult{
		RevenueImpact: model.RevenueImpact{
			MonthlyValueAtRisk: valueAtRisk,
			RiskType:           "churn",
			RiskProbability:    0.5,
		},
		OperationalImpact: model.OperationalImpact{
			EstimatedSupportHours: 2.0,
			EscalationProbability: 0.5,
		},
		BrandImpact: model.BrandImpact{
			NPSChange:             -1,
			ReviewLikelihood:      0.3,
			PredictedReviewRating: clampCSAT(csat),
			ViralRisk:             viralRisk,
		},
		ResolutionPriority: priority,
	}
}
