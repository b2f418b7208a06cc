package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/resilience"
	"github.com/sells-group/cx-engine/pkg/anthropic"
)

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 1024,
		},
		Business: testBusinessConfig(),
		Engine: config.EngineConfig{
			StageTimeoutSecs: 5,
			MaxAttempts:      1,
		},
	}
}

// stageMatcher routes mock responses by the stage's system prompt, since all
// three stages share one client.
func stageMatcher(fragment string) interface{} {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && strings.Contains(req.System[0].Text, fragment)
	})
}

func angryImpactJSON() string {
	return `{
		"revenue_impact": {"monthly_value_at_risk": 2500, "risk_type": "churn", "risk_probability": 0.8},
		"operational_impact": {"estimated_support_hours": 4, "escalation_probability": 0.7},
		"brand_impact": {"nps_change": -3, "review_likelihood": 0.8, "predicted_review_rating": 1, "viral_risk": "high"},
		"resolution_priority": "P1",
		"resolution_roi": {}
	}`
}

func setupFullPipelineClient() *mockAnthropicClient {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, stageMatcher("predict satisfaction")).
		Return(textResponse(validSentimentJSON), nil)
	client.On("CreateMessage", mock.Anything, stageMatcher("identify the business issue")).
		Return(textResponse(validDriverJSON), nil)
	client.On("CreateMessage", mock.Anything, stageMatcher("assess the business impact")).
		Return(textResponse(angryImpactJSON()), nil)
	return client
}

func TestEngine_AnalyzeFeedback_FullPipeline(t *testing.T) {
	client := setupFullPipelineClient()
	eng, err := New(client, testConfig())
	require.NoError(t, err)

	text := "Terrible service, I want to cancel. My delivery arrived three days late."
	outcome := eng.AnalyzeFeedback(context.Background(), text, map[string]any{"segment": "smb"})

	assert.False(t, outcome.Degraded)
	intel := outcome.Intelligence

	assert.True(t, strings.HasPrefix(intel.AnalysisID, "CX-"))
	assert.Equal(t, text, intel.InputText)
	assert.Equal(t, map[string]any{"segment": "smb"}, intel.CustomerContext)

	assert.Equal(t, 1, intel.SentimentAnalysis.CSATPrediction)
	assert.Equal(t, model.ChurnRiskHigh, intel.SentimentAnalysis.ChurnRisk)

	assert.Equal(t, model.DriverServiceFailures, intel.DriverAnalysis.PrimaryDriver)
	assert.Equal(t, model.SeverityHigh, intel.DriverAnalysis.ImpactSeverity)

	assert.Equal(t, model.PriorityP1, intel.BusinessImpact.ResolutionPriority)
	assert.True(t, intel.ActionRequired)
	assert.Equal(t, 2000.0, intel.BusinessImpact.RevenueImpact.ExpectedLoss)
	assert.Equal(t, 200.0, intel.BusinessImpact.OperationalImpact.TotalSupportCost)
	assert.Equal(t, 10.0, intel.BusinessImpact.ResolutionROI.ROIRatio)

	summary := intel.ExecutiveSummary
	assert.Equal(t, 1, summary.CustomerSatisfaction.PredictedCSAT)
	assert.Equal(t, model.ChurnRiskHigh, summary.CustomerSatisfaction.ChurnRisk)
	assert.True(t, summary.CustomerSatisfaction.RequiresIntervention)
	assert.Equal(t, "delivery arrived three days late", summary.BusinessIssue.PrimaryProblem)
	assert.Equal(t, 2000.0, summary.FinancialImpact.RevenueAtRisk)
	assert.Equal(t, 200.0, summary.FinancialImpact.ResolutionCost)
	assert.Equal(t, model.PriorityP1, summary.RecommendedAction.Priority)
	assert.Equal(t, model.UrgencyHigh, summary.RecommendedAction.Urgency)
	assert.Equal(t, 4.0, summary.RecommendedAction.ExpectedEffort)
}

func TestEngine_AnalyzeFeedback_HappyCustomer(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, stageMatcher("predict satisfaction")).
		Return(textResponse(`{
			"csat_prediction": 5,
			"churn_risk": "low",
			"churn_indicators": [],
			"sentiment_drivers": ["arrived on time"],
			"actionable": false,
			"actionable_reason": "nothing to resolve",
			"requires_followup": false,
			"urgency": "low"
		}`), nil)
	client.On("CreateMessage", mock.Anything, stageMatcher("identify the business issue")).
		Return(textResponse(`{
			"primary_driver": "value_perception",
			"specific_issue": "everything arrived on time",
			"impact_severity": "low",
			"affected_journey_stage": "usage",
			"friction_points": []
		}`), nil)
	client.On("CreateMessage", mock.Anything, stageMatcher("assess the business impact")).
		Return(textResponse(`{
			"revenue_impact": {"monthly_value_at_risk": 100, "risk_type": "churn", "risk_probability": 0.1},
			"operational_impact": {"estimated_support_hours": 0.5, "escalation_probability": 0.1},
			"brand_impact": {"nps_change": 1, "review_likelihood": 0.2, "predicted_review_rating": 5, "viral_risk": "low"},
			"resolution_priority": "P4"
		}`), nil)

	eng, err := New(client, testConfig())
	require.NoError(t, err)

	outcome := eng.AnalyzeFeedback(context.Background(), "Everything arrived on time, great experience.", nil)

	assert.False(t, outcome.Degraded)
	intel := outcome.Intelligence
	assert.Equal(t, 5, intel.SentimentAnalysis.CSATPrediction)
	assert.Equal(t, model.ChurnRiskLow, intel.SentimentAnalysis.ChurnRisk)
	assert.Equal(t, model.PriorityP4, intel.BusinessImpact.ResolutionPriority)
	assert.False(t, intel.ActionRequired)
	assert.False(t, intel.ExecutiveSummary.CustomerSatisfaction.RequiresIntervention)
	assert.Equal(t, 10.0, intel.BusinessImpact.RevenueImpact.ExpectedLoss)
	assert.Equal(t, 25.0, intel.BusinessImpact.OperationalImpact.TotalSupportCost)
	assert.InDelta(t, 0.4, intel.BusinessImpact.ResolutionROI.ROIRatio, 1e-9)
}

func TestEngine_AnalyzeFeedback_StageTimeouts_CompleteRecord(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	modelID := "claude-haiku-4-5-20251001"
	retry := resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}
	timeout := 50 * time.Millisecond
	lexicon := DefaultLexicon()
	eng := &Engine{
		sentiment: NewSentimentStage(client, modelID, 1024, timeout, retry, lexicon),
		driver:    NewDriverStage(client, modelID, 1024, timeout, retry),
		impact:    NewImpactStage(client, modelID, 1024, timeout, retry, testBusinessConfig()),
		business:  testBusinessConfig(),
		lexicon:   lexicon,
		modelID:   modelID,
		now:       time.Now,
	}

	outcome := eng.AnalyzeFeedback(context.Background(), "the product stopped working", nil)

	// Each stage's deadline expires, each substitutes its fallback, and the
	// record is still complete and not degraded.
	assert.False(t, outcome.Degraded)
	intel := outcome.Intelligence
	assert.Equal(t, 3, intel.SentimentAnalysis.CSATPrediction)
	assert.Equal(t, model.FallbackDriver(), intel.DriverAnalysis)
	assert.Equal(t, model.PriorityP3, intel.BusinessImpact.ResolutionPriority)
	assert.Equal(t, 500.0, intel.BusinessImpact.RevenueImpact.ExpectedLoss)
	assert.False(t, intel.ActionRequired)
}

func TestEngine_AnalyzeFeedback_AllStagesFail_CompleteRecord(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("provider down"))

	eng, err := New(client, testConfig())
	require.NoError(t, err)

	outcome := eng.AnalyzeFeedback(context.Background(), "the product stopped working", nil)

	// Stage failures are absorbed by per-stage fallbacks, so the outcome is
	// not marked degraded; every field is still populated.
	assert.False(t, outcome.Degraded)
	intel := outcome.Intelligence

	assert.Equal(t, 3, intel.SentimentAnalysis.CSATPrediction)
	assert.Equal(t, model.ChurnRiskMedium, intel.SentimentAnalysis.ChurnRisk)
	assert.True(t, intel.SentimentAnalysis.RequiresFollowup)
	assert.Equal(t, model.FallbackDriver(), intel.DriverAnalysis)

	// Fallback table: csat 3 with medium severity is 1000 at risk, P3.
	assert.Equal(t, model.PriorityP3, intel.BusinessImpact.ResolutionPriority)
	assert.False(t, intel.ActionRequired)
	assert.Equal(t, 500.0, intel.BusinessImpact.RevenueImpact.ExpectedLoss)
	assert.Equal(t, 100.0, intel.BusinessImpact.OperationalImpact.TotalSupportCost)
	assert.Equal(t, 5.0, intel.BusinessImpact.ResolutionROI.ROIRatio)

	assert.NotEmpty(t, intel.ExecutiveSummary.BusinessIssue.PrimaryProblem)
	assert.NotEmpty(t, intel.AnalysisID)
	assert.False(t, intel.Timestamp.IsZero())
}

func TestEngine_AnalyzeFeedback_DeterministicExceptIdentity(t *testing.T) {
	client := setupFullPipelineClient()
	eng, err := New(client, testConfig())
	require.NoError(t, err)

	text := "Terrible service, I want to cancel."
	first := eng.AnalyzeFeedback(context.Background(), text, nil)
	second := eng.AnalyzeFeedback(context.Background(), text, nil)

	assert.NotEqual(t, first.Intelligence.AnalysisID, second.Intelligence.AnalysisID)

	// Strip identity fields; everything else must match.
	a, b := first.Intelligence, second.Intelligence
	a.AnalysisID, b.AnalysisID = "", ""
	a.Timestamp = b.Timestamp
	assert.Equal(t, a, b)
}

func TestEngine_AnalyzeFeedback_ConcurrentCalls(t *testing.T) {
	client := setupFullPipelineClient()
	eng, err := New(client, testConfig())
	require.NoError(t, err)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := eng.AnalyzeFeedback(context.Background(), "I want to cancel", nil)
			ids[i] = outcome.Intelligence.AnalysisID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate analysis id %s", id)
		seen[id] = true
	}
}

func TestEngine_Degraded_FullyPopulated(t *testing.T) {
	client := &mockAnthropicClient{}
	eng, err := New(client, testConfig())
	require.NoError(t, err)

	outcome := eng.degraded("CX-test", eng.now().UTC(), "I will cancel today", nil, "assembly failed")

	assert.True(t, outcome.Degraded)
	assert.Equal(t, "assembly failed", outcome.DegradedReason)

	intel := outcome.Intelligence
	assert.Equal(t, 3, intel.SentimentAnalysis.CSATPrediction)
	// Fallback csat is 3, above the high-risk threshold, so even a high-risk
	// phrase resolves to medium.
	assert.Equal(t, model.ChurnRiskMedium, intel.SentimentAnalysis.ChurnRisk)
	assert.Equal(t, model.FallbackDriver(), intel.DriverAnalysis)
	assert.NoError(t, intel.BusinessImpact.Validate())
	assert.Equal(t, 500.0, intel.BusinessImpact.RevenueImpact.ExpectedLoss)
	assert.False(t, intel.ActionRequired)
}

func TestNewAnalysisID(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 30, 11, 22, 33, 0, time.UTC)
	id := newAnalysisID(ts)
	assert.True(t, strings.HasPrefix(id, "CX-20260830T112233Z-"))
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
}
