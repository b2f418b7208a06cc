package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cx-engine/internal/model"
	"github.com/sells-group/cx-engine/internal/resilience"
	"github.com/sells-group/cx-engine/pkg/anthropic"
)

const driverSystemPrompt = `You identify the business issue behind customer feedback (Arabic or English). Respond with a valid JSON object only, no prose, matching exactly this schema:
{"primary_driver": "<service_failures|product_issues|process_friction|value_perception>", "specific_issue": "<the issue in the customer's own words>", "impact_severity": "<critical|high|medium|low>", "affected_journey_stage": "<awareness|purchase|onboarding|usage|support|renewal>", "quantifiable_impact": "<magnitude if stated, e.g. '2 hours', else empty>", "friction_points": ["<each point of friction mentioned>"], "root_cause_hint": "<most likely root cause>"}
Pick primary_driver, impact_severity, and affected_journey_stage strictly from the listed values. Quote specific_issue verbatim from the feedback where possible.`

const driverUserPrompt = `Customer feedback:
%s`

// DriverStage maps feedback text to a business-issue category, a journey
// stage, and a severity level. It has no dependency on the sentiment stage
// and may run concurrently with it.
type DriverStage struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	retry     resilience.RetryConfig
}

// NewDriverStage creates a driver analysis stage with an injected LLM client.
func NewDriverStage(client anthropic.Client, modelID string, maxTokens int64, timeout time.Duration, retry resilience.RetryConfig) *DriverStage {
	return &DriverStage{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		timeout:   timeout,
		retry:     retry,
	}
}

// Analyze never fails: any invocation, parse, or validation problem yields
// the predefined fallback record. Unrecognized driver or journey categories
// from the model are folded to unknown rather than rejected.
func (s *DriverStage) Analyze(ctx context.Context, text string) (model.DriverResult, anthropic.TokenUsage) {
	result, usage, err := s.query(ctx, text)
	if err != nil {
		zap.L().Warn("driver: substituting fallback", zap.Error(err))
		return model.FallbackDriver(), usage
	}
	return result, usage
}

func (s *DriverStage) query(ctx context.Context, text string) (model.DriverResult, anthropic.TokenUsage, error) {
	var zero model.DriverResult
	var usage anthropic.TokenUsage

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	temp := stageTemperature
	req := anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(driverSystemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(driverUserPrompt, text)},
		},
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("driver")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return zero, usage, eris.Wrap(err, "driver: create message")
	}
	usage = resp.Usage
	usage.LogCost(s.model, "driver")

	raw := anthropic.ExtractText(resp)
	if strings.TrimSpace(raw) == "" {
		return zero, usage, eris.New("driver: empty response")
	}

	var result model.DriverResult
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &result); err != nil {
		return zero, usage, eris.Wrap(err, "driver: parse response")
	}
	result.Normalize()
	if err := result.Validate(); err != nil {
		return zero, usage, err
	}
	return result, usage, nil
}
