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

const sentimentSystemPrompt = `You analyze customer feedback (Arabic or English) and predict satisfaction impact. Respond with a valid JSON object only, no prose, matching exactly this schema:
{"csat_prediction": <integer 1-5>, "churn_risk": "<low|medium|high>", "churn_indicators": ["<exact substrings from the feedback that signal churn>"], "sentiment_drivers": ["<exact phrases driving the sentiment>"], "actionable": <true|false>, "actionable_reason": "<why this is or is not actionable>", "requires_followup": <true|false>, "urgency": "<low|medium|high>"}
Quote churn_indicators and sentiment_drivers verbatim from the feedback text.`

const sentimentUserPrompt = `Customer feedback:
%s`

// sentimentRequiredKeys is the response schema: a key absent from otherwise
// valid JSON means the zero value would be silently accepted, so the whole
// response is rejected instead.
var sentimentRequiredKeys = []string{
	"csat_prediction",
	"churn_risk",
	"churn_indicators",
	"sentiment_drivers",
	"actionable",
	"actionable_reason",
	"requires_followup",
	"urgency",
}

// stageTemperature keeps stage outputs near-deterministic.
const stageTemperature = 0.2

// SentimentStage maps feedback text to a 5-point satisfaction prediction,
// churn indicators, and actionability flags.
type SentimentStage struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	retry     resilience.RetryConfig
	lexicon   *Lexicon
}

// NewSentimentStage creates a sentiment stage with an injected LLM client.
func NewSentimentStage(client anthropic.Client, modelID string, maxTokens int64, timeout time.Duration, retry resilience.RetryConfig, lexicon *Lexicon) *SentimentStage {
	return &SentimentStage{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		timeout:   timeout,
		retry:     retry,
		lexicon:   lexicon,
	}
}

// Analyze never fails: any invocation, parse, or validation problem yields
// the canonical fallback record. Whether the model call succeeded or not,
// churn risk is recomputed locally from the CSAT prediction and the lexicon.
// The returned usage covers tokens consumed even when the response was
// rejected after the call.
func (s *SentimentStage) Analyze(ctx context.Context, text string) (model.SentimentResult, anthropic.TokenUsage) {
	result, usage, err := s.query(ctx, text)
	if err != nil {
		zap.L().Warn("sentiment: substituting fallback", zap.Error(err))
		result = model.FallbackSentiment()
	}

	result.CSATPrediction = clampCSAT(result.CSATPrediction)
	result.ChurnRisk = s.lexicon.ChurnRiskFor(result.CSATPrediction, text)
	return result, usage
}

func (s *SentimentStage) query(ctx context.Context, text string) (model.SentimentResult, anthropic.TokenUsage, error) {
	var zero model.SentimentResult
	var usage anthropic.TokenUsage

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	temp := stageTemperature
	req := anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(sentimentSystemPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(sentimentUserPrompt, text)},
		},
	}

	// Only the provider call sits inside the retry: parse and validation
	// failures are not expected to change on a second attempt.
	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("sentiment")
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return zero, usage, eris.Wrap(err, "sentiment: create message")
	}
	usage = resp.Usage
	usage.LogCost(s.model, "sentiment")

	raw := anthropic.ExtractText(resp)
	if strings.TrimSpace(raw) == "" {
		return zero, usage, eris.New("sentiment: empty response")
	}

	cleaned := []byte(cleanJSON(raw))
	if err := requireKeys(cleaned, sentimentRequiredKeys...); err != nil {
		return zero, usage, eris.Wrap(err, "sentiment: incomplete response")
	}

	var result model.SentimentResult
	if err := json.Unmarshal(cleaned, &result); err != nil {
		return zero, usage, eris.Wrap(err, "sentiment: parse response")
	}
	if result.ChurnIndicators == nil {
		result.ChurnIndicators = []string{}
	}
	if result.SentimentDrivers == nil {
		result.SentimentDrivers = []string{}
	}
	if err := result.Validate(); err != nil {
		return zero, usage, err
	}
	return result, usage, nil
}
