package model

import "github.com/rotisserie/eris"

// SentimentResult is the output of the sentiment impact stage: a 5-point
// satisfaction prediction plus churn and actionability signals.
type SentimentResult struct {
	CSATPrediction   int       `json:"csat_prediction"`
	ChurnRisk        ChurnRisk `json:"churn_risk"`
	ChurnIndicators  []string  `json:"churn_indicators"`
	SentimentDrivers []string  `json:"sentiment_drivers"`
	Actionable       bool      `json:"actionable"`
	ActionableReason string    `json:"actionable_reason"`
	RequiresFollowup bool      `json:"requires_followup"`
	Urgency          Urgency   `json:"urgency"`
}

// Validate rejects results with out-of-range or missing required values.
// Churn risk is not checked here because it is recomputed locally after
// validation regardless of what the model returned.
func (r *SentimentResult) Validate() error {
	if r.CSATPrediction < 1 || r.CSATPrediction > 5 {
		return eris.Errorf("model: csat_prediction %d out of range [1,5]", r.CSATPrediction)
	}
	if !r.Urgency.Valid() {
		return eris.Errorf("model: unknown urgency %q", r.Urgency)
	}
	if r.Actionable && r.ActionableReason == "" {
		return eris.New("model: actionable result missing actionable_reason")
	}
	return nil
}

// FallbackSentiment is the complete predefined record substituted when the
// sentiment stage cannot obtain a valid model response. Churn risk is still
// recomputed from the input text afterwards.
func FallbackSentiment() SentimentResult {
	return SentimentResult{
		CSATPrediction:   3,
		ChurnRisk:        ChurnRiskMedium,
		ChurnIndicators:  []string{},
		SentimentDrivers: []string{},
		Actionable:       false,
		ActionableReason: "AI analysis failed - requires manual review",
		RequiresFollowup: true,
		Urgency:          UrgencyMedium,
	}
}
