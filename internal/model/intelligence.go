package model

import "time"

// CustomerSatisfaction is the satisfaction slice of the executive summary.
type CustomerSatisfaction struct {
	PredictedCSAT        int       `json:"predicted_csat"`
	ChurnRisk            ChurnRisk `json:"churn_risk"`
	RequiresIntervention bool      `json:"requires_intervention"`
}

// BusinessIssue is the problem slice of the executive summary.
type BusinessIssue struct {
	PrimaryProblem  string         `json:"primary_problem"`
	AffectedProcess JourneyStage   `json:"affected_process"`
	Severity        ImpactSeverity `json:"severity"`
}

// FinancialImpact is the money slice of the executive summary.
type FinancialImpact struct {
	RevenueAtRisk  float64 `json:"revenue_at_risk"`
	ResolutionCost float64 `json:"resolution_cost"`
	ROIRatio       float64 `json:"roi_ratio"`
}

// RecommendedAction is the next-step slice of the executive summary.
type RecommendedAction struct {
	Priority       ResolutionPriority `json:"priority"`
	Urgency        Urgency            `json:"urgency"`
	ExpectedEffort float64            `json:"expected_effort"`
}

// ExecutiveSummary is a denormalized stakeholder view of the full analysis.
type ExecutiveSummary struct {
	CustomerSatisfaction CustomerSatisfaction `json:"customer_satisfaction"`
	BusinessIssue        BusinessIssue        `json:"business_issue"`
	FinancialImpact      FinancialImpact      `json:"financial_impact"`
	RecommendedAction    RecommendedAction    `json:"recommended_action"`
}

// CXIntelligence is the quantified, business-actionable record produced for
// one piece of feedback. It is a pure return value: the engine holds no state
// between analyses.
type CXIntelligence struct {
	AnalysisID        string           `json:"analysis_id"`
	Timestamp         time.Time        `json:"timestamp"`
	InputText         string           `json:"input_text"`
	CustomerContext   map[string]any   `json:"customer_context,omitempty"`
	SentimentAnalysis SentimentResult  `json:"sentiment_analysis"`
	DriverAnalysis    DriverResult     `json:"driver_analysis"`
	BusinessImpact    ImpactResult     `json:"business_impact"`
	ExecutiveSummary  ExecutiveSummary `json:"executive_summary"`
	ActionRequired    bool             `json:"action_required"`
}

// AnalysisOutcome is the tagged result of one analyze call. Degraded marks a
// record assembled from stage fallbacks after an unanticipated failure;
// callers detect degradation here instead of inspecting free-text status.
type AnalysisOutcome struct {
	Intelligence   CXIntelligence `json:"intelligence"`
	Degraded       bool           `json:"degraded"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}

// FeedbackItem is one unit of work for the feedback-processing workflow.
type FeedbackItem struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Context map[string]any `json:"context,omitempty"`
}
