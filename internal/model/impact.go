package model

import "github.com/rotisserie/eris"

// RevenueImpact quantifies money at risk. ExpectedLoss is always derived
// locally as MonthlyValueAtRisk * RiskProbability; the model's own arithmetic
// is discarded.
type RevenueImpact struct {
	MonthlyValueAtRisk float64 `json:"monthly_value_at_risk"`
	RiskType           string  `json:"risk_type"`
	RiskProbability    float64 `json:"risk_probability"`
	ExpectedLoss       float64 `json:"expected_loss"`
}

// OperationalImpact quantifies support burden. TotalSupportCost is always
// derived locally as EstimatedSupportHours * the configured hourly rate.
type OperationalImpact struct {
	EstimatedSupportHours float64 `json:"estimated_support_hours"`
	EscalationProbability float64 `json:"escalation_probability"`
	TotalSupportCost      float64 `json:"total_support_cost"`
}

// BrandImpact quantifies reputation exposure.
type BrandImpact struct {
	NPSChange             int       `json:"nps_change"`
	ReviewLikelihood      float64   `json:"review_likelihood"`
	PredictedReviewRating int       `json:"predicted_review_rating"`
	ViralRisk             ViralRisk `json:"viral_risk"`
}

// ResolutionROI relates the cost of fixing the issue to the value preserved.
// All three fields are derived locally.
type ResolutionROI struct {
	CostToResolve  float64 `json:"cost_to_resolve"`
	ValuePreserved float64 `json:"value_preserved"`
	ROIRatio       float64 `json:"roi_ratio"`
}

// ImpactResult is the output of the business impact stage.
type ImpactResult struct {
	RevenueImpact      RevenueImpact      `json:"revenue_impact"`
	OperationalImpact  OperationalImpact  `json:"operational_impact"`
	BrandImpact        BrandImpact        `json:"brand_impact"`
	ResolutionPriority ResolutionPriority `json:"resolution_priority"`
	ResolutionROI      ResolutionROI      `json:"resolution_roi"`
}

// Validate rejects results whose qualitative estimates are unusable. Derived
// monetary fields are not checked here because they are recomputed locally
// from the estimates after validation.
func (r *ImpactResult) Validate() error {
	if r.RevenueImpact.MonthlyValueAtRisk < 0 {
		return eris.Errorf("model: negative monthly_value_at_risk %f", r.RevenueImpact.MonthlyValueAtRisk)
	}
	if r.RevenueImpact.RiskProbability < 0 || r.RevenueImpact.RiskProbability > 1 {
		return eris.Errorf("model: risk_probability %f out of range [0,1]", r.RevenueImpact.RiskProbability)
	}
	if r.OperationalImpact.EstimatedSupportHours < 0 {
		return eris.Errorf("model: negative estimated_support_hours %f", r.OperationalImpact.EstimatedSupportHours)
	}
	if r.OperationalImpact.EscalationProbability < 0 || r.OperationalImpact.EscalationProbability > 1 {
		return eris.Errorf("model: escalation_probability %f out of range [0,1]", r.OperationalImpact.EscalationProbability)
	}
	if r.BrandImpact.ReviewLikelihood < 0 || r.BrandImpact.ReviewLikelihood > 1 {
		return eris.Errorf("model: review_likelihood %f out of range [0,1]", r.BrandImpact.ReviewLikelihood)
	}
	if !r.BrandImpact.ViralRisk.Valid() {
		return eris.Errorf("model: unknown viral_risk %q", r.BrandImpact.ViralRisk)
	}
	if !r.ResolutionPriority.Valid() {
		return eris.Errorf("model: unknown resolution_priority %q", r.ResolutionPriority)
	}
	return nil
}
