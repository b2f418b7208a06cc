package engine

import (
	"github.com/sells-group/cx-engine/internal/config"
	"github.com/sells-group/cx-engine/internal/model"
)

// Derive recomputes every derived monetary field of an impact result from
// the qualitative estimates and the business constants. The model is trusted
// for judgment, never for arithmetic: whatever totals it produced are
// overwritten here, on the success path and the fallback path alike.
//
//	expected_loss      = monthly_value_at_risk * risk_probability
//	total_support_cost = estimated_support_hours * support_hour_cost
//	roi_ratio          = expected_loss / total_support_cost (0 when cost is 0)
func Derive(r *model.ImpactResult, cfg config.BusinessConfig) {
	rev := &r.RevenueImpact
	rev.RiskProbability = clamp01(rev.RiskProbability)
	rev.ExpectedLoss = rev.MonthlyValueAtRisk * rev.RiskProbability

	op := &r.OperationalImpact
	op.EscalationProbability = clamp01(op.EscalationProbability)
	op.TotalSupportCost = op.EstimatedSupportHours * cfg.SupportHourCost

	r.BrandImpact.ReviewLikelihood = clamp01(r.BrandImpact.ReviewLikelihood)

	roi := 0.0
	if op.TotalSupportCost > 0 {
		roi = rev.ExpectedLoss / op.TotalSupportCost
	}
	r.ResolutionROI = model.ResolutionROI{
		CostToResolve:  op.TotalSupportCost,
		ValuePreserved: rev.ExpectedLoss,
		ROIRatio:       roi,
	}
}
