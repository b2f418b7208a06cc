package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validImpact() ImpactResult {
	return ImpactResult{
		RevenueImpact: RevenueImpact{
			MonthlyValueAtRisk: 500,
			RiskType:           "churn",
			RiskProbability:    0.7,
		},
		OperationalImpact: OperationalImpact{
			EstimatedSupportHours: 3,
			EscalationProbability: 0.4,
		},
		BrandImpact: BrandImpact{
			NPSChange:             -2,
			ReviewLikelihood:      0.6,
			PredictedReviewRating: 2,
			ViralRisk:             ViralRiskMedium,
		},
		ResolutionPriority: PriorityP2,
	}
}

func TestImpactResultValidate(t *testing.T) {
	t.Parallel()

	valid := validImpact()
	assert.NoError(t, valid.Validate())

	t.Run("negative value at risk", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.RevenueImpact.MonthlyValueAtRisk = -100
		assert.Error(t, r.Validate())
	})

	t.Run("risk probability above 1", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.RevenueImpact.RiskProbability = 1.5
		assert.Error(t, r.Validate())
	})

	t.Run("negative support hours", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.OperationalImpact.EstimatedSupportHours = -1
		assert.Error(t, r.Validate())
	})

	t.Run("escalation probability below 0", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.OperationalImpact.EscalationProbability = -0.1
		assert.Error(t, r.Validate())
	})

	t.Run("review likelihood above 1", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.BrandImpact.ReviewLikelihood = 2
		assert.Error(t, r.Validate())
	})

	t.Run("unknown viral risk", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.BrandImpact.ViralRisk = "explosive"
		assert.Error(t, r.Validate())
	})

	t.Run("unknown priority", func(t *testing.T) {
		t.Parallel()
		r := validImpact()
		r.ResolutionPriority = "P0"
		assert.Error(t, r.Validate())
	})
}
