package model

import "github.com/rotisserie/eris"

// DriverResult is the output of the driver analysis stage: which business
// issue the feedback is about, where in the journey it occurred, and how bad
// it is.
type DriverResult struct {
	PrimaryDriver        PrimaryDriver  `json:"primary_driver"`
	SpecificIssue        string         `json:"specific_issue"`
	ImpactSeverity       ImpactSeverity `json:"impact_severity"`
	AffectedJourneyStage JourneyStage   `json:"affected_journey_stage"`
	QuantifiableImpact   string         `json:"quantifiable_impact"`
	FrictionPoints       []string       `json:"friction_points"`
	RootCauseHint        string         `json:"root_cause_hint"`
}

// Validate rejects results with missing required values. Driver and journey
// stage are normalized rather than validated: an unrecognized category from
// the model is folded to unknown before this runs.
func (r *DriverResult) Validate() error {
	if !r.ImpactSeverity.Valid() {
		return eris.Errorf("model: unknown impact_severity %q", r.ImpactSeverity)
	}
	if r.SpecificIssue == "" {
		return eris.New("model: missing specific_issue")
	}
	return nil
}

// Normalize folds unrecognized driver and journey values to unknown.
func (r *DriverResult) Normalize() {
	if !r.PrimaryDriver.Valid() {
		r.PrimaryDriver = DriverUnknown
	}
	if !r.AffectedJourneyStage.Valid() {
		r.AffectedJourneyStage = StageUnknown
	}
	if r.FrictionPoints == nil {
		r.FrictionPoints = []string{}
	}
}

// FallbackDriver is the complete predefined record substituted when the
// driver stage cannot obtain a valid model response.
func FallbackDriver() DriverResult {
	return DriverResult{
		PrimaryDriver:        DriverUnknown,
		SpecificIssue:        "Unable to identify specific issue - manual review required",
		ImpactSeverity:       SeverityMedium,
		AffectedJourneyStage: StageUnknown,
		QuantifiableImpact:   "",
		FrictionPoints:       []string{},
		RootCauseHint:        "",
	}
}
