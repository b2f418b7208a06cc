package model

// ChurnRisk is the qualitative likelihood that the customer discontinues the
// relationship. It is always recomputed locally from the CSAT prediction and
// the churn lexicon, never taken verbatim from the model.
type ChurnRisk string

const (
	ChurnRiskLow    ChurnRisk = "low"
	ChurnRiskMedium ChurnRisk = "medium"
	ChurnRiskHigh   ChurnRisk = "high"
)

// Valid reports whether c is a known churn risk level.
func (c ChurnRisk) Valid() bool {
	switch c {
	case ChurnRiskLow, ChurnRiskMedium, ChurnRiskHigh:
		return true
	}
	return false
}

// Urgency ranks how quickly followup is needed.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// PrimaryDriver is the business-issue category behind a piece of feedback.
type PrimaryDriver string

const (
	DriverServiceFailures PrimaryDriver = "service_failures"
	DriverProductIssues   PrimaryDriver = "product_issues"
	DriverProcessFriction PrimaryDriver = "process_friction"
	DriverValuePerception PrimaryDriver = "value_perception"
	DriverUnknown         PrimaryDriver = "unknown"
)

// AllPrimaryDrivers returns the categories the model may choose from
// (excluding the unknown placeholder).
func AllPrimaryDrivers() []PrimaryDriver {
	return []PrimaryDriver{
		DriverServiceFailures,
		DriverProductIssues,
		DriverProcessFriction,
		DriverValuePerception,
	}
}

// Valid reports whether d is a known driver category, including unknown.
func (d PrimaryDriver) Valid() bool {
	if d == DriverUnknown {
		return true
	}
	for _, v := range AllPrimaryDrivers() {
		if d == v {
			return true
		}
	}
	return false
}

// ImpactSeverity grades how badly the issue hurts the customer.
type ImpactSeverity string

const (
	SeverityCritical ImpactSeverity = "critical"
	SeverityHigh     ImpactSeverity = "high"
	SeverityMedium   ImpactSeverity = "medium"
	SeverityLow      ImpactSeverity = "low"
)

// Valid reports whether s is a known severity level.
func (s ImpactSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// JourneyStage is the customer-lifecycle phase the feedback pertains to.
type JourneyStage string

const (
	StageAwareness  JourneyStage = "awareness"
	StagePurchase   JourneyStage = "purchase"
	StageOnboarding JourneyStage = "onboarding"
	StageUsage      JourneyStage = "usage"
	StageSupport    JourneyStage = "support"
	StageRenewal    JourneyStage = "renewal"
	StageUnknown    JourneyStage = "unknown"
)

// AllJourneyStages returns the stages the model may choose from
// (excluding the unknown placeholder).
func AllJourneyStages() []JourneyStage {
	return []JourneyStage{
		StageAwareness,
		StagePurchase,
		StageOnboarding,
		StageUsage,
		StageSupport,
		StageRenewal,
	}
}

// Valid reports whether j is a known journey stage, including unknown.
func (j JourneyStage) Valid() bool {
	if j == StageUnknown {
		return true
	}
	for _, v := range AllJourneyStages() {
		if j == v {
			return true
		}
	}
	return false
}

// ViralRisk grades the chance the feedback spreads publicly.
type ViralRisk string

const (
	ViralRiskLow    ViralRisk = "low"
	ViralRiskMedium ViralRisk = "medium"
	ViralRiskHigh   ViralRisk = "high"
)

// Valid reports whether v is a known viral risk level.
func (v ViralRisk) Valid() bool {
	switch v {
	case ViralRiskLow, ViralRiskMedium, ViralRiskHigh:
		return true
	}
	return false
}

// ResolutionPriority is the business urgency ranking, P1 most urgent.
type ResolutionPriority string

const (
	PriorityP1 ResolutionPriority = "P1"
	PriorityP2 ResolutionPriority = "P2"
	PriorityP3 ResolutionPriority = "P3"
	PriorityP4 ResolutionPriority = "P4"
)

// Valid reports whether p is one of P1-P4.
func (p ResolutionPriority) Valid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}

// ActionRequired reports whether the priority demands intervention (P1 or P2).
func (p ResolutionPriority) ActionRequired() bool {
	return p == PriorityP1 || p == PriorityP2
}
