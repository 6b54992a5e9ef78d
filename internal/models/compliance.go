package models

import "time"

// ComplianceSummary is a derived aggregate for one (period, report type)
// pair. It is recomputed on demand and never persisted as source of
// truth.
type ComplianceSummary struct {
	Period          string     `json:"period"`
	ReportType      ReportType `json:"report_type"`
	ExpectedCount   int        `json:"expected_count"`
	PresentCount    int        `json:"present_count"`
	MissingChildIDs []string   `json:"missing_child_ids"`
	PresentChildIDs []string   `json:"present_child_ids"`
	// ComplianceRate is round(100 * present / expected); 100 when no
	// children are expected.
	ComplianceRate int       `json:"compliance_rate"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// NotificationTier identifies the reminder or escalation level of a
// compliance notification.
type NotificationTier string

const (
	TierInitial    NotificationTier = "initial"
	TierFollowUp   NotificationTier = "follow_up"
	TierFinal      NotificationTier = "final"
	TierEscalation NotificationTier = "escalation"
)

// EscalationUrgency buckets how far past the deadline a period is. It
// affects message framing only, never routing.
type EscalationUrgency string

const (
	UrgencyLow    EscalationUrgency = "low"
	UrgencyMedium EscalationUrgency = "medium"
	UrgencyHigh   EscalationUrgency = "high"
)
