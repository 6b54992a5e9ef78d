package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates the two periodic report categories.
type ReportType string

const (
	// ReportTypeField covers wellbeing and narrative reports collected
	// by program staff on a monthly cycle.
	ReportTypeField ReportType = "field"
	// ReportTypeAcademic covers grades and attendance collected from
	// school staff per school term.
	ReportTypeAcademic ReportType = "academic"
)

// Valid reports whether the report type is one of the closed set.
func (t ReportType) Valid() bool {
	return t == ReportTypeField || t == ReportTypeAcademic
}

// SubmissionStatus captures the reviewed-approval workflow states.
type SubmissionStatus string

const (
	StatusDraft           SubmissionStatus = "DRAFT"
	StatusPendingReview   SubmissionStatus = "PENDING_REVIEW"
	StatusNeedsCorrection SubmissionStatus = "NEEDS_CORRECTION"
	StatusPublished       SubmissionStatus = "PUBLISHED"
	StatusRejected        SubmissionStatus = "REJECTED"
)

// Valid reports whether the status is one of the closed set.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusNeedsCorrection, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// QualifyingStatuses are the states in which a submission counts toward
// compliance for its period.
var QualifyingStatuses = []SubmissionStatus{StatusPendingReview, StatusNeedsCorrection, StatusPublished}

// SubmissionPayload holds the report-type specific content, persisted as
// JSONB. Field reports use the wellbeing/narrative fields, academic
// reports use attendance/grades.
type SubmissionPayload struct {
	WellbeingScore *int              `json:"wellbeingScore,omitempty"`
	Narrative      string            `json:"narrative,omitempty"`
	AttendanceRate *float64          `json:"attendanceRate,omitempty"`
	Grades         map[string]string `json:"grades,omitempty"`
	Extras         map[string]string `json:"extras,omitempty"`
}

// Value marshals the payload to JSON for persistence.
func (p SubmissionPayload) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal submission payload: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the struct.
func (p *SubmissionPayload) Scan(value interface{}) error {
	if value == nil {
		*p = SubmissionPayload{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SubmissionPayload", value)
	}
	if len(data) == 0 {
		*p = SubmissionPayload{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal submission payload: %w", err)
	}
	return nil
}

// Submission is one reporting-period record for one child and one report
// type. At most one non-superseded submission may exist per
// (child, period, report type). A PUBLISHED submission is immutable;
// corrections happen through a new record linked via SupersedesID.
// Records are never physically deleted; REJECTED is terminal but kept
// for audit.
type Submission struct {
	ID          string            `db:"id" json:"id"`
	ChildID     string            `db:"child_id" json:"child_id"`
	ReportType  ReportType        `db:"report_type" json:"report_type"`
	Period      string            `db:"period" json:"period"`
	Status      SubmissionStatus  `db:"status" json:"status"`
	SubmittedBy UserRole          `db:"submitted_by" json:"submitted_by"`
	Payload     SubmissionPayload `db:"payload" json:"payload"`

	ReviewedBy      *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CorrectionNotes *string    `db:"correction_notes" json:"correction_notes,omitempty"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at,omitempty"`

	SupersedesID   *string `db:"supersedes_id" json:"supersedes_id,omitempty"`
	SupersededByID *string `db:"superseded_by_id" json:"superseded_by_id,omitempty"`

	// Version backs the compare-and-swap on status transitions.
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	ChildID    string
	ReportType ReportType
	Period     string
	StatusIn   []SubmissionStatus
	Page       int
	PageSize   int
}
