package models

import "time"

// ChildStatus represents the enrollment lifecycle state of a child.
// Children are enrolled and transitioned by an external enrollment
// process; this service only reads their status.
type ChildStatus string

const (
	ChildStatusActive   ChildStatus = "ACTIVE"
	ChildStatusInactive ChildStatus = "INACTIVE"
	ChildStatusPaused   ChildStatus = "PAUSED"
	ChildStatusArchived ChildStatus = "ARCHIVED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s ChildStatus) Valid() bool {
	switch s {
	case ChildStatusActive, ChildStatusInactive, ChildStatusPaused, ChildStatusArchived:
		return true
	}
	return false
}

// Child represents a sponsored program participant.
type Child struct {
	ID          string      `db:"id" json:"id"`
	DisplayName string      `db:"display_name" json:"display_name"`
	Status      ChildStatus `db:"status" json:"status"`
	// CurrentPeriod is the reporting period or school term the child is
	// currently expected to report under.
	CurrentPeriod string `db:"current_period" json:"current_period"`
	// Last accepted submission timestamps per report type.
	LastFieldReportAt    *time.Time `db:"last_field_report_at" json:"last_field_report_at,omitempty"`
	LastAcademicReportAt *time.Time `db:"last_academic_report_at" json:"last_academic_report_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// ChildFilter encapsulates allowed search parameters for listing children.
type ChildFilter struct {
	Status    *ChildStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
