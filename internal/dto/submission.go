package dto

import "github.com/tumainiaid/reporting-api/internal/models"

// CreateSubmissionRequest is the intake payload for a new update
// submission.
type CreateSubmissionRequest struct {
	ChildID      string                   `json:"child_id" binding:"required"`
	ReportType   models.ReportType        `json:"report_type" binding:"required"`
	Period       string                   `json:"period" binding:"required"`
	SupersedesID *string                  `json:"supersedes_id,omitempty"`
	Payload      models.SubmissionPayload `json:"payload"`
}

// ChangeStatusRequest drives one state machine transition.
type ChangeStatusRequest struct {
	Status models.SubmissionStatus `json:"status" binding:"required"`
	Notes  *string                 `json:"notes,omitempty"`
}

// SubmissionQuery filters submission listings.
type SubmissionQuery struct {
	ChildID    string   `form:"childId"`
	ReportType string   `form:"reportType"`
	Period     string   `form:"period"`
	Status     []string `form:"status"`
	Page       int      `form:"page"`
	PageSize   int      `form:"pageSize"`
}
