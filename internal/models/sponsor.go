package models

import "time"

// Sponsor represents a donor linked to a child, allowed to request an
// off-cycle update subject to a fixed cooldown.
type Sponsor struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	ChildID  string `db:"child_id" json:"child_id"`
	// LastRequestAt / NextEligibleAt back the update-request cooldown.
	LastRequestAt  *time.Time `db:"last_request_at" json:"last_request_at,omitempty"`
	NextEligibleAt *time.Time `db:"next_eligible_at" json:"next_eligible_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UpdateRequestResult reports the outcome of a cooldown check.
type UpdateRequestResult struct {
	CanRequest    bool `json:"can_request"`
	DaysRemaining int  `json:"days_remaining,omitempty"`
}
