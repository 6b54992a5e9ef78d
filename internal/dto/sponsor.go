package dto

import "time"

// SponsorUpdateRequestResponse reports the outcome of a sponsor's
// update request against the cooldown.
type SponsorUpdateRequestResponse struct {
	Requested      bool       `json:"requested"`
	DaysRemaining  int        `json:"days_remaining,omitempty"`
	NextEligibleAt *time.Time `json:"next_eligible_at,omitempty"`
}
