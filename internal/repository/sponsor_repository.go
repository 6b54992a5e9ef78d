package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tumainiaid/reporting-api/internal/models"
)

// SponsorRepository manages sponsor records and their update-request
// cooldown window.
type SponsorRepository struct {
	db *sqlx.DB
}

// NewSponsorRepository constructs a SponsorRepository.
func NewSponsorRepository(db *sqlx.DB) *SponsorRepository {
	return &SponsorRepository{db: db}
}

const sponsorColumns = "id, full_name, email, child_id, last_request_at, next_eligible_at, created_at, updated_at"

// FindByID fetches a sponsor by ID.
func (r *SponsorRepository) FindByID(ctx context.Context, id string) (*models.Sponsor, error) {
	query := fmt.Sprintf("SELECT %s FROM sponsors WHERE id = $1", sponsorColumns)
	var sponsor models.Sponsor
	if err := r.db.GetContext(ctx, &sponsor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sponsor: %w", err)
	}
	return &sponsor, nil
}

// RecordUpdateRequest persists a granted update request, stamping the
// request time and the next eligibility boundary.
func (r *SponsorRepository) RecordUpdateRequest(ctx context.Context, id string, requestedAt, nextEligibleAt time.Time) error {
	const query = `UPDATE sponsors SET last_request_at = $2, next_eligible_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, requestedAt, nextEligibleAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("record update request: %w", err)
	}
	return nil
}
