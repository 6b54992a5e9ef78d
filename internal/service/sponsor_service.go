package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/dto"
	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

const dayMillis = 24 * 60 * 60 * 1000

type sponsorStore interface {
	FindByID(ctx context.Context, id string) (*models.Sponsor, error)
	RecordUpdateRequest(ctx context.Context, id string, requestedAt, nextEligibleAt time.Time) error
}

// SponsorService enforces the fixed cooldown between sponsor-initiated
// update requests.
type SponsorService struct {
	sponsors sponsorStore
	audit    auditLogger
	cooldown time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// SponsorServiceOption configures the service.
type SponsorServiceOption func(*SponsorService)

// WithSponsorClock overrides the time source, used by tests.
func WithSponsorClock(now func() time.Time) SponsorServiceOption {
	return func(s *SponsorService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSponsorService constructs the service with the configured cooldown
// in days.
func NewSponsorService(sponsors sponsorStore, audit auditLogger, cooldownDays int, logger *zap.Logger, opts ...SponsorServiceOption) *SponsorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cooldownDays <= 0 {
		cooldownDays = 90
	}
	svc := &SponsorService{
		sponsors: sponsors,
		audit:    audit,
		cooldown: time.Duration(cooldownDays) * 24 * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// CanRequestUpdate evaluates the cooldown. A sponsor may request when
// the eligibility boundary is unset or has passed; otherwise
// DaysRemaining is the time left rounded up to whole days.
func (s *SponsorService) CanRequestUpdate(lastRequestAt, nextEligibleAt *time.Time) models.UpdateRequestResult {
	now := s.now().UTC()
	_ = lastRequestAt // informational; eligibility hinges on the boundary alone

	if nextEligibleAt == nil || !now.Before(*nextEligibleAt) {
		return models.UpdateRequestResult{CanRequest: true}
	}

	remainingMillis := nextEligibleAt.Sub(now).Milliseconds()
	days := int((remainingMillis + dayMillis - 1) / dayMillis)
	return models.UpdateRequestResult{CanRequest: false, DaysRemaining: days}
}

// RequestUpdate records a sponsor's update request when the cooldown
// allows it and advances the eligibility boundary by the full cooldown.
func (s *SponsorService) RequestUpdate(ctx context.Context, sponsorID string) (*dto.SponsorUpdateRequestResponse, error) {
	if sponsorID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "sponsor id is required")
	}

	sponsor, err := s.sponsors.FindByID(ctx, sponsorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sponsor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load sponsor")
	}

	result := s.CanRequestUpdate(sponsor.LastRequestAt, sponsor.NextEligibleAt)
	if !result.CanRequest {
		return &dto.SponsorUpdateRequestResponse{
			Requested:      false,
			DaysRemaining:  result.DaysRemaining,
			NextEligibleAt: sponsor.NextEligibleAt,
		}, nil
	}

	now := s.now().UTC()
	next := now.Add(s.cooldown)
	if err := s.sponsors.RecordUpdateRequest(ctx, sponsorID, now, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to record update request")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &sponsorID,
			Action:     models.AuditActionSponsorRequest,
			Resource:   "sponsor",
			ResourceID: &sponsorID,
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to write audit log", zap.Error(err))
		}
	}

	return &dto.SponsorUpdateRequestResponse{Requested: true, NextEligibleAt: &next}, nil
}
