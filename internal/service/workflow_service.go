package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/dto"
	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/internal/repository"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

// transitions is the authoritative status transition table. Absence
// from this table makes a transition illegal; PUBLISHED and REJECTED
// have no successors.
var transitions = map[models.SubmissionStatus][]models.SubmissionStatus{
	models.StatusDraft:           {models.StatusPendingReview, models.StatusRejected},
	models.StatusPendingReview:   {models.StatusNeedsCorrection, models.StatusPublished, models.StatusRejected},
	models.StatusNeedsCorrection: {models.StatusPendingReview, models.StatusPublished, models.StatusRejected},
	models.StatusPublished:       {},
	models.StatusRejected:        {},
}

func transitionAllowed(from, to models.SubmissionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// periodPattern matches the canonical monthly period label (e.g.
// 2026-01) and school term labels (e.g. 2026-T1).
var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2]|T[1-3])$`)

type submissionStore interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	FindExisting(ctx context.Context, childID string, reportType models.ReportType, period string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
	MarkSuperseded(ctx context.Context, oldID, newID string) error
}

type workflowChildStore interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
	TouchLastReport(ctx context.Context, id string, reportType models.ReportType, at time.Time) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type workflowMetrics interface {
	ObserveSubmissionCreated(reportType models.ReportType)
	ObserveStatusTransition(to models.SubmissionStatus)
}

// WorkflowService is the sole authority for creating submissions and
// moving them through the reviewed-approval lifecycle.
type WorkflowService struct {
	subs     submissionStore
	children workflowChildStore
	audit    auditLogger
	metrics  workflowMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowClock overrides the time source, used by tests.
func WithWorkflowClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWorkflowMetrics attaches domain metrics instrumentation.
func WithWorkflowMetrics(m workflowMetrics) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.metrics = m
	}
}

// NewWorkflowService constructs the service.
func NewWorkflowService(subs submissionStore, children workflowChildStore, audit auditLogger, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		subs:     subs,
		children: children,
		audit:    audit,
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

// SubmitUpdate runs the intake flow: argument validation, submitter
// authorization, the uniqueness check against the exact (child, period,
// report type) triple, then record creation in DRAFT.
func (s *WorkflowService) SubmitUpdate(ctx context.Context, req dto.CreateSubmissionRequest, actorRole models.UserRole, actorID string) (*models.Submission, error) {
	if req.ChildID == "" || req.Period == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "child_id and period are required")
	}
	if !req.ReportType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "report_type must be field or academic")
	}
	if !periodPattern.MatchString(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "period must be a YYYY-MM month or YYYY-Tn term label")
	}
	if err := AuthorizeSubmit(req.ReportType, actorRole); err != nil {
		return nil, err
	}

	child, err := s.children.FindByID(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load child")
	}

	existing, err := s.subs.FindExisting(ctx, req.ChildID, req.ReportType, req.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to check for duplicates")
	}
	if existing != nil {
		if req.SupersedesID == nil || *req.SupersedesID != existing.ID {
			return nil, appErrors.Clone(appErrors.ErrDuplicateUpdate,
				fmt.Sprintf("submission %s already exists for this child, period and report type", existing.ID))
		}
	} else if req.SupersedesID != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "supersedes_id does not reference a current submission for this triple")
	}

	sub := &models.Submission{
		ChildID:      child.ID,
		ReportType:   req.ReportType,
		Period:       req.Period,
		Status:       models.StatusDraft,
		SubmittedBy:  actorRole,
		Payload:      req.Payload,
		SupersedesID: req.SupersedesID,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create submission")
	}

	if existing != nil {
		if err := s.subs.MarkSuperseded(ctx, existing.ID, sub.ID); err != nil {
			s.logger.Warn("failed to link superseded submission",
				zap.String("old_id", existing.ID), zap.String("new_id", sub.ID), zap.Error(err))
		} else {
			sub.SupersedesID = &existing.ID
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSubmissionCreated(sub.ReportType)
	}
	s.emitAudit(ctx, actorID, models.AuditActionSubmissionCreate, sub.ID, nil, sub)
	return sub, nil
}

// ChangeStatus applies one transition through the state machine. Checks
// run in fixed order: immutability of PUBLISHED records, the transition
// table, then reviewer authorization. The transition and its review
// metadata land atomically, guarded by the record version.
func (s *WorkflowService) ChangeStatus(ctx context.Context, id string, next models.SubmissionStatus, actorRole models.UserRole, actorID string, notes *string) (*models.Submission, error) {
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "unknown status")
	}

	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load submission")
	}

	if sub.Status == models.StatusPublished {
		return nil, appErrors.ErrPublishedImmutable
	}
	if !transitionAllowed(sub.Status, next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s", sub.Status, next))
	}
	if err := AuthorizeStatusChange(next, actorRole); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	params := repository.UpdateStatusParams{
		ID:              sub.ID,
		ExpectedVersion: sub.Version,
		Status:          next,
		ReviewedBy:      sub.ReviewedBy,
		ReviewedAt:      sub.ReviewedAt,
		RejectionReason: sub.RejectionReason,
		CorrectionNotes: sub.CorrectionNotes,
		PublishedAt:     sub.PublishedAt,
	}

	switch next {
	case models.StatusPublished:
		params.ReviewedBy = &actorID
		params.ReviewedAt = &now
		params.PublishedAt = &now
	case models.StatusRejected:
		params.ReviewedBy = &actorID
		params.ReviewedAt = &now
		params.RejectionReason = notes
	case models.StatusNeedsCorrection:
		params.ReviewedBy = &actorID
		params.ReviewedAt = &now
		params.CorrectionNotes = notes
	}

	if err := s.subs.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.ErrConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update submission status")
	}

	prev := *sub
	sub.Status = next
	sub.ReviewedBy = params.ReviewedBy
	sub.ReviewedAt = params.ReviewedAt
	sub.RejectionReason = params.RejectionReason
	sub.CorrectionNotes = params.CorrectionNotes
	sub.PublishedAt = params.PublishedAt
	sub.Version++
	sub.UpdatedAt = now

	if next == models.StatusPublished {
		if err := s.children.TouchLastReport(ctx, sub.ChildID, sub.ReportType, now); err != nil {
			s.logger.Warn("failed to stamp child last report",
				zap.String("child_id", sub.ChildID), zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveStatusTransition(next)
	}
	s.emitAudit(ctx, actorID, models.AuditActionStatusChange, sub.ID, &prev, sub)
	return sub, nil
}

// Get returns a single submission.
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load submission")
	}
	return sub, nil
}

// List returns submissions visible to the actor. Submitter roles only
// see their own report type.
func (s *WorkflowService) List(ctx context.Context, query dto.SubmissionQuery, actorRole models.UserRole) ([]models.Submission, int, error) {
	filter := models.SubmissionFilter{
		ChildID:    query.ChildID,
		ReportType: models.ReportType(query.ReportType),
		Period:     query.Period,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	for _, raw := range query.Status {
		status := models.SubmissionStatus(raw)
		if status.Valid() {
			filter.StatusIn = append(filter.StatusIn, status)
		}
	}

	switch actorRole {
	case models.RoleAdmin:
		// full access
	case models.RoleFieldOfficer:
		filter.ReportType = models.ReportTypeField
	case models.RoleSchoolLiaison:
		filter.ReportType = models.ReportTypeAcademic
	default:
		return nil, 0, appErrors.ErrForbidden
	}

	subs, total, err := s.subs.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list submissions")
	}
	return subs, total, nil
}

func (s *WorkflowService) emitAudit(ctx context.Context, actorID, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "submission",
		ResourceID: &resourceID,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if before != nil {
		if data, err := json.Marshal(before); err == nil {
			log.OldValues = data
		}
	}
	if after != nil {
		if data, err := json.Marshal(after); err == nil {
			log.NewValues = data
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
