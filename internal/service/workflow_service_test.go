package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tumainiaid/reporting-api/internal/dto"
	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/internal/repository"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

type submissionRepoStub struct {
	submissions map[string]*models.Submission
	superseded  map[string]string
	conflictOn  string
	nextID      int
}

func newSubmissionRepoStub() *submissionRepoStub {
	return &submissionRepoStub{
		submissions: make(map[string]*models.Submission),
		superseded:  make(map[string]string),
	}
}

func (r *submissionRepoStub) Create(ctx context.Context, sub *models.Submission) error {
	r.nextID++
	sub.ID = fmt.Sprintf("sub-%d", r.nextID)
	sub.Version = 1
	copy := *sub
	r.submissions[sub.ID] = &copy
	return nil
}

func (r *submissionRepoStub) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if sub, ok := r.submissions[id]; ok {
		copy := *sub
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *submissionRepoStub) FindExisting(ctx context.Context, childID string, reportType models.ReportType, period string) (*models.Submission, error) {
	for _, sub := range r.submissions {
		if sub.ChildID != childID || sub.ReportType != reportType || sub.Period != period {
			continue
		}
		if sub.Status == models.StatusRejected || sub.SupersededByID != nil {
			continue
		}
		copy := *sub
		return &copy, nil
	}
	return nil, nil
}

func (r *submissionRepoStub) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	result := make([]models.Submission, 0, len(r.submissions))
	for _, sub := range r.submissions {
		if filter.ReportType != "" && sub.ReportType != filter.ReportType {
			continue
		}
		result = append(result, *sub)
	}
	return result, len(result), nil
}

func (r *submissionRepoStub) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error {
	if r.conflictOn == params.ID {
		return repository.ErrVersionConflict
	}
	sub, ok := r.submissions[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if sub.Version != params.ExpectedVersion {
		return repository.ErrVersionConflict
	}
	sub.Status = params.Status
	sub.ReviewedBy = params.ReviewedBy
	sub.ReviewedAt = params.ReviewedAt
	sub.RejectionReason = params.RejectionReason
	sub.CorrectionNotes = params.CorrectionNotes
	sub.PublishedAt = params.PublishedAt
	sub.Version++
	return nil
}

func (r *submissionRepoStub) MarkSuperseded(ctx context.Context, oldID, newID string) error {
	r.superseded[oldID] = newID
	if sub, ok := r.submissions[oldID]; ok {
		sub.SupersededByID = &newID
	}
	return nil
}

type childRepoStub struct {
	children map[string]*models.Child
	touched  map[string]models.ReportType
}

func newChildRepoStub(ids ...string) *childRepoStub {
	stub := &childRepoStub{
		children: make(map[string]*models.Child),
		touched:  make(map[string]models.ReportType),
	}
	for _, id := range ids {
		stub.children[id] = &models.Child{ID: id, Status: models.ChildStatusActive}
	}
	return stub
}

func (r *childRepoStub) FindByID(ctx context.Context, id string) (*models.Child, error) {
	if child, ok := r.children[id]; ok {
		copy := *child
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *childRepoStub) TouchLastReport(ctx context.Context, id string, reportType models.ReportType, at time.Time) error {
	r.touched[id] = reportType
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func validCreateRequest() dto.CreateSubmissionRequest {
	return dto.CreateSubmissionRequest{
		ChildID:    "child-1",
		ReportType: models.ReportTypeField,
		Period:     "2026-08",
	}
}

func TestSubmitUpdateCreatesDraft(t *testing.T) {
	repo := newSubmissionRepoStub()
	audit := &auditStub{}
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), audit, nil)

	sub, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, sub.Status)
	require.Equal(t, models.RoleFieldOfficer, sub.SubmittedBy)
	require.NotEmpty(t, sub.ID)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionSubmissionCreate, audit.logs[0].Action)
}

func TestSubmitUpdateRejectsWrongRole(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub("child-1"), nil, nil)

	cases := []struct {
		reportType models.ReportType
		role       models.UserRole
	}{
		{models.ReportTypeField, models.RoleSchoolLiaison},
		{models.ReportTypeAcademic, models.RoleFieldOfficer},
		{models.ReportTypeField, models.RoleSponsor},
		{models.ReportTypeAcademic, models.RoleSponsor},
	}
	for _, tc := range cases {
		req := validCreateRequest()
		req.ReportType = tc.reportType
		_, err := svc.SubmitUpdate(context.Background(), req, tc.role, "actor-1")
		require.Error(t, err, "%s by %s", tc.reportType, tc.role)
		require.Equal(t, "FORBIDDEN_ACTOR", appErrors.FromError(err).Code)
	}
}

func TestSubmitUpdateAdminIsNotASubmitter(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)

	req := validCreateRequest()
	_, err := svc.SubmitUpdate(context.Background(), req, models.RoleAdmin, "admin-1")
	require.Equal(t, "FORBIDDEN_ACTOR", appErrors.FromError(err).Code)
}

func TestSubmitUpdateValidatesArguments(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub("child-1"), nil, nil)

	req := validCreateRequest()
	req.Period = "august 2026"
	_, err := svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "INVALID_ARGS", appErrors.FromError(err).Code)

	req = validCreateRequest()
	req.ReportType = "medical"
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "INVALID_ARGS", appErrors.FromError(err).Code)

	req = validCreateRequest()
	req.ChildID = ""
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "INVALID_ARGS", appErrors.FromError(err).Code)
}

func TestSubmitUpdateAcceptsTermPeriods(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub("child-1"), nil, nil)

	req := validCreateRequest()
	req.ReportType = models.ReportTypeAcademic
	req.Period = "2026-T2"
	_, err := svc.SubmitUpdate(context.Background(), req, models.RoleSchoolLiaison, "liaison-1")
	require.NoError(t, err)
}

func TestSubmitUpdateUnknownChild(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub(), nil, nil)

	_, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestSubmitUpdateRejectsDuplicate(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)

	_, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "DUPLICATE_UPDATE", appErrors.FromError(err).Code)
}

func TestSubmitUpdateAllowsDifferentTriple(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1", "child-2"), nil, nil)

	_, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)

	// Same child and period, different report type.
	req := validCreateRequest()
	req.ReportType = models.ReportTypeAcademic
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleSchoolLiaison, "liaison-1")
	require.NoError(t, err)

	// Same type and period, different child.
	req = validCreateRequest()
	req.ChildID = "child-2"
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)

	// Same child and type, next period.
	req = validCreateRequest()
	req.Period = "2026-09"
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)
}

func TestSubmitUpdateSupersedes(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)

	first, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)

	req := validCreateRequest()
	req.SupersedesID = &first.ID
	second, err := svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)
	require.Equal(t, second.ID, repo.superseded[first.ID])

	// The superseded record no longer blocks new intake referencing it.
	require.NotEqual(t, first.ID, second.ID)
}

func TestSubmitUpdateSupersedesWrongTarget(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)

	_, err := svc.SubmitUpdate(context.Background(), validCreateRequest(), models.RoleFieldOfficer, "officer-1")
	require.NoError(t, err)

	bogus := "sub-999"
	req := validCreateRequest()
	req.SupersedesID = &bogus
	_, err = svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "DUPLICATE_UPDATE", appErrors.FromError(err).Code)
}

func TestSubmitUpdateSupersedesWithoutExisting(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub("child-1"), nil, nil)

	stale := "sub-1"
	req := validCreateRequest()
	req.SupersedesID = &stale
	_, err := svc.SubmitUpdate(context.Background(), req, models.RoleFieldOfficer, "officer-1")
	require.Equal(t, "INVALID_ARGS", appErrors.FromError(err).Code)
}

func seedSubmission(repo *submissionRepoStub, status models.SubmissionStatus) *models.Submission {
	repo.nextID++
	id := fmt.Sprintf("sub-%d", repo.nextID)
	sub := &models.Submission{
		ID:          id,
		ChildID:     "child-1",
		ReportType:  models.ReportTypeField,
		Period:      "2026-08",
		Status:      status,
		SubmittedBy: models.RoleFieldOfficer,
		Version:     1,
	}
	repo.submissions[id] = sub
	return sub
}

func TestChangeStatusTransitionTable(t *testing.T) {
	all := []models.SubmissionStatus{
		models.StatusDraft, models.StatusPendingReview, models.StatusNeedsCorrection,
		models.StatusPublished, models.StatusRejected,
	}
	allowed := map[models.SubmissionStatus]map[models.SubmissionStatus]bool{
		models.StatusDraft:           {models.StatusPendingReview: true, models.StatusRejected: true},
		models.StatusPendingReview:   {models.StatusNeedsCorrection: true, models.StatusPublished: true, models.StatusRejected: true},
		models.StatusNeedsCorrection: {models.StatusPendingReview: true, models.StatusPublished: true, models.StatusRejected: true},
		models.StatusPublished:       {},
		models.StatusRejected:        {},
	}

	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			repo := newSubmissionRepoStub()
			children := newChildRepoStub("child-1")
			svc := NewWorkflowService(repo, children, nil, nil)
			sub := seedSubmission(repo, from)

			_, err := svc.ChangeStatus(context.Background(), sub.ID, to, models.RoleAdmin, "admin-1", nil)
			if allowed[from][to] {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
			} else {
				require.Error(t, err, "%s -> %s should be rejected", from, to)
				code := appErrors.FromError(err).Code
				if from == models.StatusPublished {
					require.Equal(t, "PUBLISHED_IMMUTABLE", code)
				} else {
					require.Equal(t, "INVALID_TRANSITION", code)
				}
			}
		}
	}
}

func TestChangeStatusRequiresAdmin(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleFieldOfficer, models.RoleSchoolLiaison, models.RoleSponsor} {
		repo := newSubmissionRepoStub()
		svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
		sub := seedSubmission(repo, models.StatusPendingReview)

		_, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusPublished, role, "actor-1", nil)
		require.Error(t, err, "role %s", role)
		require.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
	}
}

func TestChangeStatusSubmitterMaySendForReview(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
	sub := seedSubmission(repo, models.StatusDraft)

	updated, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusPendingReview, models.RoleFieldOfficer, "officer-1", nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingReview, updated.Status)
	require.Nil(t, updated.ReviewedBy)
}

func TestChangeStatusPublishStampsReviewMetadata(t *testing.T) {
	repo := newSubmissionRepoStub()
	children := newChildRepoStub("child-1")
	audit := &auditStub{}
	reviewedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc := NewWorkflowService(repo, children, audit, nil,
		WithWorkflowClock(func() time.Time { return reviewedAt }))
	sub := seedSubmission(repo, models.StatusPendingReview)

	updated, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusPublished, models.RoleAdmin, "admin-1", nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, updated.Status)
	require.NotNil(t, updated.ReviewedBy)
	require.Equal(t, "admin-1", *updated.ReviewedBy)
	require.Equal(t, reviewedAt, updated.ReviewedAt.UTC())
	require.Equal(t, reviewedAt, updated.PublishedAt.UTC())
	require.Equal(t, 2, updated.Version)
	require.Equal(t, models.ReportTypeField, children.touched["child-1"])
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionStatusChange, audit.logs[0].Action)
}

func TestChangeStatusRejectRecordsReason(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
	sub := seedSubmission(repo, models.StatusPendingReview)

	reason := "photo missing"
	updated, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusRejected, models.RoleAdmin, "admin-1", &reason)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.NotNil(t, updated.RejectionReason)
	require.Equal(t, reason, *updated.RejectionReason)
	require.Nil(t, updated.PublishedAt)
}

func TestChangeStatusNeedsCorrectionRecordsNotes(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
	sub := seedSubmission(repo, models.StatusPendingReview)

	notes := "attendance rate looks wrong"
	updated, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusNeedsCorrection, models.RoleAdmin, "admin-1", &notes)
	require.NoError(t, err)
	require.Equal(t, models.StatusNeedsCorrection, updated.Status)
	require.NotNil(t, updated.CorrectionNotes)
	require.Equal(t, notes, *updated.CorrectionNotes)
}

func TestChangeStatusVersionConflict(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
	sub := seedSubmission(repo, models.StatusPendingReview)
	repo.conflictOn = sub.ID

	_, err := svc.ChangeStatus(context.Background(), sub.ID, models.StatusPublished, models.RoleAdmin, "admin-1", nil)
	require.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestChangeStatusUnknownSubmission(t *testing.T) {
	svc := NewWorkflowService(newSubmissionRepoStub(), newChildRepoStub("child-1"), nil, nil)

	_, err := svc.ChangeStatus(context.Background(), "sub-404", models.StatusPublished, models.RoleAdmin, "admin-1", nil)
	require.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestListScopesSubmitterRoles(t *testing.T) {
	repo := newSubmissionRepoStub()
	svc := NewWorkflowService(repo, newChildRepoStub("child-1"), nil, nil)
	seedSubmission(repo, models.StatusDraft)
	academic := seedSubmission(repo, models.StatusDraft)
	academic.ReportType = models.ReportTypeAcademic

	subs, _, err := svc.List(context.Background(), dto.SubmissionQuery{}, models.RoleFieldOfficer)
	require.NoError(t, err)
	for _, sub := range subs {
		require.Equal(t, models.ReportTypeField, sub.ReportType)
	}

	subs, _, err = svc.List(context.Background(), dto.SubmissionQuery{}, models.RoleSchoolLiaison)
	require.NoError(t, err)
	for _, sub := range subs {
		require.Equal(t, models.ReportTypeAcademic, sub.ReportType)
	}

	_, _, err = svc.List(context.Background(), dto.SubmissionQuery{}, models.RoleSponsor)
	require.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}
