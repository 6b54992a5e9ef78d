package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tumainiaid/reporting-api/internal/models"
)

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows(sub *models.Submission) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "child_id", "report_type", "period", "status", "submitted_by", "payload",
		"reviewed_by", "reviewed_at", "rejection_reason", "correction_notes", "published_at",
		"supersedes_id", "superseded_by_id", "version", "created_at", "updated_at",
	}).AddRow(
		sub.ID, sub.ChildID, string(sub.ReportType), sub.Period, string(sub.Status), string(sub.SubmittedBy), []byte(`{}`),
		nil, nil, nil, nil, nil,
		nil, nil, sub.Version, time.Now(), time.Now(),
	)
}

func TestSubmissionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{
		ChildID:     "child-1",
		ReportType:  models.ReportTypeField,
		Period:      "2026-08",
		Status:      models.StatusDraft,
		SubmittedBy: models.RoleFieldOfficer,
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	require.NotEmpty(t, sub.ID)
	require.Equal(t, 1, sub.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindExisting(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	existing := &models.Submission{
		ID:          "sub-1",
		ChildID:     "child-1",
		ReportType:  models.ReportTypeField,
		Period:      "2026-08",
		Status:      models.StatusPendingReview,
		SubmittedBy: models.RoleFieldOfficer,
		Version:     1,
	}
	mock.ExpectQuery("SELECT .+ FROM submissions").
		WithArgs("child-1", "field", "2026-08", "REJECTED").
		WillReturnRows(submissionRows(existing))

	found, err := repo.FindExisting(context.Background(), "child-1", models.ReportTypeField, "2026-08")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "sub-1", found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindExistingNone(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectQuery("SELECT .+ FROM submissions").
		WithArgs("child-1", "field", "2026-08", "REJECTED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// No rows: FindExisting reports absence without error.
	found, err := repo.FindExisting(context.Background(), "child-1", models.ReportTypeField, "2026-08")
	require.NoError(t, err)
	require.Nil(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	reviewer := "admin-1"
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), UpdateStatusParams{
		ID:              "sub-1",
		ExpectedVersion: 1,
		Status:          models.StatusPublished,
		ReviewedBy:      &reviewer,
		ReviewedAt:      &now,
		PublishedAt:     &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateStatusVersionConflict(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), UpdateStatusParams{
		ID:              "sub-1",
		ExpectedVersion: 1,
		Status:          models.StatusPublished,
	})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryChildIDsWithQualifying(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	rows := sqlmock.NewRows([]string{"child_id"}).AddRow("child-1").AddRow("child-3")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT child_id FROM submissions")).
		WithArgs("2026-08", "field", "PENDING_REVIEW", "NEEDS_CORRECTION", "PUBLISHED").
		WillReturnRows(rows)

	ids, err := repo.ChildIDsWithQualifying(context.Background(), "2026-08", models.ReportTypeField)
	require.NoError(t, err)
	require.Equal(t, []string{"child-1", "child-3"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkSuperseded(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET superseded_by_id")).
		WithArgs("sub-1", "sub-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSuperseded(context.Background(), "sub-1", "sub-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}
