package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumainiaid/reporting-api/internal/models"
)

// ErrVersionConflict signals that a compare-and-swap status update lost
// the race against a concurrent writer.
var ErrVersionConflict = errors.New("submission modified concurrently")

// SubmissionRepository manages persistence for update submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, child_id, report_type, period, status, submitted_by, payload,
	reviewed_by, reviewed_at, rejection_reason, correction_notes, published_at,
	supersedes_id, superseded_by_id, version, created_at, updated_at`

// Create inserts a new submission record in its initial state.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Version == 0 {
		sub.Version = 1
	}
	const query = `INSERT INTO submissions (id, child_id, report_type, period, status, submitted_by, payload, supersedes_id, version, created_at, updated_at)
		VALUES (:id, :child_id, :report_type, :period, :status, :submitted_by, :payload, :supersedes_id, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission by ID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &sub, nil
}

// FindExisting returns the current non-superseded, non-rejected
// submission for the exact (child, report type, period) triple, or nil.
// Matching is always on the period column itself, never inferred from
// timestamps.
func (r *SubmissionRepository) FindExisting(ctx context.Context, childID string, reportType models.ReportType, period string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions
		WHERE child_id = $1 AND report_type = $2 AND period = $3
		AND superseded_by_id IS NULL AND status <> $4
		ORDER BY created_at DESC LIMIT 1`, submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, childID, reportType, period, models.StatusRejected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find existing submission: %w", err)
	}
	return &sub, nil
}

// List returns submissions matching the filter.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ChildID != "" {
		conditions = append(conditions, fmt.Sprintf("child_id = $%d", len(args)+1))
		args = append(args, filter.ChildID)
	}
	if filter.ReportType != "" {
		conditions = append(conditions, fmt.Sprintf("report_type = $%d", len(args)+1))
		args = append(args, filter.ReportType)
	}
	if filter.Period != "" {
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)+1))
		args = append(args, filter.Period)
	}
	if len(filter.StatusIn) > 0 {
		placeholders := make([]string, len(filter.StatusIn))
		for i, status := range filter.StatusIn {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM submissions WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		submissionColumns, where, size, offset)

	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return subs, total, nil
}

// UpdateStatusParams carries one atomic status transition. All review
// metadata for the transition lands in the same UPDATE, so a transition
// either fully applies or not at all.
type UpdateStatusParams struct {
	ID              string
	ExpectedVersion int
	Status          models.SubmissionStatus
	ReviewedBy      *string
	ReviewedAt      *time.Time
	RejectionReason *string
	CorrectionNotes *string
	PublishedAt     *time.Time
}

// UpdateStatus applies a transition guarded by the record version.
// Returns ErrVersionConflict when the version no longer matches.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	const query = `UPDATE submissions SET status = $1, reviewed_by = $2, reviewed_at = $3,
		rejection_reason = $4, correction_notes = $5, published_at = $6,
		version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`
	res, err := r.db.ExecContext(ctx, query,
		params.Status, params.ReviewedBy, params.ReviewedAt,
		params.RejectionReason, params.CorrectionNotes, params.PublishedAt,
		time.Now().UTC(), params.ID, params.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// MarkSuperseded links a prior submission to the record replacing it.
func (r *SubmissionRepository) MarkSuperseded(ctx context.Context, oldID, newID string) error {
	const query = `UPDATE submissions SET superseded_by_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, oldID, newID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark superseded: %w", err)
	}
	return nil
}

// ChildIDsWithQualifying returns the distinct child IDs holding at least
// one qualifying submission for the exact (period, report type) pair.
// Qualifying statuses are PENDING_REVIEW, NEEDS_CORRECTION and
// PUBLISHED.
func (r *SubmissionRepository) ChildIDsWithQualifying(ctx context.Context, period string, reportType models.ReportType) ([]string, error) {
	const query = `SELECT DISTINCT child_id FROM submissions
		WHERE period = $1 AND report_type = $2 AND status IN ($3, $4, $5)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, period, reportType,
		models.StatusPendingReview, models.StatusNeedsCorrection, models.StatusPublished); err != nil {
		return nil, fmt.Errorf("list qualifying child ids: %w", err)
	}
	return ids, nil
}
