package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tumainiaid/reporting-api/internal/models"
)

// ChildRepository reads child records. Children are written by the
// external enrollment process; this service only updates the
// last-accepted-report timestamps.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs a ChildRepository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = "id, display_name, status, current_period, last_field_report_at, last_academic_report_at, created_at, updated_at"

// List returns children matching the provided filters.
func (r *ChildRepository) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(display_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"display_name": "display_name",
		"status":       "status",
		"created_at":   "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "display_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM children WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		childColumns, where, column, order, size, offset)

	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list children: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM children WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count children: %w", err)
	}
	return children, total, nil
}

// ListActive returns every child with ACTIVE status. This is the
// expected set for the compliance detector.
func (r *ChildRepository) ListActive(ctx context.Context) ([]models.Child, error) {
	query := fmt.Sprintf("SELECT %s FROM children WHERE status = $1 ORDER BY display_name ASC", childColumns)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, models.ChildStatusActive); err != nil {
		return nil, fmt.Errorf("list active children: %w", err)
	}
	return children, nil
}

// FindByID fetches a child by ID.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	query := fmt.Sprintf("SELECT %s FROM children WHERE id = $1", childColumns)
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find child: %w", err)
	}
	return &child, nil
}

// TouchLastReport stamps the last accepted submission timestamp for the
// given report type.
func (r *ChildRepository) TouchLastReport(ctx context.Context, id string, reportType models.ReportType, at time.Time) error {
	column := "last_field_report_at"
	if reportType == models.ReportTypeAcademic {
		column = "last_academic_report_at"
	}
	query := fmt.Sprintf("UPDATE children SET %s = $2, updated_at = $3 WHERE id = $1", column)
	if _, err := r.db.ExecContext(ctx, query, id, at, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch last report: %w", err)
	}
	return nil
}
