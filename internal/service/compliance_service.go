package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/models"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

type complianceChildStore interface {
	ListActive(ctx context.Context) ([]models.Child, error)
}

type complianceSubmissionStore interface {
	ChildIDsWithQualifying(ctx context.Context, period string, reportType models.ReportType) ([]string, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type complianceMetrics interface {
	ObserveComplianceRate(reportType models.ReportType, rate int)
}

// ComplianceService computes which active children have no qualifying
// submission for a (period, report type) pair. Output is advisory: the
// scan reads committed state without locking, so a submission that
// commits mid-scan may not be reflected until the next run.
type ComplianceService struct {
	children complianceChildStore
	subs     complianceSubmissionStore
	cache    summaryCache
	cacheTTL time.Duration
	metrics  complianceMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// ComplianceServiceOption configures the service.
type ComplianceServiceOption func(*ComplianceService)

// WithComplianceCache enables Redis-backed summary caching.
func WithComplianceCache(cache summaryCache, ttl time.Duration) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithComplianceMetrics attaches domain metrics instrumentation.
func WithComplianceMetrics(m complianceMetrics) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.metrics = m
	}
}

// WithComplianceClock overrides the time source, used by tests.
func WithComplianceClock(now func() time.Time) ComplianceServiceOption {
	return func(s *ComplianceService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewComplianceService constructs the service.
func NewComplianceService(children complianceChildStore, subs complianceSubmissionStore, logger *zap.Logger, opts ...ComplianceServiceOption) *ComplianceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ComplianceService{
		children: children,
		subs:     subs,
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

// DetectMissing computes the compliance summary for one (period, report
// type) pair. The rate is round(100 * present / expected) and 100 when
// no children are expected.
func (s *ComplianceService) DetectMissing(ctx context.Context, period string, reportType models.ReportType) (*models.ComplianceSummary, error) {
	if period == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "period is required")
	}
	if !reportType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "report_type must be field or academic")
	}

	expected, err := s.children.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list active children")
	}

	qualifying, err := s.subs.ChildIDsWithQualifying(ctx, period, reportType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list qualifying submissions")
	}

	present := make(map[string]struct{}, len(qualifying))
	for _, id := range qualifying {
		present[id] = struct{}{}
	}

	summary := &models.ComplianceSummary{
		Period:          period,
		ReportType:      reportType,
		ExpectedCount:   len(expected),
		MissingChildIDs: []string{},
		PresentChildIDs: []string{},
		GeneratedAt:     s.now().UTC(),
	}

	for _, child := range expected {
		if _, ok := present[child.ID]; ok {
			summary.PresentChildIDs = append(summary.PresentChildIDs, child.ID)
		} else {
			summary.MissingChildIDs = append(summary.MissingChildIDs, child.ID)
		}
	}
	sort.Strings(summary.PresentChildIDs)
	sort.Strings(summary.MissingChildIDs)
	summary.PresentCount = len(summary.PresentChildIDs)

	if summary.ExpectedCount == 0 {
		summary.ComplianceRate = 100
	} else {
		summary.ComplianceRate = int(math.Round(100 * float64(summary.PresentCount) / float64(summary.ExpectedCount)))
	}

	if s.metrics != nil {
		s.metrics.ObserveComplianceRate(reportType, summary.ComplianceRate)
	}
	return summary, nil
}

// GenerateSummary returns compliance summaries for the period. When the
// report type is empty one summary per report type is produced.
// Summaries are cached with a short TTL; the cache is never the source
// of truth and a miss simply recomputes.
func (s *ComplianceService) GenerateSummary(ctx context.Context, period string, reportType models.ReportType) ([]models.ComplianceSummary, error) {
	if period == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "period is required")
	}

	types := []models.ReportType{models.ReportTypeField, models.ReportTypeAcademic}
	if reportType != "" {
		if !reportType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "report_type must be field or academic")
		}
		types = []models.ReportType{reportType}
	}

	cacheKey := fmt.Sprintf("compliance:summary:%s:%s", period, reportType)
	if s.cache != nil {
		var cached []models.ComplianceSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	summaries := make([]models.ComplianceSummary, 0, len(types))
	for _, t := range types {
		summary, err := s.DetectMissing(ctx, period, t)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summaries, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache compliance summary", zap.Error(err))
		}
	}
	return summaries, nil
}
