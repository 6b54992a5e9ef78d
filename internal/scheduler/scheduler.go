package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/pkg/config"
	"github.com/tumainiaid/reporting-api/pkg/jobs"
)

type detector interface {
	DetectMissing(ctx context.Context, period string, reportType models.ReportType) (*models.ComplianceSummary, error)
}

type notifier interface {
	Notify(ctx context.Context, period string, reportType models.ReportType, missingChildIDs []string, daysUntilDeadline int) error
}

type noticePayload struct {
	Period            string
	ReportType        models.ReportType
	MissingChildIDs   []string
	DaysUntilDeadline int
}

// Sweeper periodically scans the current reporting period for missing
// submissions and dispatches reminder or escalation notices. Delivery
// runs through an in-memory dispatcher so a slow mail provider never
// stalls the sweep.
type Sweeper struct {
	cron       *cron.Cron
	dispatcher *jobs.Dispatcher
	detector   detector
	notifier   notifier
	cfg        config.SchedulerConfig
	deadline   int
	logger     *zap.Logger
	now        func() time.Time
}

// SweeperOption configures the sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock overrides the time source, used by tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper constructs the sweeper. deadlineDay is the day of month a
// reporting period closes.
func NewSweeper(det detector, not notifier, cfg config.SchedulerConfig, deadlineDay int, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deadlineDay <= 0 || deadlineDay > 28 {
		deadlineDay = 28
	}
	s := &Sweeper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		detector: det,
		notifier: not,
		cfg:      cfg,
		deadline: deadlineDay,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.dispatcher = jobs.NewDispatcher("compliance-notices", s.deliver,
		jobs.WithWorkers(2),
		jobs.WithLogger(logger))
	return s
}

// Start registers the sweep schedule and launches the cron engine and
// dispatcher workers.
func (s *Sweeper) Start(ctx context.Context) error {
	s.dispatcher.Start(ctx)

	spec := s.cfg.SweepSpec
	if spec == "" {
		spec = "0 6 * * *"
	}
	if _, err := s.cron.AddFunc(spec, func() {
		timeout := s.cfg.SweepTimeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		sweepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s.Sweep(sweepCtx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("compliance sweeper started", zap.String("spec", spec))
	return nil
}

// Stop halts the cron engine and drains dispatcher workers.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.dispatcher.Stop()
	s.logger.Info("compliance sweeper stopped")
}

// Sweep runs one detection pass over the current period for both report
// types, enqueueing a notice for each type with missing submissions.
func (s *Sweeper) Sweep(ctx context.Context) {
	period := s.CurrentPeriod()
	days := s.DaysUntilDeadline()

	for _, reportType := range []models.ReportType{models.ReportTypeField, models.ReportTypeAcademic} {
		summary, err := s.detector.DetectMissing(ctx, period, reportType)
		if err != nil {
			s.logger.Error("compliance sweep failed",
				zap.String("period", period),
				zap.String("report_type", string(reportType)),
				zap.Error(err))
			continue
		}
		if len(summary.MissingChildIDs) == 0 {
			s.logger.Info("no missing submissions",
				zap.String("period", period),
				zap.String("report_type", string(reportType)))
			continue
		}

		task := jobs.Task{
			ID:   uuid.NewString(),
			Kind: "compliance_notice",
			Payload: noticePayload{
				Period:            period,
				ReportType:        reportType,
				MissingChildIDs:   summary.MissingChildIDs,
				DaysUntilDeadline: days,
			},
		}
		if err := s.dispatcher.Enqueue(task); err != nil {
			s.logger.Error("failed to enqueue compliance notice",
				zap.String("period", period),
				zap.String("report_type", string(reportType)),
				zap.Error(err))
		}
	}
}

// CurrentPeriod derives the monthly reporting period from the clock.
func (s *Sweeper) CurrentPeriod() string {
	return s.now().UTC().Format("2006-01")
}

// DaysUntilDeadline counts whole calendar days until the period's
// deadline day, negative once past it.
func (s *Sweeper) DaysUntilDeadline() int {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	deadline := time.Date(now.Year(), now.Month(), s.deadline, 0, 0, 0, 0, time.UTC)
	return int(deadline.Sub(today).Hours() / 24)
}

func (s *Sweeper) deliver(ctx context.Context, task jobs.Task) error {
	payload, ok := task.Payload.(noticePayload)
	if !ok {
		s.logger.Error("unexpected task payload", zap.String("task_id", task.ID))
		return nil
	}
	return s.notifier.Notify(ctx, payload.Period, payload.ReportType, payload.MissingChildIDs, payload.DaysUntilDeadline)
}
