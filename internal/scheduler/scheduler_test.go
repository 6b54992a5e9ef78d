package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/pkg/config"
)

type detectorStub struct {
	missing map[models.ReportType][]string
}

func (d *detectorStub) DetectMissing(ctx context.Context, period string, reportType models.ReportType) (*models.ComplianceSummary, error) {
	return &models.ComplianceSummary{
		Period:          period,
		ReportType:      reportType,
		MissingChildIDs: d.missing[reportType],
	}, nil
}

type notifierStub struct {
	mu    sync.Mutex
	calls []string
	days  []int
}

func (n *notifierStub) Notify(ctx context.Context, period string, reportType models.ReportType, missingChildIDs []string, daysUntilDeadline int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, period+":"+string(reportType))
	n.days = append(n.days, daysUntilDeadline)
	return nil
}

func (n *notifierStub) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.calls))
	copy(out, n.calls)
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCurrentPeriod(t *testing.T) {
	s := NewSweeper(nil, nil, config.SchedulerConfig{}, 28, nil,
		WithSweeperClock(fixedClock(time.Date(2026, 8, 5, 10, 0, 0, 0, time.UTC))))
	require.Equal(t, "2026-08", s.CurrentPeriod())
}

func TestDaysUntilDeadline(t *testing.T) {
	cases := []struct {
		day  int
		want int
	}{
		{5, 23},
		{28, 0},
		{31, -3}, // clock past the deadline
	}
	for _, tc := range cases {
		s := NewSweeper(nil, nil, config.SchedulerConfig{}, 28, nil,
			WithSweeperClock(fixedClock(time.Date(2026, 8, tc.day, 15, 30, 0, 0, time.UTC))))
		require.Equal(t, tc.want, s.DaysUntilDeadline(), "day %d", tc.day)
	}
}

func TestSweepDispatchesNoticesForMissingReports(t *testing.T) {
	detector := &detectorStub{missing: map[models.ReportType][]string{
		models.ReportTypeField: {"c1", "c2"},
	}}
	notifier := &notifierStub{}
	s := NewSweeper(detector, notifier, config.SchedulerConfig{}, 28, nil,
		WithSweeperClock(fixedClock(time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.dispatcher.Start(ctx)
	defer s.dispatcher.Stop()

	s.Sweep(ctx)

	require.Eventually(t, func() bool {
		return len(notifier.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"2026-08:field"}, notifier.snapshot())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Equal(t, []int{8}, notifier.days)
}
