package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/pkg/config"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/mailer"
)

type tierMarker interface {
	MarkTierSent(ctx context.Context, period, reportType, tier string, ttl time.Duration) (bool, error)
}

type escalationMetrics interface {
	ObserveNotification(tier models.NotificationTier, delivered bool)
}

// sentMarkerTTL keeps dedup markers around long enough to cover any
// plausible re-run of a period's sweep.
const sentMarkerTTL = 90 * 24 * time.Hour

// EscalationService decides which reminder tier or escalation notice to
// issue for a period's missing submissions and delivers it. Reminders
// before or at the deadline go to the report type's submitter role;
// past the deadline, notices always go to the reviewer role regardless
// of report type. Tier scheduling idempotency belongs to the caller;
// this service only consults the optional sent-marker store to suppress
// exact re-sends.
type EscalationService struct {
	mail    mailer.Mailer
	cfg     config.NotificationConfig
	offsets []int
	markers tierMarker
	metrics escalationMetrics
	logger  *zap.Logger
}

// EscalationServiceOption configures the service.
type EscalationServiceOption func(*EscalationService)

// WithTierMarkers enables sent-marker dedup backed by Redis.
func WithTierMarkers(markers tierMarker) EscalationServiceOption {
	return func(s *EscalationService) {
		s.markers = markers
	}
}

// WithEscalationMetrics attaches domain metrics instrumentation.
func WithEscalationMetrics(m escalationMetrics) EscalationServiceOption {
	return func(s *EscalationService) {
		s.metrics = m
	}
}

// NewEscalationService constructs the service. Reminder offsets are the
// days-before-deadline thresholds for the initial, follow_up and final
// tiers.
func NewEscalationService(mail mailer.Mailer, cfg config.NotificationConfig, reminderOffsets []int, logger *zap.Logger, opts ...EscalationServiceOption) *EscalationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(reminderOffsets) != 3 {
		reminderOffsets = []int{14, 7, 2}
	}
	svc := &EscalationService{
		mail:    mail,
		cfg:     cfg,
		offsets: reminderOffsets,
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// DecideTier maps days-until-deadline (negative once past) to a
// notification tier and, for escalations, an urgency bucket. Urgency
// affects message framing only, never routing.
func (s *EscalationService) DecideTier(daysUntilDeadline int) (models.NotificationTier, models.EscalationUrgency) {
	if daysUntilDeadline < 0 {
		overdue := -daysUntilDeadline
		switch {
		case overdue > 7:
			return models.TierEscalation, models.UrgencyHigh
		case overdue > 3:
			return models.TierEscalation, models.UrgencyMedium
		default:
			return models.TierEscalation, models.UrgencyLow
		}
	}
	switch {
	case daysUntilDeadline <= s.offsets[2]:
		return models.TierFinal, ""
	case daysUntilDeadline <= s.offsets[1]:
		return models.TierFollowUp, ""
	default:
		return models.TierInitial, ""
	}
}

// Notify issues the notification for the given tier. The missing-child
// list must be non-empty. Duplicate (period, report type, tier) sends
// are suppressed when a marker store is configured.
func (s *EscalationService) Notify(ctx context.Context, period string, reportType models.ReportType, missingChildIDs []string, daysUntilDeadline int) error {
	if period == "" || !reportType.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidArgs, "period and report_type are required")
	}
	if len(missingChildIDs) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidArgs, "missing child list must not be empty")
	}

	tier, urgency := s.DecideTier(daysUntilDeadline)

	if s.markers != nil {
		created, err := s.markers.MarkTierSent(ctx, period, string(reportType), string(tier), sentMarkerTTL)
		if err != nil {
			s.logger.Warn("sent-marker check failed, proceeding with send", zap.Error(err))
		} else if !created {
			s.logger.Info("notification tier already sent, skipping",
				zap.String("period", period),
				zap.String("report_type", string(reportType)),
				zap.String("tier", string(tier)))
			return nil
		}
	}

	var msg mailer.Message
	if tier == models.TierEscalation {
		msg = s.buildEscalation(period, reportType, missingChildIDs, -daysUntilDeadline, urgency)
	} else {
		msg = s.buildReminder(tier, period, reportType, missingChildIDs)
	}

	receipt, err := s.mail.Send(ctx, msg)
	if s.metrics != nil {
		s.metrics.ObserveNotification(tier, err == nil)
	}
	if err != nil {
		// The record state that triggered this notice stays committed;
		// delivery is retried out-of-band.
		s.logger.Error("notification delivery failed",
			zap.String("period", period),
			zap.String("tier", string(tier)),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "notification delivery failed")
	}

	s.logger.Info("compliance notification sent",
		zap.String("period", period),
		zap.String("report_type", string(reportType)),
		zap.String("tier", string(tier)),
		zap.String("message_id", receipt.MessageID),
		zap.String("provider", receipt.Provider),
		zap.Int("missing", len(missingChildIDs)))
	return nil
}

func (s *EscalationService) submitterInbox(reportType models.ReportType) string {
	if reportType == models.ReportTypeAcademic {
		return s.cfg.SchoolLiaisonEmail
	}
	return s.cfg.FieldOfficerEmail
}

func reportTypeLabel(reportType models.ReportType) string {
	if reportType == models.ReportTypeAcademic {
		return "academic"
	}
	return "field"
}

func (s *EscalationService) buildReminder(tier models.NotificationTier, period string, reportType models.ReportType, missing []string) mailer.Message {
	label := reportTypeLabel(reportType)
	subject := fmt.Sprintf("Reminder: %d %s reports outstanding for %s", len(missing), label, period)
	if tier == models.TierFinal {
		subject = fmt.Sprintf("FINAL reminder: %d %s reports outstanding for %s", len(missing), label, period)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "The following children still need a %s report for %s:\n\n", label, period)
	for _, id := range missing {
		fmt.Fprintf(&text, "  - %s\n", id)
	}
	fmt.Fprintf(&text, "\nSubmit via %s before the period closes.\n", s.cfg.SubmissionFormURL)

	var html strings.Builder
	fmt.Fprintf(&html, "<p>The following children still need a <strong>%s</strong> report for <strong>%s</strong>:</p><ul>", label, period)
	for _, id := range missing {
		fmt.Fprintf(&html, "<li>%s</li>", id)
	}
	fmt.Fprintf(&html, `</ul><p><a href="%s">Submit the outstanding reports</a> before the period closes.</p>`, s.cfg.SubmissionFormURL)

	return mailer.Message{
		To:       s.submitterInbox(reportType),
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}

func (s *EscalationService) buildEscalation(period string, reportType models.ReportType, missing []string, daysOverdue int, urgency models.EscalationUrgency) mailer.Message {
	label := reportTypeLabel(reportType)

	framing := "Please follow up with the submitting team."
	switch urgency {
	case models.UrgencyHigh:
		framing = "These reports are more than a week overdue and require immediate intervention."
	case models.UrgencyMedium:
		framing = "These reports are several days overdue; please intervene this week."
	}

	subject := fmt.Sprintf("[%s] %d %s reports missing for %s (%d days overdue)",
		strings.ToUpper(string(urgency)), len(missing), label, period, daysOverdue)

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\nChildren without a qualifying %s report for %s:\n\n", framing, label, period)
	for _, id := range missing {
		fmt.Fprintf(&text, "  - %s\n", id)
	}

	var html strings.Builder
	fmt.Fprintf(&html, "<p>%s</p><p>Children without a qualifying %s report for <strong>%s</strong>:</p><ul>", framing, label, period)
	for _, id := range missing {
		fmt.Fprintf(&html, "<li>%s</li>", id)
	}
	html.WriteString("</ul>")

	return mailer.Message{
		To:       s.cfg.AdminEmail,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}
