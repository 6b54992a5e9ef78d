package mailer

import (
	"context"

	"github.com/tumainiaid/reporting-api/pkg/config"
	"go.uber.org/zap"
)

// Message is one outbound notification email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Receipt identifies a delivered message.
type Receipt struct {
	MessageID string
	Provider  string
}

// Mailer delivers notification messages to a role inbox. A delivery
// failure must never roll back record mutations that already committed;
// callers log the error and retry out-of-band.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// New selects a mailer implementation from configuration.
func New(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendgrid(cfg)
	default:
		return NewConsole(logger)
	}
}
