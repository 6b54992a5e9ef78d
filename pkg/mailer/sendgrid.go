package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tumainiaid/reporting-api/pkg/config"
	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Sendgrid delivers mail through the SendGrid v3 API.
type Sendgrid struct {
	key  string
	from *sgmail.Email
}

// NewSendgrid constructs a SendGrid-backed mailer.
func NewSendgrid(cfg config.NotificationConfig) *Sendgrid {
	return &Sendgrid{
		key:  cfg.SendgridAPIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

// Send delivers a single message and returns the provider receipt.
func (m *Sendgrid) Send(ctx context.Context, msg Message) (*Receipt, error) {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)

	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	v3.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "sendgrid request failed")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, appErrors.Clone(appErrors.ErrNotification, fmt.Sprintf("sendgrid responded %d: %s", res.StatusCode, res.Body))
	}

	receipt := &Receipt{Provider: "sendgrid"}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		receipt.MessageID = ids[0]
	}
	return receipt, nil
}
