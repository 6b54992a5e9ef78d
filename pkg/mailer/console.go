package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Console logs messages instead of delivering them. Used in development
// and as the fallback when no provider is configured.
type Console struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
	seq  int
}

// NewConsole constructs a console mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Send records the message and logs it.
func (m *Console) Send(_ context.Context, msg Message) (*Receipt, error) {
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("console-%d-%d", time.Now().Unix(), m.seq)
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Sugar().Infow("outbound notification",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return &Receipt{MessageID: id, Provider: "console"}, nil
}

// Sent returns a copy of delivered messages, for tests.
func (m *Console) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
