package messaging

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
)

// Sender delivers outbound messages to a client over the messaging channel.
// Implementations wrap a concrete provider; callers treat delivery as a
// black box and only see success or failure.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender is a stand-in provider that only logs the outbound message.
// Used in local development and tests.
type LogSender struct{}

// NewLogSender creates a new log-only sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

var _ Sender = (*LogSender)(nil)

// Send logs the message instead of delivering it.
func (s *LogSender) Send(ctx context.Context, to, body string) error {
	logger.FromContext(ctx).Info("Outbound message (log sender)",
		zap.String("to", to),
		zap.Int("body_len", len(body)),
	)
	return nil
}
