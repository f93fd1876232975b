package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferCode carries a verification code to the transfer counterpart.
	KindTransferCode = "transfer_code"
)

// Message describes a notification payload. Body may contain the verification
// code and must not be written to logs.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Actual delivery is
// handled outside this service.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that records notification events in
// the logger, omitting the body.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination)
	return nil
}
