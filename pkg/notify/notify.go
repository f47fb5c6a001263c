package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message carries a rendered notification for a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier is the capability boundary for outbound notifications.
// Delivery providers (SMTP, SMS gateways) implement it outside this module.
type Notifier interface {
	SendEmail(ctx context.Context, msg Message) error
	SendSMS(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the application log instead of
// delivering them. Used in development and as a safe default.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// SendEmail logs the email instead of sending it.
func (n *LogNotifier) SendEmail(ctx context.Context, msg Message) error {
	n.logger.Info("email notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// SendSMS logs the SMS instead of sending it.
func (n *LogNotifier) SendSMS(ctx context.Context, msg Message) error {
	n.logger.Info("sms notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
