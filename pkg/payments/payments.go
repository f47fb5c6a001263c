package payments

import (
	"context"

	"go.uber.org/zap"
)

// Charge describes a payment to capture for a confirmed booking.
type Charge struct {
	BookingID string
	StudentID string
	Amount    int64
	Currency  string
}

// Provider is the capability boundary for payment gateways. Gateway
// protocol details (signatures, webhooks) live behind implementations.
type Provider interface {
	Capture(ctx context.Context, charge Charge) error
	Refund(ctx context.Context, bookingID string) error
}

// NoopProvider records charges in the log without contacting a gateway.
type NoopProvider struct {
	logger *zap.Logger
}

// NewNoopProvider builds a NoopProvider.
func NewNoopProvider(logger *zap.Logger) *NoopProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopProvider{logger: logger}
}

// Capture logs the charge.
func (p *NoopProvider) Capture(ctx context.Context, charge Charge) error {
	p.logger.Info("payment capture",
		zap.String("booking_id", charge.BookingID),
		zap.Int64("amount", charge.Amount),
		zap.String("currency", charge.Currency),
	)
	return nil
}

// Refund logs the refund.
func (p *NoopProvider) Refund(ctx context.Context, bookingID string) error {
	p.logger.Info("payment refund", zap.String("booking_id", bookingID))
	return nil
}
