package notification

import (
	"context"
	"log/slog"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

// LogNotifier renders payment notices as log lines. It stands in for an
// email or push gateway.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier writing to log
func NewLogNotifier(log *slog.Logger) output.Notifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

// PaymentCreated tells the sender the payment was accepted
func (n *LogNotifier) PaymentCreated(ctx context.Context, event core.PaymentEvent) error {
	n.log.InfoContext(ctx, "sending notification: payment created",
		"payment_id", event.PaymentID,
		"user_id", event.UserID,
		"receiver_id", event.ReceiverID,
		"amount", event.Amount.StringFixed(2),
		"currency", event.Currency,
	)
	return nil
}

// PaymentCompleted tells the sender the payment went through
func (n *LogNotifier) PaymentCompleted(ctx context.Context, event core.PaymentEvent) error {
	n.log.InfoContext(ctx, "sending notification: payment completed",
		"payment_id", event.PaymentID,
		"user_id", event.UserID,
		"receiver_id", event.ReceiverID,
		"amount", event.Amount.StringFixed(2),
		"currency", event.Currency,
	)
	return nil
}

// PaymentFailed tells the sender why the payment failed
func (n *LogNotifier) PaymentFailed(ctx context.Context, event core.PaymentEvent) error {
	n.log.WarnContext(ctx, "sending notification: payment failed",
		"payment_id", event.PaymentID,
		"user_id", event.UserID,
		"reason", event.Message,
	)
	return nil
}
