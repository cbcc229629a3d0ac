package output

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// PaymentEventPublisher is an output port (secondary port) for lifecycle events.
// Publish hands the event to the transport and returns without waiting for a
// broker acknowledgment; the returned error only covers the hand-off itself.
type PaymentEventPublisher interface {
	Publish(ctx context.Context, event core.PaymentEvent) error
	Close() error
}

// PaymentLifecycle starts the asynchronous progression of a freshly created payment
type PaymentLifecycle interface {
	Begin(payment *core.Payment) error
}

// Notifier renders lifecycle notices for payment parties
type Notifier interface {
	PaymentCreated(ctx context.Context, event core.PaymentEvent) error
	PaymentCompleted(ctx context.Context, event core.PaymentEvent) error
	PaymentFailed(ctx context.Context, event core.PaymentEvent) error
}

// EventDeduplicator remembers which events were already notified.
// Delivery is at-least-once, so consumers use it to drop redeliveries.
type EventDeduplicator interface {
	Seen(ctx context.Context, event core.PaymentEvent) (bool, error)
	Mark(ctx context.Context, event core.PaymentEvent) error
}
