package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/metrics"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

// NotificationDispatcher maps consumed lifecycle events to notification actions.
// Each event is handled in isolation: a failing or panicking action is reported
// for that event only and never stops the consumer.
type NotificationDispatcher struct {
	log      *slog.Logger
	notifier output.Notifier
	dedupe   output.EventDeduplicator
}

// NewNotificationDispatcher creates a dispatcher. dedupe may be nil.
func NewNotificationDispatcher(log *slog.Logger, notifier output.Notifier, dedupe output.EventDeduplicator) input.LifecycleEventHandler {
	return &NotificationDispatcher{
		log:      log,
		notifier: notifier,
		dedupe:   dedupe,
	}
}

// HandleEvent runs the notification action for event, if its type has one.
// A successful notification is marked so redeliveries are skipped.
func (d *NotificationDispatcher) HandleEvent(ctx context.Context, event core.PaymentEvent) (err error) {
	log := d.log.With("payment_id", event.PaymentID, "event_type", event.EventType)

	action := d.actionFor(event.EventType)
	if action == nil {
		metrics.NotificationsDispatched.WithLabelValues(string(event.EventType), "ignored").Inc()
		log.Info("no notification for event type")
		return nil
	}

	if d.dedupe != nil {
		seen, err := d.dedupe.Seen(ctx, event)
		if err != nil {
			log.Warn("dedupe lookup failed, notifying anyway", "err", err)
		} else if seen {
			metrics.NotificationsDispatched.WithLabelValues(string(event.EventType), "duplicate").Inc()
			log.Info("duplicate event skipped")
			return nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification for %s panicked: %v", event.EventType, r)
		}
		if err != nil {
			metrics.NotificationsDispatched.WithLabelValues(string(event.EventType), "error").Inc()
		}
	}()

	if err := action(ctx, event); err != nil {
		return fmt.Errorf("failed to notify %s for payment %s: %w", event.EventType, event.PaymentID, err)
	}

	if d.dedupe != nil {
		if err := d.dedupe.Mark(ctx, event); err != nil {
			log.Warn("failed to mark event as notified", "err", err)
		}
	}
	metrics.NotificationsDispatched.WithLabelValues(string(event.EventType), "sent").Inc()
	return nil
}

func (d *NotificationDispatcher) actionFor(t core.EventType) func(context.Context, core.PaymentEvent) error {
	switch t {
	case core.EventTypeCreated:
		return d.notifier.PaymentCreated
	case core.EventTypeCompleted:
		return d.notifier.PaymentCompleted
	case core.EventTypeFailed:
		return d.notifier.PaymentFailed
	default:
		return nil
	}
}
