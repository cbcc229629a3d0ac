package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/metrics"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/cashflow/payment-lifecycle/internal/workerpool"
)

const (
	msgProcessing = "Payment is being processed"
	msgCompleted  = "Payment completed successfully"
	msgFailed     = "Payment failed: "
)

// Processor performs the external work of a PROCESSING payment
type Processor interface {
	Process(ctx context.Context, payment *core.Payment) error
}

// TaskRunner schedules detached work. *workerpool.Pool satisfies it.
type TaskRunner interface {
	Submit(task workerpool.Task) error
}

// LifecycleEngine drives a payment from PENDING to a terminal state.
//
// Each transition is one atomic write followed by one event. There is no
// transaction spanning the whole progression: a crash between steps leaves the
// payment in the last persisted state and nothing here scans for it.
type LifecycleEngine struct {
	log             *slog.Logger
	paymentRepo     output.PaymentRepository
	events          output.PaymentEventPublisher
	processor       Processor
	runner          TaskRunner
	processingDelay time.Duration
	now             func() time.Time
}

// NewLifecycleEngine creates a lifecycle engine. processingDelay is the wait
// before a payment moves to PROCESSING; the wait before completion belongs to
// the processor.
func NewLifecycleEngine(
	log *slog.Logger,
	paymentRepo output.PaymentRepository,
	events output.PaymentEventPublisher,
	processor Processor,
	runner TaskRunner,
	processingDelay time.Duration,
) *LifecycleEngine {
	return &LifecycleEngine{
		log:             log,
		paymentRepo:     paymentRepo,
		events:          events,
		processor:       processor,
		runner:          runner,
		processingDelay: processingDelay,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Begin schedules the progression of payment and returns immediately.
// The engine works on its own copy; the caller keeps ownership of payment.
func (e *LifecycleEngine) Begin(payment *core.Payment) error {
	owned := payment.Clone()
	if err := e.runner.Submit(func(ctx context.Context) {
		e.Progress(ctx, owned)
	}); err != nil {
		return fmt.Errorf("failed to schedule payment %s: %w", payment.ID, err)
	}
	return nil
}

// Progress runs the whole lifecycle of payment synchronously:
// wait, PROCESSING, processor work, COMPLETED. Any failure on the way ends in
// FAILED. No step is retried.
//
// A cancelled ctx is not a payment failure: the progression is abandoned and
// the payment stays in its last persisted state.
func (e *LifecycleEngine) Progress(ctx context.Context, payment *core.Payment) {
	if err := e.advance(ctx, payment); err != nil {
		if ctx.Err() != nil {
			e.log.Warn("payment progression abandoned",
				"payment_id", payment.ID, "status", payment.Status, "err", err)
			return
		}
		e.log.Error("payment progression failed",
			"payment_id", payment.ID, "status", payment.Status, "err", err)
		e.fail(ctx, payment, err)
	}
}

func (e *LifecycleEngine) advance(ctx context.Context, payment *core.Payment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during progression: %v", r)
		}
	}()

	if err := wait(ctx, e.processingDelay); err != nil {
		return err
	}
	if err := e.transition(ctx, payment, core.PaymentStatusProcessing, core.EventTypeProcessing, msgProcessing); err != nil {
		return err
	}
	if err := e.processor.Process(ctx, payment); err != nil {
		return err
	}
	return e.transition(ctx, payment, core.PaymentStatusCompleted, core.EventTypeCompleted, msgCompleted)
}

func (e *LifecycleEngine) fail(ctx context.Context, payment *core.Payment, cause error) {
	if payment.IsTerminal() {
		return
	}
	if err := e.transition(ctx, payment, core.PaymentStatusFailed, core.EventTypeFailed, msgFailed+cause.Error()); err != nil {
		e.log.Error("failed to record payment failure",
			"payment_id", payment.ID, "status", payment.Status, "err", err)
	}
}

// transition applies, persists and announces one status change. The in-memory
// record is rolled back if the write does not succeed, so it always mirrors the
// last persisted state.
func (e *LifecycleEngine) transition(ctx context.Context, payment *core.Payment, status core.PaymentStatus, eventType core.EventType, message string) error {
	prev := *payment
	if err := payment.TransitionTo(status, e.now()); err != nil {
		return err
	}

	persisted := false
	defer func() {
		if !persisted {
			*payment = prev
		}
	}()

	if err := e.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to persist %s: %w", status, err)
	}
	persisted = true
	metrics.Transitions.WithLabelValues(string(status)).Inc()
	e.log.Info("payment transitioned", "payment_id", payment.ID, "status", status)

	publishEvent(ctx, e.log, e.events, core.NewPaymentEvent(payment, eventType, message, e.now()))
	return nil
}

// publishEvent hands event to the channel. Failures are logged and counted,
// never returned: a lost event does not undo the transition it describes.
func publishEvent(ctx context.Context, log *slog.Logger, events output.PaymentEventPublisher, event core.PaymentEvent) {
	if err := events.Publish(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.EventType), "error").Inc()
		log.Error("failed to publish payment event",
			"payment_id", event.PaymentID, "event_type", event.EventType, "err", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(event.EventType), "handed_off").Inc()
}
