package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// ErrSimulatedDecline is returned when the simulated processor declines a payment
var ErrSimulatedDecline = errors.New("payment declined by processor")

// PaymentProcessor simulates the external work done while a payment is PROCESSING.
// No settlement happens; it waits, then succeeds or fails at failureRate.
type PaymentProcessor struct {
	delay       time.Duration
	failureRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPaymentProcessor creates a new payment processor
func NewPaymentProcessor(delay time.Duration, failureRate float64) *PaymentProcessor {
	return &PaymentProcessor{
		delay:       delay,
		failureRate: failureRate,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Process waits the processing delay and reports the simulated outcome
func (p *PaymentProcessor) Process(ctx context.Context, payment *core.Payment) error {
	if err := wait(ctx, p.delay); err != nil {
		return err
	}
	if p.failureRate <= 0 {
		return nil
	}

	p.mu.Lock()
	roll := p.rnd.Float64()
	p.mu.Unlock()

	if roll < p.failureRate {
		return ErrSimulatedDecline
	}
	return nil
}

// wait sleeps for d unless ctx ends first
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
