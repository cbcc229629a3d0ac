package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/workerpool"
	"github.com/google/uuid"
)

// Common test errors
var (
	ErrMockStorage   = errors.New("mock storage error")
	ErrMockPublish   = errors.New("mock publish error")
	ErrMockNotifier  = errors.New("mock notifier error")
	ErrMockScheduler = errors.New("mock scheduler error")
)

// MockPaymentRepository is an in-memory PaymentRepository with failure injection
type MockPaymentRepository struct {
	mu       sync.Mutex
	Payments map[uuid.UUID]*core.Payment
	Writes   []core.PaymentStatus

	CreateErr error
	// UpdateErr fails every Update whose target status is a key
	UpdateErr map[core.PaymentStatus]error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		Payments:  make(map[uuid.UUID]*core.Payment),
		UpdateErr: make(map[core.PaymentStatus]error),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Payments[payment.ID] = payment.Clone()
	m.Writes = append(m.Writes, payment.Status)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.Payments[id]
	if !ok {
		return nil, core.ErrPaymentNotFound
	}
	return p.Clone(), nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *core.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.UpdateErr[payment.Status]; err != nil {
		return err
	}
	current, ok := m.Payments[payment.ID]
	if !ok {
		return core.ErrPaymentNotFound
	}
	if !current.Status.CanTransitionTo(payment.Status) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current.Status, payment.Status)
	}
	m.Payments[payment.ID] = payment.Clone()
	m.Writes = append(m.Writes, payment.Status)
	return nil
}

func (m *MockPaymentRepository) List(ctx context.Context) ([]*core.Payment, error) {
	return m.filter(func(*core.Payment) bool { return true }), nil
}

func (m *MockPaymentRepository) ListByStatus(ctx context.Context, status core.PaymentStatus) ([]*core.Payment, error) {
	return m.filter(func(p *core.Payment) bool { return p.Status == status }), nil
}

func (m *MockPaymentRepository) ListByParty(ctx context.Context, userID string) ([]*core.Payment, error) {
	return m.filter(func(p *core.Payment) bool { return p.SenderID == userID || p.ReceiverID == userID }), nil
}

func (m *MockPaymentRepository) filter(keep func(*core.Payment) bool) []*core.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*core.Payment
	for _, p := range m.Payments {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MockPaymentRepository) Status(id uuid.UUID) core.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Payments[id]; ok {
		return p.Status
	}
	return ""
}

// MockEventPublisher records every published event
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []core.PaymentEvent
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event core.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// TypesFor returns the event types published for one payment, in order
func (m *MockEventPublisher) TypesFor(id uuid.UUID) []core.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.EventType
	for _, e := range m.Events {
		if e.PaymentID == id {
			out = append(out, e.EventType)
		}
	}
	return out
}

func (m *MockEventPublisher) EventsFor(id uuid.UUID) []core.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.PaymentEvent
	for _, e := range m.Events {
		if e.PaymentID == id {
			out = append(out, e)
		}
	}
	return out
}

// MockLifecycle records Begin calls without running anything
type MockLifecycle struct {
	mu    sync.Mutex
	Begun []*core.Payment
	Err   error
}

func (m *MockLifecycle) Begin(payment *core.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Begun = append(m.Begun, payment.Clone())
	return nil
}

// MockProcessor returns Err, or panics with Panic when set
type MockProcessor struct {
	Err   error
	Panic any
}

func (m *MockProcessor) Process(ctx context.Context, payment *core.Payment) error {
	if m.Panic != nil {
		panic(m.Panic)
	}
	return m.Err
}

// InlineRunner runs each task synchronously inside Submit
type InlineRunner struct{}

func (InlineRunner) Submit(task workerpool.Task) error {
	task(context.Background())
	return nil
}

// FailingRunner rejects every task
type FailingRunner struct{}

func (FailingRunner) Submit(task workerpool.Task) error {
	return ErrMockScheduler
}

// MockNotifier records which notification actions were called
type MockNotifier struct {
	mu    sync.Mutex
	Calls []core.EventType
	Err   error
	Panic any
}

func (m *MockNotifier) record(ctx context.Context, event core.PaymentEvent) error {
	if m.Panic != nil {
		panic(m.Panic)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Calls = append(m.Calls, event.EventType)
	return nil
}

func (m *MockNotifier) PaymentCreated(ctx context.Context, event core.PaymentEvent) error {
	return m.record(ctx, event)
}

func (m *MockNotifier) PaymentCompleted(ctx context.Context, event core.PaymentEvent) error {
	return m.record(ctx, event)
}

func (m *MockNotifier) PaymentFailed(ctx context.Context, event core.PaymentEvent) error {
	return m.record(ctx, event)
}

// MockDeduplicator remembers marked (payment, event type) pairs
type MockDeduplicator struct {
	mu      sync.Mutex
	Marked  map[string]bool
	SeenErr error
}

func NewMockDeduplicator() *MockDeduplicator {
	return &MockDeduplicator{Marked: make(map[string]bool)}
}

func dedupeKey(e core.PaymentEvent) string {
	return e.PaymentID.String() + ":" + string(e.EventType)
}

func (m *MockDeduplicator) Seen(ctx context.Context, event core.PaymentEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SeenErr != nil {
		return false, m.SeenErr
	}
	return m.Marked[dedupeKey(event)], nil
}

func (m *MockDeduplicator) Mark(ctx context.Context, event core.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Marked[dedupeKey(event)] = true
	return nil
}
