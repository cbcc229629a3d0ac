package messaging

import (
	"context"
	"sync"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// MockEventHandler records handled events and returns Err for each
type MockEventHandler struct {
	mu     sync.Mutex
	Err    error
	Events []core.PaymentEvent
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, event core.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

// MockAcknowledger captures how a delivery was settled
type MockAcknowledger struct {
	Acked   bool
	Nacked  bool
	Requeue bool
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.Acked = true
	return nil
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	m.Nacked = true
	m.Requeue = requeue
	return nil
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Nack(tag, false, requeue)
}
