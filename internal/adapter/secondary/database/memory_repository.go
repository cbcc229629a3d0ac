package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
)

// MemoryPaymentRepository keeps payments in process memory.
// Used with STORE_DRIVER=memory; nothing survives a restart.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*core.Payment
}

// NewMemoryPaymentRepository creates an empty in-process store (returns interface for ports)
func NewMemoryPaymentRepository() output.PaymentRepository {
	return &MemoryPaymentRepository{payments: make(map[uuid.UUID]*core.Payment)}
}

// Create inserts a copy of payment
func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if _, exists := r.payments[payment.ID]; exists {
		return fmt.Errorf("failed to create payment: id %s already exists", payment.ID)
	}
	r.payments[payment.ID] = payment.Clone()
	return nil
}

// GetByID returns a copy of the stored payment
func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, core.ErrPaymentNotFound
	}
	return p.Clone(), nil
}

// Update replaces the stored record if its status may move to payment.Status
func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.payments[payment.ID]
	if !ok {
		return core.ErrPaymentNotFound
	}
	if !current.Status.CanTransitionTo(payment.Status) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current.Status, payment.Status)
	}
	r.payments[payment.ID] = payment.Clone()
	return nil
}

// List returns every payment ordered by creation time
func (r *MemoryPaymentRepository) List(ctx context.Context) ([]*core.Payment, error) {
	return r.collect(func(*core.Payment) bool { return true }), nil
}

// ListByStatus returns payments currently in status
func (r *MemoryPaymentRepository) ListByStatus(ctx context.Context, status core.PaymentStatus) ([]*core.Payment, error) {
	return r.collect(func(p *core.Payment) bool { return p.Status == status }), nil
}

// ListByParty returns payments sent or received by userID
func (r *MemoryPaymentRepository) ListByParty(ctx context.Context, userID string) ([]*core.Payment, error) {
	return r.collect(func(p *core.Payment) bool {
		return p.SenderID == userID || p.ReceiverID == userID
	}), nil
}

func (r *MemoryPaymentRepository) collect(keep func(*core.Payment) bool) []*core.Payment {
	r.mu.RLock()
	out := make([]*core.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
