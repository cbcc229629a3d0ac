package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newPayment(sender, receiver string, at time.Time) *core.Payment {
	return core.NewPendingPayment(decimal.RequireFromString("10.00"), "USD", sender, receiver, "", at)
}

func TestMemoryPaymentRepository_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a created payment When GetByID Then a copy is returned", func(t *testing.T) {
		repo := NewMemoryPaymentRepository()
		p := newPayment("A", "B", time.Now())
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := repo.GetByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		got.Status = core.PaymentStatusCompleted

		again, _ := repo.GetByID(ctx, p.ID)
		if again.Status != core.PaymentStatusPending {
			t.Error("stored record was mutated through a returned copy")
		}
	})

	t.Run("Given an unknown ID When GetByID Then ErrPaymentNotFound", func(t *testing.T) {
		repo := NewMemoryPaymentRepository()
		if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, core.ErrPaymentNotFound) {
			t.Errorf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("Given a duplicate ID When Create Then it fails", func(t *testing.T) {
		repo := NewMemoryPaymentRepository()
		p := newPayment("A", "B", time.Now())
		_ = repo.Create(ctx, p)
		if err := repo.Create(ctx, p); err == nil {
			t.Error("expected duplicate create to fail")
		}
	})

	t.Run("Given a backwards move When Update Then ErrInvalidTransition", func(t *testing.T) {
		repo := NewMemoryPaymentRepository()
		p := newPayment("A", "B", time.Now())
		_ = repo.Create(ctx, p)

		_ = p.TransitionTo(core.PaymentStatusProcessing, time.Now())
		if err := repo.Update(ctx, p); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		stale := newPayment("A", "B", time.Now())
		stale.ID = p.ID
		stale.Status = core.PaymentStatusFailed
		_ = repo.Update(ctx, stale)

		stale.Status = core.PaymentStatusCompleted
		if err := repo.Update(ctx, stale); !errors.Is(err, core.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("Given an unknown payment When Update Then ErrPaymentNotFound", func(t *testing.T) {
		repo := NewMemoryPaymentRepository()
		p := newPayment("A", "B", time.Now())
		p.Status = core.PaymentStatusProcessing
		if err := repo.Update(ctx, p); !errors.Is(err, core.ErrPaymentNotFound) {
			t.Errorf("expected ErrPaymentNotFound, got %v", err)
		}
	})
}

func TestMemoryPaymentRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepository()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	first := newPayment("u1", "u2", base)
	second := newPayment("u3", "u1", base.Add(time.Second))
	third := newPayment("u2", "u3", base.Add(2*time.Second))
	self := newPayment("u4", "u4", base.Add(3*time.Second))
	for _, p := range []*core.Payment{third, first, self, second} {
		_ = repo.Create(ctx, p)
	}

	t.Run("List is ordered by creation time", func(t *testing.T) {
		all, _ := repo.List(ctx)
		if len(all) != 4 || all[0].ID != first.ID || all[3].ID != self.ID {
			t.Errorf("unexpected order")
		}
	})

	t.Run("ListByParty matches either side", func(t *testing.T) {
		got, _ := repo.ListByParty(ctx, "u1")
		if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
			t.Errorf("expected first and second, got %d results", len(got))
		}
	})

	t.Run("ListByParty returns a self-payment once", func(t *testing.T) {
		got, _ := repo.ListByParty(ctx, "u4")
		if len(got) != 1 {
			t.Errorf("expected 1 result, got %d", len(got))
		}
	})

	t.Run("ListByStatus filters", func(t *testing.T) {
		got, _ := repo.ListByStatus(ctx, core.PaymentStatusCompleted)
		if len(got) != 0 {
			t.Errorf("expected none completed, got %d", len(got))
		}
		got, _ = repo.ListByStatus(ctx, core.PaymentStatusPending)
		if len(got) != 4 {
			t.Errorf("expected 4 pending, got %d", len(got))
		}
	})
}

func TestMemoryPaymentRepository_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepository()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := newPayment("A", "B", time.Now())
			_ = repo.Create(ctx, p)
			_ = p.TransitionTo(core.PaymentStatusProcessing, time.Now())
			_ = repo.Update(ctx, p)
			_, _ = repo.List(ctx)
		}()
	}
	wg.Wait()

	got, _ := repo.ListByStatus(ctx, core.PaymentStatusProcessing)
	if len(got) != 200 {
		t.Errorf("expected 200 processing payments, got %d", len(got))
	}
}
