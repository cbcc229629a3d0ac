package output

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/google/uuid"
)

// PaymentRepository is an output port (secondary port) for payment data access
// Secondary adapters (database implementations) will implement this
type PaymentRepository interface {
	// Create inserts a new payment
	Create(ctx context.Context, payment *core.Payment) error

	// GetByID retrieves a payment by its ID, or core.ErrPaymentNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// Update writes the full record in one atomic step.
	// It returns core.ErrInvalidTransition if the stored status cannot move to payment.Status.
	Update(ctx context.Context, payment *core.Payment) error

	// List returns every payment ordered by creation time
	List(ctx context.Context) ([]*core.Payment, error)

	// ListByStatus returns payments in the given status
	ListByStatus(ctx context.Context, status core.PaymentStatus) ([]*core.Payment, error)

	// ListByParty returns each payment whose sender or receiver is userID, once
	ListByParty(ctx context.Context, userID string) ([]*core.Payment, error)
}
