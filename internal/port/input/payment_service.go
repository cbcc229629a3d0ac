package input

import (
	"context"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentService is an input port (primary port) for payment operations
// Primary adapters (HTTP handlers) will use this
type PaymentService interface {
	// CreatePayment creates a new payment and starts its lifecycle
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error)

	// GetPayment retrieves a payment by ID
	GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error)

	// ListPayments returns every payment
	ListPayments(ctx context.Context) ([]*PaymentResponse, error)

	// ListPaymentsByStatus returns payments currently in status
	ListPaymentsByStatus(ctx context.Context, status core.PaymentStatus) ([]*PaymentResponse, error)

	// ListPaymentsForUser returns payments where userID is the sender or the receiver
	ListPaymentsForUser(ctx context.Context, userID string) ([]*PaymentResponse, error)
}

// CreatePaymentRequest represents the request to create a payment
type CreatePaymentRequest struct {
	Amount      decimal.Decimal
	Currency    core.Currency
	SenderID    string
	ReceiverID  string
	Description string
}

// PaymentResponse represents the response for a payment
type PaymentResponse struct {
	ID          uuid.UUID
	Amount      decimal.Decimal
	Currency    core.Currency
	Status      core.PaymentStatus
	SenderID    string
	ReceiverID  string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPaymentResponse projects a payment entity
func NewPaymentResponse(p *core.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		SenderID:    p.SenderID,
		ReceiverID:  p.ReceiverID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
