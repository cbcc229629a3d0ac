package http

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/google/uuid"
)

// MockPaymentService is a mock implementation of input.PaymentService
type MockPaymentService struct {
	CreateFunc       func(ctx context.Context, req input.CreatePaymentRequest) (*input.PaymentResponse, error)
	GetFunc          func(ctx context.Context, id uuid.UUID) (*input.PaymentResponse, error)
	ListFunc         func(ctx context.Context) ([]*input.PaymentResponse, error)
	ListByStatusFunc func(ctx context.Context, status core.PaymentStatus) ([]*input.PaymentResponse, error)
	ListForUserFunc  func(ctx context.Context, userID string) ([]*input.PaymentResponse, error)

	LastCreate input.CreatePaymentRequest
	LastStatus core.PaymentStatus
	LastUser   string
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, req input.CreatePaymentRequest) (*input.PaymentResponse, error) {
	m.LastCreate = req
	return m.CreateFunc(ctx, req)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*input.PaymentResponse, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockPaymentService) ListPayments(ctx context.Context) ([]*input.PaymentResponse, error) {
	return m.ListFunc(ctx)
}

func (m *MockPaymentService) ListPaymentsByStatus(ctx context.Context, status core.PaymentStatus) ([]*input.PaymentResponse, error) {
	m.LastStatus = status
	return m.ListByStatusFunc(ctx, status)
}

func (m *MockPaymentService) ListPaymentsForUser(ctx context.Context, userID string) ([]*input.PaymentResponse, error) {
	m.LastUser = userID
	return m.ListForUserFunc(ctx, userID)
}
