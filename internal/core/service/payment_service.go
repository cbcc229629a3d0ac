package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/metrics"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 500

var (
	minAmount       = decimal.RequireFromString("0.01")
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// PaymentServiceImpl implements the PaymentService input port
type PaymentServiceImpl struct {
	log         *slog.Logger
	paymentRepo output.PaymentRepository
	events      output.PaymentEventPublisher
	lifecycle   output.PaymentLifecycle
	now         func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	log *slog.Logger,
	paymentRepo output.PaymentRepository,
	events output.PaymentEventPublisher,
	lifecycle output.PaymentLifecycle,
) input.PaymentService {
	return &PaymentServiceImpl{
		log:         log,
		paymentRepo: paymentRepo,
		events:      events,
		lifecycle:   lifecycle,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment persists a PENDING payment, announces it and starts its
// lifecycle. The returned projection is always the PENDING record.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req input.CreatePaymentRequest) (*input.PaymentResponse, error) {
	if err := validateCreateRequest(&req); err != nil {
		return nil, err
	}

	payment := core.NewPendingPayment(req.Amount, req.Currency, req.SenderID, req.ReceiverID, req.Description, s.now())

	// Nothing is emitted or scheduled unless the insert succeeds
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	metrics.PaymentsCreated.Inc()
	s.log.Info("payment created",
		"payment_id", payment.ID, "amount", payment.Amount.StringFixed(2), "currency", payment.Currency)

	publishEvent(ctx, s.log, s.events, core.NewPaymentEvent(payment, core.EventTypeCreated, "Payment created successfully", s.now()))

	response := input.NewPaymentResponse(payment)
	if err := s.lifecycle.Begin(payment); err != nil {
		s.log.Error("payment lifecycle not started, payment stays PENDING",
			"payment_id", payment.ID, "err", err)
	}
	return response, nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*input.PaymentResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return input.NewPaymentResponse(payment), nil
}

// ListPayments returns every payment
func (s *PaymentServiceImpl) ListPayments(ctx context.Context) ([]*input.PaymentResponse, error) {
	payments, err := s.paymentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return toResponses(payments), nil
}

// ListPaymentsByStatus returns payments currently in status
func (s *PaymentServiceImpl) ListPaymentsByStatus(ctx context.Context, status core.PaymentStatus) ([]*input.PaymentResponse, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	payments, err := s.paymentRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by status: %w", err)
	}
	return toResponses(payments), nil
}

// ListPaymentsForUser returns payments sent or received by userID
func (s *PaymentServiceImpl) ListPaymentsForUser(ctx context.Context, userID string) ([]*input.PaymentResponse, error) {
	payments, err := s.paymentRepo.ListByParty(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user: %w", err)
	}
	return toResponses(payments), nil
}

func toResponses(payments []*core.Payment) []*input.PaymentResponse {
	out := make([]*input.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, input.NewPaymentResponse(p))
	}
	return out
}

// validateCreateRequest checks the request and normalises currency and party IDs in place
func validateCreateRequest(req *input.CreatePaymentRequest) error {
	if req.Amount.LessThan(minAmount) {
		return invalid("amount must be at least 0.01")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return invalid("amount must have at most 2 decimal places")
	}

	req.Currency = core.Currency(strings.ToUpper(strings.TrimSpace(string(req.Currency))))
	if !currencyPattern.MatchString(string(req.Currency)) {
		return invalid("currency must be a 3-letter ISO code")
	}

	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		return invalid("sender ID is required")
	}
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	if req.ReceiverID == "" {
		return invalid("receiver ID is required")
	}
	if req.SenderID == req.ReceiverID {
		return invalid("sender and receiver must be different")
	}

	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return invalid("description cannot exceed 500 characters")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidPayment, msg)
}
