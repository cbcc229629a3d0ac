package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrPaymentNotFound is returned when no payment exists for an identifier
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidPayment wraps every request validation failure
	ErrInvalidPayment = errors.New("invalid payment")
	// ErrInvalidTransition is returned when a status change would move a payment backwards
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidStatus is returned for a status outside the closed set
	ErrInvalidStatus = errors.New("invalid payment status")
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// transitions lists the forward edges of the lifecycle state machine.
// CANCELLED and REFUNDED have no producer here.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
}

// ParsePaymentStatus converts a raw string into a known status
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsValid reports whether the status belongs to the closed status set
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsTerminal checks if the status is a terminal state
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Currency is a 3-letter uppercase ISO code
type Currency string

// Payment represents a payment domain entity
type Payment struct {
	ID          uuid.UUID
	Amount      decimal.Decimal
	Currency    Currency
	Status      PaymentStatus
	SenderID    string
	ReceiverID  string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPendingPayment builds a payment in PENDING status with a fresh identifier
func NewPendingPayment(amount decimal.Decimal, currency Currency, senderID, receiverID, description string, now time.Time) *Payment {
	return &Payment{
		ID:          uuid.New(),
		Amount:      amount,
		Currency:    currency,
		Status:      PaymentStatusPending,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPending checks if payment is in pending status
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsTerminal checks if payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// TransitionTo moves the payment to next if the edge is legal.
// UpdatedAt never goes backwards, even if the clock does.
func (p *Payment) TransitionTo(next PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
	return nil
}

// Clone returns a copy that shares no mutable state with p
func (p *Payment) Clone() *Payment {
	c := *p
	return &c
}
