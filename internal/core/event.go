package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies which lifecycle transition an event records
type EventType string

const (
	EventTypeCreated    EventType = "CREATED"
	EventTypeProcessing EventType = "PROCESSING"
	EventTypeCompleted  EventType = "COMPLETED"
	EventTypeFailed     EventType = "FAILED"
	EventTypeCancelled  EventType = "CANCELLED"
)

// PaymentEvent is an immutable record of one lifecycle transition.
//
// UserID is always the sender. Both parties are carried explicitly so consumers
// never have to guess who the event is about.
type PaymentEvent struct {
	PaymentID  uuid.UUID       `json:"paymentId"`
	UserID     string          `json:"userId"`
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   Currency        `json:"currency"`
	EventType  EventType       `json:"eventType"`
	Status     PaymentStatus   `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	Message    string          `json:"message"`
}

// NewPaymentEvent snapshots the payment as it is at emission time
func NewPaymentEvent(p *Payment, eventType EventType, message string, now time.Time) PaymentEvent {
	return PaymentEvent{
		PaymentID:  p.ID,
		UserID:     p.SenderID,
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		EventType:  eventType,
		Status:     p.Status,
		Timestamp:  now,
		Message:    message,
	}
}

// IsTerminal reports whether the event records a terminal transition
func (t EventType) IsTerminal() bool {
	return t == EventTypeCompleted || t == EventTypeFailed || t == EventTypeCancelled
}

// MarshalJSON writes the amount as a decimal string with two fractional
// digits, the scale the store keeps.
func (e PaymentEvent) MarshalJSON() ([]byte, error) {
	type wire PaymentEvent
	return json.Marshal(struct {
		wire
		Amount string `json:"amount"`
	}{
		wire:   wire(e),
		Amount: e.Amount.StringFixed(2),
	})
}
