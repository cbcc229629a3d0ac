package messaging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

const contentTypeJSON = "application/json"

// encodeEvent serialises an event to the wire schema
func encodeEvent(event core.PaymentEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return body, nil
}

// decodeEvent parses a wire event. Unknown event types are accepted here and
// left to the handler to ignore.
func decodeEvent(body []byte) (core.PaymentEvent, error) {
	var event core.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal payment event: %w", err)
	}
	return event, nil
}

// routingKey is the topic routing key for an event, keyed by payment:
// payment.<eventtype>.<paymentId>, e.g. payment.completed.7b0e3f4e-...
func routingKey(event core.PaymentEvent) string {
	return "payment." + strings.ToLower(string(event.EventType)) + "." + event.PaymentID.String()
}
