package input

import (
	"context"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// LifecycleEventHandler is the input port used by event consumers
type LifecycleEventHandler interface {
	// HandleEvent dispatches one delivered lifecycle event
	HandleEvent(ctx context.Context, event core.PaymentEvent) error
}
