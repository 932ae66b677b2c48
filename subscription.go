package subscription

import (
	"context"
)

// Subscription is a pull-driven consumer of a single broker destination.
// A host drives it in lock-step: Subscribe, then ReceiveMessage once per
// expected message, then Unsubscribe.
type Subscription interface {
	Options() Options
	// Name returns the destination the subscription consumes from.
	Name() string
	// State returns the current lifecycle state.
	State() State
	// Subscribe connects and makes the destination consumable.
	Subscribe(ctx context.Context) error
	// ReceiveMessage blocks until the next message arrives. The message
	// itself is handed to Hooks.OnMessageReceived, not returned.
	ReceiveMessage(ctx context.Context) error
	// Unsubscribe tears the connection down. It is safe to call in any state.
	Unsubscribe() error
	String() string
}

// Result is what OnMessageReceived gets for each delivered message.
type Result struct {
	Payload      any            `json:"payload"`
	Headers      map[string]any `json:"headers"`
	DeliveryInfo any            `json:"deliveryInfo"`
}

// Marshaler is a simple encoding interface.
type Marshaler interface {
	Marshal(interface{}) ([]byte, error)
	Unmarshal([]byte, interface{}) error
	// ContentType is the MIME type a payload must carry to be decoded.
	ContentType() string
	String() string
}
