package subscription

import "context"

// HookMessageReceived is the hook event name announced in protocol schemas.
const HookMessageReceived = "onMessageReceived"

// Hooks are optional callbacks the host uses to observe a subscription.
type Hooks struct {
	// OnMessageReceived runs once per delivered message, before the
	// matching ReceiveMessage call returns.
	OnMessageReceived func(ctx context.Context, result Result)
	// OnConnectionError runs when the connection fails after Subscribe succeeded.
	OnConnectionError func(ctx context.Context, err error)
}

// MessageReceived calls OnMessageReceived when set.
func (h Hooks) MessageReceived(ctx context.Context, result Result) {
	if h.OnMessageReceived != nil {
		h.OnMessageReceived(ctx, result)
	}
}

// ConnectionError calls OnConnectionError when set.
func (h Hooks) ConnectionError(ctx context.Context, err error) {
	if h.OnConnectionError != nil {
		h.OnConnectionError(ctx, err)
	}
}
