package amqp

import (
	"context"

	"github.com/qvcloud/subscription"
	"github.com/qvcloud/subscription/internal/waiter"
)

type connectorKey struct{}
type policyKey struct{}

// WithConnector replaces the broker dialer.
func WithConnector(c Connector) subscription.Option {
	return func(o *subscription.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = subscription.WithTrackedValue(o.Context, connectorKey{}, c, "amqp.WithConnector")
	}
}

// BufferUnawaited keeps messages that arrive while no ReceiveMessage call
// is waiting; each one satisfies a later call. This is the default.
func BufferUnawaited() subscription.Option {
	return withPolicy(waiter.Buffer, "amqp.BufferUnawaited")
}

// DropUnawaited discards messages that arrive while no ReceiveMessage call
// is waiting. The hook still sees them.
func DropUnawaited() subscription.Option {
	return withPolicy(waiter.Drop, "amqp.DropUnawaited")
}

func withPolicy(p waiter.Policy, name string) subscription.Option {
	return func(o *subscription.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = subscription.WithTrackedValue(o.Context, policyKey{}, p, name)
	}
}
