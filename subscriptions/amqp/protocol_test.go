package amqp

import (
	"testing"

	"github.com/qvcloud/subscription"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocol_Registered(t *testing.T) {
	for _, name := range []string{"amqp", "amqp-0.9"} {
		p, ok := subscription.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "amqp", p.Name)
	}

	p := Protocol()
	assert.ElementsMatch(t, []string{"options", "queueOptions", "queueName", "exchange", "routingKey"}, lo.Keys(p.Schema.Attributes))
	assert.Equal(t, []string{"payload", "headers", "deliveryInfo"}, p.Schema.Hooks[subscription.HookMessageReceived].Arguments)
}

func TestProtocol_Create(t *testing.T) {
	sub, err := subscription.Create("amqp-0.9", map[string]any{
		"queueName":    "Q1",
		"exchange":     "ex",
		"routingKey":   "rk",
		"options":      map[string]any{"host": "rabbit", "port": "5673"},
		"queueOptions": map[string]any{"durable": true},
	}, subscription.ClientID("worker-1"))
	require.NoError(t, err)

	s, ok := sub.(*Subscription)
	require.True(t, ok)
	assert.Equal(t, "Q1", s.Name())
	assert.Equal(t, "ex", s.Exchange())
	assert.Equal(t, "rk", s.RoutingKey())
	assert.Equal(t, "rabbit", s.ConnectionOptions().Host)
	assert.Equal(t, 5673, s.ConnectionOptions().Port)
	assert.Equal(t, map[string]any{"durable": true}, s.QueueOptions())
	assert.Equal(t, "worker-1", s.Options().ClientID)
	assert.Equal(t, subscription.StateIdle, s.State())
}

func TestProtocol_CreateInvalid(t *testing.T) {
	sub, err := subscription.Create("amqp", map[string]any{"options": map[string]any{"port": "x"}})
	assert.Error(t, err)
	assert.Nil(t, sub)

	sub, err = subscription.Create("amqp", map[string]any{"queueName": []string{"a", "b"}})
	assert.Error(t, err)
	assert.Nil(t, sub)
}
