package amqp

import (
	"github.com/qvcloud/subscription"
)

func init() {
	subscription.Register(Protocol())
}

// Protocol describes the amqp subscription to hosts.
func Protocol() subscription.Protocol {
	return subscription.Protocol{
		Name:             "amqp",
		AlternativeNames: []string{"amqp-0.9"},
		Library:          "github.com/rabbitmq/amqp091-go",
		Description:      "Subscription to handle AMQP 0.9 protocol",
		Homepage:         "https://github.com/qvcloud/subscription",
		LibraryHomepage:  "https://github.com/rabbitmq/amqp091-go",
		Schema: subscription.Schema{
			Attributes: map[string]subscription.Attribute{
				"options": {
					Description: "Connection options",
					Type:        "object",
				},
				"queueOptions": {
					Type: "object",
				},
				"queueName": {
					Description: "Randomly generated when empty",
					Type:        "string",
				},
				"exchange": {
					Description: "Defaults to the default exchange when empty",
					Type:        "string",
				},
				"routingKey": {
					Description: "Defaults to the queue name when empty",
					Type:        "string",
				},
			},
			Hooks: map[string]subscription.HookSchema{
				subscription.HookMessageReceived: {
					Arguments: []string{"payload", "headers", "deliveryInfo"},
				},
			},
		},
		Factory: factory,
	}
}

func factory(raw map[string]any, opts ...subscription.Option) (subscription.Subscription, error) {
	attrs, err := DecodeAttributes(raw)
	if err != nil {
		return nil, err
	}
	s, err := New(attrs, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
