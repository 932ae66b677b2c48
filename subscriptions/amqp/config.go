package amqp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/qvcloud/subscription"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/samber/lo"
)

const defaultHeartbeat = 10 * time.Second

// Attributes is the construction record a host passes in.
type Attributes struct {
	// Options are the connection options, see ConnectionOptions.
	Options map[string]any `mapstructure:"options" json:"options,omitempty"`
	// QueueOptions are the queue options, see QueueOptions.
	QueueOptions map[string]any `mapstructure:"queueOptions" json:"queueOptions,omitempty"`
	// QueueName is generated when empty.
	QueueName string `mapstructure:"queueName" json:"queueName,omitempty"`
	// Exchange and RoutingKey must both be set for an explicit bind.
	Exchange   string `mapstructure:"exchange" json:"exchange,omitempty"`
	RoutingKey string `mapstructure:"routingKey" json:"routingKey,omitempty"`
}

// DecodeAttributes reads an untyped attribute record.
func DecodeAttributes(raw map[string]any) (Attributes, error) {
	var attrs Attributes
	if err := decode(raw, &attrs); err != nil {
		return Attributes{}, fmt.Errorf("amqp: decode attributes: %w", err)
	}
	return attrs, nil
}

// SSLOptions switches the connection to amqps.
type SSLOptions struct {
	Enabled bool `mapstructure:"enabled"`
}

// ConnectionOptions uses the field names of the node-amqp client so
// existing attribute records keep working.
type ConnectionOptions struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
	Vhost    string `mapstructure:"vhost"`
	// Heartbeat is in seconds.
	Heartbeat int `mapstructure:"heartbeat"`
	// ConnectionTimeout is in milliseconds.
	ConnectionTimeout int            `mapstructure:"connectionTimeout"`
	ClientProperties  map[string]any `mapstructure:"clientProperties"`
	SSL               SSLOptions     `mapstructure:"ssl"`

	Extra map[string]any `mapstructure:",remain"`
}

// ParseConnectionOptions applies raw over the defaults.
func ParseConnectionOptions(raw map[string]any) (ConnectionOptions, error) {
	co := ConnectionOptions{
		Host:     "localhost",
		Login:    "guest",
		Password: "guest",
		Vhost:    "/",
	}
	if err := decode(raw, &co); err != nil {
		return ConnectionOptions{}, fmt.Errorf("amqp: decode connection options: %w", err)
	}
	return co, nil
}

// URI returns the dial address. URL wins over the discrete fields.
func (c ConnectionOptions) URI() string {
	if c.URL != "" {
		return c.URL
	}
	uri := amqp091.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Login,
		Password: c.Password,
		Vhost:    c.Vhost,
	}
	if c.SSL.Enabled {
		uri.Scheme = "amqps"
	}
	if uri.Port == 0 {
		uri.Port = 5672
		if c.SSL.Enabled {
			uri.Port = 5671
		}
	}
	return uri.String()
}

// Config builds the amqp091 dial configuration.
func (c ConnectionOptions) Config(opts subscription.Options) amqp091.Config {
	config := amqp091.Config{
		Heartbeat:       defaultHeartbeat,
		TLSClientConfig: opts.TLSConfig,
		Properties:      amqp091.Table{},
	}
	if c.Heartbeat > 0 {
		config.Heartbeat = time.Duration(c.Heartbeat) * time.Second
	}
	if c.ConnectionTimeout > 0 {
		config.Dial = amqp091.DefaultDial(time.Duration(c.ConnectionTimeout) * time.Millisecond)
	}
	for k, v := range c.ClientProperties {
		config.Properties[k] = v
	}
	if opts.ClientID != "" {
		config.Properties["connection_name"] = opts.ClientID
	}
	return config
}

// QueueOptions controls the declaration and consumption of the queue.
type QueueOptions struct {
	Passive    bool `mapstructure:"passive"`
	Durable    bool `mapstructure:"durable"`
	Exclusive  bool `mapstructure:"exclusive"`
	AutoDelete bool `mapstructure:"autoDelete"`
	// NoDeclare consumes an existing queue without declaring it.
	NoDeclare bool           `mapstructure:"noDeclare"`
	Arguments map[string]any `mapstructure:"arguments"`

	PrefetchCount int    `mapstructure:"prefetchCount"`
	ConsumerTag   string `mapstructure:"consumerTag"`

	Extra map[string]any `mapstructure:",remain"`
}

// ParseQueueOptions applies raw over the defaults. Queues are auto-deleted
// unless told otherwise.
func ParseQueueOptions(raw map[string]any) (QueueOptions, error) {
	qo := QueueOptions{AutoDelete: true}
	if err := decode(raw, &qo); err != nil {
		return QueueOptions{}, fmt.Errorf("amqp: decode queue options: %w", err)
	}
	return qo, nil
}

// Table returns the declaration arguments as an amqp091 table.
func (q QueueOptions) Table() amqp091.Table {
	if len(q.Arguments) == 0 {
		return nil
	}
	return amqp091.Table(lo.Assign(q.Arguments))
}

func decode(input any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}

func unknownKeys(extra map[string]any) string {
	keys := lo.Keys(extra)
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
