package amqp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qvcloud/subscription"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/samber/lo"
)

var errNotConnected = errors.New("amqp: not connected")

// Conn is a broker connection opened in the background. Exactly one of
// Ready and Err fires first; Err may also fire later when an established
// connection breaks.
type Conn interface {
	Ready() <-chan struct{}
	Err() <-chan error
	// Queue declares the named queue and returns a handle to it.
	Queue(name string, opts QueueOptions) (Queue, error)
	Close() error
}

// Queue is a declared queue.
type Queue interface {
	Name() string
	// Subscribe starts consumption; onMessage runs once per delivery.
	Subscribe(onMessage func(Delivery)) error
	// Bind returns once the broker acknowledged the binding.
	Bind(exchange, routingKey string) error
}

// Connector opens a connection without blocking.
type Connector func(co ConnectionOptions, opts subscription.Options) Conn

// Delivery is one inbound message.
type Delivery struct {
	Body    []byte
	Headers map[string]any
	Info    DeliveryInfo
}

// DeliveryInfo is the delivery metadata handed to hooks.
type DeliveryInfo struct {
	ContentType     string    `json:"contentType,omitempty"`
	ContentEncoding string    `json:"contentEncoding,omitempty"`
	Queue           string    `json:"queue"`
	Exchange        string    `json:"exchange"`
	RoutingKey      string    `json:"routingKey"`
	ConsumerTag     string    `json:"consumerTag,omitempty"`
	DeliveryTag     uint64    `json:"deliveryTag"`
	Redelivered     bool      `json:"redelivered"`
	MessageID       string    `json:"messageId,omitempty"`
	CorrelationID   string    `json:"correlationId,omitempty"`
	ReplyTo         string    `json:"replyTo,omitempty"`
	Type            string    `json:"type,omitempty"`
	AppID           string    `json:"appId,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	Priority        uint8     `json:"priority,omitempty"`
	DeliveryMode    uint8     `json:"deliveryMode,omitempty"`
	Expiration      string    `json:"expiration,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitempty"`
}

// Destination is the queue the message was consumed from.
func (i DeliveryInfo) Destination() string { return i.Queue }

type rabbitConn interface {
	Channel() (rabbitChannel, error)
	NotifyClose(receiver chan *amqp091.Error) chan *amqp091.Error
	Close() error
	IsClosed() bool
}

type rabbitChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

type connWrapper struct{ *amqp091.Connection }

func (w *connWrapper) Channel() (rabbitChannel, error) {
	return w.Connection.Channel()
}

type dialFunc func(addr string, config amqp091.Config) (rabbitConn, error)

func dialAMQP(addr string, config amqp091.Config) (rabbitConn, error) {
	conn, err := amqp091.DialConfig(addr, config)
	if err != nil {
		return nil, err
	}
	return &connWrapper{conn}, nil
}

// DialConnector is the Connector backed by a real broker.
func DialConnector(co ConnectionOptions, opts subscription.Options) Conn {
	return openConnection(dialAMQP, co.URI(), co.Config(opts), opts)
}

type rabbitConnection struct {
	opts subscription.Options

	ready     chan struct{}
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once

	sync.Mutex
	conn    rabbitConn
	channel rabbitChannel
}

func openConnection(dial dialFunc, addr string, config amqp091.Config, opts subscription.Options) *rabbitConnection {
	c := &rabbitConnection{
		opts:  opts,
		ready: make(chan struct{}),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go c.run(dial, addr, config)
	return c
}

func (c *rabbitConnection) run(dial dialFunc, addr string, config amqp091.Config) {
	conn, err := dial(addr, config)
	if err != nil {
		c.fail(fmt.Errorf("amqp: dial: %w", err))
		return
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		c.fail(fmt.Errorf("amqp: open channel: %w", err))
		return
	}
	closes := conn.NotifyClose(make(chan *amqp091.Error, 1))

	c.Lock()
	select {
	case <-c.done:
		c.Unlock()
		ch.Close()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.channel = ch
	c.Unlock()

	close(c.ready)

	select {
	case <-c.done:
	case amqpErr, ok := <-closes:
		if ok && amqpErr != nil {
			c.fail(fmt.Errorf("amqp: connection closed: %w", amqpErr))
		}
	}
}

// fail keeps the first error only.
func (c *rabbitConnection) fail(err error) {
	select {
	case c.errs <- err:
	default:
		c.opts.Logf("amqp: dropping connection error %v", err)
	}
}

func (c *rabbitConnection) Ready() <-chan struct{} { return c.ready }
func (c *rabbitConnection) Err() <-chan error      { return c.errs }

func (c *rabbitConnection) Queue(name string, opts QueueOptions) (Queue, error) {
	c.Lock()
	ch := c.channel
	c.Unlock()

	if ch == nil {
		return nil, errNotConnected
	}

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("amqp: set qos: %w", err)
		}
	}

	if !opts.NoDeclare {
		declare := ch.QueueDeclare
		if opts.Passive {
			declare = ch.QueueDeclarePassive
		}
		q, err := declare(
			name,
			opts.Durable,
			opts.AutoDelete,
			opts.Exclusive,
			false, // no-wait
			opts.Table(),
		)
		if err != nil {
			return nil, fmt.Errorf("amqp: declare queue %q: %w", name, err)
		}
		if q.Name != "" {
			name = q.Name
		}
	}

	return &rabbitQueue{conn: c, channel: ch, name: name, opts: opts}, nil
}

func (c *rabbitConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.Lock()
		close(c.done)
		ch, conn := c.channel, c.conn
		c.channel, c.conn = nil, nil
		c.Unlock()

		if ch != nil {
			ch.Close()
		}
		if conn != nil && !conn.IsClosed() {
			if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, amqp091.ErrClosed) {
				err = fmt.Errorf("amqp: close connection: %w", cerr)
			}
		}
	})
	return err
}

type rabbitQueue struct {
	conn    *rabbitConnection
	channel rabbitChannel
	name    string
	opts    QueueOptions
}

func (q *rabbitQueue) Name() string { return q.name }

func (q *rabbitQueue) Subscribe(onMessage func(Delivery)) error {
	msgs, err := q.channel.Consume(
		q.name,
		q.opts.ConsumerTag,
		true, // auto ack, one message per receive
		q.opts.Exclusive,
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp: consume %q: %w", q.name, err)
	}

	go func() {
		for d := range msgs {
			onMessage(toDelivery(q.name, d))
		}
		q.cancelled()
	}()
	return nil
}

// cancelled reports a delivery stream that ended while the connection was
// still open: basic.cancel, a deleted queue or a channel exception.
func (q *rabbitQueue) cancelled() {
	if q.conn == nil {
		return
	}
	select {
	case <-q.conn.done:
	default:
		q.conn.fail(fmt.Errorf("amqp: consumer for %q cancelled", q.name))
	}
}

func (q *rabbitQueue) Bind(exchange, routingKey string) error {
	if err := q.channel.QueueBind(q.name, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("amqp: bind queue %q to %q/%q: %w", q.name, exchange, routingKey, err)
	}
	return nil
}

func toDelivery(queue string, d amqp091.Delivery) Delivery {
	return Delivery{
		Body:    d.Body,
		Headers: lo.Assign(map[string]any(d.Headers)),
		Info: DeliveryInfo{
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			Queue:           queue,
			Exchange:        d.Exchange,
			RoutingKey:      d.RoutingKey,
			ConsumerTag:     d.ConsumerTag,
			DeliveryTag:     d.DeliveryTag,
			Redelivered:     d.Redelivered,
			MessageID:       d.MessageId,
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			Type:            d.Type,
			AppID:           d.AppId,
			UserID:          d.UserId,
			Priority:        d.Priority,
			DeliveryMode:    d.DeliveryMode,
			Expiration:      d.Expiration,
			Timestamp:       d.Timestamp,
		},
	}
}
