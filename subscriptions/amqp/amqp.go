package amqp

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/qvcloud/subscription"
	"github.com/qvcloud/subscription/internal/waiter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// ErrReceiveReplaced is returned by a ReceiveMessage call that was
// superseded by a newer one before a message arrived.
var ErrReceiveReplaced = waiter.ErrReplaced

var _ subscription.Subscription = (*Subscription)(nil)

// Subscription consumes one AMQP queue one message at a time.
type Subscription struct {
	opts      subscription.Options
	connOpts  ConnectionOptions
	queueOpts QueueOptions
	rawQueue  map[string]any

	queueName  string
	exchange   string
	routingKey string

	connect Connector
	policy  waiter.Policy

	received metric.Int64Counter
	dropped  metric.Int64Counter
	attrs    metric.MeasurementOption

	mu     sync.Mutex
	state  subscription.State
	conn   Conn
	waiter *waiter.Waiter
	done   chan struct{}
}

// New builds an idle subscription. The queue name is generated when
// attrs.QueueName is empty.
func New(attrs Attributes, opts ...subscription.Option) (*Subscription, error) {
	options := subscription.NewOptions(opts...)

	connOpts, err := ParseConnectionOptions(attrs.Options)
	if err != nil {
		return nil, err
	}
	queueOpts, err := ParseQueueOptions(attrs.QueueOptions)
	if err != nil {
		return nil, err
	}
	if len(connOpts.Extra) > 0 {
		options.Logf("amqp: ignoring unknown connection options: %s", unknownKeys(connOpts.Extra))
	}
	if len(queueOpts.Extra) > 0 {
		options.Logf("amqp: ignoring unknown queue options: %s", unknownKeys(queueOpts.Extra))
	}
	if queueOpts.ConsumerTag == "" {
		queueOpts.ConsumerTag = "amqpsub-" + uuid.NewString()
	}

	rawQueue := attrs.QueueOptions
	if rawQueue == nil {
		rawQueue = map[string]any{}
	}

	name := attrs.QueueName
	if name == "" {
		name = subscription.GenerateQueueName(options.Rand)
	}

	s := &Subscription{
		opts:       *options,
		connOpts:   connOpts,
		queueOpts:  queueOpts,
		rawQueue:   rawQueue,
		queueName:  name,
		exchange:   attrs.Exchange,
		routingKey: attrs.RoutingKey,
		connect:    DialConnector,
		policy:     waiter.Buffer,
		state:      subscription.StateIdle,
		attrs:      metric.WithAttributes(attribute.String("messaging.destination", name)),
	}

	if v, ok := subscription.GetTrackedValue(options.Context, connectorKey{}).(Connector); ok && v != nil {
		s.connect = v
	}
	if v, ok := subscription.GetTrackedValue(options.Context, policyKey{}).(waiter.Policy); ok {
		s.policy = v
	}

	s.received, err = options.Meter.Int64Counter("subscription.messages.received",
		metric.WithDescription("Messages delivered to the subscription"))
	if err != nil {
		s.received = noop.Int64Counter{}
	}
	s.dropped, err = options.Meter.Int64Counter("subscription.messages.dropped",
		metric.WithDescription("Messages no receive call was waiting for"))
	if err != nil {
		s.dropped = noop.Int64Counter{}
	}

	return s, nil
}

func (s *Subscription) Options() subscription.Options { return s.opts }
func (s *Subscription) Name() string                  { return s.queueName }
func (s *Subscription) Exchange() string              { return s.exchange }
func (s *Subscription) RoutingKey() string            { return s.routingKey }
func (s *Subscription) String() string                { return "amqp" }

// QueueOptions returns the queue options as they were given, never nil.
func (s *Subscription) QueueOptions() map[string]any { return s.rawQueue }

// ConnectionOptions returns the parsed connection options.
func (s *Subscription) ConnectionOptions() ConnectionOptions { return s.connOpts }

func (s *Subscription) State() subscription.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe opens the connection and makes the queue consumable. It
// returns once the queue is bound, or with the first connection error.
func (s *Subscription) Subscribe(ctx context.Context) error {
	ctx, span := s.opts.Tracer.Start(ctx, "amqp.subscribe",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", s.queueName),
			attribute.String("messaging.operation", "subscribe"),
		),
	)
	defer span.End()

	err := s.subscribe(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Subscription) subscribe(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.CanSubscribe() {
		s.mu.Unlock()
		return subscription.ErrAlreadySubscribed
	}
	stale := s.conn

	subscription.WarnUnconsumed(s.opts.Context, s.opts.Logger)

	conn := s.connect(s.connOpts, s.opts)
	done := make(chan struct{})
	w := waiter.New(s.policy)
	s.conn, s.done, s.waiter = conn, done, w
	s.state = subscription.StateConnecting
	s.mu.Unlock()

	if stale != nil {
		stale.Close()
	}

	select {
	case <-conn.Ready():
	case err := <-conn.Err():
		return s.fail(conn, err)
	case <-ctx.Done():
		return s.fail(conn, ctx.Err())
	case <-done:
		return subscription.ErrUnsubscribed
	}

	s.opts.Logf("amqp: connection ready, subscribing to %s", s.queueName)

	if err := s.bind(conn, w); err != nil {
		return s.fail(conn, err)
	}

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return subscription.ErrUnsubscribed
	}
	s.state = subscription.StateBound
	s.mu.Unlock()

	go s.watch(conn, w, done)
	return nil
}

// fail ends a subscribe attempt: the connection is closed and waiting
// receivers get err.
func (s *Subscription) fail(conn Conn, err error) error {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return subscription.ErrUnsubscribed
	}
	s.conn = nil
	s.state = subscription.StateFailed
	w := s.waiter
	s.mu.Unlock()

	w.Fail(err)
	conn.Close()
	s.opts.Logf("amqp: subscribe to %s failed: %v", s.queueName, err)
	return err
}

// watch reports a connection that breaks after Subscribe succeeded.
// There is no reconnect.
func (s *Subscription) watch(conn Conn, w *waiter.Waiter, done <-chan struct{}) {
	select {
	case <-done:
	case err, ok := <-conn.Err():
		if !ok {
			return
		}
		s.mu.Lock()
		if s.conn == conn {
			s.state = subscription.StateFailed
		}
		s.mu.Unlock()

		s.opts.Logf("amqp: connection for %s lost: %v", s.queueName, err)
		w.Fail(err)
		s.opts.Hooks.ConnectionError(context.Background(), err)
	}
}

// ReceiveMessage waits for the next message. The message is handed to
// Hooks.OnMessageReceived before this returns.
func (s *Subscription) ReceiveMessage(ctx context.Context) error {
	s.mu.Lock()
	w := s.waiter
	if s.state == subscription.StateBound {
		s.state = subscription.StateListening
	}
	s.mu.Unlock()

	if w == nil {
		return subscription.ErrNotSubscribed
	}

	s.opts.Logf("amqp: %s registering receiveMessage resolver", s.queueName)
	slot := w.Wait()
	select {
	case err := <-slot:
		return err
	case <-ctx.Done():
		w.Cancel(slot)
		select {
		case err := <-slot:
			return err
		default:
		}
		return ctx.Err()
	}
}

// Unsubscribe closes the connection. Without one it does nothing.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	conn, done, w := s.conn, s.done, s.waiter
	if conn == nil {
		s.mu.Unlock()
		return nil
	}
	s.conn, s.done = nil, nil
	s.state = subscription.StateUnsubscribing
	s.mu.Unlock()

	close(done)
	w.Fail(subscription.ErrUnsubscribed)
	err := conn.Close()

	s.mu.Lock()
	if s.state == subscription.StateUnsubscribing {
		s.state = subscription.StateClosed
	}
	s.mu.Unlock()

	s.opts.Logf("amqp: unsubscribed from %s", s.queueName)
	return err
}

func (s *Subscription) deliver(w *waiter.Waiter, d Delivery) {
	ctx := context.Background()

	payload, err := subscription.DecodePayload(s.opts.Codec, d.Info.ContentType, d.Body)
	if err != nil {
		s.opts.Logf("amqp: keeping raw payload of message on %s: %v", s.queueName, err)
	}
	s.opts.Hooks.MessageReceived(ctx, subscription.Result{
		Payload:      payload,
		Headers:      d.Headers,
		DeliveryInfo: d.Info,
	})
	s.received.Add(ctx, 1, s.attrs)

	if w.Arrive() {
		return
	}
	if err := w.Err(); err != nil {
		s.opts.Logf("amqp: message on %s arrived after teardown (%v), discarded", s.queueName, err)
		return
	}
	s.dropped.Add(ctx, 1, s.attrs)
	s.opts.Logf("amqp: queue %s is not awaiting a message, dropped", s.queueName)
}
