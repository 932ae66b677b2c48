package amqp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/qvcloud/subscription"
)

// MemoryBroker is an in-process stand-in for an AMQP server. It routes
// through the default exchange by queue name and through direct bindings
// otherwise.
type MemoryBroker struct {
	sync.RWMutex
	queues     map[string]*memoryQueue
	bindings   map[bindingKey]map[string]bool
	connectErr error
	tags       atomic.Uint64
}

type bindingKey struct {
	exchange   string
	routingKey string
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues:   make(map[string]*memoryQueue),
		bindings: make(map[bindingKey]map[string]bool),
	}
}

// FailConnections makes every later connection attempt report err.
// A nil err restores normal behaviour.
func (b *MemoryBroker) FailConnections(err error) {
	b.Lock()
	b.connectErr = err
	b.Unlock()
}

// Connector returns a Connector that opens connections to b.
func (b *MemoryBroker) Connector() Connector {
	return func(co ConnectionOptions, opts subscription.Options) Conn {
		return b.connect()
	}
}

// Publish routes d and returns how many queues received it. Messages for a
// queue without consumers wait in the queue.
func (b *MemoryBroker) Publish(exchange, routingKey string, d Delivery) int {
	b.RLock()
	var targets []*memoryQueue
	if exchange == "" {
		if q, ok := b.queues[routingKey]; ok {
			targets = append(targets, q)
		}
	} else {
		for name := range b.bindings[bindingKey{exchange, routingKey}] {
			if q, ok := b.queues[name]; ok {
				targets = append(targets, q)
			}
		}
	}
	b.RUnlock()

	var wg sync.WaitGroup
	for _, q := range targets {
		msg := d
		msg.Info.Exchange = exchange
		msg.Info.RoutingKey = routingKey
		msg.Info.Queue = q.name
		msg.Info.DeliveryTag = b.tags.Add(1)

		wg.Add(1)
		go func(q *memoryQueue, msg Delivery) {
			defer wg.Done()
			q.push(msg)
		}(q, msg)
	}
	wg.Wait()
	return len(targets)
}

// Queue reports whether the named queue exists.
func (b *MemoryBroker) Queue(name string) bool {
	b.RLock()
	defer b.RUnlock()
	_, ok := b.queues[name]
	return ok
}

// Bound reports whether queue is bound to exchange with routingKey.
func (b *MemoryBroker) Bound(queue, exchange, routingKey string) bool {
	b.RLock()
	defer b.RUnlock()
	return b.bindings[bindingKey{exchange, routingKey}][queue]
}

func (b *MemoryBroker) connect() *memoryConn {
	c := &memoryConn{
		id:     uuid.NewString(),
		broker: b,
		ready:  make(chan struct{}),
		errs:   make(chan error, 1),
	}

	b.RLock()
	err := b.connectErr
	b.RUnlock()

	if err != nil {
		c.errs <- err
	} else {
		close(c.ready)
	}
	return c
}

func (b *MemoryBroker) declare(name string, opts QueueOptions) (*memoryQueue, error) {
	b.Lock()
	defer b.Unlock()

	if q, ok := b.queues[name]; ok {
		return q, nil
	}
	if opts.Passive || opts.NoDeclare {
		return nil, fmt.Errorf("amqp: declare queue %q: NOT_FOUND", name)
	}
	q := &memoryQueue{
		broker:     b,
		name:       name,
		autoDelete: opts.AutoDelete,
		consumers:  make(map[string]func(Delivery)),
	}
	b.queues[name] = q
	return q, nil
}

func (b *MemoryBroker) bind(queue, exchange, routingKey string) {
	b.Lock()
	defer b.Unlock()
	key := bindingKey{exchange, routingKey}
	if b.bindings[key] == nil {
		b.bindings[key] = make(map[string]bool)
	}
	b.bindings[key][queue] = true
}

// release removes conn's consumers and deletes auto-delete queues left
// without any.
func (b *MemoryBroker) release(connID string) {
	b.Lock()
	defer b.Unlock()

	for name, q := range b.queues {
		if !q.removeConsumer(connID) || !q.autoDelete {
			continue
		}
		delete(b.queues, name)
		for key, queues := range b.bindings {
			delete(queues, name)
			if len(queues) == 0 {
				delete(b.bindings, key)
			}
		}
	}
}

type memoryConn struct {
	id     string
	broker *MemoryBroker
	ready  chan struct{}
	errs   chan error

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *memoryConn) Ready() <-chan struct{} { return c.ready }
func (c *memoryConn) Err() <-chan error      { return c.errs }

func (c *memoryConn) Queue(name string, opts QueueOptions) (Queue, error) {
	if c.closed.Load() {
		return nil, errNotConnected
	}
	q, err := c.broker.declare(name, opts)
	if err != nil {
		return nil, err
	}
	return &memoryHandle{conn: c, queue: q, tag: opts.ConsumerTag}, nil
}

func (c *memoryConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.broker.release(c.id)
	})
	return nil
}

type memoryHandle struct {
	conn  *memoryConn
	queue *memoryQueue
	tag   string
}

func (h *memoryHandle) Name() string { return h.queue.name }

func (h *memoryHandle) Subscribe(onMessage func(Delivery)) error {
	if h.conn.closed.Load() {
		return errNotConnected
	}
	tag := h.tag
	h.queue.addConsumer(h.conn.id, func(d Delivery) {
		d.Info.ConsumerTag = tag
		onMessage(d)
	})
	return nil
}

func (h *memoryHandle) Bind(exchange, routingKey string) error {
	if h.conn.closed.Load() {
		return errNotConnected
	}
	h.conn.broker.bind(h.queue.name, exchange, routingKey)
	return nil
}

type memoryQueue struct {
	broker     *MemoryBroker
	name       string
	autoDelete bool

	mu        sync.Mutex
	consumers map[string]func(Delivery)
	order     []string
	next      int
	backlog   []Delivery
}

func (q *memoryQueue) addConsumer(connID string, fn func(Delivery)) {
	q.mu.Lock()
	if _, ok := q.consumers[connID]; !ok {
		q.order = append(q.order, connID)
	}
	q.consumers[connID] = fn
	backlog := q.backlog
	q.backlog = nil
	q.mu.Unlock()

	for _, d := range backlog {
		fn(d)
	}
}

// removeConsumer reports whether the queue is now without consumers
// after having had connID as one.
func (q *memoryQueue) removeConsumer(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.consumers[connID]; !ok {
		return false
	}
	delete(q.consumers, connID)
	for i, id := range q.order {
		if id == connID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return len(q.consumers) == 0
}

// push hands d to the next consumer in round-robin order.
func (q *memoryQueue) push(d Delivery) {
	q.mu.Lock()
	if len(q.order) == 0 {
		q.backlog = append(q.backlog, d)
		q.mu.Unlock()
		return
	}
	id := q.order[q.next%len(q.order)]
	q.next++
	fn := q.consumers[id]
	q.mu.Unlock()

	fn(d)
}
