package amqp

import (
	"errors"
	"fmt"

	"github.com/qvcloud/subscription/internal/waiter"
)

// ErrImpossibleBinding means there is neither a queue name nor an
// exchange and routing key to bind with.
var ErrImpossibleBinding = errors.New("amqp: impossible to subscribe")

// bind declares the queue, starts consuming into w and binds the queue
// when both exchange and routing key are set. Consumption starts before
// the bind so nothing routed in between is lost.
func (s *Subscription) bind(conn Conn, w *waiter.Waiter) error {
	q, err := conn.Queue(s.queueName, s.queueOpts)
	if err != nil {
		return err
	}

	if err := q.Subscribe(func(d Delivery) { s.deliver(w, d) }); err != nil {
		return err
	}

	switch {
	case s.exchange != "" && s.routingKey != "":
		s.opts.Logf("amqp: binding %s to exchange %s with routing key %s", q.Name(), s.exchange, s.routingKey)
		if err := q.Bind(s.exchange, s.routingKey); err != nil {
			return err
		}
		s.opts.Logf("amqp: queue %s bound", q.Name())
	case q.Name() != "":
		s.opts.Logf("amqp: queue %s bound to the default exchange", q.Name())
	default:
		return fmt.Errorf("%w: %s:%s:%s", ErrImpossibleBinding, q.Name(), s.exchange, s.routingKey)
	}
	return nil
}
