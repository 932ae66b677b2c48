// Package waiter turns push-style message arrivals into one-at-a-time
// pull-style waits.
package waiter

import (
	"errors"
	"sync"
)

var (
	// ErrClosed settles waits after Close.
	ErrClosed = errors.New("waiter: closed")
	// ErrReplaced settles a wait superseded by a newer one.
	ErrReplaced = errors.New("waiter: replaced by a newer wait")
)

// Policy decides what happens to an arrival nobody is waiting for.
type Policy int

const (
	// Buffer keeps the arrival so the next Wait resolves immediately.
	Buffer Policy = iota
	// Drop discards the arrival.
	Drop
)

func (p Policy) String() string {
	switch p {
	case Buffer:
		return "buffer"
	case Drop:
		return "drop"
	}
	return "unknown"
}

// Slot is the resolver handed out by Wait. It receives exactly one value:
// nil on arrival, an error on teardown.
type Slot <-chan error

// Waiter holds at most one pending slot.
type Waiter struct {
	mu      sync.Mutex
	policy  Policy
	pending chan error
	backlog int
	err     error
}

func New(p Policy) *Waiter {
	return &Waiter{policy: p}
}

// Wait installs a new pending slot. A previously pending slot settles with
// ErrReplaced.
func (w *Waiter) Wait() Slot {
	slot := make(chan error, 1)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.err != nil:
		slot <- w.err
	case w.backlog > 0:
		w.backlog--
		slot <- nil
	default:
		if w.pending != nil {
			w.pending <- ErrReplaced
		}
		w.pending = slot
	}
	return slot
}

// Cancel forgets slot if it is still pending.
func (w *Waiter) Cancel(slot Slot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil && Slot(w.pending) == slot {
		w.pending = nil
	}
}

// Arrive signals one arrival. It reports false when the arrival found no
// pending slot and the policy dropped it.
func (w *Waiter) Arrive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return false
	}
	if w.pending != nil {
		w.pending <- nil
		w.pending = nil
		return true
	}
	if w.policy == Buffer {
		w.backlog++
		return true
	}
	return false
}

// Pending reports whether a slot is waiting.
func (w *Waiter) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Backlog returns the number of buffered arrivals.
func (w *Waiter) Backlog() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.backlog
}

// Fail settles the pending slot and every later Wait with err.
// Only the first failure is kept.
func (w *Waiter) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return
	}
	w.err = err
	w.backlog = 0
	if w.pending != nil {
		w.pending <- err
		w.pending = nil
	}
}

// Err returns the error passed to Fail, if any.
func (w *Waiter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close is Fail(ErrClosed).
func (w *Waiter) Close() {
	w.Fail(ErrClosed)
}
