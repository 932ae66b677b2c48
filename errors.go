package subscription

import "errors"

var (
	// ErrNotSubscribed is returned by ReceiveMessage before Subscribe succeeded.
	ErrNotSubscribed = errors.New("subscription: not subscribed")

	// ErrUnsubscribed is returned to callers still waiting when Unsubscribe runs.
	ErrUnsubscribed = errors.New("subscription: unsubscribed")

	// ErrAlreadySubscribed is returned by Subscribe on a live subscription.
	ErrAlreadySubscribed = errors.New("subscription: already subscribed")

	// ErrUnknownProtocol is returned by Create for an unregistered name.
	ErrUnknownProtocol = errors.New("subscription: unknown protocol")
)
