package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "bound", StateBound.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "unsubscribing", StateUnsubscribing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestState_CanSubscribe(t *testing.T) {
	for _, s := range []State{StateIdle, StateClosed, StateFailed} {
		assert.True(t, s.CanSubscribe(), s.String())
	}
	for _, s := range []State{StateConnecting, StateBound, StateListening, StateUnsubscribing} {
		assert.False(t, s.CanSubscribe(), s.String())
	}
}

func TestHooks_NilSafe(t *testing.T) {
	var h Hooks
	h.MessageReceived(context.Background(), Result{})
	h.ConnectionError(context.Background(), errors.New("lost"))

	var got Result
	var gotErr error
	h = Hooks{
		OnMessageReceived: func(ctx context.Context, r Result) { got = r },
		OnConnectionError: func(ctx context.Context, err error) { gotErr = err },
	}
	h.MessageReceived(context.Background(), Result{Payload: "p"})
	h.ConnectionError(context.Background(), ErrUnsubscribed)
	assert.Equal(t, "p", got.Payload)
	assert.ErrorIs(t, gotErr, ErrUnsubscribed)
}
