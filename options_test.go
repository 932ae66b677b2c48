package subscription

import (
	"context"
	"crypto/tls"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type testLogger struct {
	lines int
}

func (t *testLogger) Log(v ...any)                 { t.lines++ }
func (t *testLogger) Logf(format string, v ...any) { t.lines++ }

func TestOptions(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "val")
	r := rand.New(rand.NewPCG(1, 2))

	opts := NewOptions(
		ClientID("test-client"),
		WithLogger(&testLogger{}),
		WithHooks(Hooks{OnMessageReceived: func(context.Context, Result) {}}),
		TLSConfig(&tls.Config{}),
		Tracer(tracenoop.NewTracerProvider().Tracer("test")),
		Meter(noop.NewMeterProvider().Meter("test")),
		Codec(JsonMarshaler{}),
		WithRand(r),
		WithContext(ctx),
	)

	assert.Equal(t, "test-client", opts.ClientID)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Hooks.OnMessageReceived)
	assert.NotNil(t, opts.TLSConfig)
	assert.NotNil(t, opts.Tracer)
	assert.NotNil(t, opts.Meter)
	assert.NotNil(t, opts.Codec)
	assert.Same(t, r, opts.Rand)
	assert.Equal(t, "val", opts.Context.Value(ctxKey{}))
}

func TestOptions_Defaults(t *testing.T) {
	opts := NewOptions()

	assert.Empty(t, opts.ClientID)
	assert.Nil(t, opts.Logger)
	assert.Nil(t, opts.TLSConfig)
	assert.Equal(t, JsonMarshaler{}, opts.Codec)
	assert.NotNil(t, opts.Tracer)
	assert.NotNil(t, opts.Meter)
	assert.NotNil(t, opts.Rand)
	assert.NotNil(t, opts.Context)
}

func TestOptions_Log(t *testing.T) {
	var silent Options
	silent.Log("dropped")
	silent.Logf("dropped %d", 1)

	logger := &testLogger{}
	opts := NewOptions(WithLogger(logger))
	opts.Log("hello")
	opts.Logf("hello %s", "world")
	assert.Equal(t, 2, logger.lines)
}
