package subscription

import (
	"context"
	"crypto/tls"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/qvcloud/subscription"

// Options contains the subscription configuration shared by all protocols.
type Options struct {
	// ClientID names the connection on the broker side.
	ClientID string
	// Codec decodes payloads whose content type matches Codec.ContentType.
	Codec Marshaler

	// Hooks are invoked on message arrival and late connection errors.
	Hooks Hooks
	// Logger receives debug output. Nil means silent.
	Logger Logger

	// TLSConfig is the TLS configuration for secure connections.
	TLSConfig *tls.Config

	// Tracer is the OpenTelemetry tracer for observability.
	Tracer trace.Tracer
	// Meter is the OpenTelemetry meter for observability.
	Meter metric.Meter

	// Rand feeds queue name generation.
	Rand RandSource

	// Context is the underlying context for custom options.
	Context context.Context
}

type Option func(*Options)

func NewOptions(opts ...Option) *Options {
	options := Options{
		Codec:   JsonMarshaler{},
		Tracer:  otel.Tracer(instrumentationName),
		Meter:   otel.Meter(instrumentationName),
		Rand:    globalRand{},
		Context: context.Background(),
	}

	for _, o := range opts {
		o(&options)
	}

	return &options
}

// Log writes through the configured logger, if any.
func (o Options) Log(v ...any) {
	if o.Logger != nil {
		o.Logger.Log(v...)
	}
}

// Logf writes through the configured logger, if any.
func (o Options) Logf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Logf(format, v...)
	}
}

// ClientID sets the connection name reported to the broker.
func ClientID(id string) Option {
	return func(o *Options) {
		o.ClientID = id
	}
}

// Codec sets the codec used to decode message payloads.
func Codec(c Marshaler) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithHooks sets the host callbacks.
func WithHooks(h Hooks) Option {
	return func(o *Options) {
		o.Hooks = h
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Specify TLS Config.
func TLSConfig(t *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = t
	}
}

// Tracer sets the tracer used for observability.
func Tracer(t trace.Tracer) Option {
	return func(o *Options) {
		o.Tracer = t
	}
}

// Meter sets the meter used for observability.
func Meter(m metric.Meter) Option {
	return func(o *Options) {
		o.Meter = m
	}
}

// WithRand sets the random source used for generated queue names.
func WithRand(r RandSource) Option {
	return func(o *Options) {
		o.Rand = r
	}
}

// WithContext sets the options context, typically one returned by TrackOptions.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}
