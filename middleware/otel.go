package middleware

import (
	"context"
	"fmt"

	"github.com/qvcloud/subscription"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/qvcloud/subscription/middleware"

// OtelHooks wraps OnMessageReceived with a consumer span and a counter.
// Other hooks are passed through.
func OtelHooks(h subscription.Hooks, opts ...Option) subscription.Hooks {
	options := options{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
		system: "rabbitmq",
	}
	for _, o := range opts {
		o(&options)
	}

	counter, err := options.meter.Int64Counter("subscription.hook.messages",
		metric.WithDescription("Messages passed to onMessageReceived"))
	if err != nil {
		otel.Handle(err)
	}

	next := h.OnMessageReceived
	h.OnMessageReceived = func(ctx context.Context, result subscription.Result) {
		destination := destinationOf(result)
		ctx, span := options.tracer.Start(ctx, "subscription.receive",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", options.system),
				attribute.String("messaging.destination", destination),
				attribute.String("messaging.operation", "process"),
			),
		)
		defer span.End()

		if counter != nil {
			counter.Add(ctx, 1, metric.WithAttributes(attribute.String("messaging.destination", destination)))
		}
		if next != nil {
			next(ctx, result)
		}
	}
	return h
}

// destinationOf reads the queue name from delivery info types that expose
// one, falling back to fmt for anything else.
func destinationOf(result subscription.Result) string {
	switch info := result.DeliveryInfo.(type) {
	case nil:
		return ""
	case interface{ Destination() string }:
		return info.Destination()
	case fmt.Stringer:
		return info.String()
	}
	return ""
}

type options struct {
	tracer trace.Tracer
	meter  metric.Meter
	system string
}

type Option func(*options)

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithSystem sets the messaging.system span attribute.
func WithSystem(system string) Option {
	return func(o *options) {
		o.system = system
	}
}
