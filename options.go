package eventbus

import (
	"log/slog"

	"github.com/busfactor/eventbus/inspect"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBusName is used when New is given an empty name.
var DefaultBusName = "default"

// busOptions holds configuration for a bus.
type busOptions struct {
	dispatcher     Dispatcher
	executor       Executor
	provider       inspect.Provider
	loader         SubscriberLoader
	logger         *slog.Logger
	metrics        Metrics
	registerer     prometheus.Registerer
	metricsEnabled bool
	tracingEnabled bool
}

// Option is a bus configuration function.
type Option func(*busOptions)

// WithDispatcher sets the delivery-ordering policy. Default is
// PerGoroutineQueue().
func WithDispatcher(d Dispatcher) Option {
	return func(o *busOptions) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithExecutor sets the invocation executor. Default is DirectExecutor().
// The bus owns the executor: Close stops it if it is stoppable.
func WithExecutor(e Executor) Option {
	return func(o *busOptions) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithProvider sets the capability inspection provider used for handler
// discovery and invocation.
func WithProvider(p inspect.Provider) Option {
	return func(o *busOptions) {
		if p != nil {
			o.provider = p
		}
	}
}

// WithLoader overrides the capability cache. The default caches discovery
// and type hierarchies per type for the lifetime of the bus.
func WithLoader(l SubscriberLoader) Option {
	return func(o *busOptions) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithLogger sets a custom logger for the bus.
func WithLogger(l *slog.Logger) Option {
	return func(o *busOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets a custom metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *busOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMetricsEnabled enables/disables metrics for the bus. Default is true.
func WithMetricsEnabled(enabled bool) Option {
	return func(o *busOptions) {
		o.metricsEnabled = enabled
	}
}

// WithRegisterer registers the bus metrics with r at construction time.
// Without it the collectors still count but are not exported.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *busOptions) {
		o.registerer = r
	}
}

// WithTracing enables/disables OpenTelemetry spans around Post. Default is
// true.
func WithTracing(enabled bool) Option {
	return func(o *busOptions) {
		o.tracingEnabled = enabled
	}
}

// newBusOptions creates options with defaults and applies provided options.
func newBusOptions(opts ...Option) *busOptions {
	o := &busOptions{
		logger:         slog.Default(),
		metricsEnabled: true,
		tracingEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
