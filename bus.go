package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/busfactor/eventbus/inspect"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	busRunning = 1
	busClosed  = 0
)

const instrumentationName = "github.com/busfactor/eventbus"

// NewID generates a new unique ID.
func NewID() string {
	return uuid.NewString()
}

// Bus routes posted events to the handler bindings registered for compatible
// event types. It owns a subscriber registry, a dispatch-ordering policy and
// an invocation executor, and implements the dead-event and exception-event
// fallback protocol. A Bus is safe for concurrent use; no global lock
// serializes unrelated event types against each other.
type Bus struct {
	status     int32
	id         string
	name       string
	registry   *registry
	dispatcher Dispatcher
	executor   Executor
	provider   inspect.Provider
	logger     *slog.Logger
	metrics    Metrics
	tracing    bool
}

// New creates a bus with the given identifier. An empty name falls back to
// DefaultBusName.
func New(name string, opts ...Option) *Bus {
	if name == "" {
		name = DefaultBusName
	}
	o := newBusOptions(opts...)

	b := &Bus{
		status:  busRunning,
		id:      NewID(),
		name:    name,
		logger:  o.logger.With("component", "bus>"+name),
		tracing: o.tracingEnabled,
	}

	b.provider = o.provider
	if b.provider == nil {
		b.provider = inspect.NewProvider()
	}
	loader := o.loader
	if loader == nil {
		loader = NewLoader(b.provider, b.logger)
	}
	b.registry = newRegistry(b, loader)

	b.dispatcher = o.dispatcher
	if b.dispatcher == nil {
		b.dispatcher = PerGoroutineQueue()
	}
	b.executor = o.executor
	if b.executor == nil {
		b.executor = DirectExecutor()
	}

	b.metrics = o.metrics
	if b.metrics == nil {
		b.metrics = NewMetrics("", name)
	}
	if !o.metricsEnabled {
		b.metrics = nopMetrics{}
	} else if o.registerer != nil {
		if err := b.metrics.Register(o.registerer); err != nil {
			b.logger.Warn("metrics registration failed", "error", err)
		}
	}

	return b
}

// ID returns the bus instance ID.
func (b *Bus) ID() string {
	return b.id
}

// Identifier returns the bus name.
func (b *Bus) Identifier() string {
	return b.name
}

func (b *Bus) String() string {
	return fmt.Sprintf("Bus{identifier=%s}", b.name)
}

// Running reports whether the bus accepts registrations.
func (b *Bus) Running() bool {
	return atomic.LoadInt32(&b.status) == busRunning
}

// Register subscribes all handler methods of listener to the bus. Discovery
// runs once per concrete listener type and is cached. Registering a listener
// whose bindings are all already registered is a no-op; a configuration
// error (invalid handler shape, incomparable listener type) fails the whole
// registration.
func (b *Bus) Register(listener any) error {
	if !b.Running() {
		return ErrBusClosed
	}
	if listener == nil {
		return ErrNilListener
	}
	added, err := b.registry.register(listener)
	if err != nil {
		return err
	}
	b.metrics.Subscribed(added)
	b.logger.Debug("registered listener", "listener", fmt.Sprintf("%T", listener), "bindings", added)
	return nil
}

// Unregister removes all handler bindings of listener. Passing a
// *Subscriber obtained from the registry removes that single binding
// directly, without re-running discovery. Unregistering a listener that was
// never registered is not an error.
func (b *Bus) Unregister(listener any) error {
	if !b.Running() {
		return ErrBusClosed
	}
	if listener == nil {
		return ErrNilListener
	}
	removed, err := b.registry.unregister(listener)
	if err != nil {
		return err
	}
	if removed == 0 {
		b.logger.Warn("unregister: listener had no registered bindings", "listener", fmt.Sprintf("%T", listener))
		return nil
	}
	b.metrics.Unsubscribed(removed)
	b.logger.Debug("unregistered listener", "listener", fmt.Sprintf("%T", listener), "bindings", removed)
	return nil
}

// Post delivers event to every binding whose declared type is compatible
// with the event's runtime type. It returns after all synchronous deliveries
// complete, regardless of handler faults: those are contained and reposted
// as ExceptionEvents. If no binding matches and the event is not already a
// DeadEvent or ExceptionEvent, it is wrapped in a DeadEvent and reposted
// exactly once.
//
// Post can fail only for a nil event or for an invocation-mechanism fault
// (*inspect.InvocationError) with the direct executor.
func (b *Bus) Post(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b.metrics.Posted()

	if b.tracing {
		var span trace.Span
		ctx, span = otel.Tracer(instrumentationName).Start(ctx,
			fmt.Sprintf("%s.post", b.name),
			trace.WithAttributes(
				attribute.String("bus", b.name),
				attribute.String("bus.id", b.id),
				attribute.String("event.type", fmt.Sprintf("%T", event))),
			trace.WithSpanKind(trace.SpanKindProducer))
		defer span.End()
	}

	subs := b.registry.getSubscribers(event)
	if len(subs) > 0 {
		return b.dispatcher.Dispatch(ctx, event, subs)
	}
	if isWrapperEvent(event) {
		b.logger.Debug("dropping unhandled wrapper event", "event", fmt.Sprintf("%T", event))
		return nil
	}
	b.metrics.Dead()
	b.logger.Debug("no subscribers, reposting as dead event", "event", fmt.Sprintf("%T", event))
	return b.Post(ctx, DeadEvent{Source: b, Event: event})
}

// Close clears the registry and invalidates the capability caches, then
// stops the executor if the bus was given a stoppable one. Register and
// Unregister fail with ErrBusClosed afterwards. Post keeps working against
// the emptied registry, so any event posted after Close takes the dead-event
// path.
func (b *Bus) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.status, busRunning, busClosed) {
		return nil
	}
	b.registry.clear()
	var err error
	if s, ok := b.executor.(interface{ Stop(context.Context) error }); ok {
		err = s.Stop(ctx)
	}
	b.logger.Debug("bus closed")
	return err
}
