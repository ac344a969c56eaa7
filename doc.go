// Package eventbus provides an in-process publish/subscribe event router.
// Components register handler bindings for event types, producers post event
// values, and the bus delivers each event to every binding whose declared
// type is compatible with the event's runtime type, including interface types
// the event implements. It replaces ad-hoc callback wiring between decoupled
// components within a single process; it is not a transport and offers no
// durability or cross-process delivery.
//
// # Receiving events
//
// A listener exposes handler methods: exported methods named with the Handle
// prefix that accept a single event parameter, optionally returning error.
// Registering the listener subscribes all of them at once:
//
//	type OrderCreated struct {
//	    ID string
//	}
//
//	type Mailer struct{}
//
//	func (m *Mailer) HandleOrderCreated(e OrderCreated) error {
//	    return m.sendReceipt(e.ID)
//	}
//
//	bus := eventbus.New("orders")
//	defer bus.Close(ctx)
//
//	if err := bus.Register(mailer); err != nil {
//	    log.Fatal(err)
//	}
//	bus.Post(ctx, OrderCreated{ID: "123"})
//
// A handler declaring an interface parameter receives every event whose type
// implements that interface. Handlers run sequentially on the posting
// goroutine by default, so they should be quick; slow work belongs on a pool
// executor (NewPoolExecutor) or inside the handler's own goroutine.
//
// # Ordering
//
// The default dispatcher gives every posting goroutine a private FIFO queue:
// an event posted from inside a handler is delivered after the current
// event's deliveries finish and before the outer Post returns. The Immediate
// dispatcher delivers depth-first instead. Ordering across goroutines is
// unspecified.
//
// # Failure containment
//
// A handler that returns an error or panics never affects other deliveries
// or the poster: the fault is wrapped in an ExceptionEvent and posted on the
// same bus. An event that matches no binding is reposted once as a DeadEvent.
// Subscribe to either type to observe failures; without such subscribers
// they are contained silently.
//
// Bus options:
//   - WithDispatcher: delivery ordering policy. Default PerGoroutineQueue().
//   - WithExecutor: invocation executor. Default DirectExecutor().
//   - WithProvider: handler discovery/invocation mechanism.
//   - WithLoader: capability cache override.
//   - WithLogger: set a *slog.Logger for the bus.
//   - WithMetricsEnabled, WithRegisterer: prometheus instrumentation.
//   - WithTracing: OpenTelemetry spans around Post.
package eventbus
