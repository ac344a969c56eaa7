package eventbus

import (
	"fmt"
	"reflect"

	"github.com/busfactor/eventbus/inspect"
)

// TypeSupplier is implemented by events that declare the single type their
// delivery should be resolved by, bypassing the hierarchy walk. Only the
// bucket for the returned type is consulted; assignability to other
// subscribed types is ignored.
type TypeSupplier interface {
	DispatchType() reflect.Type
}

// Liveness is implemented by listeners whose lifetime may end before they are
// unregistered. A binding whose listener reports not-alive is removed from
// the registry on its next delivery and the event is skipped without error.
type Liveness interface {
	Alive() bool
}

// DeadEvent wraps an event that was posted but had no subscribers and so
// could not be delivered. Registering a DeadEvent handler is useful for
// detecting misconfigured event wiring. DeadEvent and ExceptionEvent values
// are never wrapped in a further DeadEvent.
type DeadEvent struct {
	// Source is the bus the event was posted on.
	Source *Bus
	// Event is the undeliverable event.
	Event any
}

func (e DeadEvent) String() string {
	return fmt.Sprintf("DeadEvent{source=%s, event=%v}", e.Source, e.Event)
}

// ExceptionEvent wraps a fault raised by a handler during delivery. It is
// posted on the same bus the original event was posted on. A fault raised
// while handling an ExceptionEvent is discarded instead of being wrapped
// again.
type ExceptionEvent struct {
	// Source is the bus the original event was posted on.
	Source *Bus
	// Listener is the target the failing handler was invoked on.
	Listener any
	// Handler describes the failing handler method.
	Handler inspect.Method
	// Event is the event whose delivery failed.
	Event any
	// Cause is the handler's error, or an *inspect.PanicError for a
	// recovered panic.
	Cause error
}

func (e ExceptionEvent) String() string {
	return fmt.Sprintf("ExceptionEvent{source=%s, handler=%s, event=%v, cause=%v}",
		e.Source, e.Handler, e.Event, e.Cause)
}

// isWrapperEvent reports whether ev is one of the fallback wrapper types that
// must not be wrapped again.
func isWrapperEvent(ev any) bool {
	switch ev.(type) {
	case DeadEvent, ExceptionEvent:
		return true
	}
	return false
}
