package eventbus

import (
	"context"
	"errors"
	"reflect"

	"github.com/busfactor/eventbus/inspect"
)

// Subscriber is one handler binding: a listener instance paired with a single
// handler method, plus the precomputed event type key it is registered under.
// Two subscribers are equal when they reference the same listener value and
// the same handler method; registering an equal binding twice never produces
// duplicate delivery. The listener is shared, not owned: the bus never
// controls its lifetime.
type Subscriber struct {
	bus       *Bus
	listener  any
	method    inspect.Method
	eventType reflect.Type
	key       subscriberKey
}

func newSubscriber(bus *Bus, listener any, m inspect.Method) *Subscriber {
	return &Subscriber{
		bus:       bus,
		listener:  listener,
		method:    m,
		eventType: m.EventType,
		key:       subscriberKey{listener: listener, method: m.Name},
	}
}

// Listener returns the bound listener instance.
func (s *Subscriber) Listener() any { return s.listener }

// Method describes the bound handler.
func (s *Subscriber) Method() inspect.Method { return s.method }

// EventType is the registry key this binding is indexed under.
func (s *Subscriber) EventType() reflect.Type { return s.eventType }

// Dispatch submits delivery of event to this subscriber through the bus
// executor. With the direct executor it runs on the calling goroutine and
// returns any mechanism fault; an asynchronous executor reports those to its
// own fault hook instead.
func (s *Subscriber) Dispatch(ctx context.Context, event any) error {
	return s.bus.executor.Execute(ctx, func() error {
		return s.invoke(ctx, event)
	})
}

// invoke resolves the listener, invokes the handler and classifies the
// outcome. Handler faults are contained: they become an ExceptionEvent posted
// on the same bus, or are discarded when the failing handler was itself
// handling an ExceptionEvent. Mechanism faults propagate.
func (s *Subscriber) invoke(ctx context.Context, event any) error {
	if lv, ok := s.listener.(Liveness); ok && !lv.Alive() {
		s.bus.registry.removeSubscriber(s)
		s.bus.logger.Debug("unregistered dead listener", "handler", s.method.String())
		return nil
	}

	err := s.bus.provider.Invoke(s.method, s.listener, event)
	if err == nil {
		s.bus.metrics.Delivered()
		return nil
	}

	var herr *inspect.HandlerError
	if errors.As(err, &herr) {
		s.bus.metrics.Faulted()
		if _, ok := event.(ExceptionEvent); ok {
			s.bus.logger.Error("exception event handler failed, discarding",
				"handler", s.method.String(), "error", herr.Err)
			return nil
		}
		return s.bus.Post(ctx, ExceptionEvent{
			Source:   s.bus,
			Listener: s.listener,
			Handler:  s.method,
			Event:    event,
			Cause:    herr.Err,
		})
	}

	// Invocation-mechanism failure: a programming fault, never swallowed.
	return err
}
