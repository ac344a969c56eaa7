package eventbus

import (
	"context"
	"sync"

	"github.com/petermattis/goid"
)

// Dispatcher defines the ordering and scheduling discipline applied to a
// resolved subscriber set for one event. Implementations must be safe for
// concurrent use by arbitrary goroutines.
type Dispatcher interface {
	Dispatch(ctx context.Context, event any, subs []*Subscriber) error
}

// Immediate returns a dispatcher that delivers every event as soon as it is
// posted. A post made from inside a handler is delivered depth-first, before
// the outer event's remaining deliveries. Simpler than the queue dispatcher
// but without the breadth-FIFO ordering guarantee for reentrant posts.
func Immediate() Dispatcher {
	return immediateDispatcher{}
}

type immediateDispatcher struct{}

func (immediateDispatcher) Dispatch(ctx context.Context, event any, subs []*Subscriber) error {
	return deliver(ctx, event, subs)
}

// PerGoroutineQueue returns the default dispatcher: a private FIFO queue per
// calling goroutine. The first post on a goroutine is dispatched immediately
// and marks the goroutine as dispatching; posts made reentrantly from
// handlers on that goroutine are appended to its queue and drained, strictly
// in order, after the in-progress event's deliveries complete. All events
// originating directly or transitively from one goroutine are therefore
// delivered in FIFO order and never interleaved mid-delivery; ordering across
// goroutines is unspecified.
func PerGoroutineQueue() Dispatcher {
	return &queueDispatcher{}
}

type queueDispatcher struct {
	states sync.Map // goroutine id -> *dispatchState
}

// dispatchState is only ever touched by the goroutine that owns the map
// entry, so the queue itself needs no lock. The entry's presence is the
// "currently dispatching" flag.
type dispatchState struct {
	queue []queuedEvent
}

type queuedEvent struct {
	ctx   context.Context
	event any
	subs  []*Subscriber
}

func (d *queueDispatcher) Dispatch(ctx context.Context, event any, subs []*Subscriber) error {
	id := goid.Get()
	if v, ok := d.states.Load(id); ok {
		st := v.(*dispatchState)
		st.queue = append(st.queue, queuedEvent{ctx: ctx, event: event, subs: subs})
		return nil
	}

	st := &dispatchState{}
	d.states.Store(id, st)
	defer d.states.Delete(id)

	if err := deliver(ctx, event, subs); err != nil {
		return err
	}
	for len(st.queue) > 0 {
		next := st.queue[0]
		st.queue = st.queue[1:]
		if err := deliver(next.ctx, next.event, next.subs); err != nil {
			return err
		}
	}
	return nil
}

// deliver hands the event to each subscriber in order, stopping at the first
// mechanism fault.
func deliver(ctx context.Context, event any, subs []*Subscriber) error {
	for _, s := range subs {
		if err := s.Dispatch(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
