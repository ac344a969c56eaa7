package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fanoutEvent struct{ label string }

// fanoutListener posts two follow-up events from one handler so the drain
// order of the per-goroutine queue is observable.
type fanoutListener struct {
	bus   *Bus
	order []string
}

func (l *fanoutListener) HandleFirst(e firstEvent) {
	l.order = append(l.order, "first")
	_ = l.bus.Post(context.TODO(), fanoutEvent{label: "a"})
	_ = l.bus.Post(context.TODO(), fanoutEvent{label: "b"})
}

func (l *fanoutListener) HandleFanout(e fanoutEvent) {
	l.order = append(l.order, e.label)
	if e.label == "a" {
		// A post made while draining goes to the back of the same queue.
		_ = l.bus.Post(context.TODO(), secondEvent{})
	}
}

func (l *fanoutListener) HandleSecond(e secondEvent) {
	l.order = append(l.order, "second")
}

func TestQueueDrainsInPostOrder(t *testing.T) {
	bus := New("drain", WithTracing(false))
	defer bus.Close(context.Background())

	l := &fanoutListener{bus: bus}
	if err := bus.Register(l); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := bus.Post(context.TODO(), firstEvent{}); err != nil {
		t.Fatalf("post: %v", err)
	}
	want := []string{"first", "a", "b", "second"}
	if diff := cmp.Diff(want, l.order); diff != "" {
		t.Errorf("drain order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueueStateIsPerGoroutine(t *testing.T) {
	// Each goroutine owns a private queue: reentrant ordering holds per
	// goroutine even when many goroutines dispatch through the same
	// dispatcher concurrently.
	const goroutines = 8
	var wg sync.WaitGroup
	results := make([][]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus := New("iso", WithTracing(false))
			defer bus.Close(context.Background())
			c := &chainListener{bus: bus}
			if err := bus.Register(c); err != nil {
				t.Errorf("register: %v", err)
				return
			}
			if err := bus.Post(context.TODO(), firstEvent{}); err != nil {
				t.Errorf("post: %v", err)
				return
			}
			results[i] = c.order
		}(i)
	}
	wg.Wait()

	want := []string{"first:enter", "first:exit", "second"}
	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("goroutine %d order mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestQueueStateIsReleasedAfterDrain(t *testing.T) {
	bus := New("release", WithTracing(false))
	defer bus.Close(context.Background())

	c := &chainListener{bus: bus}
	if err := bus.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := bus.Post(context.TODO(), firstEvent{}); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}
	// Three independent posts, each a full immediate-then-drain cycle.
	want := []string{
		"first:enter", "first:exit", "second",
		"first:enter", "first:exit", "second",
		"first:enter", "first:exit", "second",
	}
	if diff := cmp.Diff(want, c.order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	d, ok := bus.dispatcher.(*queueDispatcher)
	if !ok {
		t.Fatalf("default dispatcher is %T", bus.dispatcher)
	}
	count := 0
	d.states.Range(func(any, any) bool { count++; return true })
	if count != 0 {
		t.Errorf("%d goroutine states leaked after drain", count)
	}
}
