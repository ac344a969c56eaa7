package eventbus

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func TestFlattenHierarchyOrder(t *testing.T) {
	l := NewLoader(nil, nil)

	et := reflect.TypeOf(orderShipped{})
	aud := reflect.TypeOf((*auditable)(nil)).Elem()
	sup := reflect.TypeOf((*TypeSupplier)(nil)).Elem()

	// The event's own type comes first; only implemented interfaces follow,
	// preserving candidate order.
	got := l.FlattenHierarchy(et, []reflect.Type{sup, aud}, 1)
	want := []string{"eventbus.orderShipped", "eventbus.auditable"}
	if diff := cmp.Diff(want, typeNames(got)); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenHierarchyCachesPerGeneration(t *testing.T) {
	l := NewLoader(nil, nil).(*typeLoader)

	et := reflect.TypeOf(orderShipped{})
	aud := reflect.TypeOf((*auditable)(nil)).Elem()

	first := l.FlattenHierarchy(et, nil, 1)
	if len(first) != 1 {
		t.Fatalf("hierarchy = %v, want just the event type", typeNames(first))
	}
	// Same generation: the stale candidate list is served from cache.
	cached := l.FlattenHierarchy(et, []reflect.Type{aud}, 1)
	if len(cached) != 1 {
		t.Fatalf("cache miss within one generation: %v", typeNames(cached))
	}
	// New generation: recomputed against the grown candidate set.
	fresh := l.FlattenHierarchy(et, []reflect.Type{aud}, 2)
	if len(fresh) != 2 {
		t.Fatalf("hierarchy after generation bump = %v, want 2 types", typeNames(fresh))
	}

	l.InvalidateAll()
	if _, ok := l.hierarchies.Load(et); ok {
		t.Error("hierarchy cache survived InvalidateAll")
	}
}

func TestFindSubscriberMethodsIsCached(t *testing.T) {
	l := NewLoader(nil, nil).(*typeLoader)

	lt := reflect.TypeOf(&shipmentTracker{})
	first, err := l.FindSubscriberMethods(lt)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(first) != 1 || first[0].Name != "HandleShipped" {
		t.Fatalf("methods = %v, want [HandleShipped]", first)
	}
	second, err := l.FindSubscriberMethods(lt)
	if err != nil {
		t.Fatalf("discover again: %v", err)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
}
