package event_test

import (
	"fmt"
	"testing"

	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
)

func TestQueue_FIFO(t *testing.T) {
	q := event.NewQueue(4)

	for i := 0; i < 3; i++ {
		if _, ok := q.Push(event.Item{Type: fmt.Sprintf("e%d", i)}); ok {
			t.Fatalf("unexpected eviction at %d", i)
		}
	}

	items := q.Drain()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Type != fmt.Sprintf("e%d", i) {
			t.Errorf("position %d: got %s", i, item.Type)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
	if q.Drain() != nil {
		t.Error("expected nil from draining an empty queue")
	}
}

func TestQueue_OverflowEvictsOldest(t *testing.T) {
	q := event.NewQueue(3)

	var evicted []string
	for i := 0; i < 5; i++ {
		if old, ok := q.Push(event.Item{Type: fmt.Sprintf("e%d", i)}); ok {
			evicted = append(evicted, old.Type)
		}
	}

	if len(evicted) != 2 || evicted[0] != "e0" || evicted[1] != "e1" {
		t.Errorf("expected e0 and e1 evicted, got %v", evicted)
	}
	if q.Evictions() != 2 {
		t.Errorf("expected eviction counter 2, got %d", q.Evictions())
	}

	items := q.Drain()
	want := []string{"e2", "e3", "e4"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %d items", want, len(items))
	}
	for i := range want {
		if items[i].Type != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], items[i].Type)
		}
	}
}

func TestQueue_WrapAroundAfterDrain(t *testing.T) {
	q := event.NewQueue(2)
	q.Push(event.Item{Type: "a"})
	q.Push(event.Item{Type: "b"})
	q.Push(event.Item{Type: "c"})
	q.Drain()

	q.Push(event.Item{Type: "d"})
	items := q.Drain()
	if len(items) != 1 || items[0].Type != "d" {
		t.Errorf("expected [d], got %v", items)
	}
}

func TestQueue_Purge(t *testing.T) {
	q := event.NewQueue(10)
	q.Push(event.Item{Type: "a"})
	q.Push(event.Item{Type: "b"})

	if n := q.Purge(); n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
	if q.Evictions() != 0 {
		t.Errorf("purge must not count as eviction, got %d", q.Evictions())
	}
}

func TestQueue_DefaultCapacity(t *testing.T) {
	if c := event.NewQueue(0).Cap(); c != event.DefaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", event.DefaultQueueCapacity, c)
	}
}
