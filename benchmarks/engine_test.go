package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine"
	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

func nopHandler(context.Context, event.Event) error { return nil }

func buildBus(handlers int) *event.Bus {
	reg := event.NewRegistry(event.RegistryConfig{})
	for i := 0; i < handlers; i++ {
		if _, err := reg.Register("tick", event.HandlerFunc(nopHandler), i%5); err != nil {
			panic(err)
		}
	}
	return event.NewBus(reg, event.BusConfig{})
}

func benchmarkDispatch(b *testing.B, handlers int) {
	bus := buildBus(handlers)
	evt := event.New("tick", event.Payload{"tick": uint64(1)})
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Dispatch(ctx, evt)
	}
}

// BenchmarkDispatch_1 dispatches to a single handler.
func BenchmarkDispatch_1(b *testing.B) { benchmarkDispatch(b, 1) }

// BenchmarkDispatch_10 dispatches to 10 handlers.
func BenchmarkDispatch_10(b *testing.B) { benchmarkDispatch(b, 10) }

// BenchmarkDispatch_100 dispatches to 100 handlers.
func BenchmarkDispatch_100(b *testing.B) { benchmarkDispatch(b, 100) }

// BenchmarkRegister measures priority-ordered insertion.
func BenchmarkRegister(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("handlers=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				reg := event.NewRegistry(event.RegistryConfig{})
				for j := 0; j < n; j++ {
					_, _ = reg.Register("tick", event.HandlerFunc(nopHandler), j%7)
				}
			}
		})
	}
}

// BenchmarkQueue_PushDrain fills and drains a queue once per iteration.
func BenchmarkQueue_PushDrain(b *testing.B) {
	q := event.NewQueue(event.DefaultQueueCapacity)
	item := event.Item{Type: "custom", Payload: event.Payload{"x": 1}, QueuedAt: time.Now()}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 100; j++ {
			q.Push(item)
		}
		q.Drain()
	}
}

// BenchmarkQueue_Overflow pushes into a full queue.
func BenchmarkQueue_Overflow(b *testing.B) {
	q := event.NewQueue(64)
	item := event.Item{Type: "custom"}
	for j := 0; j < 64; j++ {
		q.Push(item)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(item)
	}
}

// BenchmarkControl runs the load update and interval function together,
// as the loop does once per tick.
func BenchmarkControl(b *testing.B) {
	load := state.BaselineLoad()
	var next time.Duration
	for i := 0; i < b.N; i++ {
		load = tickengine.UpdateLoad(load, 0.1, float64(i%100), 0.95)
		next = tickengine.NextInterval(time.Second, 100*time.Millisecond, 5*time.Second, load.Heat, float64(i%100))
	}
	_ = next
}
