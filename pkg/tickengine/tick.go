package tickengine

import (
	"fmt"
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// EventTick is the event type broadcast once per tick.
const EventTick = "tick"

// Tick payload keys.
const (
	keyTick        = "tick"
	keyDelta       = "delta"
	keyInterval    = "interval"
	keyLoad        = "load"
	keyPerformance = "performance"
)

// TickInfo is the body of every "tick" event.
type TickInfo struct {
	// Tick is the 1-based tick number within the engine's lifetime.
	Tick uint64

	// Delta is the time since the previous tick (or since the run started).
	Delta time.Duration

	// Interval is the interval in effect when the tick fired.
	Interval time.Duration

	// Load is the load signal after this tick's update.
	Load state.LoadState

	// Performance is the latest resource reading.
	Performance state.PerformanceSample
}

// Payload encodes the tick for dispatch. Durations are carried in seconds.
func (t TickInfo) Payload() event.Payload {
	return event.Payload{
		keyTick:        t.Tick,
		keyDelta:       t.Delta.Seconds(),
		keyInterval:    t.Interval.Seconds(),
		keyLoad:        t.Load,
		keyPerformance: t.Performance,
	}
}

// DecodeTick reads a TickInfo back from a "tick" event payload.
func DecodeTick(p event.Payload) (TickInfo, error) {
	var info TickInfo

	tick, ok := p[keyTick].(uint64)
	if !ok {
		return info, fmt.Errorf("tick payload: %q: %w", keyTick, event.ErrInvalidPayload)
	}
	delta, ok := p[keyDelta].(float64)
	if !ok {
		return info, fmt.Errorf("tick payload: %q: %w", keyDelta, event.ErrInvalidPayload)
	}
	interval, ok := p[keyInterval].(float64)
	if !ok {
		return info, fmt.Errorf("tick payload: %q: %w", keyInterval, event.ErrInvalidPayload)
	}
	load, ok := p[keyLoad].(state.LoadState)
	if !ok {
		return info, fmt.Errorf("tick payload: %q: %w", keyLoad, event.ErrInvalidPayload)
	}
	perf, ok := p[keyPerformance].(state.PerformanceSample)
	if !ok {
		return info, fmt.Errorf("tick payload: %q: %w", keyPerformance, event.ErrInvalidPayload)
	}

	info.Tick = tick
	info.Delta = seconds(delta)
	info.Interval = seconds(interval)
	info.Load = load
	info.Performance = perf
	return info, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
