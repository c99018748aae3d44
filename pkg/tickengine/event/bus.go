package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// OnError is called once for every handler that returns an error or
	// panics. It runs on the dispatching goroutine before the next handler.
	OnError func(ctx context.Context, evt Event, entry Entry, err *HandlerError)

	// OnDelivered is called after every successful handler invocation.
	OnDelivered func(evt Event, entry Entry, duration time.Duration)
}

// Bus delivers events synchronously to the handlers in a Registry.
//
// Dispatch invokes handlers one after another in registry order and waits
// for each to return. There is no parallel fan-out: a slow handler delays
// every handler after it for the same event.
type Bus struct {
	registry *Registry
	config   BusConfig
}

// NewBus creates a bus over the given registry.
func NewBus(registry *Registry, config BusConfig) *Bus {
	return &Bus{
		registry: registry,
		config:   config,
	}
}

// Registry returns the registry the bus dispatches from.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// DispatchResult summarizes one dispatch.
type DispatchResult struct {
	Delivered int
	Failed    int
	Duration  time.Duration
}

// Dispatch delivers evt to every handler registered for evt.Type at the
// moment of the call. Registrations made while dispatch is running take
// effect on the next dispatch.
func (b *Bus) Dispatch(ctx context.Context, evt Event) DispatchResult {
	start := time.Now()
	entries := b.registry.Handlers(evt.Type)

	var result DispatchResult
	for _, entry := range entries {
		handlerStart := time.Now()
		if err := b.invoke(ctx, entry, evt); err != nil {
			result.Failed++
			if b.config.OnError != nil {
				b.config.OnError(ctx, evt, entry, &HandlerError{
					EventType: evt.Type,
					HandlerID: entry.ID,
					Priority:  entry.Priority,
					Err:       err,
				})
			}
			continue
		}
		result.Delivered++
		if b.config.OnDelivered != nil {
			b.config.OnDelivered(evt, entry, time.Since(handlerStart))
		}
	}

	result.Duration = time.Since(start)
	return result
}

// invoke runs one handler, converting a panic into an error.
func (b *Bus) invoke(ctx context.Context, entry Entry, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	// Handlers get their own payload map so one cannot corrupt the next.
	evt.Payload = evt.Payload.Clone()

	if err := entry.Handler.Handle(ctx, evt); err != nil {
		return fmt.Errorf("handle %s: %w", evt.Type, err)
	}
	return nil
}
