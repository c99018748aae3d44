package tickengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/tickengine/pkg/tickengine/errors"
	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/observability"
)

const (
	// subsystemKey is the single event type subsystems are registered
	// under in their private registry.
	subsystemKey = EventTick

	// subsystemPrefix marks subsystem names in fault context and spans.
	subsystemPrefix = "subsystem:"
)

// Subsystem describes one registered subsystem.
type Subsystem struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// subsystems is a name-keyed view over a private handler registry.
// Subsystems run on every tick, after the tick event's handlers.
type subsystems struct {
	registry *event.Registry
	bus      *event.Bus

	mu    sync.Mutex
	ids   map[string]event.HandlerID
	names map[event.HandlerID]string
}

func newSubsystems(onError func(context.Context, event.Event, event.Entry, *event.HandlerError)) *subsystems {
	s := &subsystems{
		registry: event.NewRegistry(event.RegistryConfig{}),
		ids:      make(map[string]event.HandlerID),
		names:    make(map[event.HandlerID]string),
	}
	s.bus = event.NewBus(s.registry, event.BusConfig{OnError: onError})
	return s
}

func (s *subsystems) register(name string, handler event.Handler, priority int) error {
	if name == "" {
		return ErrEmptySubsystemName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.registry.Register(subsystemKey, handler, priority)
	if err != nil {
		return err
	}
	if old, ok := s.ids[name]; ok {
		s.registry.UnregisterID(subsystemKey, old)
		delete(s.names, old)
	}
	s.ids[name] = id
	s.names[id] = name
	return nil
}

func (s *subsystems) unregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids[name]
	if !ok {
		return false
	}
	s.registry.UnregisterID(subsystemKey, id)
	delete(s.ids, name)
	delete(s.names, id)
	return true
}

func (s *subsystems) name(id event.HandlerID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[id]
}

func (s *subsystems) list() []Subsystem {
	entries := s.registry.Handlers(subsystemKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Subsystem, 0, len(entries))
	for _, entry := range entries {
		if name, ok := s.names[entry.ID]; ok {
			out = append(out, Subsystem{Name: name, Priority: entry.Priority})
		}
	}
	return out
}

// RegisterSubsystem adds handler under name, replacing any subsystem
// already registered with that name. Subsystems receive the tick event
// after its regular handlers, highest priority first.
func (e *Engine) RegisterSubsystem(name string, handler event.Handler, priority int) error {
	return e.subsystems.register(name, handler, priority)
}

// UnregisterSubsystem removes the named subsystem and reports whether it
// was registered.
func (e *Engine) UnregisterSubsystem(name string) bool {
	return e.subsystems.unregister(name)
}

// Subsystems lists the registered subsystems in execution order.
func (e *Engine) Subsystems() []Subsystem {
	return e.subsystems.list()
}

func (e *Engine) runSubsystems(ctx context.Context, evt event.Event) {
	if e.subsystems.registry.Len() == 0 {
		return
	}
	ctx, span := e.cfg.spans.StartDispatchSpan(ctx, subsystemPrefix+evt.Type, e.subsystems.registry.Len())
	result := e.subsystems.bus.Dispatch(ctx, evt)

	var err error
	if result.Failed > 0 {
		err = fmt.Errorf("%d of %d subsystems failed", result.Failed, result.Failed+result.Delivered)
	}
	e.cfg.spans.EndSpanWithError(span, err)
}

func (e *Engine) onSubsystemError(ctx context.Context, evt event.Event, entry event.Entry, herr *event.HandlerError) {
	name := subsystemPrefix + e.subsystems.name(entry.ID)
	observability.LogHandlerFault(e.log(), name, uint64(entry.ID), entry.Priority, evt.Tick, herr.Err)

	e.handleFault(ctx, errors.Handler(herr, name, evt.Tick), map[string]any{
		"event_type": evt.Type,
		"subsystem":  name[len(subsystemPrefix):],
		"priority":   entry.Priority,
	})
}
