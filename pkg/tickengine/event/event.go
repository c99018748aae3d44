package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payload is the generic key/value body carried by every event.
type Payload map[string]any

// Clone returns a shallow copy of the payload.
// Nested maps and slices are shared with the original.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	c := make(Payload, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Event sources.
const (
	SourceEngine = "engine"
	SourceQueue  = "queue"
)

// Event is one dispatched occurrence of an event type.
// Events are values; handlers receive their own copy.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload,omitempty"`
}

// Option configures event creation.
type Option func(*Event)

// WithTick stamps the tick the event is dispatched on.
func WithTick(tick uint64) Option {
	return func(e *Event) {
		e.Tick = tick
	}
}

// WithSource sets the event source (default: SourceEngine).
func WithSource(source string) Option {
	return func(e *Event) {
		e.Source = source
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.Timestamp = t
	}
}

// WithID sets a specific event ID (default: auto-generated UUID).
func WithID(id string) Option {
	return func(e *Event) {
		e.ID = id
	}
}

// New creates an event of the given type.
func New(eventType string, payload Payload, opts ...Option) Event {
	evt := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    SourceEngine,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(&evt)
	}
	return evt
}

// Handler reacts to a dispatched event.
//
// Handle may block; the bus waits for it to return before invoking the
// next handler. Returning an error or panicking is reported as a handler
// fault and does not stop delivery to the remaining handlers.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
//
// Function values are not comparable, so a HandlerFunc can only be removed
// with Registry.UnregisterID.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
