package event

import (
	"fmt"
	"sort"
	"sync"
)

// Schema describes the payload expected for one event type.
type Schema struct {
	// Type is the event type (e.g., "custom", "mood.shift").
	Type string

	// Description explains the event's purpose.
	Description string

	// Required lists payload keys that must be present.
	Required []string

	// Validator is an optional custom validation function, run after the
	// required keys are checked.
	Validator func(Payload) error
}

// Validate checks p against the schema.
func (s *Schema) Validate(p Payload) error {
	for _, key := range s.Required {
		if _, ok := p[key]; !ok {
			return fmt.Errorf("%s: missing key %q: %w", s.Type, key, ErrInvalidPayload)
		}
	}
	if s.Validator != nil {
		if err := s.Validator(p); err != nil {
			return fmt.Errorf("%s: %w: %w", s.Type, ErrInvalidPayload, err)
		}
	}
	return nil
}

// Schemas is an optional registry of payload schemas keyed by event type.
// Event types without a schema accept any payload.
type Schemas struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewSchemas creates an empty schema registry.
func NewSchemas() *Schemas {
	return &Schemas{
		schemas: make(map[string]*Schema),
	}
}

// Register adds or replaces the schema for schema.Type.
func (r *Schemas) Register(schema *Schema) error {
	if schema == nil || schema.Type == "" {
		return ErrEmptyEventType
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.Type] = schema
	return nil
}

// Get returns the schema for an event type.
func (r *Schemas) Get(eventType string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[eventType]
	return s, ok
}

// Has returns true if a schema exists for the event type.
func (r *Schemas) Has(eventType string) bool {
	_, ok := r.Get(eventType)
	return ok
}

// Types returns every event type with a schema, sorted.
func (r *Schemas) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate checks a payload against the schema for eventType.
// Unknown event types pass.
func (r *Schemas) Validate(eventType string, p Payload) error {
	schema, ok := r.Get(eventType)
	if !ok {
		return nil
	}
	return schema.Validate(p)
}
