package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration and queueing.
var (
	// ErrEmptyEventType indicates an empty event type was supplied.
	ErrEmptyEventType = errors.New("event type is required")

	// ErrNilHandler indicates a nil handler was supplied.
	ErrNilHandler = errors.New("handler is required")

	// ErrDuplicateHandler indicates the handler is already registered for
	// the event type and the registry rejects duplicates.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrInvalidPayload indicates a payload failed schema validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// HandlerError wraps a failure from a single handler invocation.
type HandlerError struct {
	EventType string    // Event being dispatched
	HandlerID HandlerID // Registration that failed
	Priority  int       // Priority of the failed registration
	Err       error     // Underlying error
}

// Error implements error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d (priority %d) for %s: %v", e.HandlerID, e.Priority, e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a handler.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
