// Package errors defines the tick engine's fault taxonomy.
//
// Every fault the engine observes is classified by Kind:
//   - Handler: a registered handler failed during dispatch (isolated)
//   - Loop: a core tick-processing step failed (ends the run)
//   - RecoveryExhausted: the recovery budget or cooldown refused recovery (fatal)
//   - Monitor: one resource sampling cycle failed (isolated)
package errors

import (
	"errors"
	"fmt"
)

// Kind represents where a fault originated and how it propagates.
type Kind int

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota

	// KindHandler is a fault inside one event handler.
	// Contained: dispatch continues with the remaining handlers.
	KindHandler

	// KindLoop is a fault escaping the tick-processing steps.
	// Escalates through the error counter and ends the run.
	KindLoop

	// KindRecoveryExhausted means no further recovery is permitted.
	// Terminates the run.
	KindRecoveryExhausted

	// KindMonitor is a fault inside one monitor sampling cycle.
	// Contained: the monitor keeps its cadence.
	KindMonitor
)

// String returns the kind name used in logs, audit records and metrics.
func (k Kind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindLoop:
		return "loop"
	case KindRecoveryExhausted:
		return "recovery_exhausted"
	case KindMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// Contained reports whether faults of this kind leave the engine live.
func (k Kind) Contained() bool {
	return k == KindHandler || k == KindMonitor
}

// Fault wraps an error with its kind and context.
type Fault struct {
	// Err is the underlying error.
	Err error

	// Kind classifies the fault.
	Kind Kind

	// Context describes what was being attempted (event type, step name).
	Context string

	// Tick is the tick number the fault was observed on (0 if none).
	Tick uint64
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Context != "" {
		return fmt.Sprintf("%s fault in %s at tick %d: %v", f.Kind, f.Context, f.Tick, f.Err)
	}
	return fmt.Sprintf("%s fault at tick %d: %v", f.Kind, f.Tick, f.Err)
}

// Unwrap returns the underlying error.
func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault creates a fault of the given kind.
func NewFault(err error, kind Kind, context string, tick uint64) *Fault {
	return &Fault{
		Err:     err,
		Kind:    kind,
		Context: context,
		Tick:    tick,
	}
}

// Handler creates a handler fault.
func Handler(err error, eventType string, tick uint64) *Fault {
	return NewFault(err, KindHandler, eventType, tick)
}

// Loop creates a loop fault.
func Loop(err error, step string, tick uint64) *Fault {
	return NewFault(err, KindLoop, step, tick)
}

// RecoveryExhausted creates a recovery-exhausted fault.
func RecoveryExhausted(err error, tick uint64) *Fault {
	return NewFault(err, KindRecoveryExhausted, "recovery", tick)
}

// Monitor creates a monitor fault.
func Monitor(err error, tick uint64) *Fault {
	return NewFault(err, KindMonitor, "monitor", tick)
}

// KindOf returns the kind of the outermost Fault in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err ends the engine run.
// Unclassified errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !KindOf(err).Contained()
}
