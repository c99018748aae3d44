package tickengine

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine control.
var (
	// ErrEngineStopped indicates Start was called after recovery was refused.
	// A stopped engine never runs again; create a new one.
	ErrEngineStopped = errors.New("engine stopped after recovery was refused")

	// ErrEngineRunning indicates Step was called during a run.
	ErrEngineRunning = errors.New("engine is running")

	// ErrEmptySubsystemName indicates RegisterSubsystem was given no name.
	ErrEmptySubsystemName = errors.New("subsystem name is required")
)

// Loop steps, used as fault context.
const (
	stepProcessTick  = "process_tick"
	stepProcessQueue = "process_queue"
	stepNextInterval = "next_interval"
)

// PanicError captures a panic raised inside one of the engine's own tick
// steps, including work supplied with WithWork.
type PanicError struct {
	Step  string
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Step, e.Value)
}
