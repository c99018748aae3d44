// Package recovery implements the fault-recovery state machine that guards
// the scheduler loop.
//
// The manager moves between three phases:
//
//	NORMAL --(error_count >= MaxErrors)--> RECOVERING --(success)--> NORMAL
//	RECOVERING --(budget exhausted or cooldown active)--> STOPPED
//
// STOPPED is terminal for the lifetime of the manager.
package recovery

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRecoveryExhausted is returned by Attempt when the recovery budget is
// spent or the cooldown since the last recovery has not elapsed.
var ErrRecoveryExhausted = errors.New("recovery exhausted")

// Phase is the recovery state machine phase.
type Phase int

const (
	Normal Phase = iota
	Recovering
	Stopped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Normal:
		return "normal"
	case Recovering:
		return "recovering"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Policy bounds recovery.
type Policy struct {
	// MaxErrors is the error count that triggers a recovery attempt.
	MaxErrors int

	// MaxRecoveries is the total number of recoveries allowed.
	MaxRecoveries int

	// Cooldown is the minimum time between two recoveries.
	Cooldown time.Duration
}

// DefaultPolicy returns the default recovery policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxErrors:     3,
		MaxRecoveries: 3,
		Cooldown:      300 * time.Second,
	}
}

// Target is what a recovery acts on.
type Target interface {
	// ResetLoad restores the load signal to baseline.
	ResetLoad()

	// PurgeQueue drops every pending event and returns how many were dropped.
	PurgeQueue() int

	// Halt stops the scheduler. Called once when recovery is refused.
	Halt(reason error)
}

// Outcome describes a successful recovery.
type Outcome struct {
	RecoveryCount int
	Dropped       int
	At            time.Time
}

// Snapshot is a copy of the manager state.
type Snapshot struct {
	ErrorCount       int
	RecoveryCount    int
	LastRecoveryTime time.Time
	Phase            Phase
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (default: time.Now).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager tracks faults and performs bounded recovery.
// It is safe for concurrent use.
type Manager struct {
	policy Policy
	now    func() time.Time

	mu            sync.Mutex
	errorCount    int
	recoveryCount int
	lastRecovery  time.Time
	phase         Phase
}

// NewManager creates a manager in the Normal phase.
func NewManager(policy Policy, opts ...Option) *Manager {
	m := &Manager{
		policy: policy,
		now:    time.Now,
		phase:  Normal,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordFault counts one fault and reports whether the error threshold has
// been reached. Faults recorded after the manager stopped are counted but
// never trigger recovery.
func (m *Manager) RecordFault() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorCount++
	return m.phase == Normal && m.errorCount >= m.policy.MaxErrors
}

// Attempt runs one recovery against target.
// A cancelled context returns ctx.Err() and leaves the state untouched.
//
// On refusal the manager enters Stopped, target.Halt is called and the
// returned error wraps ErrRecoveryExhausted. The first recovery is never
// blocked by the cooldown.
func (m *Manager) Attempt(ctx context.Context, target Target) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	m.mu.Lock()
	if m.phase == Stopped {
		m.mu.Unlock()
		return Outcome{}, ErrRecoveryExhausted
	}
	m.phase = Recovering

	now := m.now()
	exhausted := m.recoveryCount >= m.policy.MaxRecoveries
	cooling := !m.lastRecovery.IsZero() && now.Sub(m.lastRecovery) < m.policy.Cooldown
	if exhausted || cooling {
		m.phase = Stopped
		m.mu.Unlock()

		reason := &RefusalError{BudgetExhausted: exhausted, CooldownActive: cooling}
		target.Halt(reason)
		return Outcome{}, reason
	}

	m.recoveryCount++
	m.lastRecovery = now
	m.errorCount = 0
	count := m.recoveryCount
	m.mu.Unlock()

	target.ResetLoad()
	dropped := target.PurgeQueue()

	m.mu.Lock()
	if m.phase == Recovering {
		m.phase = Normal
	}
	m.mu.Unlock()

	return Outcome{RecoveryCount: count, Dropped: dropped, At: now}, nil
}

// Phase returns the current phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Snapshot returns a copy of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ErrorCount:       m.errorCount,
		RecoveryCount:    m.recoveryCount,
		LastRecoveryTime: m.lastRecovery,
		Phase:            m.phase,
	}
}

// Policy returns the configured policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// RefusalError explains why a recovery was refused.
type RefusalError struct {
	BudgetExhausted bool
	CooldownActive  bool
}

func (e *RefusalError) Error() string {
	if e.BudgetExhausted {
		return "recovery exhausted: budget spent"
	}
	return "recovery exhausted: cooldown active"
}

// Is reports ErrRecoveryExhausted as a match.
func (e *RefusalError) Is(target error) bool {
	return target == ErrRecoveryExhausted
}
