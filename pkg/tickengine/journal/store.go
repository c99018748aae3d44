// Package journal provides the append-only metrics and audit logs written
// by the tick engine.
package journal

import (
	"errors"
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// Audit record types.
const (
	AuditStart           = "start"
	AuditStop            = "stop"
	AuditTick            = "tick"
	AuditError           = "error"
	AuditRecovery        = "recovery"
	AuditRecoveryRefused = "recovery_refused"
	AuditMonitorError    = "monitor_error"
)

// MetricsRecord is one monitor sample.
type MetricsRecord struct {
	Timestamp   time.Time               `json:"timestamp"`
	RunID       string                  `json:"run_id,omitempty"`
	TickCount   uint64                  `json:"tick_count"`
	Performance state.PerformanceSample `json:"performance"`
	Load        state.LoadState         `json:"thermal_state"`
}

// AuditRecord is one significant engine event with the full state at the
// time it happened.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	State     state.Snapshot `json:"state"`
}

// MetricsWriter appends metrics records.
type MetricsWriter interface {
	WriteMetrics(rec MetricsRecord) error
}

// AuditWriter appends audit records.
type AuditWriter interface {
	WriteAudit(rec AuditRecord) error
}

// AuditReader reads back the most recent audit records.
type AuditReader interface {
	// RecentAudit returns up to limit records, oldest first.
	// A non-positive limit returns every record.
	RecentAudit(limit int) ([]AuditRecord, error)
}

// Store is a metrics and audit sink.
// Implementations must be safe for concurrent use.
type Store interface {
	MetricsWriter
	AuditWriter

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("journal store closed")

// Discard is a Store that drops every record.
var Discard Store = discard{}

type discard struct{}

func (discard) WriteMetrics(MetricsRecord) error { return nil }
func (discard) WriteAudit(AuditRecord) error     { return nil }
func (discard) Close() error                     { return nil }

// tail returns the last limit records of recs.
func tail[T any](recs []T, limit int) []T {
	if limit > 0 && len(recs) > limit {
		return recs[len(recs)-limit:]
	}
	return recs
}
