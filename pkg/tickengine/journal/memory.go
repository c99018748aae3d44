package journal

import (
	"sync"
)

// MemoryStore keeps records in memory. Useful for tests and for embedding
// the engine without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	metrics []MetricsRecord
	audit   []AuditRecord
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// WriteMetrics implements MetricsWriter.
func (m *MemoryStore) WriteMetrics(rec MetricsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.metrics = append(m.metrics, rec)
	return nil
}

// WriteAudit implements AuditWriter.
func (m *MemoryStore) WriteAudit(rec AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.audit = append(m.audit, rec)
	return nil
}

// Metrics returns a copy of every metrics record.
func (m *MemoryStore) Metrics() []MetricsRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MetricsRecord(nil), m.metrics...)
}

// Audit returns a copy of every audit record.
func (m *MemoryStore) Audit() []AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AuditRecord(nil), m.audit...)
}

// AuditTypes returns the type of every audit record in order.
func (m *MemoryStore) AuditTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]string, len(m.audit))
	for i, rec := range m.audit {
		types[i] = rec.Type
	}
	return types
}

// RecentAudit implements AuditReader.
func (m *MemoryStore) RecentAudit(limit int) ([]AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	return append([]AuditRecord(nil), tail(m.audit, limit)...), nil
}

// Close implements Store. Metrics and Audit stay readable after Close.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
