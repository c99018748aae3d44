package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// File layout under the journal directory.
const (
	MetricsDir   = "metrics"
	AuditLogName = "tick_events.log"
)

// FileStore writes JSON lines to files on an afero filesystem.
//
// Metrics go to <dir>/metrics/metrics_YYYYMMDD.jsonl, one file per UTC day
// of the record timestamp. Audit records go to <dir>/tick_events.log.
// Every write opens the file in append mode and closes it again, so
// external rotation can move files at any time.
type FileStore struct {
	fs  afero.Fs
	dir string

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates the journal directories on fs.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(filepath.Join(dir, MetricsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

// MetricsPath returns the metrics file a record is written to.
func (s *FileStore) MetricsPath(rec MetricsRecord) string {
	name := "metrics_" + rec.Timestamp.UTC().Format("20060102") + ".jsonl"
	return filepath.Join(s.dir, MetricsDir, name)
}

// AuditPath returns the audit log path.
func (s *FileStore) AuditPath() string {
	return filepath.Join(s.dir, AuditLogName)
}

// WriteMetrics implements MetricsWriter.
func (s *FileStore) WriteMetrics(rec MetricsRecord) error {
	if err := s.appendLine(s.MetricsPath(rec), rec); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// WriteAudit implements AuditWriter.
func (s *FileStore) WriteAudit(rec AuditRecord) error {
	if err := s.appendLine(s.AuditPath(), rec); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

func (s *FileStore) appendLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	f, err := s.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RecentAudit implements AuditReader. Lines that fail to decode are skipped.
func (s *FileStore) RecentAudit(limit int) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	f, err := s.fs.Open(s.AuditPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var recs []AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return tail(recs, limit), nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
