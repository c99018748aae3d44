// Package monitor samples process resources on a fixed cadence, feeds them
// to the engine and appends one metrics record per cycle.
//
// The monitor runs in its own goroutine. A failing cycle is reported and
// skipped; the monitor keeps its cadence until stopped.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
	"github.com/randalmurphal/tickengine/pkg/tickengine/observability"
	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// DefaultInterval is the sampling cadence used when none is configured.
const DefaultInterval = time.Second

// Host is the engine side of the monitor.
type Host interface {
	// UpdateResources stores a fresh reading.
	UpdateResources(r state.Resources)

	// MetricsRecord builds the record persisted for this cycle.
	MetricsRecord(at time.Time) journal.MetricsRecord
}

// Config configures a Monitor.
type Config struct {
	// Interval is the sampling cadence. Default: DefaultInterval
	Interval time.Duration

	// Sampler reads resources. Default: NewProcessSampler()
	Sampler Sampler

	// Writer receives one record per successful cycle. Default: journal.Discard
	Writer journal.MetricsWriter

	// Logger receives fault and timeout warnings. May be nil.
	Logger *slog.Logger

	// Metrics counts cycles. Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// OnFault is called with every failed cycle.
	OnFault func(err error)
}

// Monitor periodically samples resources for a Host.
type Monitor struct {
	host   Host
	config Config

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	samples uint64
}

// New creates a stopped monitor.
func New(host Host, config Config) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Sampler == nil {
		config.Sampler = NewProcessSampler()
	}
	if config.Writer == nil {
		config.Writer = journal.Discard
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	return &Monitor{host: host, config: config}
}

// Start launches the sampling goroutine. It samples once immediately and
// then once per interval until Stop is called or ctx is done.
// Calling Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(ctx, m.stop, m.done)
}

// Stop signals the goroutine and waits up to timeout for it to exit.
// It returns false, after logging a warning, if the timeout elapsed first.
// A timed-out goroutine still exits on its own after its current cycle.
func (m *Monitor) Stop(timeout time.Duration) bool {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if done == nil {
		return true
	}
	close(stop)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		observability.LogMonitorTimeout(m.config.Logger, timeout)
		return false
	}
}

// Samples returns the number of successful cycles so far.
func (m *Monitor) Samples() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples
}

func (m *Monitor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		m.cycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one sample and reports any failure.
func (m *Monitor) cycle(ctx context.Context) {
	err := m.SampleOnce()
	m.config.Metrics.RecordMonitorSample(ctx, err)
	if err == nil {
		m.mu.Lock()
		m.samples++
		m.mu.Unlock()
		return
	}

	observability.LogMonitorFault(m.config.Logger, err)
	if m.config.OnFault != nil {
		m.config.OnFault(err)
	}
}

// SampleOnce runs one sampling cycle synchronously. A panic in the sampler,
// host or writer is returned as an error.
func (m *Monitor) SampleOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor panic: %v\n%s", r, debug.Stack())
		}
	}()

	res, err := m.config.Sampler.Sample()
	if err != nil {
		return fmt.Errorf("sample resources: %w", err)
	}
	m.host.UpdateResources(res)

	rec := m.host.MetricsRecord(time.Now())
	if err := m.config.Writer.WriteMetrics(rec); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
