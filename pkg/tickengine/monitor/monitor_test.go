package monitor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
	"github.com/randalmurphal/tickengine/pkg/tickengine/monitor"
	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

type fakeHost struct {
	mu   sync.Mutex
	last state.Resources
	n    int
}

func (h *fakeHost) UpdateResources(r state.Resources) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = r
	h.n++
}

func (h *fakeHost) MetricsRecord(at time.Time) journal.MetricsRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return journal.MetricsRecord{
		Timestamp:   at,
		TickCount:   uint64(h.n),
		Performance: state.PerformanceSample{CPUPercent: h.last.CPUPercent, MemoryMB: h.last.MemoryMB},
	}
}

func (h *fakeHost) updates() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func fixedSampler(cpu, mem float64) monitor.Sampler {
	return monitor.SamplerFunc(func() (state.Resources, error) {
		return state.Resources{CPUPercent: cpu, MemoryMB: mem}, nil
	})
}

func TestMonitor_SamplesImmediatelyAndPeriodically(t *testing.T) {
	host := &fakeHost{}
	store := journal.NewMemoryStore()

	m := monitor.New(host, monitor.Config{
		Interval: 5 * time.Millisecond,
		Sampler:  fixedSampler(42, 128),
		Writer:   store,
	})
	m.Start(context.Background())

	require.Eventually(t, func() bool { return host.updates() >= 3 }, time.Second, time.Millisecond)
	require.True(t, m.Stop(time.Second))

	recs := store.Metrics()
	require.NotEmpty(t, recs)
	assert.Equal(t, 42.0, recs[0].Performance.CPUPercent)
	assert.Equal(t, 128.0, recs[0].Performance.MemoryMB)
	assert.GreaterOrEqual(t, m.Samples(), uint64(3))
}

func TestMonitor_FaultsAreIsolated(t *testing.T) {
	host := &fakeHost{}
	var calls, faults atomic.Int32

	sampler := monitor.SamplerFunc(func() (state.Resources, error) {
		switch calls.Add(1) {
		case 1:
			return state.Resources{}, errors.New("procfs unavailable")
		case 2:
			panic("sampler bug")
		default:
			return state.Resources{CPUPercent: 1}, nil
		}
	})

	m := monitor.New(host, monitor.Config{
		Interval: 2 * time.Millisecond,
		Sampler:  sampler,
		OnFault:  func(error) { faults.Add(1) },
	})
	m.Start(context.Background())

	require.Eventually(t, func() bool { return host.updates() >= 2 }, time.Second, time.Millisecond)
	m.Stop(time.Second)

	assert.Equal(t, int32(2), faults.Load())
}

func TestMonitor_WriterErrorIsAFault(t *testing.T) {
	store := journal.NewMemoryStore()
	require.NoError(t, store.Close())

	m := monitor.New(&fakeHost{}, monitor.Config{Sampler: fixedSampler(0, 0), Writer: store})

	err := m.SampleOnce()
	assert.ErrorIs(t, err, journal.ErrStoreClosed)
}

func TestMonitor_SampleOnceRecoversPanic(t *testing.T) {
	m := monitor.New(&fakeHost{}, monitor.Config{
		Sampler: monitor.SamplerFunc(func() (state.Resources, error) { panic("boom") }),
	})

	err := m.SampleOnce()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor panic: boom")
}

func TestMonitor_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Bool

	m := monitor.New(&fakeHost{}, monitor.Config{
		Interval: time.Millisecond,
		Sampler: monitor.SamplerFunc(func() (state.Resources, error) {
			started.Store(true)
			<-release
			return state.Resources{}, nil
		}),
	})
	m.Start(context.Background())
	require.Eventually(t, started.Load, time.Second, time.Millisecond)

	assert.False(t, m.Stop(10*time.Millisecond), "blocked sampler exceeds the timeout")
	close(release)
}

func TestMonitor_StopIdempotent(t *testing.T) {
	m := monitor.New(&fakeHost{}, monitor.Config{Sampler: fixedSampler(0, 0)})

	assert.True(t, m.Stop(time.Millisecond), "stop before start")

	m.Start(context.Background())
	m.Start(context.Background())
	assert.True(t, m.Stop(time.Second))
	assert.True(t, m.Stop(time.Second))
}

func TestMonitor_ContextCancel(t *testing.T) {
	host := &fakeHost{}
	ctx, cancel := context.WithCancel(context.Background())

	m := monitor.New(host, monitor.Config{Interval: time.Hour, Sampler: fixedSampler(0, 0)})
	m.Start(ctx)
	require.Eventually(t, func() bool { return host.updates() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.True(t, m.Stop(time.Second))
}

func TestProcessSampler(t *testing.T) {
	s := monitor.NewProcessSampler()

	first, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.CPUPercent, "first sample has no baseline")
	assert.Greater(t, first.MemoryMB, 0.0)

	// Burn CPU so the second sample has something to measure.
	deadline := time.Now().Add(100 * time.Millisecond)
	for x := 0; time.Now().Before(deadline); x++ {
		_ = x * x
	}

	second, err := s.Sample()
	require.NoError(t, err)
	assert.Greater(t, second.CPUPercent, 0.0, "busy loop shows up as CPU")
}
