package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest returns a recorder on a private provider and its reader.
func setupMetricsTest(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown meter provider: %v", err)
		}
	})
	return NewMetricsRecorder(provider), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumBy returns the counter value for the data point carrying attr.
func sumBy(t *testing.T, m *metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	recorder, _ := setupMetricsTest(t)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)

	assert.NotNil(t, NewMetricsRecorder(nil), "nil provider falls back to the global one")
}

func TestRecordTick(t *testing.T) {
	recorder, reader := setupMetricsTest(t)
	ctx := context.Background()

	recorder.RecordTick(ctx, 1300*time.Millisecond, 2*time.Millisecond)
	recorder.RecordTick(ctx, time.Second, 500*time.Microsecond)

	rm := collectMetrics(t, reader)

	ticks := findMetric(rm, "tickengine.ticks")
	require.NotNil(t, ticks)
	sum := ticks.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	interval := findMetric(rm, "tickengine.tick.interval_ms")
	require.NotNil(t, interval)
	hist := interval.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 2300.0, hist.DataPoints[0].Sum, 0.001)

	latency := findMetric(rm, "tickengine.dispatch.latency_ms")
	require.NotNil(t, latency)
	lhist := latency.Data.(metricdata.Histogram[float64])
	assert.InDelta(t, 2.5, lhist.DataPoints[0].Sum, 0.001)
}

func TestRecordFault(t *testing.T) {
	recorder, reader := setupMetricsTest(t)
	ctx := context.Background()

	recorder.RecordFault(ctx, "handler", "tick")
	recorder.RecordFault(ctx, "handler", "custom")
	recorder.RecordFault(ctx, "loop", "")

	m := findMetric(collectMetrics(t, reader), "tickengine.faults")
	assert.Equal(t, int64(2), sumBy(t, m, attribute.String("kind", "handler")))
	assert.Equal(t, int64(1), sumBy(t, m, attribute.String("kind", "loop")))
	assert.Equal(t, int64(1), sumBy(t, m, attribute.String("event_type", "custom")))
}

func TestRecordEvictionRecoveryMonitor(t *testing.T) {
	recorder, reader := setupMetricsTest(t)
	ctx := context.Background()

	recorder.RecordEviction(ctx, "custom")
	recorder.RecordRecovery(ctx, RecoverySucceeded)
	recorder.RecordRecovery(ctx, RecoveryRefused)
	recorder.RecordMonitorSample(ctx, nil)
	recorder.RecordMonitorSample(ctx, errors.New("proc unavailable"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumBy(t, findMetric(rm, "tickengine.queue.evictions"), attribute.String("event_type", "custom")))
	assert.Equal(t, int64(1), sumBy(t, findMetric(rm, "tickengine.recoveries"), attribute.String("outcome", "succeeded")))
	assert.Equal(t, int64(1), sumBy(t, findMetric(rm, "tickengine.recoveries"), attribute.String("outcome", "refused")))
	assert.Equal(t, int64(1), sumBy(t, findMetric(rm, "tickengine.monitor.samples"), attribute.Bool("success", false)))
}
