package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrumentation scope for meters and tracers.
const scopeName = "tickengine"

// Recovery outcomes reported to RecordRecovery.
const (
	RecoverySucceeded = "succeeded"
	RecoveryRefused   = "refused"
)

// MetricsRecorder records tick engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTick records one completed tick with the interval chosen for
	// the following sleep and the tick's dispatch latency.
	RecordTick(ctx context.Context, interval, latency time.Duration)

	// RecordFault records a fault of the given kind. eventType is empty for
	// faults outside dispatch.
	RecordFault(ctx context.Context, kind, eventType string)

	// RecordEviction records an event evicted from the full queue.
	RecordEviction(ctx context.Context, eventType string)

	// RecordRecovery records a recovery attempt outcome.
	RecordRecovery(ctx context.Context, outcome string)

	// RecordMonitorSample records one monitor cycle.
	RecordMonitorSample(ctx context.Context, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	ticks          metric.Int64Counter
	interval       metric.Float64Histogram
	latency        metric.Float64Histogram
	faults         metric.Int64Counter
	evictions      metric.Int64Counter
	recoveries     metric.Int64Counter
	monitorSamples metric.Int64Counter
}

// newOtelMetrics creates the instruments on meter.
func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	if m.ticks, err = meter.Int64Counter("tickengine.ticks",
		metric.WithDescription("Number of completed ticks"),
	); err != nil {
		return nil, err
	}

	if m.interval, err = meter.Float64Histogram("tickengine.tick.interval_ms",
		metric.WithDescription("Adaptive sleep interval chosen after each tick"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.latency, err = meter.Float64Histogram("tickengine.dispatch.latency_ms",
		metric.WithDescription("Tick event dispatch latency"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.faults, err = meter.Int64Counter("tickengine.faults",
		metric.WithDescription("Number of faults by kind"),
	); err != nil {
		return nil, err
	}

	if m.evictions, err = meter.Int64Counter("tickengine.queue.evictions",
		metric.WithDescription("Number of queued events evicted on overflow"),
	); err != nil {
		return nil, err
	}

	if m.recoveries, err = meter.Int64Counter("tickengine.recoveries",
		metric.WithDescription("Number of recovery attempts by outcome"),
	); err != nil {
		return nil, err
	}

	if m.monitorSamples, err = meter.Int64Counter("tickengine.monitor.samples",
		metric.WithDescription("Number of monitor sampling cycles"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by provider.
// A nil provider uses the global OTel meter provider. If instrument
// creation fails, a no-op recorder is returned.
func NewMetricsRecorder(provider metric.MeterProvider) MetricsRecorder {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	m, err := newOtelMetrics(provider.Meter(scopeName))
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTick implements MetricsRecorder.
func (m *otelMetrics) RecordTick(ctx context.Context, interval, latency time.Duration) {
	m.ticks.Add(ctx, 1)
	m.interval.Record(ctx, durationMs(interval))
	m.latency.Record(ctx, durationMs(latency))
}

// RecordFault implements MetricsRecorder.
func (m *otelMetrics) RecordFault(ctx context.Context, kind, eventType string) {
	attrs := []attribute.KeyValue{attribute.String("kind", kind)}
	if eventType != "" {
		attrs = append(attrs, attribute.String("event_type", eventType))
	}
	m.faults.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEviction implements MetricsRecorder.
func (m *otelMetrics) RecordEviction(ctx context.Context, eventType string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordRecovery implements MetricsRecorder.
func (m *otelMetrics) RecordRecovery(ctx context.Context, outcome string) {
	m.recoveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordMonitorSample implements MetricsRecorder.
func (m *otelMetrics) RecordMonitorSample(ctx context.Context, err error) {
	m.monitorSamples.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
