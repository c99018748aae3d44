package tickengine

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
	"github.com/randalmurphal/tickengine/pkg/tickengine/monitor"
	"github.com/randalmurphal/tickengine/pkg/tickengine/observability"
)

// WorkFunc is the per-tick unit of work. It runs after the load update and
// before the tick broadcast. A returned error or panic is a loop fault and
// ends the run.
type WorkFunc func(ctx context.Context, info TickInfo) error

// engineConfig holds the collaborators an Engine is built with.
type engineConfig struct {
	logger  *slog.Logger
	journal journal.Store
	sampler monitor.Sampler
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	schemas *event.Schemas
	work    WorkFunc
	now     func() time.Time
}

// defaultEngineConfig returns the default collaborators.
func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:  slog.Default(),
		journal: journal.Discard,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the structured logger.
// Default: slog.Default()
//
// The logger is enriched with run_id for every run.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJournal sets where metrics and audit records are appended.
// Default: journal.Discard
//
// Example:
//
//	store, err := journal.NewSQLiteStore("tick.db")
//	eng, err := tickengine.New(settings, tickengine.WithJournal(store))
//
// The engine never closes the store.
func WithJournal(store journal.Store) Option {
	return func(c *engineConfig) {
		if store != nil {
			c.journal = store
		}
	}
}

// WithSampler sets the resource sampler used by the monitor.
// Default: monitor.NewProcessSampler()
func WithSampler(s monitor.Sampler) Option {
	return func(c *engineConfig) {
		c.sampler = s
	}
}

// WithMetrics enables metrics collection.
// Default: observability.NoopMetrics{}
//
// Example:
//
//	eng, err := tickengine.New(settings,
//	    tickengine.WithMetrics(observability.NewMetricsRecorder(nil)))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans enables tracing of runs, ticks and dispatches.
// Default: observability.NoopSpanManager{}
func WithSpans(s observability.SpanManager) Option {
	return func(c *engineConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithSchemas validates queued payloads against the given schemas.
// Default: no validation
func WithSchemas(s *event.Schemas) Option {
	return func(c *engineConfig) {
		c.schemas = s
	}
}

// WithWork sets the per-tick unit of work.
// Default: none
func WithWork(fn WorkFunc) Option {
	return func(c *engineConfig) {
		c.work = fn
	}
}

// WithClock overrides the time source for tick deltas, audit timestamps and
// recovery cooldowns.
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) {
		if now != nil {
			c.now = now
		}
	}
}
