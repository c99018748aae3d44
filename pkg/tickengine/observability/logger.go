// Package observability provides logging helpers, metrics and tracing for
// the tick engine.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry, exported over OTLP/HTTP when configured
//
// Every helper accepts a nil logger, and metrics and tracing have no-op
// implementations for when they are disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns logger with the run ID attached.
func EnrichLogger(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("run_id", runID))
}

// LogRunStart logs the start of a scheduler run.
func LogRunStart(logger *slog.Logger, interval time.Duration, handlers int) {
	if logger == nil {
		return
	}
	logger.Info("tick engine starting",
		slog.Duration("tick_interval", interval),
		slog.Int("handlers", handlers),
	)
}

// LogRunStop logs the end of a scheduler run.
func LogRunStop(logger *slog.Logger, ticks uint64, elapsed time.Duration, reason string) {
	if logger == nil {
		return
	}
	logger.Info("tick engine stopped",
		slog.Uint64("ticks", ticks),
		slog.Duration("elapsed", elapsed),
		slog.String("reason", reason),
	)
}

// LogAlreadyRunning logs a Start call on a running engine.
func LogAlreadyRunning(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Warn("tick engine already running")
}

// LogHandlerFault logs a handler that failed or panicked during dispatch.
func LogHandlerFault(logger *slog.Logger, eventType string, handlerID uint64, priority int, tick uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("event_type", eventType),
		slog.Uint64("handler_id", handlerID),
		slog.Int("priority", priority),
		slog.Uint64("tick", tick),
		slog.String("error", err.Error()),
	)
}

// LogLoopFault logs a fault that escaped a scheduler step.
func LogLoopFault(logger *slog.Logger, step string, tick uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("tick loop failed",
		slog.String("step", step),
		slog.Uint64("tick", tick),
		slog.String("error", err.Error()),
	)
}

// LogRecovery logs a successful recovery.
func LogRecovery(logger *slog.Logger, recoveryCount, dropped int) {
	if logger == nil {
		return
	}
	logger.Warn("recovery performed",
		slog.Int("recovery_count", recoveryCount),
		slog.Int("dropped_events", dropped),
	)
}

// LogRecoveryRefused logs a refused recovery that halts the engine.
func LogRecoveryRefused(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("recovery refused, stopping",
		slog.String("error", err.Error()),
	)
}

// LogRecoverySkipped logs a recovery that could not run, typically because
// the run's context was already done.
func LogRecoverySkipped(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("recovery skipped",
		slog.String("error", err.Error()),
	)
}

// LogEviction logs an event dropped because the queue was full.
func LogEviction(logger *slog.Logger, evicted string, evictions uint64) {
	if logger == nil {
		return
	}
	logger.Warn("event queue full, oldest event evicted",
		slog.String("evicted_type", evicted),
		slog.Uint64("evictions", evictions),
	)
}

// LogDuplicateHandler logs a repeated registration of the same handler.
func LogDuplicateHandler(logger *slog.Logger, eventType string, existingID uint64) {
	if logger == nil {
		return
	}
	logger.Warn("handler registered twice",
		slog.String("event_type", eventType),
		slog.Uint64("existing_handler_id", existingID),
	)
}

// LogMonitorFault logs a failed sampling cycle (non-fatal).
func LogMonitorFault(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("monitor sample failed",
		slog.String("error", err.Error()),
	)
}

// LogMonitorTimeout logs a monitor that did not stop in time.
func LogMonitorTimeout(logger *slog.Logger, timeout time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("monitor did not stop within timeout",
		slog.Duration("timeout", timeout),
	)
}

// LogJournalError logs a failed journal write (non-fatal).
func LogJournalError(logger *slog.Logger, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal write failed",
		slog.String("record", kind),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
