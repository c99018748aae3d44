package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a debug-level JSON logger and a function that
// decodes every line written so far.
func captureLogger(t *testing.T) (*slog.Logger, func() []map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return logger, func() []map[string]any {
		var out []map[string]any
		dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
		for dec.More() {
			var m map[string]any
			require.NoError(t, dec.Decode(&m))
			out = append(out, m)
		}
		return out
	}
}

func TestEnrichLogger(t *testing.T) {
	logger, entries := captureLogger(t)

	EnrichLogger(logger, "run-42").Info("hello")

	logs := entries()
	require.Len(t, logs, 1)
	assert.Equal(t, "run-42", logs[0]["run_id"])
	assert.Nil(t, EnrichLogger(nil, "run-42"))
}

func TestLogHelpers(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "run start",
			log:   func(l *slog.Logger) { LogRunStart(l, time.Second, 3) },
			level: "INFO",
			msg:   "tick engine starting",
			attrs: map[string]any{"handlers": float64(3)},
		},
		{
			name:  "run stop",
			log:   func(l *slog.Logger) { LogRunStop(l, 12, time.Second, "stopped") },
			level: "INFO",
			msg:   "tick engine stopped",
			attrs: map[string]any{"ticks": float64(12), "reason": "stopped"},
		},
		{
			name:  "already running",
			log:   LogAlreadyRunning,
			level: "WARN",
			msg:   "tick engine already running",
		},
		{
			name:  "handler fault",
			log:   func(l *slog.Logger) { LogHandlerFault(l, "tick", 7, 5, 99, boom) },
			level: "ERROR",
			msg:   "handler failed",
			attrs: map[string]any{"event_type": "tick", "handler_id": float64(7), "priority": float64(5), "tick": float64(99), "error": "boom"},
		},
		{
			name:  "loop fault",
			log:   func(l *slog.Logger) { LogLoopFault(l, "process_tick", 3, boom) },
			level: "ERROR",
			msg:   "tick loop failed",
			attrs: map[string]any{"step": "process_tick", "error": "boom"},
		},
		{
			name:  "recovery",
			log:   func(l *slog.Logger) { LogRecovery(l, 2, 10) },
			level: "WARN",
			msg:   "recovery performed",
			attrs: map[string]any{"recovery_count": float64(2), "dropped_events": float64(10)},
		},
		{
			name:  "recovery refused",
			log:   func(l *slog.Logger) { LogRecoveryRefused(l, boom) },
			level: "ERROR",
			msg:   "recovery refused, stopping",
		},
		{
			name:  "recovery skipped",
			log:   func(l *slog.Logger) { LogRecoverySkipped(l, context.Canceled) },
			level: "WARN",
			msg:   "recovery skipped",
			attrs: map[string]any{"error": "context canceled"},
		},
		{
			name:  "eviction",
			log:   func(l *slog.Logger) { LogEviction(l, "custom", 4) },
			level: "WARN",
			msg:   "event queue full, oldest event evicted",
			attrs: map[string]any{"evicted_type": "custom", "evictions": float64(4)},
		},
		{
			name:  "duplicate handler",
			log:   func(l *slog.Logger) { LogDuplicateHandler(l, "tick", 1) },
			level: "WARN",
			msg:   "handler registered twice",
		},
		{
			name:  "monitor fault",
			log:   func(l *slog.Logger) { LogMonitorFault(l, boom) },
			level: "WARN",
			msg:   "monitor sample failed",
		},
		{
			name:  "monitor timeout",
			log:   func(l *slog.Logger) { LogMonitorTimeout(l, 2*time.Second) },
			level: "WARN",
			msg:   "monitor did not stop within timeout",
		},
		{
			name:  "journal error",
			log:   func(l *slog.Logger) { LogJournalError(l, "audit", boom) },
			level: "WARN",
			msg:   "journal write failed",
			attrs: map[string]any{"record": "audit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, entries := captureLogger(t)
			tt.log(logger)

			logs := entries()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0]["level"])
			assert.Equal(t, tt.msg, logs[0]["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, logs[0][k], k)
			}
		})
	}
}

func TestLogHelpers_NilLogger(t *testing.T) {
	err := errors.New("boom")
	assert.NotPanics(t, func() {
		LogRunStart(nil, time.Second, 0)
		LogRunStop(nil, 0, 0, "")
		LogAlreadyRunning(nil)
		LogHandlerFault(nil, "tick", 1, 0, 0, err)
		LogLoopFault(nil, "step", 0, err)
		LogRecovery(nil, 1, 0)
		LogRecoveryRefused(nil, err)
		LogRecoverySkipped(nil, err)
		LogEviction(nil, "x", 1)
		LogDuplicateHandler(nil, "x", 1)
		LogMonitorFault(nil, err)
		LogMonitorTimeout(nil, time.Second)
		LogJournalError(nil, "metrics", err)
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 2*time.Millisecond)
}
