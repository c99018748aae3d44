package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/randalmurphal/tickengine/pkg/tickengine"
	"github.com/randalmurphal/tickengine/pkg/tickengine/config"
	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
	"github.com/randalmurphal/tickengine/pkg/tickengine/observability"
)

const tracingShutdownTimeout = 5 * time.Second

func runEngine(c *cli.Context) error {
	logger, err := newLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	settings, err := config.Load(fs, c.String("config"))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := openJournal(fs, c.String("journal"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close journal", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint := c.String("otel-endpoint")
	shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    endpoint,
		ServiceName: "tickd",
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("flush traces", slog.String("error", err.Error()))
		}
	}()

	opts := []tickengine.Option{
		tickengine.WithLogger(logger),
		tickengine.WithJournal(store),
		tickengine.WithMetrics(observability.NewMetricsRecorder(nil)),
	}
	if endpoint != "" {
		opts = append(opts, tickengine.WithSpans(observability.NewSpanManager(nil)))
	}

	eng, err := tickengine.New(settings, opts...)
	if err != nil {
		return err
	}
	if every := c.Int("heartbeat"); every > 0 {
		if _, err := eng.Register(tickengine.EventTick, &heartbeat{logger: logger, every: uint64(every)}, 0); err != nil {
			return err
		}
	}

	return eng.Start(ctx)
}

// heartbeat logs the engine's pacing every N ticks.
type heartbeat struct {
	logger *slog.Logger
	every  uint64
}

func (h *heartbeat) Handle(_ context.Context, evt event.Event) error {
	info, err := tickengine.DecodeTick(evt.Payload)
	if err != nil {
		return err
	}
	if info.Tick%h.every != 0 {
		return nil
	}
	h.logger.Info("heartbeat",
		slog.Uint64("tick", info.Tick),
		slog.Duration("interval", info.Interval),
		slog.Float64("heat", info.Load.Heat),
		slog.Float64("cpu_percent", info.Performance.CPUPercent),
		slog.Float64("memory_mb", info.Performance.MemoryMB),
	)
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// openJournal opens the journal named by location, a comma-separated list.
// Each entry picks its store: SQLite for .db and .sqlite files, a JSON
// lines directory otherwise. Several entries are written together, and
// audit reads come from the first. An empty location discards everything.
func openJournal(fs afero.Fs, location string) (journal.Store, error) {
	var stores []journal.Store
	for _, loc := range strings.Split(location, ",") {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		s, err := openStore(fs, loc)
		if err != nil {
			for _, opened := range stores {
				opened.Close()
			}
			return nil, err
		}
		stores = append(stores, s)
	}

	switch len(stores) {
	case 0:
		return journal.Discard, nil
	case 1:
		return stores[0], nil
	default:
		return journal.Multi(stores...), nil
	}
}

func openStore(fs afero.Fs, location string) (journal.Store, error) {
	if strings.HasSuffix(location, ".db") || strings.HasSuffix(location, ".sqlite") {
		s, err := journal.NewSQLiteStore(location)
		if err != nil {
			return nil, fmt.Errorf("open journal %s: %w", location, err)
		}
		return s, nil
	}
	s, err := journal.NewFileStore(fs, location)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", location, err)
	}
	return s, nil
}
