package tickengine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/tickengine/pkg/tickengine/config"
	"github.com/randalmurphal/tickengine/pkg/tickengine/errors"
	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
	"github.com/randalmurphal/tickengine/pkg/tickengine/journal"
	"github.com/randalmurphal/tickengine/pkg/tickengine/monitor"
	"github.com/randalmurphal/tickengine/pkg/tickengine/observability"
	"github.com/randalmurphal/tickengine/pkg/tickengine/recovery"
	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// Stop reasons recorded in the run's stop log line and audit record.
const (
	reasonStopped   = "stopped"
	reasonCancelled = "context_cancelled"
)

// Engine runs the adaptive tick loop.
//
// An Engine is created stopped. Start blocks for the duration of one run;
// Stop ends it. A run that ends because recovery was refused leaves the
// engine permanently stopped.
type Engine struct {
	settings config.Settings
	cfg      engineConfig

	registry   *event.Registry
	bus        *event.Bus
	subsystems *subsystems
	queue      *event.Queue
	recovery   *recovery.Manager

	// wake interrupts the inter-tick sleep.
	wake chan struct{}

	// mu guards everything below. Registry, queue and recovery calls are
	// never made while holding it.
	mu         sync.RWMutex
	logger     *slog.Logger
	runID      string
	tick       uint64
	timing     state.TimingState
	load       state.LoadState
	perf       state.PerformanceSample
	lastTick   time.Time
	active     bool
	running    bool
	stopping   bool
	haltReason error
	draining   []event.Item
}

// New creates a stopped engine. Settings are validated first.
func New(settings config.Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		settings: settings,
		cfg:      cfg,
		queue:    event.NewQueue(settings.QueueCapacity),
		wake:     make(chan struct{}, 1),
		logger:   cfg.logger,
		load:     state.BaselineLoad(),
		timing: state.TimingState{
			CurrentInterval: settings.TickInterval,
			TargetInterval:  settings.TickInterval,
		},
	}

	e.registry = event.NewRegistry(event.RegistryConfig{
		Duplicates: settings.DuplicatePolicy(),
		OnDuplicate: func(eventType string, existing event.Entry) {
			observability.LogDuplicateHandler(e.log(), eventType, uint64(existing.ID))
		},
	})
	e.bus = event.NewBus(e.registry, event.BusConfig{
		OnError: e.onHandlerError,
	})
	e.subsystems = newSubsystems(e.onSubsystemError)
	e.recovery = recovery.NewManager(recovery.Policy{
		MaxErrors:     settings.MaxErrors,
		MaxRecoveries: settings.MaxRecoveries,
		Cooldown:      settings.RecoveryCooldown,
	}, recovery.WithClock(cfg.now))

	return e, nil
}

// Settings returns the settings the engine was created with.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Register adds handler for eventType. Higher priorities run first; equal
// priorities run in registration order.
func (e *Engine) Register(eventType string, handler event.Handler, priority int) (event.HandlerID, error) {
	return e.registry.Register(eventType, handler, priority)
}

// Unregister removes every registration of handler for eventType and
// returns how many were removed.
func (e *Engine) Unregister(eventType string, handler event.Handler) int {
	return e.registry.Unregister(eventType, handler)
}

// UnregisterID removes one registration by ID.
func (e *Engine) UnregisterID(eventType string, id event.HandlerID) bool {
	return e.registry.UnregisterID(eventType, id)
}

// QueueEvent enqueues an event for delivery on the next tick. It never
// blocks. When the queue is full the oldest pending event is evicted.
//
// The payload is copied; later changes by the caller are not seen by
// handlers.
func (e *Engine) QueueEvent(eventType string, payload event.Payload) error {
	if eventType == "" {
		return event.ErrEmptyEventType
	}
	if e.cfg.schemas != nil {
		if err := e.cfg.schemas.Validate(eventType, payload); err != nil {
			return err
		}
	}

	evicted, ok := e.queue.Push(event.Item{
		Type:     eventType,
		Payload:  payload.Clone(),
		QueuedAt: e.cfg.now(),
	})
	if ok {
		e.cfg.metrics.RecordEviction(context.Background(), evicted.Type)
		observability.LogEviction(e.log(), evicted.Type, e.queue.Evictions())
	}
	return nil
}

// Start runs the tick loop until Stop is called, ctx is done, or a fault
// ends the run.
//
// It returns nil after Stop or cancellation. A fault in the loop itself
// returns an *errors.Fault of kind loop; a refused recovery returns one of
// kind recovery_exhausted. Calling Start while a run is active logs a
// warning and returns nil immediately.
func (e *Engine) Start(ctx context.Context) (err error) {
	if e.recovery.Phase() == recovery.Stopped {
		return errors.RecoveryExhausted(ErrEngineStopped, e.tickCount())
	}

	e.mu.Lock()
	if e.active {
		logger := e.logger
		e.mu.Unlock()
		observability.LogAlreadyRunning(logger)
		return nil
	}
	select {
	case <-e.wake:
	default:
	}
	runID := uuid.NewString()
	start := e.cfg.now()
	e.active = true
	e.running = true
	e.stopping = false
	e.haltReason = nil
	e.runID = runID
	e.lastTick = start
	e.logger = observability.EnrichLogger(e.cfg.logger, runID)
	logger := e.logger
	e.mu.Unlock()

	ctx, span := e.cfg.spans.StartRunSpan(ctx, runID)
	defer func() {
		e.cfg.spans.EndSpanWithError(span, err)
	}()

	observability.LogRunStart(logger, e.settings.TickInterval, e.registry.Len())
	e.audit(journal.AuditStart, map[string]any{"config": e.settings.Map()})

	mon := monitor.New(monitorHost{e}, monitor.Config{
		Interval: e.settings.MonitorInterval,
		Sampler:  e.cfg.sampler,
		Writer:   e.cfg.journal,
		Logger:   logger,
		Metrics:  e.cfg.metrics,
		OnFault: func(ferr error) {
			e.onMonitorFault(ctx, ferr)
		},
	})
	mon.Start(ctx)

	err = e.loop(ctx)

	e.mu.Lock()
	e.running = false
	ticks := e.tick
	e.mu.Unlock()

	mon.Stop(e.settings.MonitorShutdownTimeout)

	reason := stopReason(ctx, err)
	observability.LogRunStop(logger, ticks, e.cfg.now().Sub(start), reason)
	details := map[string]any{"reason": reason}
	if err != nil {
		details["error"] = err.Error()
	}
	e.audit(journal.AuditStop, details)

	e.mu.Lock()
	e.active = false
	e.mu.Unlock()

	return err
}

// Stop asks the running loop to exit after its current iteration and
// interrupts the inter-tick sleep. Stop does not wait; Start returns once
// the run has torn down. Calling Stop on a stopped engine does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.active || e.stopping {
		e.mu.Unlock()
		return
	}
	e.stopping = true
	e.running = false
	e.mu.Unlock()

	e.wakeUp()
}

// Step runs exactly one tick outside a run: the load update, the tick
// broadcast and subsystems, and the queue drain. It does not sleep and
// records a tick audit record on success.
//
// Step returns ErrEngineRunning while a run is active. Faults are handled
// as in a run, and the loop fault (or the recovery_exhausted fault when
// recovery was refused) is returned.
func (e *Engine) Step(ctx context.Context) error {
	if e.recovery.Phase() == recovery.Stopped {
		return errors.RecoveryExhausted(ErrEngineStopped, e.tickCount())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return ErrEngineRunning
	}
	e.active = true
	e.stopping = false
	e.haltReason = nil
	if e.lastTick.IsZero() {
		e.lastTick = e.cfg.now()
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
	}()

	next, fault := e.iterate(ctx)
	if fault != nil {
		e.handleLoopFault(ctx, fault)
		if _, exhausted := e.stopState(); exhausted != nil {
			return exhausted
		}
		return fault
	}
	if _, exhausted := e.stopState(); exhausted != nil {
		return exhausted
	}

	e.audit(journal.AuditTick, map[string]any{
		"tick":          e.tickCount(),
		"next_interval": next.Seconds(),
		"subsystems":    len(e.subsystems.list()),
	})
	return nil
}

// State returns a snapshot of the engine state.
func (e *Engine) State() state.Snapshot {
	types := e.registry.Types()
	rs := e.recovery.Snapshot()
	queued := e.queue.Len()
	evictions := e.queue.Evictions()

	e.mu.RLock()
	defer e.mu.RUnlock()

	return state.Snapshot{
		RunID:           e.runID,
		TickCount:       e.tick,
		CurrentInterval: e.timing.CurrentInterval.Seconds(),
		TargetInterval:  e.timing.TargetInterval.Seconds(),
		IsRunning:       e.running,
		LastTickTime:    e.lastTick,
		EventTypes:      types,
		Load:            e.load,
		Performance:     e.perf,
		ErrorCount:      rs.ErrorCount,
		RecoveryCount:   rs.RecoveryCount,
		Phase:           rs.Phase.String(),
		QueueLength:     queued,
		QueueEvictions:  evictions,
	}
}

func (e *Engine) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if stop, fault := e.stopState(); stop {
			return fault
		}

		next, fault := e.iterate(ctx)
		if fault != nil {
			e.handleLoopFault(ctx, fault)
			if _, exhausted := e.stopState(); exhausted != nil {
				return exhausted
			}
			return fault
		}

		e.sleep(ctx, next)
	}
}

// iterate runs one tick: process the tick, drain the queue, and compute
// the next interval. A returned error or panic becomes a loop fault.
func (e *Engine) iterate(ctx context.Context) (next time.Duration, fault *errors.Fault) {
	step := stepProcessTick
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Step: step, Value: r, Stack: string(debug.Stack())}
			fault = errors.Loop(perr, step, e.tickCount())
		}
	}()

	if err := e.processTick(ctx); err != nil {
		return 0, errors.Loop(err, step, e.tickCount())
	}

	step = stepProcessQueue
	e.processQueue(ctx)

	step = stepNextInterval
	return e.nextInterval(ctx), nil
}

func (e *Engine) processTick(ctx context.Context) (err error) {
	now := e.cfg.now()

	e.mu.Lock()
	e.tick++
	delta := max(now.Sub(e.lastTick), 0)
	e.lastTick = now
	e.load = UpdateLoad(e.load, delta.Seconds(), e.perf.CPUPercent, e.settings.MomentumDecay)
	info := TickInfo{
		Tick:        e.tick,
		Delta:       delta,
		Interval:    e.timing.CurrentInterval,
		Load:        e.load,
		Performance: e.perf,
	}
	e.mu.Unlock()

	ctx, span := e.cfg.spans.StartTickSpan(ctx, info.Tick)
	defer func() {
		e.cfg.spans.EndSpanWithError(span, err)
	}()

	if e.cfg.work != nil {
		if err := e.cfg.work(ctx, info); err != nil {
			return fmt.Errorf("work: %w", err)
		}
	}

	done := observability.TimedOperation()
	evt := event.New(EventTick, info.Payload(),
		event.WithTick(info.Tick),
		event.WithTimestamp(now),
	)
	e.dispatch(ctx, evt)
	e.runSubsystems(ctx, evt)
	latency := done()

	e.mu.Lock()
	e.perf.DispatchLatency = latency
	e.timing.CurrentInterval = e.intervalLocked()
	e.mu.Unlock()

	return nil
}

// processQueue dispatches every event queued before the drain, in FIFO
// order. Events queued meanwhile wait for the next tick.
func (e *Engine) processQueue(ctx context.Context) {
	items := e.queue.Drain()
	if len(items) == 0 {
		return
	}

	e.mu.Lock()
	e.draining = items
	tick := e.tick
	e.mu.Unlock()

	for {
		e.mu.Lock()
		if len(e.draining) == 0 {
			e.draining = nil
			e.mu.Unlock()
			return
		}
		item := e.draining[0]
		e.draining = e.draining[1:]
		e.mu.Unlock()

		e.dispatch(ctx, event.New(item.Type, item.Payload,
			event.WithTick(tick),
			event.WithSource(event.SourceQueue),
			event.WithTimestamp(item.QueuedAt),
		))
	}
}

func (e *Engine) nextInterval(ctx context.Context) time.Duration {
	e.mu.Lock()
	next := e.intervalLocked()
	e.timing.CurrentInterval = next
	latency := e.perf.DispatchLatency
	e.mu.Unlock()

	e.cfg.metrics.RecordTick(ctx, next, latency)
	return next
}

// intervalLocked requires e.mu.
func (e *Engine) intervalLocked() time.Duration {
	return NextInterval(
		e.timing.TargetInterval,
		e.settings.TickIntervalMin,
		e.settings.TickIntervalMax,
		e.load.Heat,
		e.perf.CPUPercent,
	)
}

func (e *Engine) dispatch(ctx context.Context, evt event.Event) event.DispatchResult {
	ctx, span := e.cfg.spans.StartDispatchSpan(ctx, evt.Type, len(e.registry.Handlers(evt.Type)))

	result := e.bus.Dispatch(ctx, evt)

	var err error
	if result.Failed > 0 {
		err = fmt.Errorf("%d of %d handlers failed", result.Failed, result.Failed+result.Delivered)
	}
	e.cfg.spans.EndSpanWithError(span, err)
	return result
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-e.wake:
	case <-ctx.Done():
	}
}

func (e *Engine) wakeUp() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// stopState reports whether the loop should exit. The error is non-nil
// only when recovery was refused.
func (e *Engine) stopState() (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.haltReason != nil {
		return true, errors.RecoveryExhausted(e.haltReason, e.tick)
	}
	return e.stopping, nil
}

func (e *Engine) onHandlerError(ctx context.Context, evt event.Event, entry event.Entry, herr *event.HandlerError) {
	observability.LogHandlerFault(e.log(), evt.Type, uint64(entry.ID), entry.Priority, evt.Tick, herr.Err)

	e.handleFault(ctx, errors.Handler(herr, evt.Type, evt.Tick), map[string]any{
		"event_type": evt.Type,
		"source":     evt.Source,
		"handler_id": uint64(entry.ID),
		"priority":   entry.Priority,
	})
}

func (e *Engine) handleLoopFault(ctx context.Context, fault *errors.Fault) {
	observability.LogLoopFault(e.log(), fault.Context, fault.Tick, fault.Err)

	e.handleFault(ctx, fault, map[string]any{
		"step": fault.Context,
	})
}

// handleFault counts a handler or loop fault, audits it and escalates to
// recovery once the threshold is reached.
func (e *Engine) handleFault(ctx context.Context, fault *errors.Fault, details map[string]any) {
	eventType := ""
	if fault.Kind == errors.KindHandler {
		eventType = fault.Context
	}
	e.cfg.metrics.RecordFault(ctx, fault.Kind.String(), eventType)

	trigger := e.recovery.RecordFault()

	details["kind"] = fault.Kind.String()
	details["error"] = fault.Err.Error()
	details["tick"] = fault.Tick
	e.audit(journal.AuditError, details)

	if trigger {
		e.attemptRecovery(ctx)
	}
}

func (e *Engine) attemptRecovery(ctx context.Context) {
	outcome, err := e.recovery.Attempt(ctx, recoveryTarget{e})
	switch {
	case err == nil:
		observability.LogRecovery(e.log(), outcome.RecoveryCount, outcome.Dropped)
		e.cfg.metrics.RecordRecovery(ctx, observability.RecoverySucceeded)
		e.cfg.spans.AddSpanEvent(ctx, "recovery",
			attribute.Int("recovery_count", outcome.RecoveryCount),
			attribute.Int("dropped_events", outcome.Dropped),
		)
		e.audit(journal.AuditRecovery, map[string]any{
			"recovery_count": outcome.RecoveryCount,
			"dropped_events": outcome.Dropped,
		})

	case stderrors.Is(err, recovery.ErrRecoveryExhausted):
		observability.LogRecoveryRefused(e.log(), err)
		e.cfg.metrics.RecordRecovery(ctx, observability.RecoveryRefused)
		e.audit(journal.AuditRecoveryRefused, map[string]any{
			"error": err.Error(),
		})

	default:
		// The threshold stays reached; the next counted fault tries again.
		observability.LogRecoverySkipped(e.log(), err)
	}
}

// onMonitorFault audits a failed sampling cycle. Monitor faults do not
// count toward recovery.
func (e *Engine) onMonitorFault(ctx context.Context, err error) {
	fault := errors.Monitor(err, e.tickCount())
	e.cfg.metrics.RecordFault(ctx, fault.Kind.String(), "")
	e.audit(journal.AuditMonitorError, map[string]any{
		"kind":  fault.Kind.String(),
		"error": err.Error(),
		"tick":  fault.Tick,
	})
}

func (e *Engine) audit(kind string, details map[string]any) {
	snap := e.State()
	rec := journal.AuditRecord{
		Timestamp: e.cfg.now(),
		Type:      kind,
		RunID:     snap.RunID,
		Details:   details,
		State:     snap,
	}
	if err := e.cfg.journal.WriteAudit(rec); err != nil {
		observability.LogJournalError(e.log(), "audit", err)
	}
}

func (e *Engine) log() *slog.Logger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.logger
}

func (e *Engine) tickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

func stopReason(ctx context.Context, err error) string {
	switch {
	case err != nil:
		return errors.KindOf(err).String()
	case ctx.Err() != nil:
		return reasonCancelled
	default:
		return reasonStopped
	}
}

// recoveryTarget exposes the engine to the recovery manager without adding
// ResetLoad, PurgeQueue and Halt to the Engine API.
type recoveryTarget struct {
	e *Engine
}

func (t recoveryTarget) ResetLoad() {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()
	t.e.load = state.BaselineLoad()
}

// PurgeQueue drops both the pending queue and any events drained for the
// current tick but not yet dispatched.
func (t recoveryTarget) PurgeQueue() int {
	t.e.mu.Lock()
	inflight := len(t.e.draining)
	t.e.draining = nil
	t.e.mu.Unlock()

	return inflight + t.e.queue.Purge()
}

func (t recoveryTarget) Halt(reason error) {
	t.e.mu.Lock()
	t.e.stopping = true
	t.e.running = false
	t.e.haltReason = reason
	t.e.mu.Unlock()

	t.e.wakeUp()
}

// monitorHost feeds monitor readings into the engine state.
type monitorHost struct {
	e *Engine
}

func (h monitorHost) UpdateResources(r state.Resources) {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.perf.CPUPercent = r.CPUPercent
	h.e.perf.MemoryMB = r.MemoryMB
}

func (h monitorHost) MetricsRecord(at time.Time) journal.MetricsRecord {
	h.e.mu.RLock()
	defer h.e.mu.RUnlock()
	return journal.MetricsRecord{
		Timestamp:   at,
		RunID:       h.e.runID,
		TickCount:   h.e.tick,
		Performance: h.e.perf,
		Load:        h.e.load,
	}
}
