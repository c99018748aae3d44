// Package tickengine drives a periodic unit of work on an adaptive interval.
//
// An Engine advances a tick counter, broadcasts a "tick" event to every
// registered handler, drains events queued since the previous tick, and
// sleeps for an interval derived from a simulated load signal and the
// process CPU usage. A monitor goroutine samples resources on its own
// cadence and journals one metrics record per cycle.
//
// # Quick Start
//
//	eng, err := tickengine.New(config.Defaults(),
//	    tickengine.WithLogger(logger),
//	    tickengine.WithJournal(store),
//	)
//	if err != nil {
//	    return err
//	}
//	eng.Register(tickengine.EventTick, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
//	    info, err := tickengine.DecodeTick(evt.Payload)
//	    if err != nil {
//	        return err
//	    }
//	    log.Printf("tick %d heat=%.2f", info.Tick, info.Load.Heat)
//	    return nil
//	}), 0)
//
//	go eng.Start(ctx)
//	eng.QueueEvent("custom", event.Payload{"x": 1})
//
// # Subsystems and single steps
//
// RegisterSubsystem adds a named handler that runs on every tick after the
// tick event's handlers. Registering a name again replaces the earlier
// subsystem. Step runs one tick without starting a run, which suits tests
// and hosts that drive their own clock:
//
//	eng.RegisterSubsystem("physics", physics, 10)
//	if err := eng.Step(ctx); err != nil {
//	    return err
//	}
//
// # Faults
//
// A handler that fails or panics is isolated: the remaining handlers still
// run and the error counter increments. A failure in the engine's own tick
// steps ends the run. When the error counter reaches Settings.MaxErrors the
// recovery manager resets the load signal and purges queued events; once
// its budget or cooldown refuses another attempt, the engine stops for good
// and Start returns a recovery_exhausted fault.
//
// # Concurrency
//
// Register, Unregister, UnregisterID, the subsystem methods, QueueEvent,
// State, Export and Stop are safe to call from any goroutine while Start is
// running. Step refuses to run during a run. Handlers run on
// the engine goroutine, one at a time.
package tickengine
