// Package event provides the handler registry, dispatch bus and pending
// queue used by the tick engine.
//
// # Registry
//
// Handlers are registered per event type with an integer priority. Higher
// priorities run first; equal priorities run in registration order:
//
//	reg := event.NewRegistry(event.RegistryConfig{})
//	id, err := reg.Register("tick", event.HandlerFunc(onTick), 10)
//
// Register returns a HandlerID. Unregister(type, handler) removes every
// registration of a comparable handler value (pointers, comparable structs).
// Function values are not comparable in Go, so a HandlerFunc can only be
// removed through UnregisterID.
//
// # Bus
//
// Bus.Dispatch delivers one event to every handler registered at the moment
// of the call, synchronously and in order. A handler that returns an error
// or panics is reported through BusConfig.OnError and the remaining
// handlers still run.
//
// # Queue
//
// Queue is a bounded FIFO for events submitted between ticks. When full,
// the oldest item is evicted and counted. The engine drains the queue once
// per tick.
//
// # Schemas
//
// Schemas optionally validates payloads by event type before they are
// queued. Types without a schema accept any payload.
package event
