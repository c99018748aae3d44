package event

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// HandlerID identifies one registration. IDs are unique per Registry.
type HandlerID uint64

// Entry is one registered handler for an event type.
type Entry struct {
	ID       HandlerID
	Priority int
	Handler  Handler
}

// DuplicatePolicy controls what Register does when the identical handler is
// already registered for the same event type.
type DuplicatePolicy int

const (
	// DuplicateAllow keeps every registration. The handler runs once per
	// registration.
	DuplicateAllow DuplicatePolicy = iota

	// DuplicateWarn keeps every registration and reports the duplicate
	// through RegistryConfig.OnDuplicate.
	DuplicateWarn

	// DuplicateReject refuses the second registration with ErrDuplicateHandler.
	DuplicateReject
)

// String returns the policy name.
func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateAllow:
		return "allow"
	case DuplicateWarn:
		return "warn"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy parses "allow", "warn" or "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return DuplicateAllow, nil
	case "warn":
		return DuplicateWarn, nil
	case "reject":
		return DuplicateReject, nil
	default:
		return DuplicateAllow, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// RegistryConfig configures registry behavior.
type RegistryConfig struct {
	// Duplicates selects the duplicate registration policy.
	// Default: DuplicateAllow
	Duplicates DuplicatePolicy

	// OnDuplicate is called when a duplicate is detected under
	// DuplicateWarn or DuplicateReject.
	OnDuplicate func(eventType string, existing Entry)
}

// Registry maps event types to handlers ordered by descending priority.
// Handlers with equal priority keep their registration order.
//
// Per-type slices are replaced on every write and never mutated in place,
// so a slice handed to a dispatcher stays valid while registrations change.
type Registry struct {
	config RegistryConfig

	mu      sync.RWMutex
	entries map[string][]Entry

	nextID atomic.Uint64
}

// NewRegistry creates an empty handler registry.
func NewRegistry(config RegistryConfig) *Registry {
	return &Registry{
		config:  config,
		entries: make(map[string][]Entry),
	}
}

// Register adds handler for eventType at the given priority and returns
// the registration ID.
//
// The identical handler may be registered more than once; what happens
// then depends on the configured DuplicatePolicy. Duplicate detection only
// works for comparable handler values (pointers, comparable structs).
func (r *Registry) Register(eventType string, handler Handler, priority int) (HandlerID, error) {
	if eventType == "" {
		return 0, ErrEmptyEventType
	}
	if handler == nil {
		return 0, ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.entries[eventType]

	if r.config.Duplicates != DuplicateAllow {
		for _, e := range current {
			if !sameHandler(e.Handler, handler) {
				continue
			}
			if r.config.OnDuplicate != nil {
				r.config.OnDuplicate(eventType, e)
			}
			if r.config.Duplicates == DuplicateReject {
				return 0, fmt.Errorf("%s: %w", eventType, ErrDuplicateHandler)
			}
			break
		}
	}

	entry := Entry{
		ID:       HandlerID(r.nextID.Add(1)),
		Priority: priority,
		Handler:  handler,
	}

	// Insert after every entry with priority >= the new one.
	pos := sort.Search(len(current), func(i int) bool {
		return current[i].Priority < priority
	})

	next := make([]Entry, 0, len(current)+1)
	next = append(next, current[:pos]...)
	next = append(next, entry)
	next = append(next, current[pos:]...)
	r.entries[eventType] = next

	return entry.ID, nil
}

// Unregister removes every registration of handler for eventType and
// returns how many were removed. Non-comparable handlers never match.
func (r *Registry) Unregister(eventType string, handler Handler) int {
	if handler == nil {
		return 0
	}
	return r.removeWhere(eventType, func(e Entry) bool {
		return sameHandler(e.Handler, handler)
	})
}

// UnregisterID removes the registration with the given ID.
func (r *Registry) UnregisterID(eventType string, id HandlerID) bool {
	return r.removeWhere(eventType, func(e Entry) bool {
		return e.ID == id
	}) > 0
}

func (r *Registry) removeWhere(eventType string, match func(Entry) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[eventType]
	if !ok {
		return 0
	}

	kept := make([]Entry, 0, len(current))
	for _, e := range current {
		if !match(e) {
			kept = append(kept, e)
		}
	}

	removed := len(current) - len(kept)
	if removed == 0 {
		return 0
	}
	if len(kept) == 0 {
		delete(r.entries, eventType)
	} else {
		r.entries[eventType] = kept
	}
	return removed
}

// Handlers returns the registrations for eventType in dispatch order.
// The returned slice must not be modified.
func (r *Registry) Handlers(eventType string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[eventType]
}

// Types returns every event type with at least one handler, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Counts returns the number of registrations per event type.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.entries))
	for t, entries := range r.entries {
		counts[t] = len(entries)
	}
	return counts
}

// Len returns the total number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entries := range r.entries {
		n += len(entries)
	}
	return n
}

// sameHandler reports whether a and b are the identical comparable handler.
func sameHandler(a, b Handler) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	// Comparable struct types can still hold non-comparable values in
	// interface fields; == panics on those.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
