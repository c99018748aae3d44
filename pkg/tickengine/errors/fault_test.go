package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindHandler, "handler"},
		{KindLoop, "loop"},
		{KindRecoveryExhausted, "recovery_exhausted"},
		{KindMonitor, "monitor"},
		{KindUnknown, "unknown"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind(%d).String() = %s, want %s", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nil error", nil, KindUnknown},
		{"plain error", base, KindUnknown},
		{"handler fault", Handler(base, "tick", 3), KindHandler},
		{"loop fault", Loop(base, "process_tick", 3), KindLoop},
		{"exhausted", RecoveryExhausted(base, 3), KindRecoveryExhausted},
		{"monitor fault", Monitor(base, 3), KindMonitor},
		{"wrapped fault", fmt.Errorf("run: %w", Loop(base, "drain", 1)), KindLoop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	base := errors.New("boom")

	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
	if IsFatal(Handler(base, "tick", 1)) {
		t.Error("handler faults are contained")
	}
	if IsFatal(Monitor(base, 1)) {
		t.Error("monitor faults are contained")
	}
	if !IsFatal(Loop(base, "tick", 1)) {
		t.Error("loop faults end the run")
	}
	if !IsFatal(RecoveryExhausted(base, 1)) {
		t.Error("exhausted recovery ends the run")
	}
	if !IsFatal(base) {
		t.Error("unclassified errors are fatal")
	}
}

func TestFaultUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	f := Handler(sentinel, "custom", 7)

	if !errors.Is(f, sentinel) {
		t.Error("errors.Is should find the wrapped error")
	}

	want := "handler fault in custom at tick 7: sentinel"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}

	bare := NewFault(sentinel, KindLoop, "", 2)
	if bare.Error() != "loop fault at tick 2: sentinel" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}
