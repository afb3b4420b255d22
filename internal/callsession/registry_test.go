package callsession

import (
	"errors"
	"testing"
)

func TestRegistryOneControllerPerUser(t *testing.T) {
	r := NewRegistry()
	a, _, _, _ := newTestController(t)
	b, _, _, _ := newTestController(t)

	if err := r.Acquire("user-1", a); err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	if err := r.Acquire("user-1", a); err != nil {
		t.Errorf("re-Acquire by holder: %v", err)
	}
	if err := r.Acquire("user-1", b); !errors.Is(err, ErrCallInProgress) {
		t.Errorf("Acquire b: got %v, want %v", err, ErrCallInProgress)
	}
	if err := r.Acquire("user-2", b); err != nil {
		t.Errorf("Acquire b for another user: %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("count: got %d, want 2", r.Count())
	}

	// Releasing with the wrong controller is a no-op.
	r.Release("user-1", b)
	if err := r.Acquire("user-1", b); !errors.Is(err, ErrCallInProgress) {
		t.Errorf("slot released by non-holder: Acquire b got %v", err)
	}

	r.Release("user-1", a)
	if r.Count() != 1 {
		t.Errorf("count after release: got %d, want 1", r.Count())
	}
	if err := r.Acquire("user-1", b); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
}
