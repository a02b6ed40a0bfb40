package state

import "testing"

func TestRouterStateResolution(t *testing.T) {
	states := map[int64]State{
		1: State("awaiting_token_address"),
	}
	r := NewRouter(func(userID int64) State {
		if st, ok := states[userID]; ok {
			return st
		}
		return StateIdle
	})

	if got := r.StateOf(1); got != State("awaiting_token_address") {
		t.Fatalf("StateOf(1) = %q", got)
	}
	if !r.InProgress(1) {
		t.Fatalf("user 1 should be in progress")
	}
	if r.InProgress(2) {
		t.Fatalf("user 2 has no conversation")
	}
}

func TestRouterNilResolver(t *testing.T) {
	r := NewRouter(nil)
	if r.StateOf(7) != StateIdle {
		t.Fatalf("nil resolver must report idle")
	}
	if r.InProgress(7) {
		t.Fatalf("nil resolver must report no progress")
	}
}

func TestRouterIgnoresNilHandler(t *testing.T) {
	r := NewRouter(func(int64) State { return StateIdle })
	r.Handle(State("x"), nil)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.handlers) != 0 {
		t.Fatalf("nil handler must not be registered")
	}
}
