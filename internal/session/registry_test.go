package session

import (
	"testing"

	"github.com/termpilot/termpilot/internal/errors"
)

func newTestRegistry(t *testing.T, maxSessions int) *Registry {
	t.Helper()
	cfg := testConfig()
	cfg.Session.MaxSessions = maxSessions
	r := NewRegistry(cfg, nil)
	t.Cleanup(func() { r.KillAll() })
	return r
}

func TestRegistrySpawnAndResolve(t *testing.T) {
	r := newTestRegistry(t, 5)

	s, err := r.Spawn("one", "sh", nil, SpawnOptions{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if s.ID != "one" {
		t.Errorf("id = %q", s.ID)
	}
	if r.ActiveSessionID() != "one" {
		t.Errorf("active = %q, want one", r.ActiveSessionID())
	}

	// Empty id resolves to the active session.
	got, err := r.Resolve("")
	if err != nil || got != s {
		t.Errorf("Resolve(\"\") = %v, %v", got, err)
	}
	got, err = r.Resolve("one")
	if err != nil || got != s {
		t.Errorf("Resolve(one) = %v, %v", got, err)
	}
	if _, err := r.Resolve("missing"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("Resolve(missing) err = %v", err)
	}
}

func TestRegistryGeneratedID(t *testing.T) {
	r := newTestRegistry(t, 5)
	s, err := r.Spawn("", "sh", nil, SpawnOptions{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if s.ID == "" {
		t.Error("expected generated id")
	}
}

func TestRegistryDuplicateID(t *testing.T) {
	r := newTestRegistry(t, 5)
	if _, err := r.Spawn("dup", "sh", nil, SpawnOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Spawn("dup", "sh", nil, SpawnOptions{}); !errors.Is(err, errors.ErrSessionExists) {
		t.Errorf("duplicate spawn err = %v, want ErrSessionExists", err)
	}
	if r.SessionCount() != 1 {
		t.Errorf("count = %d, want 1", r.SessionCount())
	}
}

func TestRegistryLimitReached(t *testing.T) {
	r := newTestRegistry(t, 2)
	if _, err := r.Spawn("a", "sh", nil, SpawnOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Spawn("b", "sh", nil, SpawnOptions{}); err != nil {
		t.Fatal(err)
	}

	_, err := r.Spawn("c", "sh", nil, SpawnOptions{})
	var le *errors.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want LimitError", err)
	}
	if le.Max != 2 {
		t.Errorf("limit = %d, want 2", le.Max)
	}
	// Existing sessions are untouched.
	if r.SessionCount() != 2 {
		t.Errorf("count = %d, want 2", r.SessionCount())
	}
	if _, err := r.Get("a"); err != nil {
		t.Errorf("session a gone after failed spawn: %v", err)
	}
}

func TestRegistryKillActiveClearsPointer(t *testing.T) {
	r := newTestRegistry(t, 5)
	if _, err := r.Spawn("victim", "sh", nil, SpawnOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Kill("victim"); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if r.ActiveSessionID() != "" {
		t.Errorf("active = %q after killing active session, want empty", r.ActiveSessionID())
	}
	if _, err := r.Active(); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("Active err = %v, want ErrNoActiveSession", err)
	}
	if _, err := r.Resolve(""); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("Resolve(\"\") err = %v, want ErrNoActiveSession", err)
	}
}

func TestRegistrySetActive(t *testing.T) {
	r := newTestRegistry(t, 5)
	r.Spawn("first", "sh", nil, SpawnOptions{})
	r.Spawn("second", "sh", nil, SpawnOptions{})

	if r.ActiveSessionID() != "second" {
		t.Fatalf("active = %q, want second (most recent spawn)", r.ActiveSessionID())
	}
	if err := r.SetActive("first"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if r.ActiveSessionID() != "first" {
		t.Errorf("active = %q, want first", r.ActiveSessionID())
	}
	if err := r.SetActive("nope"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("SetActive(nope) err = %v", err)
	}
}

func TestRegistryList(t *testing.T) {
	r := newTestRegistry(t, 5)
	r.Spawn("b", "sh", nil, SpawnOptions{})
	r.Spawn("a", "sh", nil, SpawnOptions{})

	ids := r.List()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("List = %v, want [a b]", ids)
	}
}

func TestRegistryFailedSpawnFreesSlot(t *testing.T) {
	r := newTestRegistry(t, 1)
	if _, err := r.Spawn("bad", "definitely-not-a-command-xyz", nil, SpawnOptions{}); err == nil {
		t.Fatal("expected spawn failure")
	}
	if r.SessionCount() != 0 {
		t.Errorf("count = %d after failed spawn, want 0", r.SessionCount())
	}
	// The reserved slot must have been released.
	if _, err := r.Spawn("good", "sh", nil, SpawnOptions{}); err != nil {
		t.Errorf("spawn after failed spawn: %v", err)
	}
}
