// Package internal contains integration tests that exercise the session,
// wait, and vom packages together: a real PTY child, the poll engine
// evaluating conditions against it, and the element pipeline resolving
// what it shows.
package internal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/termpilot/termpilot/internal/config"
	"github.com/termpilot/termpilot/internal/session"
	"github.com/termpilot/termpilot/internal/wait"
)

func TestSpawnWaitAnalyzeKill(t *testing.T) {
	cfg := config.Default()
	cfg.Terminal.DefaultCols = 80
	cfg.Terminal.DefaultRows = 24

	registry := session.NewRegistry(cfg, nil)
	defer registry.KillAll()

	s, err := registry.Spawn("integration", "sh", nil, session.SpawnOptions{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if err := s.TypeText("printf '> Deploy\\n  Rollback\\n'\n"); err != nil {
		t.Fatalf("type: %v", err)
	}

	engine := wait.NewEngine(cfg.Wait.PollInterval(), cfg.Wait.StableSamples, nil)
	cond, ok := wait.Parse("text", "Rollback", "")
	if !ok {
		t.Fatal("parse failed")
	}
	res, err := engine.Wait(context.Background(), s, cond, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.Found {
		screen, _ := s.ScreenText()
		t.Fatalf("output never appeared:\n%s", screen)
	}

	as, err := s.AnalyzeScreen(false)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	ref, el, ok := as.Refs.FindByName("*Deploy*")
	if !ok {
		t.Fatalf("Deploy entry not detected:\n%s", as.Tree)
	}
	if !strings.Contains(el.Name, "Deploy") {
		t.Errorf("element name = %q", el.Name)
	}

	// The element-visible condition resolves through the same ref space.
	cond, _ = wait.Parse("element", "", ref)
	res, err = engine.Wait(context.Background(), s, cond, 2*time.Second)
	if err != nil || !res.Found {
		t.Errorf("element condition: found=%v err=%v", res.Found, err)
	}

	if err := registry.Kill(s.ID); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if registry.SessionCount() != 0 {
		t.Errorf("count = %d after kill", registry.SessionCount())
	}
}
