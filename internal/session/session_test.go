package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/termpilot/termpilot/internal/config"
	"github.com/termpilot/termpilot/internal/errors"
	"github.com/termpilot/termpilot/internal/wait"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Terminal.DefaultCols = 80
	cfg.Terminal.DefaultRows = 24
	return cfg
}

func spawnShell(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, err := New("test-"+t.Name(), "sh", nil, SpawnOptions{}, cfg, nil)
	if err != nil {
		t.Fatalf("spawn sh: %v", err)
	}
	t.Cleanup(func() { s.Kill() })
	return s
}

func waitForText(t *testing.T, s *Session, text string) {
	t.Helper()
	cond, _ := wait.Parse("text", text, "")
	engine := wait.NewEngine(20*time.Millisecond, 3, nil)
	res, err := engine.Wait(context.Background(), s, cond, 5*time.Second)
	if err != nil {
		t.Fatalf("wait for %q: %v", text, err)
	}
	if !res.Found {
		screen, _ := s.ScreenText()
		t.Fatalf("screen never showed %q; screen:\n%s", text, screen)
	}
}

func TestSessionEndToEnd(t *testing.T) {
	s := spawnShell(t, testConfig())

	if err := s.PtyWrite([]byte("echo hi\n")); err != nil {
		t.Fatalf("PtyWrite: %v", err)
	}
	waitForText(t, s, "hi")

	if err := s.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	screen, err := s.ScreenText()
	if err != nil {
		t.Fatalf("ScreenText: %v", err)
	}
	if !strings.Contains(screen, "hi") {
		t.Errorf("screen missing output:\n%s", screen)
	}

	running, err := s.IsRunning()
	if err != nil || !running {
		t.Errorf("IsRunning = %v, %v; want true, nil", running, err)
	}

	if err := s.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	running, err = s.IsRunning()
	if err != nil {
		t.Fatalf("IsRunning after kill: %v", err)
	}
	if running {
		t.Error("session still reported running after kill")
	}
}

func TestSessionTypeTextEchoes(t *testing.T) {
	s := spawnShell(t, testConfig())

	if err := s.TypeText("echo typed"); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	if err := s.Keystroke("enter"); err != nil {
		t.Fatalf("Keystroke: %v", err)
	}
	waitForText(t, s, "typed")
}

func TestSessionResize(t *testing.T) {
	s := spawnShell(t, testConfig())

	if err := s.Resize(120, 40); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Cols != 120 || snap.Rows != 40 {
		t.Errorf("size = %dx%d, want 120x40", snap.Cols, snap.Rows)
	}
}

func TestSessionResizeClamped(t *testing.T) {
	cfg := testConfig()
	s := spawnShell(t, cfg)

	tests := []struct {
		name               string
		cols, rows         int
		wantCols, wantRows int
	}{
		{"oversized", 10000, 10000, cfg.Terminal.MaxCols, cfg.Terminal.MaxRows},
		{"undersized", 1, 1, cfg.Terminal.MinCols, cfg.Terminal.MinRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Resize(tt.cols, tt.rows); err != nil {
				t.Fatalf("Resize: %v", err)
			}
			cols, rows, err := s.Size()
			if err != nil {
				t.Fatal(err)
			}
			if cols != tt.wantCols || rows != tt.wantRows {
				t.Errorf("size = %dx%d, want %dx%d", cols, rows, tt.wantCols, tt.wantRows)
			}
		})
	}
}

func TestSessionWriteAfterExit(t *testing.T) {
	s := spawnShell(t, testConfig())
	if err := s.Kill(); err != nil {
		t.Fatal(err)
	}
	if err := s.PtyWrite([]byte("x")); !errors.Is(err, errors.ErrSessionNotRunning) {
		t.Errorf("PtyWrite after kill = %v, want ErrSessionNotRunning", err)
	}
}

func TestSessionInvalidKeyRejected(t *testing.T) {
	s := spawnShell(t, testConfig())
	if err := s.Keystroke("bogus-key"); !errors.Is(err, errors.ErrInvalidKey) {
		t.Errorf("Keystroke err = %v, want ErrInvalidKey", err)
	}
}

func TestSpawnCommandNotFound(t *testing.T) {
	_, err := New("bad", "definitely-not-a-command-xyz", nil, SpawnOptions{}, testConfig(), nil)
	if err == nil {
		t.Fatal("expected spawn failure")
	}
	var pe *errors.PtyError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T, want PtyError", err)
	}
	if errors.IsRetryable(err) {
		t.Error("spawn failure must not be retryable")
	}
}

func TestSessionRecording(t *testing.T) {
	s := spawnShell(t, testConfig())

	if err := s.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	s.PtyWrite([]byte("echo frame1\n"))
	waitForText(t, s, "frame1")

	frames, err := s.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if len(frames) == 0 {
		t.Fatal("no frames recorded")
	}
	last := frames[len(frames)-1]
	if !strings.Contains(last.Text, "frame1") {
		t.Errorf("last frame missing output:\n%s", last.Text)
	}
}

func TestSessionTrace(t *testing.T) {
	s := spawnShell(t, testConfig())
	s.PtyWrite([]byte("echo x\n"))

	entries := s.Trace(10)
	if len(entries) == 0 {
		t.Fatal("trace empty after spawn and write")
	}
	if entries[0].Kind != "spawn" {
		t.Errorf("first trace entry kind = %q, want spawn", entries[0].Kind)
	}
}

func TestSessionAnalyzeScreen(t *testing.T) {
	s := spawnShell(t, testConfig())
	s.PtyWrite([]byte("printf '[OK]\\n'\n"))
	waitForText(t, s, "[OK]")

	as, err := s.AnalyzeScreen(false)
	if err != nil {
		t.Fatalf("AnalyzeScreen: %v", err)
	}
	if as.Stats.Total == 0 {
		t.Fatal("no components detected")
	}
	ref, el, ok := as.Refs.FindByName("*OK*")
	if !ok {
		t.Fatalf("no element matching *OK* in tree:\n%s", as.Tree)
	}
	if _, err := s.FindElement(ref); err != nil {
		t.Errorf("FindElement(%s): %v", ref, err)
	}
	if !strings.Contains(el.Name, "OK") {
		t.Errorf("element name = %q", el.Name)
	}
}

func TestSessionKillDuringHeavyOutput(t *testing.T) {
	cfg := testConfig()
	for i := 0; i < 5; i++ {
		s, err := New(fmt.Sprintf("flood-%d", i), "sh", []string{"-c", "yes"}, SpawnOptions{}, cfg, nil)
		if err != nil {
			t.Fatalf("spawn: %v", err)
		}
		// Kill while the reader is mid-stream; must not race on the PTY
		// handle under -race.
		time.Sleep(10 * time.Millisecond)
		if err := s.Kill(); err != nil {
			t.Fatalf("Kill: %v", err)
		}
	}
}

func TestSpawnWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := New("cwd-"+t.Name(), "sh", nil, SpawnOptions{Dir: dir}, testConfig(), nil)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	t.Cleanup(func() { s.Kill() })

	if err := s.PtyWrite([]byte("pwd\n")); err != nil {
		t.Fatalf("PtyWrite: %v", err)
	}
	waitForText(t, s, dir)
}

func TestSpawnExtraEnv(t *testing.T) {
	s, err := New("env-"+t.Name(), "sh", nil,
		SpawnOptions{Env: []string{"SESSION_GREETING=from_spawn_env"}}, testConfig(), nil)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	t.Cleanup(func() { s.Kill() })

	if err := s.PtyWrite([]byte("echo \"$SESSION_GREETING\"\n")); err != nil {
		t.Fatalf("PtyWrite: %v", err)
	}
	waitForText(t, s, "from_spawn_env")
}

func TestSpawnSize(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name               string
		cols, rows         int
		wantCols, wantRows int
	}{
		{"requested", 100, 30, 100, 30},
		{"default", 0, 0, cfg.Terminal.DefaultCols, cfg.Terminal.DefaultRows},
		{"clamped", 10000, 10000, cfg.Terminal.MaxCols, cfg.Terminal.MaxRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New("size-"+tt.name, "sh", nil,
				SpawnOptions{Cols: tt.cols, Rows: tt.rows}, cfg, nil)
			if err != nil {
				t.Fatalf("spawn: %v", err)
			}
			t.Cleanup(func() { s.Kill() })

			cols, rows, err := s.Size()
			if err != nil {
				t.Fatal(err)
			}
			if cols != tt.wantCols || rows != tt.wantRows {
				t.Errorf("size = %dx%d, want %dx%d", cols, rows, tt.wantCols, tt.wantRows)
			}
		})
	}
}

func TestDetectElementsInteractiveOnly(t *testing.T) {
	s := spawnShell(t, testConfig())
	s.PtyWrite([]byte("printf 'status text\\n[OK]\\n'\n"))
	waitForText(t, s, "[OK]")

	els, err := s.DetectElements()
	if err != nil {
		t.Fatalf("DetectElements: %v", err)
	}
	if len(els) == 0 {
		t.Fatal("no interactive elements detected")
	}
	for _, c := range els {
		if !c.Role.Interactive() {
			t.Errorf("non-interactive %s %q in result", c.Role, c.Text)
		}
	}
}

func TestFindElementReusesDetectedRefs(t *testing.T) {
	s := spawnShell(t, testConfig())
	s.PtyWrite([]byte("printf '[OK]\\n'\n"))
	waitForText(t, s, "[OK]")

	if _, err := s.DetectElements(); err != nil {
		t.Fatalf("DetectElements: %v", err)
	}
	el, err := s.FindElement("e1")
	if err != nil {
		t.Fatalf("FindElement(e1): %v", err)
	}
	// Same screen, same reference: repeated lookups must agree.
	el2, err := s.FindElement("e1")
	if err != nil {
		t.Fatalf("FindElement(e1) again: %v", err)
	}
	if el2.Name != el.Name || el2.Bounds != el.Bounds {
		t.Errorf("e1 resolved to %q then %q", el.Name, el2.Name)
	}
}

func TestSessionWaitStable(t *testing.T) {
	s := spawnShell(t, testConfig())
	s.PtyWrite([]byte("echo settled\n"))
	waitForText(t, s, "settled")

	cond, _ := wait.Parse("stable", "", "")
	engine := wait.NewEngine(10*time.Millisecond, 3, nil)
	res, err := engine.Wait(context.Background(), s, cond, 5*time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Found {
		t.Error("idle shell screen should stabilize")
	}
}
