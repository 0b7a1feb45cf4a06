// Package session owns the live terminal sessions: PTY process control,
// the emulator fed from PTY output, buffers for tracing and recording,
// the guard serializing access, and the registry managing the set of
// sessions an agent can address.
package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/termpilot/termpilot/internal/capture"
	"github.com/termpilot/termpilot/internal/config"
	"github.com/termpilot/termpilot/internal/errors"
	"github.com/termpilot/termpilot/internal/logging"
	"github.com/termpilot/termpilot/internal/term"
	"github.com/termpilot/termpilot/internal/vom"
)

// Frame is one recorded screen state.
type Frame struct {
	Time time.Time
	Text string
}

// Session is one PTY-attached child process with its virtual terminal.
// All state-touching methods serialize through the guard; the only
// concurrent actor besides callers is the reader goroutine, which writes
// exclusively to the inbox ring.
type Session struct {
	ID      string
	Command string
	Args    []string

	guard  *Guard
	cfg    *config.Config
	logger *logging.Logger

	ptmx *os.File
	cmd  *exec.Cmd
	emu  *term.Emulator

	inbox  *capture.RingBuffer
	trace  *capture.EntryRing
	errlog *capture.EntryRing

	recording bool
	frames    []Frame

	// refs caches the element references of the last analyzed screen.
	// Cleared whenever new PTY output arrives, so a reference handed out
	// by one analysis resolves consistently until the screen changes.
	refs *vom.RefMap

	running    bool
	exitState  error
	readerDone chan struct{}
}

// SpawnOptions carries the optional per-session spawn parameters. Zero
// values fall back to the process environment and the configured terminal
// defaults; requested sizes are clamped to the configured bounds.
type SpawnOptions struct {
	// Dir is the child's working directory; empty means inherit.
	Dir string
	// Env is extra environment entries ("KEY=value") appended to the
	// inherited environment.
	Env []string
	// Cols and Rows size the PTY and emulator; zero means the default.
	Cols int
	Rows int
}

// New spawns command with args inside a fresh PTY. Spawn failures are
// reported as non-retryable PtyErrors tagged with the failing operation.
func New(id, command string, args []string, opts SpawnOptions, cfg *config.Config, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	cols, rows := opts.Cols, opts.Rows
	if cols == 0 {
		cols = cfg.Terminal.DefaultCols
	}
	if rows == 0 {
		rows = cfg.Terminal.DefaultRows
	}
	cols, rows = cfg.Terminal.ClampSize(cols, rows)

	s := &Session{
		ID:      id,
		Command: command,
		Args:    args,
		guard:   NewGuard(id),
		cfg:     cfg,
		logger:  logger.WithSession(id),
		emu: term.NewEmulatorWithScrollback(
			cols, rows, cfg.Terminal.ScrollbackLines),
		inbox:      capture.NewRingBuffer(cfg.Session.OutputBufferSize),
		trace:      capture.NewEntryRing(cfg.Session.TraceBufferEntries),
		errlog:     capture.NewEntryRing(cfg.Session.ErrorBufferEntries),
		readerDone: make(chan struct{}),
	}

	cmd := exec.Command(command, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
	if err != nil {
		op := errors.PtyOpOpen
		if cmd.Process == nil {
			// The PTY pair opened but the exec itself failed.
			if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) || os.IsPermission(err) {
				op = errors.PtyOpSpawn
			}
		}
		s.logger.Error("spawn failed", "command", command, "error", err.Error())
		return nil, errors.NewPtyError(op, err)
	}

	s.ptmx = ptmx
	s.cmd = cmd
	s.running = true
	s.trace.Append("spawn", fmt.Sprintf("%s pid=%d", command, cmd.Process.Pid))
	s.logger.Info("session spawned", "command", command, "pid", cmd.Process.Pid)

	go s.readLoop(ptmx)

	return s, nil
}

// readLoop copies PTY output into the inbox until the PTY closes. It never
// touches the emulator: Update drains the inbox under the guard. The PTY
// handle is passed in rather than read from the session so Kill can drop
// its reference without racing the reader.
func (s *Session) readLoop(ptmx *os.File) {
	defer close(s.readerDone)
	buf := make([]byte, 4096)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			s.inbox.Write(buf[:n])
		}
		if err != nil {
			// EIO is the normal Linux signal for "child side closed".
			if err != io.EOF && !errors.Is(err, syscall.EIO) {
				s.errlog.Append("read", err.Error())
			}
			return
		}
	}
}

// acquire takes the session guard within the configured budget. Recovered
// acquisitions are logged and counted but otherwise succeed.
func (s *Session) acquire() (*Acquired, error) {
	acq, err := s.guard.Acquire(s.cfg.Session.LockTimeout())
	if err != nil {
		return nil, err
	}
	if acq.Recovered {
		s.logger.Warn("recovered poisoned session guard",
			"recovered_total", s.guard.RecoveredCount())
		s.errlog.Append("guard", "recovered poisoned guard")
	}
	return acq, nil
}

// Update drains pending PTY output into the emulator and refreshes the
// running flag. Child exit is detected here, lazily, not via any
// asynchronous notification.
func (s *Session) Update() error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	s.updateLocked()
	return nil
}

func (s *Session) updateLocked() {
	if data := s.inbox.TakeAll(); len(data) > 0 {
		s.emu.Process(data)
		s.refs = nil
		if s.recording {
			s.recordFrameLocked()
		}
	}
	s.checkRunningLocked()
}

// checkRunningLocked probes the child for exit without blocking.
func (s *Session) checkRunningLocked() {
	if !s.running || s.cmd == nil || s.cmd.Process == nil {
		return
	}
	select {
	case <-s.readerDone:
		// Reader closed: the child has gone away. Reap it.
		s.exitState = s.cmd.Wait()
		s.running = false
		s.trace.Append("exit", fmt.Sprintf("%v", s.exitState))
		s.logger.Info("session exited", "error", fmt.Sprintf("%v", s.exitState))
	default:
		if err := s.cmd.Process.Signal(syscall.Signal(0)); err != nil {
			s.running = false
			s.trace.Append("exit", "process gone")
		}
	}
}

// IsRunning refreshes and reports whether the child is still alive.
func (s *Session) IsRunning() (bool, error) {
	acq, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer acq.Release()

	s.updateLocked()
	return s.running, nil
}

// ScreenText returns the current plain-text screen after draining pending
// output.
func (s *Session) ScreenText() (string, error) {
	acq, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer acq.Release()

	s.updateLocked()
	return s.emu.PlainText(), nil
}

// ScreenRender returns the screen with styling re-encoded as ANSI.
func (s *Session) ScreenRender() (string, error) {
	acq, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer acq.Release()

	s.updateLocked()
	return s.emu.Render(), nil
}

// Snapshot returns a copy-out snapshot of the current grid.
func (s *Session) Snapshot() (term.Snapshot, error) {
	acq, err := s.acquire()
	if err != nil {
		return term.Snapshot{}, err
	}
	defer acq.Release()

	s.updateLocked()
	return s.emu.Snapshot(), nil
}

// Cursor returns the current cursor position.
func (s *Session) Cursor() (term.Cursor, error) {
	acq, err := s.acquire()
	if err != nil {
		return term.Cursor{}, err
	}
	defer acq.Release()

	s.updateLocked()
	return s.emu.Cursor(), nil
}

// Size returns the current terminal dimensions.
func (s *Session) Size() (cols, rows int, err error) {
	acq, err := s.acquire()
	if err != nil {
		return 0, 0, err
	}
	defer acq.Release()

	cols, rows = s.emu.Size()
	return cols, rows, nil
}

// PtyWrite sends raw bytes to the child. Write failures are retryable
// PtyErrors.
func (s *Session) PtyWrite(data []byte) error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	return s.writeLocked(data, "write")
}

func (s *Session) writeLocked(data []byte, kind string) error {
	if !s.running {
		return errors.ErrSessionNotRunning
	}
	if _, err := s.ptmx.Write(data); err != nil {
		s.errlog.Append(kind, err.Error())
		return errors.NewPtyError(errors.PtyOpWrite, err)
	}
	s.trace.Append(kind, fmt.Sprintf("%d bytes", len(data)))
	return nil
}

// Keystroke sends one logical key.
func (s *Session) Keystroke(key string) error {
	seq, err := EncodeKey(key)
	if err != nil {
		return err
	}

	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	return s.writeLocked(seq, "key")
}

// TypeText sends text verbatim, as if typed.
func (s *Session) TypeText(text string) error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	return s.writeLocked([]byte(text), "type")
}

// KeyDown sends the key's byte sequence. PTYs carry no key transitions, so
// the press itself is the only observable event.
func (s *Session) KeyDown(key string) error {
	return s.Keystroke(key)
}

// KeyUp records the release in the trace. There is nothing to send: the
// terminal byte stream has no release events.
func (s *Session) KeyUp(key string) error {
	if _, err := EncodeKey(key); err != nil {
		return err
	}

	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	s.trace.Append("keyup", key)
	return nil
}

// Resize clamps the requested size to the configured bounds and applies it
// to both the PTY and the emulator.
func (s *Session) Resize(cols, rows int) error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	cols, rows = s.cfg.Terminal.ClampSize(cols, rows)

	if s.running {
		if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
			s.errlog.Append("resize", err.Error())
			return errors.NewPtyError(errors.PtyOpResize, err)
		}
	}
	s.emu.Resize(cols, rows)
	s.trace.Append("resize", fmt.Sprintf("%dx%d", cols, rows))
	return nil
}

// Kill terminates the child and releases the PTY. Idempotent.
func (s *Session) Kill() error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	if s.cmd != nil && s.cmd.Process != nil && s.running {
		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Warn("kill signal failed", "error", err.Error())
		}
		s.exitState = s.cmd.Wait()
		s.running = false
	}
	if s.ptmx != nil {
		s.ptmx.Close()
		s.ptmx = nil
	}
	s.trace.Append("kill", "")
	s.logger.Info("session killed")
	return nil
}

// AnalyzeScreen runs the VOM pipeline and returns the accessibility
// snapshot for the current screen.
func (s *Session) AnalyzeScreen(interactiveOnly bool) (*vom.AccessibilitySnapshot, error) {
	acq, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer acq.Release()

	s.updateLocked()
	snap := s.emu.Snapshot()
	analysis := vom.Analyze(&snap)
	as := vom.BuildSnapshot(analysis, vom.SnapshotOptions{InteractiveOnly: interactiveOnly})
	if !interactiveOnly {
		// A filtered tree renumbers its references; only the full map is
		// safe to reuse for later lookups.
		s.refs = as.Refs
	}
	return as, nil
}

// DetectElements returns the interactive components on the current screen.
// The full reference map is cached alongside, so a reference taken from the
// result resolves through FindElement until the screen changes.
func (s *Session) DetectElements() ([]vom.Component, error) {
	acq, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer acq.Release()

	s.updateLocked()
	snap := s.emu.Snapshot()
	analysis := vom.Analyze(&snap)
	s.refs = vom.BuildSnapshot(analysis, vom.SnapshotOptions{}).Refs

	var out []vom.Component
	for _, c := range analysis.Components {
		if c.Role.Interactive() {
			out = append(out, c)
		}
	}
	return out, nil
}

// refsLocked returns the reference map for the current screen, reusing the
// cached map when no output has arrived since the last analysis.
func (s *Session) refsLocked() *vom.RefMap {
	if s.refs == nil {
		snap := s.emu.Snapshot()
		analysis := vom.Analyze(&snap)
		s.refs = vom.BuildSnapshot(analysis, vom.SnapshotOptions{}).Refs
	}
	return s.refs
}

// FindElement resolves a snapshot reference ("e3") against the current
// screen.
func (s *Session) FindElement(ref string) (vom.ElementRef, error) {
	acq, err := s.acquire()
	if err != nil {
		return vom.ElementRef{}, err
	}
	defer acq.Release()

	s.updateLocked()
	el, ok := s.refsLocked().Get(ref)
	if !ok {
		return vom.ElementRef{}, fmt.Errorf("%w: %s", errors.ErrElementNotFound, ref)
	}
	return el, nil
}

// FindByName resolves an element by name or glob pattern against the
// current screen.
func (s *Session) FindByName(pattern string) (string, vom.ElementRef, error) {
	acq, err := s.acquire()
	if err != nil {
		return "", vom.ElementRef{}, err
	}
	defer acq.Release()

	s.updateLocked()
	ref, el, ok := s.refsLocked().FindByName(pattern)
	if !ok {
		return "", vom.ElementRef{}, fmt.Errorf("%w: %s", errors.ErrElementNotFound, pattern)
	}
	return ref, el, nil
}

// Refresh implements the wait engine's target surface.
func (s *Session) Refresh() error {
	return s.Update()
}

// LookupElement implements the wait engine's target surface: it resolves a
// reference or name pattern, reporting absence without error.
func (s *Session) LookupElement(ref string) (vom.ElementRef, bool, error) {
	acq, err := s.acquire()
	if err != nil {
		return vom.ElementRef{}, false, err
	}
	defer acq.Release()

	s.updateLocked()
	refs := s.refsLocked()
	if el, ok := refs.Get(ref); ok {
		return el, true, nil
	}
	if _, el, ok := refs.FindByName(ref); ok {
		return el, true, nil
	}
	return vom.ElementRef{}, false, nil
}

// StartRecording begins capturing a frame on every screen change.
func (s *Session) StartRecording() error {
	acq, err := s.acquire()
	if err != nil {
		return err
	}
	defer acq.Release()

	s.recording = true
	s.frames = s.frames[:0]
	s.recordFrameLocked()
	return nil
}

// StopRecording ends capture and returns the recorded frames.
func (s *Session) StopRecording() ([]Frame, error) {
	acq, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer acq.Release()

	s.recording = false
	frames := make([]Frame, len(s.frames))
	copy(frames, s.frames)
	return frames, nil
}

// recordFrameLocked appends the current screen, evicting the oldest frame
// at the configured cap. Recording problems never fail the primary
// operation; they land in the error ring as persistence issues.
func (s *Session) recordFrameLocked() {
	max := s.cfg.Session.RecordingMaxFrames
	if max <= 0 {
		s.errlog.Append("recording", errors.NewPersistenceError("recording", fmt.Errorf("frame cap %d", max)).Error())
		return
	}
	if len(s.frames) >= max {
		copy(s.frames, s.frames[1:])
		s.frames = s.frames[:len(s.frames)-1]
	}
	s.frames = append(s.frames, Frame{Time: time.Now(), Text: s.emu.PlainText()})
}

// Trace returns the most recent n trace entries.
func (s *Session) Trace(n int) []capture.Entry {
	return s.trace.Last(n)
}

// Errors returns the most recent n error entries.
func (s *Session) Errors(n int) []capture.Entry {
	return s.errlog.Last(n)
}
