// Package errors provides centralized error definitions and classification
// helpers for the termpilot core. It defines the sentinel errors surfaced by
// the session registry, the typed errors carrying operation context for PTY
// and lock failures, and helpers the transport layer uses to decide whether
// an operation is worth retrying.
//
// # Error Categories
//
// Sentinel errors cover registry-level conditions:
//   - ErrSessionNotFound, ErrElementNotFound: resource absent
//   - ErrSessionExists: explicit id collision on spawn
//   - ErrNoActiveSession: no session to fall back to when id omitted
//   - ErrInvalidKey: unknown logical key name
//
// Typed errors carry structured context:
//   - PtyError: PTY I/O failure tagged with the failing operation
//   - LockTimeoutError: session guard not acquired within budget
//   - LimitError: session cap reached
//   - PersistenceError: best-effort auxiliary state failure, never fatal
//
// # Retryability
//
// IsRetryable reports whether a failed operation may succeed if repeated:
// lock timeouts always, PTY reads and writes yes, PTY open/spawn/resize no.
// Callers should retry retryable errors with backoff and surface the rest
// immediately with the operation name and reason.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers can import only this
// package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for registry and session lookups.
var (
	// ErrSessionNotFound indicates that no session exists under the given id.
	ErrSessionNotFound = New("session not found")
	// ErrSessionExists indicates a spawn collided with an existing explicit id.
	ErrSessionExists = New("session already exists")
	// ErrNoActiveSession indicates that no session id was given and no
	// session is currently active.
	ErrNoActiveSession = New("no active session")
	// ErrElementNotFound indicates that an element reference did not resolve
	// against the current snapshot.
	ErrElementNotFound = New("element not found")
	// ErrInvalidKey indicates an unrecognized logical key name.
	ErrInvalidKey = New("invalid key name")
	// ErrSessionNotRunning indicates the child process has already exited.
	ErrSessionNotRunning = New("session not running")
)

// PtyOp identifies which PTY operation failed.
type PtyOp string

// PTY operations that can fail.
const (
	PtyOpOpen   PtyOp = "open"
	PtyOpSpawn  PtyOp = "spawn"
	PtyOpWrite  PtyOp = "write"
	PtyOpRead   PtyOp = "read"
	PtyOpResize PtyOp = "resize"
)

// retryable reports whether the operation is transient. Reads and writes can
// race a dying child and succeed on retry; open, spawn and resize failures
// reflect a condition a bare retry will not fix.
func (op PtyOp) retryable() bool {
	return op == PtyOpRead || op == PtyOpWrite
}

// PtyError wraps a PTY I/O failure with the failing operation name.
type PtyError struct {
	Op    PtyOp
	Cause error
}

// NewPtyError creates a PtyError for the given operation.
func NewPtyError(op PtyOp, cause error) *PtyError {
	return &PtyError{Op: op, Cause: cause}
}

// Error returns the formatted error message.
func (e *PtyError) Error() string {
	return fmt.Sprintf("pty %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PtyError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failed operation may succeed on retry.
func (e *PtyError) IsRetryable() bool {
	return e.Op.retryable()
}

// LockTimeoutError indicates the session guard could not be acquired within
// the caller's budget. Always retryable: the holder will eventually release.
type LockTimeoutError struct {
	SessionID string
	Timeout   string
}

// NewLockTimeoutError creates a LockTimeoutError for the given session.
func NewLockTimeoutError(sessionID, timeout string) *LockTimeoutError {
	return &LockTimeoutError{SessionID: sessionID, Timeout: timeout}
}

// Error returns the formatted error message.
func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("session %s: lock not acquired within %s", e.SessionID, e.Timeout)
}

// IsRetryable always reports true for lock timeouts.
func (e *LockTimeoutError) IsRetryable() bool {
	return true
}

// LimitError indicates the registry is at its configured session cap.
type LimitError struct {
	Max int
}

// NewLimitError creates a LimitError carrying the configured cap.
func NewLimitError(max int) *LimitError {
	return &LimitError{Max: max}
}

// Error returns the formatted error message.
func (e *LimitError) Error() string {
	return fmt.Sprintf("session limit reached (max %d)", e.Max)
}

// IsRetryable reports false: capacity does not free itself.
func (e *LimitError) IsRetryable() bool {
	return false
}

// PersistenceError wraps best-effort auxiliary state failures (trace or
// recording buffer problems). It is never fatal to the primary operation;
// callers log it and continue.
type PersistenceError struct {
	What  string
	Cause error
}

// NewPersistenceError creates a PersistenceError for the given subsystem.
func NewPersistenceError(what string, cause error) *PersistenceError {
	return &PersistenceError{What: what, Cause: cause}
}

// Error returns the formatted error message.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.What, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports false; persistence failures are logged, not retried.
func (e *PersistenceError) IsRetryable() bool {
	return false
}

// retryableError is implemented by typed errors that know their own
// retryability.
type retryableError interface {
	IsRetryable() bool
}

// IsRetryable reports whether err (or any error it wraps) represents a
// transient condition worth retrying with backoff.
func IsRetryable(err error) bool {
	for err != nil {
		if re, ok := err.(retryableError); ok {
			return re.IsRetryable()
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err represents an absent session or element.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrElementNotFound)
}
