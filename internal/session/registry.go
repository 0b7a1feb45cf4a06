package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/termpilot/termpilot/internal/config"
	"github.com/termpilot/termpilot/internal/errors"
	"github.com/termpilot/termpilot/internal/logging"
)

// Registry tracks all live sessions and the active one. Its mutex guards
// only the map and active pointer; it is never held across a session
// operation, so registry mutations do not block on any session's guard.
type Registry struct {
	mu      sync.RWMutex
	cfg     *config.Config
	logger  *logging.Logger
	items   map[string]*Session
	activeI string
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg *config.Config, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Registry{
		cfg:    cfg,
		logger: logger,
		items:  make(map[string]*Session),
	}
}

// Spawn creates a new session running command. An empty id gets a
// generated one. The new session becomes active. Spawning past the
// configured cap fails with a LimitError and leaves existing sessions
// untouched.
func (r *Registry) Spawn(id, command string, args []string, opts SpawnOptions) (*Session, error) {
	if id == "" {
		id = uuid.NewString()[:8]
	}

	r.mu.Lock()
	if len(r.items) >= r.cfg.Session.MaxSessions {
		r.mu.Unlock()
		return nil, errors.NewLimitError(r.cfg.Session.MaxSessions)
	}
	if _, exists := r.items[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", errors.ErrSessionExists, id)
	}
	// Reserve the slot before the (slow) spawn so concurrent spawns cannot
	// race past the cap, without holding the mutex across process startup.
	r.items[id] = nil
	r.mu.Unlock()

	s, err := New(id, command, args, opts, r.cfg, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		delete(r.items, id)
		return nil, err
	}
	r.items[id] = s
	r.activeI = id
	r.logger.Info("session registered", "session_id", id, "total", len(r.items))
	return s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	return s, nil
}

// Active returns the active session.
func (r *Registry) Active() (*Session, error) {
	r.mu.RLock()
	id := r.activeI
	r.mu.RUnlock()
	if id == "" {
		return nil, errors.ErrNoActiveSession
	}
	return r.Get(id)
}

// Resolve returns the session for id, falling back to the active session
// when id is empty.
func (r *Registry) Resolve(id string) (*Session, error) {
	if id == "" {
		return r.Active()
	}
	return r.Get(id)
}

// SetActive marks an existing session as active.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; !ok || s == nil {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, id)
	}
	r.activeI = id
	return nil
}

// List returns all session ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.items))
	for id, s := range r.items {
		if s != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Kill terminates and removes a session. Killing the active session
// clears the active pointer.
func (r *Registry) Kill(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := s.Kill(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	if r.activeI == id {
		r.activeI = ""
	}
	r.logger.Info("session removed", "session_id", id, "total", len(r.items))
	return nil
}

// KillAll terminates every session, keeping the first error.
func (r *Registry) KillAll() error {
	var first error
	for _, id := range r.List() {
		if err := r.Kill(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SessionCount returns the number of registered sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.items {
		if s != nil {
			n++
		}
	}
	return n
}

// ActiveSessionID returns the active session id, or "" when none.
func (r *Registry) ActiveSessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeI
}
