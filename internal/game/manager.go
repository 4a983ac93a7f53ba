package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ullas/internal/lang"
	"ullas/internal/narration"
)

// Manager owns the live sessions of every learner
type Manager struct {
	cfg       Config
	deps      Deps
	newID     func() string
	idleLimit time.Duration
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithIDGenerator overrides the uuid session ids
func WithIDGenerator(f func() string) ManagerOption {
	return func(m *Manager) { m.newID = f }
}

// WithIdleLimit sets how long an untouched session survives Sweep
func WithIdleLimit(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleLimit = d }
}

// NewManager creates a session manager
func NewManager(cfg Config, deps Deps, opts ...ManagerOption) *Manager {
	deps = deps.withDefaults()
	m := &Manager{
		cfg:       cfg,
		deps:      deps,
		newID:     uuid.NewString,
		idleLimit: 30 * time.Minute,
		logger:    deps.Logger.With("component", "game-manager"),
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a session for gameType and loads its questions. When the
// source fails the session is still registered in the Errored phase so the
// learner can restart it; the returned error wraps ErrDataUnavailable.
func (m *Manager) Start(ctx context.Context, userID int64, gameType GameType, sel Selector) (*Session, View, error) {
	info, ok := Lookup(gameType)
	if !ok {
		return nil, View{}, ErrUnknownGame
	}
	if !sel.Language.Valid() {
		sel.Language = lang.English
	}
	if info.ComingSoon {
		if m.deps.Narrators != nil {
			if n := m.deps.Narrators(userID, sel.Language); n != nil {
				n.Speak(narration.NewPhrasebook(sel.Language).ComingSoon(), false)
			}
		}
		return nil, View{}, ErrComingSoon
	}

	if sel.Level < 1 {
		sel.Level = 1
		if rec, err := m.deps.Progress.Read(ctx, userID, string(gameType)); err == nil {
			sel.Level = rec.Level
		} else {
			m.logger.Warn("failed to read level, defaulting to 1", "user_id", userID, "game", gameType, "error", err)
		}
	}

	s := newSession(m.newID(), userID, info, sel, m.cfg, m.deps)

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.deps.Metrics.SetActiveSessions(n)
	m.deps.Metrics.SessionStarted(string(gameType))

	view, err := s.Start(ctx)
	return s, view, err
}

// Get returns the learner's session with the given id
func (m *Manager) Get(id string, userID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Dispose discards the learner's session, as when navigating away
func (m *Manager) Dispose(id string, userID int64) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.userID != userID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	s.Dispose()
	m.deps.Metrics.SetActiveSessions(n)
	return nil
}

// DisposeUser discards every session of a learner and returns how many
func (m *Manager) DisposeUser(userID int64) int {
	return m.disposeWhere(func(s *Session) bool { return s.userID == userID })
}

// Sweep disposes sessions idle for longer than the idle limit
func (m *Manager) Sweep() int {
	cutoff := m.deps.Clock.Now().Add(-m.idleLimit)
	return m.disposeWhere(func(s *Session) bool { return s.LastActive().Before(cutoff) })
}

// Close disposes every session
func (m *Manager) Close() {
	m.disposeWhere(func(*Session) bool { return true })
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run sweeps idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("disposed idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) disposeWhere(match func(*Session) bool) int {
	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if match(s) {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range victims {
		s.Dispose()
	}
	if len(victims) > 0 {
		m.deps.Metrics.SetActiveSessions(n)
	}
	return len(victims)
}
