package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"ullas/internal/kvstore"
)

// Registry hands out the single Engine belonging to each learner and
// persists the learner's voice preference under voice:<user>.
type Registry struct {
	player Player
	prefs  kvstore.Store
	opts   []EngineOption
	logger *slog.Logger

	mu      sync.Mutex
	engines map[int64]*Engine
}

// NewRegistry creates a registry. prefs may be nil, in which case voice
// preferences are not persisted.
func NewRegistry(player Player, prefs kvstore.Store, logger *slog.Logger, opts ...EngineOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		player:  player,
		prefs:   prefs,
		opts:    append([]EngineOption{WithLogger(logger)}, opts...),
		logger:  logger.With("component", "narration-registry"),
		engines: make(map[int64]*Engine),
	}
}

func voiceKey(userID int64) string { return "voice:" + strconv.FormatInt(userID, 10) }

// For returns the learner's engine, creating it on first use. The stored
// preference is read without holding the registry lock.
func (r *Registry) For(userID int64) *Engine {
	r.mu.Lock()
	e, ok := r.engines[userID]
	r.mu.Unlock()
	if ok {
		return e
	}

	enabled, found := r.loadPreference(userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[userID]; ok {
		return e
	}
	e = NewEngine(userID, r.player, r.opts...)
	if found {
		e.SetEnabled(enabled)
	}
	r.engines[userID] = e
	return e
}

// SetEnabled toggles and persists the learner's voice preference
func (r *Registry) SetEnabled(ctx context.Context, userID int64, enabled bool) error {
	r.For(userID).SetEnabled(enabled)
	if r.prefs == nil {
		return nil
	}
	if err := r.prefs.Put(ctx, voiceKey(userID), []byte(strconv.FormatBool(enabled))); err != nil {
		return fmt.Errorf("save voice preference: %w", err)
	}
	return nil
}

// Forget stops and drops the learner's engine, e.g. on logout
func (r *Registry) Forget(userID int64) {
	r.mu.Lock()
	e, ok := r.engines[userID]
	delete(r.engines, userID)
	r.mu.Unlock()
	if ok {
		e.Stop()
	}
}

// StopAll silences every engine during shutdown
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.engines {
		e.Stop()
	}
}

func (r *Registry) loadPreference(userID int64) (bool, bool) {
	if r.prefs == nil {
		return false, false
	}
	// lookups happen on first use only, so a short background context is fine here
	raw, err := r.prefs.Get(context.Background(), voiceKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, false
	}
	if err != nil {
		r.logger.Warn("failed to load voice preference", "user_id", userID, "error", err)
		return false, false
	}
	enabled, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, false
	}
	return enabled, true
}
