// Package progress keeps per-learner level and score records for every game
// type plus the aggregate stats shown on the dashboard.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ullas/internal/kvstore"
)

// DefaultMaxLevel is the level at which a game type counts as completed
const DefaultMaxLevel = 5

// Record is the persisted progress for one game type
type Record struct {
	Level     int  `json:"level"`
	Score     int  `json:"score"`
	Completed bool `json:"completed"`
}

// DefaultRecord is what a learner starts with
func DefaultRecord() Record {
	return Record{Level: 1}
}

// Stats is the aggregate view across game types
type Stats struct {
	TotalScore     int       `json:"totalScore"`
	GamesCompleted int       `json:"gamesCompleted"`
	StreakDays     int       `json:"streakDays"`
	LastLoginDate  time.Time `json:"lastLoginDate"`
}

// Patch carries the fields to merge into a record. Nil fields are left alone.
type Patch struct {
	Level     *int
	Score     *int
	Completed *bool
}

// Snapshot is the state after an update
type Snapshot struct {
	Record Record
	Stats  Stats
	// JustCompleted is set when this update flipped Completed to true
	JustCompleted bool
}

// Store persists records through a kvstore.Store.
// Keys are progress:<user> (map of game type to Record) and stats:<user>.
type Store struct {
	kv       kvstore.Store
	maxLevel int
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithMaxLevel overrides DefaultMaxLevel
func WithMaxLevel(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLevel = n
		}
	}
}

// WithNow overrides the time source used for new stats
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a progress store over kv
func NewStore(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{kv: kv, maxLevel: DefaultMaxLevel, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLevel returns the configured level cap
func (s *Store) MaxLevel() int {
	return s.maxLevel
}

func progressKey(userID int64) string { return "progress:" + strconv.FormatInt(userID, 10) }
func statsKey(userID int64) string    { return "stats:" + strconv.FormatInt(userID, 10) }

// Initialize writes default records for each game type and fresh stats.
// Existing records are kept.
func (s *Store) Initialize(ctx context.Context, userID int64, gameTypes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		return err
	}
	for _, gt := range gameTypes {
		if _, ok := records[gt]; !ok {
			records[gt] = DefaultRecord()
		}
	}
	if err := s.putJSON(ctx, progressKey(userID), records); err != nil {
		return err
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return err
	}
	if stats.LastLoginDate.IsZero() {
		stats.LastLoginDate = s.now()
	}
	return s.putJSON(ctx, statsKey(userID), aggregate(records, stats))
}

// Read returns the record for gameType, or the default when absent
func (s *Store) Read(ctx context.Context, userID int64, gameType string) (Record, error) {
	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if r, ok := records[gameType]; ok {
		return r, nil
	}
	return DefaultRecord(), nil
}

// All returns every stored record for the user
func (s *Store) All(ctx context.Context, userID int64) (map[string]Record, error) {
	return s.loadRecords(ctx, userID)
}

// Update merges patch into the record for gameType and recomputes stats.
// The stored score and level never decrease and Completed never resets.
func (s *Store) Update(ctx context.Context, userID int64, gameType string, patch Patch) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	old, ok := records[gameType]
	if !ok {
		old = DefaultRecord()
	}

	next := old
	if patch.Level != nil {
		next.Level = max(old.Level, min(*patch.Level, s.maxLevel))
	}
	if patch.Score != nil {
		next.Score = max(old.Score, *patch.Score)
	}
	if patch.Completed != nil {
		next.Completed = old.Completed || *patch.Completed
	}
	if next.Level >= s.maxLevel {
		next.Completed = true
	}
	records[gameType] = next

	if err := s.putJSON(ctx, progressKey(userID), records); err != nil {
		return Snapshot{}, err
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	stats = aggregate(records, stats)
	if err := s.putJSON(ctx, statsKey(userID), stats); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Record:        next,
		Stats:         stats,
		JustCompleted: !old.Completed && next.Completed,
	}, nil
}

// Stats returns the aggregate for the user
func (s *Store) Stats(ctx context.Context, userID int64) (Stats, error) {
	return s.loadStats(ctx, userID)
}

// AllStats returns the aggregate of every learner that has one, keyed by
// user id. Entries with a malformed key are skipped.
func (s *Store) AllStats(ctx context.Context) (map[int64]Stats, error) {
	entries, err := s.kv.List(ctx, "stats:")
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	out := make(map[int64]Stats, len(entries))
	for key, raw := range entries {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "stats:"), 10, 64)
		if err != nil {
			continue
		}
		var stats Stats
		if err := json.Unmarshal(raw, &stats); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out[id] = stats
	}
	return out, nil
}

// RecordLogin stamps the login time and bumps the streak when the calendar
// day differs from the previous login.
func (s *Store) RecordLogin(ctx context.Context, userID int64, at time.Time) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	if stats.LastLoginDate.IsZero() || !sameDay(stats.LastLoginDate, at) {
		stats.StreakDays++
	}
	stats.LastLoginDate = at
	if err := s.putJSON(ctx, statsKey(userID), stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Delete removes every record for the user
func (s *Store) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, progressKey(userID)); err != nil {
		return err
	}
	return s.kv.Delete(ctx, statsKey(userID))
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func aggregate(records map[string]Record, stats Stats) Stats {
	stats.TotalScore = 0
	stats.GamesCompleted = 0
	for _, r := range records {
		stats.TotalScore += r.Score
		if r.Completed {
			stats.GamesCompleted++
		}
	}
	return stats
}

func (s *Store) loadRecords(ctx context.Context, userID int64) (map[string]Record, error) {
	records := make(map[string]Record)
	if err := s.getJSON(ctx, progressKey(userID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) loadStats(ctx context.Context, userID int64) (Stats, error) {
	var stats Stats
	if err := s.getJSON(ctx, statsKey(userID), &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
