package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ullas/internal/game"
	"ullas/internal/lang"
	"ullas/internal/progress"
	"ullas/internal/repository"
)

// LeaderboardEntry is one row of the leaderboard
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         int64  `json:"userId"`
	UserName       string `json:"userName"`
	FullName       string `json:"fullName"`
	TotalScore     int    `json:"totalScore"`
	GamesCompleted int    `json:"gamesCompleted"`
	StreakDays     int    `json:"streakDays"`
}

// ProgressService wraps the progress store for game sessions and the
// dashboard. It satisfies game.ProgressStore.
type ProgressService struct {
	store    *progress.Store
	userRepo *repository.UserRepository
	mailer   Mailer
	logger   *slog.Logger

	// notifications run detached from the session that finished the game
	wg sync.WaitGroup
}

var _ game.ProgressStore = (*ProgressService)(nil)

// NewProgressService creates a progress service. mailer may be nil.
func NewProgressService(store *progress.Store, userRepo *repository.UserRepository, mailer Mailer, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{
		store:    store,
		userRepo: userRepo,
		mailer:   mailer,
		logger:   logger.With("component", "progress"),
	}
}

// Read returns the record for one game type
func (s *ProgressService) Read(ctx context.Context, userID int64, gameType string) (progress.Record, error) {
	return s.store.Read(ctx, userID, gameType)
}

// Update merges patch and sends a congratulation email when the game type
// has just been completed
func (s *ProgressService) Update(ctx context.Context, userID int64, gameType string, patch progress.Patch) (progress.Snapshot, error) {
	snap, err := s.store.Update(ctx, userID, gameType, patch)
	if err != nil {
		return snap, err
	}
	if snap.JustCompleted {
		s.logger.Info("game completed", "user_id", userID, "game", gameType, "score", snap.Record.Score)
		if s.mailer != nil && s.mailer.IsEnabled() {
			s.wg.Add(1)
			go s.notifyCompleted(userID, game.GameType(gameType), snap.Record.Score)
		}
	}
	return snap, nil
}

func (s *ProgressService) notifyCompleted(userID int64, gameType game.GameType, score int) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load learner for completion email", "user_id", userID, "error", err)
		return
	}
	if user == nil || user.Email == "" {
		return
	}

	title := string(gameType)
	if info, ok := game.Lookup(gameType); ok {
		title = info.TitleIn(lang.English)
	}
	if err := s.mailer.SendCompletionEmail(ctx, user.Email, user.FullName, title, score); err != nil {
		s.logger.Warn("failed to send completion email", "user_id", userID, "error", err)
	}
}

// Wait blocks until pending notifications finish
func (s *ProgressService) Wait() {
	s.wg.Wait()
}

// All returns every game record for the learner
func (s *ProgressService) All(ctx context.Context, userID int64) (map[string]progress.Record, error) {
	return s.store.All(ctx, userID)
}

// Stats returns the learner's aggregate
func (s *ProgressService) Stats(ctx context.Context, userID int64) (progress.Stats, error) {
	return s.store.Stats(ctx, userID)
}

// Leaderboard ranks learners by total score. Ties keep registration order.
func (s *ProgressService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	all, err := s.store.AllStats(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		stats, ok := all[u.ID]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:         u.ID,
			UserName:       u.UserName,
			FullName:       u.FullName,
			TotalScore:     stats.TotalScore,
			GamesCompleted: stats.GamesCompleted,
			StreakDays:     stats.StreakDays,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
