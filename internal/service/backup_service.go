package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"ullas/internal/database"
	"ullas/internal/kvstore"
	"ullas/internal/models"
	"ullas/internal/repository"
)

const backupVersion = "2.0"

// BackupPrefixes are the KV key families carried in a backup
var BackupPrefixes = []string{"progress:", "stats:", "voice:"}

// BackupData represents the complete backup structure
type BackupData struct {
	Version    string       `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	Users      []UserBackup `json:"users"`
	Entries    []KVBackup   `json:"entries"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64      `json:"id"`
	UserName     string     `json:"user_name"`
	FullName     string     `json:"full_name"`
	Gender       string     `json:"gender"`
	Age          int        `json:"age"`
	State        string     `json:"state"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"password_hash"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// KVBackup is one progress, stats or voice entry. Values are JSON documents.
type KVBackup struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ImportStats reports what an import restored
type ImportStats struct {
	Users   int
	Entries int
}

// BackupService handles backup and restore of accounts and learner state
type BackupService struct {
	db     *database.DB
	kv     kvstore.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewBackupService creates a new backup service. kv is the store progress
// lives in, which may not be the SQL database.
func NewBackupService(db *database.DB, kv kvstore.Store, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupService{db: db, kv: kv, now: time.Now, logger: logger.With("component", "backup")}
}

// Export collects users and KV entries
func (s *BackupService) Export(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:    backupVersion,
		ExportedAt: s.now().UTC(),
		Users:      []UserBackup{},
		Entries:    []KVBackup{},
	}

	users, err := repository.NewUserRepository(s.db).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:           u.ID,
			UserName:     u.UserName,
			FullName:     u.FullName,
			Gender:       u.Gender,
			Age:          u.Age,
			State:        u.State,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
			LastLogin:    u.LastLogin,
		})
	}

	for _, prefix := range BackupPrefixes {
		entries, err := s.kv.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s entries: %w", prefix, err)
		}
		for k, v := range entries {
			if !json.Valid(v) {
				return nil, fmt.Errorf("entry %s is not valid JSON", k)
			}
			backup.Entries = append(backup.Entries, KVBackup{Key: k, Value: json.RawMessage(v)})
		}
	}
	sort.Slice(backup.Entries, func(i, j int) bool { return backup.Entries[i].Key < backup.Entries[j].Key })

	s.logger.Info("export collected", "users", len(backup.Users), "entries", len(backup.Entries))
	return backup, nil
}

// ExportToWriter writes the backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.Export(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// ImportFromReader restores a backup. Users are restored in one
// transaction, replacing every existing account and session. KV entries are
// written afterwards and overwrite entries with the same key.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return ImportStats{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return ImportStats{}, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.logger.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
			return fmt.Errorf("failed to clear sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		repo := repository.NewUserRepository(tx)
		for _, u := range backup.Users {
			if err := repo.RestoreUser(ctx, &models.User{
				ID:           u.ID,
				UserName:     u.UserName,
				FullName:     u.FullName,
				Gender:       u.Gender,
				Age:          u.Age,
				State:        u.State,
				Email:        u.Email,
				PasswordHash: u.PasswordHash,
				Role:         u.Role,
				CreatedAt:    u.CreatedAt,
				UpdatedAt:    u.UpdatedAt,
				LastLogin:    u.LastLogin,
			}); err != nil {
				return err
			}
		}
		if q := tx.GetDialect().ResetSequenceQuery("users"); q != "" {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to reset user id sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	for _, e := range backup.Entries {
		if err := s.kv.Put(ctx, e.Key, e.Value); err != nil {
			return ImportStats{Users: len(backup.Users)}, fmt.Errorf("failed to restore %s: %w", e.Key, err)
		}
	}

	stats := ImportStats{Users: len(backup.Users), Entries: len(backup.Entries)}
	s.logger.Info("import completed", "users", stats.Users, "entries", stats.Entries)
	return stats, nil
}
