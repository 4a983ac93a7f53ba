package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ullas/internal/database"
)

// SQL stores entries in the kv_entries table of the application database
type SQL struct {
	db database.DBTX
}

// NewSQL creates a SQL-backed store
func NewSQL(db database.DBTX) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT kv_value FROM kv_entries WHERE kv_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.db.GetDialect().UpsertKVQuery(), key, string(value)); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE kv_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQL) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kv_key, kv_value FROM kv_entries WHERE kv_key LIKE ? ESCAPE '!'", escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out[k] = []byte(v)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
