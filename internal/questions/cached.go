package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ullas/internal/game"
)

// Cached keeps fetched sets in Redis for ttl. Cache errors fall through to
// the wrapped source.
type Cached struct {
	next   game.QuestionSource
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCached wraps next with a Redis cache
func NewCached(next game.QuestionSource, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: "ullas:questions:",
		logger: logger.With("component", "question-cache"),
	}
}

func (c *Cached) key(gameType game.GameType, sel game.Selector) string {
	return c.prefix + string(gameType) + ":" + string(sel.Language) + ":" + strconv.Itoa(sel.Level) + ":" + sel.QuizID
}

func (c *Cached) Fetch(ctx context.Context, gameType game.GameType, sel game.Selector) (game.QuestionSet, error) {
	key := c.key(gameType, sel)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var set game.QuestionSet
		if jsonErr := json.Unmarshal(raw, &set); jsonErr == nil {
			return set, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	set, err := c.next.Fetch(ctx, gameType, sel)
	if err != nil {
		return game.QuestionSet{}, err
	}

	data, err := json.Marshal(set)
	if err != nil {
		return set, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return set, nil
}

// Invalidate drops every cached set
func (c *Cached) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
