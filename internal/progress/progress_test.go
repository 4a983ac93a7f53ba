package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ullas/internal/kvstore"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestReadDefaultsWhenAbsent(t *testing.T) {
	s := NewStore(kvstore.NewMemory())
	r, err := s.Read(context.Background(), 1, "phonics")
	require.NoError(t, err)
	assert.Equal(t, Record{Level: 1, Score: 0, Completed: false}, r)
}

func TestUpdateNeverLowersScore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemory())

	_, err := s.Update(ctx, 1, "counting", Patch{Level: intp(2), Score: intp(40)})
	require.NoError(t, err)

	snap, err := s.Update(ctx, 1, "counting", Patch{Level: intp(3), Score: intp(20)})
	require.NoError(t, err)
	assert.Equal(t, 40, snap.Record.Score)
	assert.Equal(t, 3, snap.Record.Level)

	r, err := s.Read(ctx, 1, "counting")
	require.NoError(t, err)
	assert.Equal(t, 40, r.Score)
}

func TestUpdateClampsLevelAndCompletes(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemory())

	snap, err := s.Update(ctx, 1, "phonics", Patch{Level: intp(4), Score: intp(30), Completed: boolp(false)})
	require.NoError(t, err)
	assert.False(t, snap.Record.Completed)
	assert.False(t, snap.JustCompleted)

	snap, err = s.Update(ctx, 1, "phonics", Patch{Level: intp(9), Score: intp(50), Completed: boolp(true)})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLevel, snap.Record.Level)
	assert.True(t, snap.Record.Completed)
	assert.True(t, snap.JustCompleted)

	// replaying a completed game does not report completion again
	snap, err = s.Update(ctx, 1, "phonics", Patch{Level: intp(5), Score: intp(10), Completed: boolp(true)})
	require.NoError(t, err)
	assert.True(t, snap.Record.Completed)
	assert.False(t, snap.JustCompleted)
}

func TestStatsRecomputedOnUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemory(), WithMaxLevel(2))

	_, err := s.Update(ctx, 9, "phonics", Patch{Level: intp(2), Score: intp(50)})
	require.NoError(t, err)
	snap, err := s.Update(ctx, 9, "counting", Patch{Level: intp(1), Score: intp(30)})
	require.NoError(t, err)

	assert.Equal(t, 80, snap.Stats.TotalScore)
	assert.Equal(t, 1, snap.Stats.GamesCompleted)

	stats, err := s.Stats(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, snap.Stats.TotalScore, stats.TotalScore)
	assert.Equal(t, snap.Stats.GamesCompleted, stats.GamesCompleted)

	// other learners are unaffected
	other, err := s.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, other.TotalScore)
}

func TestInitializeKeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(kvstore.NewMemory(), WithNow(func() time.Time { return now }))

	_, err := s.Update(ctx, 1, "phonics", Patch{Level: intp(3), Score: intp(20)})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(ctx, 1, []string{"phonics", "counting"}))

	all, err := s.All(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Record{Level: 3, Score: 20}, all["phonics"])
	assert.Equal(t, DefaultRecord(), all["counting"])

	stats, err := s.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalScore)
	assert.True(t, stats.LastLoginDate.Equal(now))
}

func TestRecordLoginStreak(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(kvstore.NewMemory(), WithNow(func() time.Time { return day1 }))
	require.NoError(t, s.Initialize(ctx, 1, []string{"phonics"}))

	stats, err := s.RecordLogin(ctx, 1, day1.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.StreakDays, "same day login keeps the streak")

	stats, err = s.RecordLogin(ctx, 1, day1.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.StreakDays)

	stats, err = s.RecordLogin(ctx, 1, day1.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.StreakDays)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := NewStore(kv)

	_, err := s.Update(ctx, 1, "phonics", Patch{Score: intp(10)})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, 1))

	_, err = kv.Get(ctx, "progress:1")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	r, err := s.Read(ctx, 1, "phonics")
	require.NoError(t, err)
	assert.Equal(t, DefaultRecord(), r)
}

type failingKV struct{ kvstore.Store }

func (failingKV) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestUpdatePropagatesWriteFailure(t *testing.T) {
	s := NewStore(failingKV{kvstore.NewMemory()})
	_, err := s.Update(context.Background(), 1, "phonics", Patch{Score: intp(10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAllStats(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := NewStore(kv)

	_, err := s.Update(ctx, 1, "phonics", Patch{Score: intp(30)})
	require.NoError(t, err)
	_, err = s.Update(ctx, 2, "counting", Patch{Score: intp(50)})
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "stats:bogus", []byte(`{}`)))

	all, err := s.AllStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 30, all[1].TotalScore)
	assert.Equal(t, 50, all[2].TotalScore)
}
