package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ullas/internal/game"
	"ullas/internal/models"
	"ullas/internal/validation"
)

func TestRegisterSeedsProgressAndSignsIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := f.auth()

	res, err := auth.Register(ctx, validRegistration("sita"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "female", res.User.Gender)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	require.NotNil(t, res.User.LastLogin)

	records, err := f.store.All(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Len(t, records, len(game.PlayableTypes()))
	for gt, r := range records {
		assert.Equal(t, 1, r.Level, gt)
	}

	stats, err := f.store.Stats(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.StreakDays)

	sent := f.mail.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "welcome", sent[0].kind)
	assert.Equal(t, "sita@example.com", sent[0].to)

	user, err := auth.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := f.auth()

	_, err := auth.Register(ctx, validRegistration("ram"))
	require.NoError(t, err)

	_, err = auth.Register(ctx, validRegistration("ram"))
	assert.ErrorIs(t, err, ErrUserNameTaken)

	in := validRegistration("mohan")
	in.Age = 2
	_, err = auth.Register(ctx, in)
	var verr validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "age", verr.Field)

	in = validRegistration("mohan")
	in.Email = "not-an-email"
	_, err = auth.Register(ctx, in)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)

	in = validRegistration("mohan")
	in.Email = ""
	_, err = auth.Register(ctx, in)
	require.NoError(t, err, "email is optional")
}

func TestLoginStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := f.auth()

	_, err := auth.Register(ctx, validRegistration("gita"))
	require.NoError(t, err)

	_, err = auth.Login(ctx, "gita", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody", "pass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	f.now = f.now.Add(2 * time.Hour)
	res, err := auth.Login(ctx, "gita", "pass1")
	require.NoError(t, err)
	stats, err := f.store.Stats(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.StreakDays, "same day keeps the streak")

	f.now = f.now.Add(24 * time.Hour)
	_, err = auth.Login(ctx, "gita", "pass1")
	require.NoError(t, err)
	stats, err = f.store.Stats(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.StreakDays)

	stored, err := f.users.GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, f.now.Equal(*stored.LastLogin))
}

func TestTokenLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := f.auth()

	res, err := auth.Register(ctx, validRegistration("radha"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(f.users, f.store, "other-secret", time.Hour, nil)
	_, err = other.ValidateToken(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, auth.Logout(ctx, res.Token))
	_, err = auth.ValidateToken(ctx, res.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, auth.Logout(ctx, "garbage"))

	res, err = auth.Login(ctx, "radha", "pass1")
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)
	_, err = auth.ValidateToken(ctx, res.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	require.NoError(t, auth.CleanupExpiredSessions(ctx))
	s, err := f.users.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestProfileUpdateAndPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := f.auth()

	res, err := auth.Register(ctx, validRegistration("lakshmi"))
	require.NoError(t, err)

	updated, err := auth.UpdateProfile(ctx, res.User.ID, ProfileUpdate{
		FullName: "Lakshmi Bai",
		Gender:   "OTHER",
		Age:      51,
		State:    "Kerala",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lakshmi Bai", updated.FullName)
	assert.Equal(t, "other", updated.Gender)
	assert.Equal(t, "Kerala", updated.State)
	assert.Empty(t, updated.Email)

	_, err = auth.UpdateProfile(ctx, res.User.ID, ProfileUpdate{FullName: "X", Gender: "male", Age: 30, State: "Goa"})
	assert.Error(t, err)

	_, err = auth.Profile(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, auth.ChangePassword(ctx, res.User.ID, "wrong", "newpass"), ErrInvalidCredentials)
	require.NoError(t, auth.ChangePassword(ctx, res.User.ID, "pass1", "newpass"))
	_, err = auth.Login(ctx, "lakshmi", "newpass")
	assert.NoError(t, err)
}
