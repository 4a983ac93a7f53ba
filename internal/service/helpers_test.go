package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ullas/internal/database"
	"ullas/internal/kvstore"
	"ullas/internal/progress"
	"ullas/internal/repository"
)

type sentMail struct {
	kind  string
	to    string
	name  string
	title string
	score int
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) IsEnabled() bool { return true }

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, to, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "welcome", to: to, name: name})
	return m.err
}

func (m *fakeMailer) SendCompletionEmail(_ context.Context, to, name, title string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "completion", to: to, name: name, title: title, score: score})
	return m.err
}

func (m *fakeMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fixture struct {
	db    *database.DB
	kv    *kvstore.Memory
	store *progress.Store
	users *repository.UserRepository
	mail  *fakeMailer
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:    db,
		kv:    kvstore.NewMemory(),
		users: repository.NewUserRepository(db),
		mail:  &fakeMailer{},
		now:   time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.store = progress.NewStore(f.kv, progress.WithNow(func() time.Time { return f.now }))
	return f
}

func (f *fixture) auth() *AuthService {
	return NewAuthService(f.users, f.store, "test-secret", time.Hour, nil,
		WithMailer(f.mail),
		WithAuthClock(func() time.Time { return f.now }),
	)
}

func validRegistration(userName string) RegisterInput {
	return RegisterInput{
		FullName: "सीता देवी",
		UserName: userName,
		Gender:   "Female",
		Age:      34,
		State:    "Bihar",
		Email:    userName + "@example.com",
		Password: "pass1",
	}
}
