package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ullas/internal/clock"
	"ullas/internal/game"
	"ullas/internal/kvstore"
	"ullas/internal/models"
	"ullas/internal/progress"
	"ullas/internal/questions"
	"ullas/internal/security"
)

type stubValidator map[string]*models.User

func (s stubValidator) ValidateToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, game.GameType, game.Selector) (game.QuestionSet, error) {
	return game.QuestionSet{}, errors.New("upstream down")
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t     *testing.T
	mux   *http.ServeMux
	clock *clock.Fake
	cfg   game.Config
}

func newServer(t *testing.T, source game.QuestionSource) *server {
	t.Helper()
	if source == nil {
		local, err := questions.NewLocal("")
		require.NoError(t, err)
		source = local
	}

	fake := clock.NewFake(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	cfg := game.DefaultConfig()
	manager := game.NewManager(cfg, game.Deps{
		Source:   source,
		Progress: progress.NewStore(kvstore.NewMemory()),
		Clock:    fake,
	})
	t.Cleanup(manager.Close)

	validator := stubValidator{
		"t1": {ID: 1, UserName: "sita", Role: models.RoleLearner},
		"t2": {ID: 2, UserName: "gita", Role: models.RoleLearner},
	}
	mux := http.NewServeMux()
	Router{
		Middleware: NewMiddleware(validator, security.NewRateLimiter(100, time.Minute), nil),
		Games:      NewGameHandler(manager, nil),
	}.Register(mux)

	return &server{t: t, mux: mux, clock: fake, cfg: cfg}
}

func (s *server) do(method, path, token string, body any) (int, envelope, http.Header) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env, rec.Header()
}

func decodeView(t *testing.T, env envelope) game.View {
	t.Helper()
	var v game.View
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestGameFlowOverHTTP(t *testing.T) {
	s := newServer(t, nil)

	code, _, _ := s.do("POST", "/api/games/counting/sessions", "", map[string]any{"language": "en"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env, _ := s.do("POST", "/api/games/counting/sessions", "t1", map[string]any{"language": "en", "level": 1})
	require.Equal(t, http.StatusCreated, code, env.Message)
	view := decodeView(t, env)
	assert.Equal(t, "presenting", view.Phase)
	assert.Equal(t, "counting-en-1", view.QuizID)
	require.NotNil(t, view.Question)
	assert.Equal(t, []string{"2", "3", "4", "5"}, view.Question.Options)
	assert.Nil(t, view.Result, "answer stays hidden while presenting")

	base := "/api/sessions/" + view.ID

	code, env, _ = s.do("POST", base+"/answer", "t1", map[string]string{"value": "99"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, env, _ = s.do("POST", base+"/answer", "t1", map[string]string{"value": "3"})
	require.Equal(t, http.StatusOK, code, env.Message)
	view = decodeView(t, env)
	assert.Equal(t, "locked", view.Phase)
	assert.Equal(t, 10, view.Score)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.Correct)

	code, _, _ = s.do("POST", base+"/answer", "t1", map[string]string{"value": "3"})
	assert.Equal(t, http.StatusConflict, code, "second answer while locked")

	code, _, _ = s.do("POST", base+"/tile", "t1", map[string]any{"token": "x", "index": 0})
	assert.Equal(t, http.StatusConflict, code)

	s.clock.Advance(s.cfg.Dwell)

	code, env, _ = s.do("GET", base, "t1", nil)
	require.Equal(t, http.StatusOK, code)
	view = decodeView(t, env)
	assert.Equal(t, "presenting", view.Phase)
	assert.Equal(t, 1, view.Index)

	code, _, _ = s.do("GET", base, "t2", nil)
	assert.Equal(t, http.StatusNotFound, code, "sessions are private to their learner")

	code, _, _ = s.do("DELETE", base, "t1", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _, _ = s.do("GET", base, "t1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStartErrors(t *testing.T) {
	s := newServer(t, nil)

	code, env, _ := s.do("POST", "/api/games/reading/sessions", "t1", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "This game is coming soon", env.Message)

	code, _, _ = s.do("POST", "/api/games/chess/sessions", "t1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStartWithSourceDown(t *testing.T) {
	s := newServer(t, failingSource{})

	code, env, header := s.do("POST", "/api/games/phonics/sessions", "t1", nil)
	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, RetryAfterSeconds, header.Get("Retry-After"))
	assert.Equal(t, ErrQuestionsDown, env.Message)

	view := decodeView(t, env)
	assert.Equal(t, "errored", view.Phase)
	require.NotEmpty(t, view.ID)

	// the errored session stays addressable so it can be restarted
	code, _, _ = s.do("POST", "/api/sessions/"+view.ID+"/restart", "t1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestWordPuzzleTilesOverHTTP(t *testing.T) {
	s := newServer(t, nil)

	code, env, _ := s.do("POST", "/api/games/word-puzzle/sessions", "t1", map[string]any{"language": "hi"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	view := decodeView(t, env)
	require.NotNil(t, view.Question)
	require.Equal(t, game.SequenceBuild, view.Question.Kind)

	code, _, _ = s.do("POST", "/api/sessions/"+view.ID+"/tile", "t1", map[string]any{"token": "x"})
	assert.Equal(t, http.StatusBadRequest, code, "index is required")

	code, _, _ = s.do("POST", "/api/sessions/"+view.ID+"/tile", "t1", map[string]any{"token": view.Question.Tiles[0], "index": 99})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = s.do("POST", "/api/sessions/"+view.ID+"/answer", "t1", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, code, "discrete answer on a sequence question")
}

func TestCatalogLocalized(t *testing.T) {
	s := newServer(t, nil)

	code, env, _ := s.do("GET", "/api/games?language=hi", "", nil)
	require.Equal(t, http.StatusOK, code)

	var entries []catalogEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, len(game.Catalog()))
	assert.Equal(t, "ध्वनि खेल", entries[0].Title)
	assert.True(t, entries[len(entries)-1].ComingSoon)
}
