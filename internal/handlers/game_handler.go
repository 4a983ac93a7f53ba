package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ullas/internal/game"
	"ullas/internal/lang"
)

// GameHandler serves the catalog and the per-session quiz API
type GameHandler struct {
	sessions *game.Manager
	logger   *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(sessions *game.Manager, logger *slog.Logger) *GameHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameHandler{sessions: sessions, logger: logger.With("component", "game-http")}
}

type startRequest struct {
	Language string `json:"language"`
	Level    int    `json:"level"`
	QuizID   string `json:"quizId"`
}

type answerRequest struct {
	Value string `json:"value"`
}

type tileRequest struct {
	Token string `json:"token"`
	Index *int   `json:"index"`
}

type catalogEntry struct {
	Type       game.GameType `json:"type"`
	Kind       game.Kind     `json:"kind,omitempty"`
	Title      string        `json:"title"`
	ComingSoon bool          `json:"comingSoon"`
}

// Catalog handles GET /api/games?language=hi
func (h *GameHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	l := lang.Parse(r.URL.Query().Get("language"))
	var out []catalogEntry
	for _, info := range game.Catalog() {
		out = append(out, catalogEntry{
			Type:       info.Type,
			Kind:       info.Kind,
			Title:      info.TitleIn(l),
			ComingSoon: info.ComingSoon,
		})
	}
	respondJSON(w, http.StatusOK, "", out)
}

// Start handles POST /api/games/{gameType}/sessions
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req startRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
			return
		}
	}

	sel := game.Selector{
		Level:    req.Level,
		Language: lang.Parse(req.Language),
		QuizID:   req.QuizID,
	}
	_, view, err := h.sessions.Start(r.Context(), user.ID, game.GameType(r.PathValue("gameType")), sel)
	if err != nil {
		h.respondGameError(w, err, view)
		return
	}
	respondJSON(w, http.StatusCreated, "", view)
}

// Get handles GET /api/sessions/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, "", s.View())
}

// Answer handles POST /api/sessions/{id}/answer
func (h *GameHandler) Answer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}

	view, err := s.SubmitAnswer(req.Value)
	if err != nil {
		h.respondGameError(w, err, view)
		return
	}
	respondJSON(w, http.StatusOK, "", view)
}

// Tile handles POST /api/sessions/{id}/tile
func (h *GameHandler) Tile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req tileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	if req.Index == nil {
		respondWithError(w, http.StatusBadRequest, "index is required", "", nil)
		return
	}

	view, err := s.SubmitTile(req.Token, *req.Index)
	if err != nil {
		h.respondGameError(w, err, view)
		return
	}
	respondJSON(w, http.StatusOK, "", view)
}

// Restart handles POST /api/sessions/{id}/restart
func (h *GameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.Restart(r.Context())
	if err != nil {
		h.respondGameError(w, err, view)
		return
	}
	respondJSON(w, http.StatusOK, "", view)
}

// Dispose handles DELETE /api/sessions/{id}
func (h *GameHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.sessions.Dispose(r.PathValue("id"), user.ID); err != nil {
		h.respondGameError(w, err, game.View{})
		return
	}
	respondJSON(w, http.StatusOK, "Session closed", nil)
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	user := GetUserFromContext(r.Context())
	s, err := h.sessions.Get(r.PathValue("id"), user.ID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrSessionGone, "", nil)
		return nil, false
	}
	return s, true
}

// respondGameError maps game errors to statuses. The view is returned
// alongside where the session is still usable.
func (h *GameHandler) respondGameError(w http.ResponseWriter, err error, view game.View) {
	var data any
	if view.ID != "" {
		data = view
	}

	switch {
	case errors.Is(err, game.ErrDataUnavailable):
		h.logger.Warn("questions unavailable", "session_id", view.ID, "error", err)
		w.Header().Set("Retry-After", RetryAfterSeconds)
		respondJSON(w, http.StatusServiceUnavailable, ErrQuestionsDown, data)
	case errors.Is(err, game.ErrUnknownGame):
		respondWithError(w, http.StatusNotFound, "Unknown game", "", nil)
	case errors.Is(err, game.ErrComingSoon):
		respondJSON(w, http.StatusConflict, "This game is coming soon", nil)
	case errors.Is(err, game.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, ErrSessionGone, "", nil)
	case errors.Is(err, game.ErrDisposed):
		respondJSON(w, http.StatusGone, "Session was closed", data)
	case errors.Is(err, game.ErrNotPresenting), errors.Is(err, game.ErrTileConsumed):
		respondJSON(w, http.StatusConflict, err.Error(), data)
	case errors.Is(err, game.ErrInvalidOption), errors.Is(err, game.ErrWrongKind), errors.Is(err, game.ErrInvalidTile):
		respondJSON(w, http.StatusBadRequest, err.Error(), data)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error handling game request", err)
	}
}
