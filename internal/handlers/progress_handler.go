package handlers

import (
	"net/http"
	"strconv"

	"ullas/internal/service"
)

const defaultLeaderboardSize = 10

// ProgressHandler serves the dashboard endpoints
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Progress handles GET /api/games/progress
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	records, err := h.progress.All(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading progress", err)
		return
	}
	respondJSON(w, http.StatusOK, "", records)
}

// Stats handles GET /api/stats/user
func (h *ProgressHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	stats, err := h.progress.Stats(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading stats", err)
		return
	}
	respondJSON(w, http.StatusOK, "", stats)
}

// Leaderboard handles GET /api/games/leaderboard?limit=n
func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100", "", nil)
			return
		}
		limit = n
	}

	board, err := h.progress.Leaderboard(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading leaderboard", err)
		return
	}
	respondJSON(w, http.StatusOK, "", board)
}
