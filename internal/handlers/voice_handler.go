package handlers

import (
	"net/http"

	"ullas/internal/narration"
)

// VoiceHandler exposes the learner's narration engine
type VoiceHandler struct {
	voices *narration.Registry
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(voices *narration.Registry) *VoiceHandler {
	return &VoiceHandler{voices: voices}
}

type voiceRequest struct {
	Enabled *bool `json:"enabled"`
}

// Status handles GET /api/voice
func (h *VoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, "", h.voices.For(user.ID).Status())
}

// Toggle handles PUT /api/voice {enabled}
func (h *VoiceHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req voiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	if req.Enabled == nil {
		respondWithError(w, http.StatusBadRequest, "enabled is required", "", nil)
		return
	}

	if err := h.voices.SetEnabled(r.Context(), user.ID, *req.Enabled); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error saving voice preference", err)
		return
	}
	respondJSON(w, http.StatusOK, "", h.voices.For(user.ID).Status())
}
