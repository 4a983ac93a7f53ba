package handlers

import (
	"errors"
	"net/http"

	"ullas/internal/game"
	"ullas/internal/models"
	"ullas/internal/narration"
	"ullas/internal/security"
	"ullas/internal/service"
	"ullas/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	sessions    *game.Manager
	voices      *narration.Registry
}

// NewAuthHandler creates a new auth handler. sessions and voices are
// cleaned up on logout and may be nil.
func NewAuthHandler(authService *service.AuthService, sessions *game.Manager, voices *narration.Registry) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		voices:      voices,
	}
}

type registerRequest struct {
	FullName              string `json:"fullName"`
	UserName              string `json:"userName"`
	Gender                string `json:"gender"`
	Age                   int    `json:"age"`
	StateOrUnionTerritory string `json:"stateOrUnionTerritory"`
	Password              string `json:"password"`
	Email                 string `json:"email"`
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type profileRequest struct {
	FullName              string `json:"fullName"`
	Gender                string `json:"gender"`
	Age                   int    `json:"age"`
	StateOrUnionTerritory string `json:"stateOrUnionTerritory"`
	Email                 string `json:"email"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	User  models.Profile `json:"user"`
	Token string         `json:"token"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}

	res, err := h.authService.Register(r.Context(), service.RegisterInput{
		FullName: req.FullName,
		UserName: req.UserName,
		Gender:   req.Gender,
		Age:      req.Age,
		State:    req.StateOrUnionTerritory,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondAuthError(w, err, "Error registering learner")
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, res.Token, res.Session.ExpiresAt))
	respondJSON(w, http.StatusCreated, "Registration successful", authResponse{User: res.User.Profile(), Token: res.Token})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}

	res, err := h.authService.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		h.respondAuthError(w, err, "Error logging in")
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, res.Token, res.Session.ExpiresAt))
	respondJSON(w, http.StatusOK, "Login successful", authResponse{User: res.User.Profile(), Token: res.Token})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := GetUserFromContext(r.Context()); user != nil {
		if h.sessions != nil {
			h.sessions.DisposeUser(user.ID)
		}
		if h.voices != nil {
			h.voices.Forget(user.ID)
		}
	}
	if token := security.BearerToken(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error logging out", err)
			return
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r))
	respondJSON(w, http.StatusOK, "Logged out", nil)
}

// Profile handles GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, "", user.Profile())
}

// UpdateProfile handles PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		FullName: req.FullName,
		Gender:   req.Gender,
		Age:      req.Age,
		State:    req.StateOrUnionTerritory,
		Email:    req.Email,
	})
	if err != nil {
		h.respondAuthError(w, err, "Error updating profile")
		return
	}
	respondJSON(w, http.StatusOK, "Profile updated", updated.Profile())
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}
	if err := h.authService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondAuthError(w, err, "Error changing password")
		return
	}
	respondJSON(w, http.StatusOK, "Password changed", nil)
}

func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error, logMsg string) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Error(), "", nil)
	case errors.Is(err, service.ErrUserNameTaken):
		respondWithError(w, http.StatusConflict, "User name already taken", "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid user name or password", "", nil)
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
