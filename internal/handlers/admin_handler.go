package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ullas/internal/game"
	"ullas/internal/models"
	"ullas/internal/progress"
	"ullas/internal/repository"
	"ullas/internal/service"
)

// AdminHandler handles admin-only routes
type AdminHandler struct {
	userRepo      *repository.UserRepository
	progress      *progress.Store
	sessions      *game.Manager
	backupService *service.BackupService
	logger        *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo *repository.UserRepository, store *progress.Store, sessions *game.Manager, backupService *service.BackupService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		userRepo:      userRepo,
		progress:      store,
		sessions:      sessions,
		backupService: backupService,
		logger:        logger.With("component", "admin"),
	}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListUsers(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing users", err)
		return
	}
	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	respondJSON(w, http.StatusOK, "", profiles)
}

// DeleteUser handles DELETE /api/admin/users/{id}. The account, its sessions,
// its live games and its progress are removed.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin := GetUserFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id", "", err)
		return
	}
	if id == admin.ID {
		respondWithError(w, http.StatusBadRequest, "You cannot delete your own account", "", nil)
		return
	}

	target, err := h.userRepo.GetUserByID(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading user", err)
		return
	}
	if target == nil {
		respondWithError(w, http.StatusNotFound, "User not found", "", nil)
		return
	}

	h.sessions.DisposeUser(id)
	if err := h.progress.Delete(r.Context(), id); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error deleting progress", err)
		return
	}
	if err := h.userRepo.DeleteUser(r.Context(), id); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error deleting user", err)
		return
	}

	h.logger.Info("user deleted", "user_id", id, "by", admin.UserName)
	respondJSON(w, http.StatusOK, "User deleted", nil)
}

// ExportBackup handles GET /api/admin/backup as a file download
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	admin := GetUserFromContext(r.Context())

	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ullas_backup_%s.json", timestamp))

	if err := h.backupService.ExportToWriter(r.Context(), w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export backup", "Error exporting backup", err)
		return
	}
	h.logger.Info("backup exported", "by", admin.UserName)
}

// ImportBackup handles POST /api/admin/backup with the backup JSON as body
func (h *AdminHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	admin := GetUserFromContext(r.Context())

	stats, err := h.backupService.ImportFromReader(r.Context(), http.MaxBytesReader(w, r.Body, 64<<20))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to import backup", "Error importing backup", err)
		return
	}
	h.sessions.Close()

	h.logger.Info("backup imported", "by", admin.UserName, "users", stats.Users, "entries", stats.Entries)
	respondJSON(w, http.StatusOK, "Backup imported", map[string]int{"users": stats.Users, "entries": stats.Entries})
}
