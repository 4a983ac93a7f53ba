package handlers

import "net/http"

// Router groups the handlers mounted on the API mux. Nil handlers are
// skipped.
type Router struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Games      *GameHandler
	Progress   *ProgressHandler
	Voice      *VoiceHandler
	Admin      *AdminHandler
	Startup    *StartupStatus
}

// Register mounts every route on mux
func (rt Router) Register(mux *http.ServeMux) {
	m := rt.Middleware

	mux.HandleFunc("GET /healthz", Live)
	if rt.Startup != nil {
		mux.HandleFunc("GET /readyz", rt.Startup.Ready)
	}

	if h := rt.Auth; h != nil {
		mux.HandleFunc("POST /api/auth/register", m.RateLimit(h.Register))
		mux.HandleFunc("POST /api/auth/login", m.RateLimit(h.Login))
		mux.HandleFunc("POST /api/auth/logout", m.RequireAuth(h.Logout))
		mux.HandleFunc("GET /api/auth/profile", m.RequireAuth(h.Profile))
		mux.HandleFunc("PUT /api/auth/profile", m.RequireAuth(h.UpdateProfile))
		mux.HandleFunc("PUT /api/auth/password", m.RequireAuth(h.ChangePassword))
	}

	if h := rt.Games; h != nil {
		mux.HandleFunc("GET /api/games", h.Catalog)
		mux.HandleFunc("POST /api/games/{gameType}/sessions", m.RequireAuth(h.Start))
		mux.HandleFunc("GET /api/sessions/{id}", m.RequireAuth(h.Get))
		mux.HandleFunc("POST /api/sessions/{id}/answer", m.RequireAuth(h.Answer))
		mux.HandleFunc("POST /api/sessions/{id}/tile", m.RequireAuth(h.Tile))
		mux.HandleFunc("POST /api/sessions/{id}/restart", m.RequireAuth(h.Restart))
		mux.HandleFunc("DELETE /api/sessions/{id}", m.RequireAuth(h.Dispose))
	}

	if h := rt.Progress; h != nil {
		mux.HandleFunc("GET /api/games/progress", m.RequireAuth(h.Progress))
		mux.HandleFunc("GET /api/games/leaderboard", m.RequireAuth(h.Leaderboard))
		mux.HandleFunc("GET /api/stats/user", m.RequireAuth(h.Stats))
	}

	if h := rt.Voice; h != nil {
		mux.HandleFunc("GET /api/voice", m.RequireAuth(h.Status))
		mux.HandleFunc("PUT /api/voice", m.RequireAuth(h.Toggle))
	}

	if h := rt.Admin; h != nil {
		mux.HandleFunc("GET /api/admin/users", m.RequireAdmin(h.ListUsers))
		mux.HandleFunc("DELETE /api/admin/users/{id}", m.RequireAdmin(h.DeleteUser))
		mux.HandleFunc("GET /api/admin/backup", m.RequireAdmin(h.ExportBackup))
		mux.HandleFunc("POST /api/admin/backup", m.RequireAdmin(h.ImportBackup))
	}
}
