package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ullas/internal/models"
	"ullas/internal/security"
	"ullas/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// TokenValidator resolves a bearer token to a learner
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth    TokenValidator
	limiter *security.RateLimiter
	logger  *slog.Logger
}

var _ TokenValidator = (*service.AuthService)(nil)

// NewMiddleware creates a new middleware instance. limiter may be nil.
func NewMiddleware(auth TokenValidator, limiter *security.RateLimiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{auth: auth, limiter: limiter, logger: logger.With("component", "http")}
}

// RequireAuth rejects requests without a valid token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.BearerToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		user, err := m.auth.ValidateToken(r.Context(), token)
		if err != nil {
			if _, cookieErr := r.Cookie(security.TokenCookie); cookieErr == nil {
				http.SetCookie(w, security.CreateDeleteCookie(r))
			}
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "token rejected", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is RequireAuth plus an admin role check
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		next(w, r)
	})
}

// RateLimit throttles by client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every HTTP request
func Logging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
