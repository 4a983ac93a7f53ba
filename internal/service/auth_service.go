package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ullas/internal/game"
	"ullas/internal/models"
	"ullas/internal/progress"
	"ullas/internal/repository"
	"ullas/internal/security"
	"ullas/internal/validation"
)

var (
	ErrUserNameTaken      = errors.New("user name already taken")
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = errors.New("user not found")
)

const tokenIssuer = "ullas"

// Claims is the JWT payload. ID (jti) is the stored session id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is the registration form
type RegisterInput struct {
	FullName string
	UserName string
	Gender   string
	Age      int
	State    string
	Email    string
	Password string
}

// ProfileUpdate carries the editable profile fields
type ProfileUpdate struct {
	FullName string
	Gender   string
	Age      int
	State    string
	Email    string
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	User    *models.User
	Session *models.Session
	Token   string
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo        *repository.UserRepository
	progress        *progress.Store
	mailer          Mailer
	secret          []byte
	sessionDuration time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithMailer sends a welcome email on registration
func WithMailer(m Mailer) AuthOption {
	return func(s *AuthService) { s.mailer = m }
}

// WithAuthClock overrides the time source
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, store *progress.Store, secret string, sessionDuration time.Duration, logger *slog.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		userRepo:        userRepo,
		progress:        store,
		secret:          []byte(secret),
		sessionDuration: sessionDuration,
		now:             time.Now,
		logger:          logger.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a learner account, seeds default progress for every game
// type and signs the learner in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))

	if err := validation.ValidateName(in.FullName); err != nil {
		return nil, err
	}
	if err := validation.ValidateUserName(in.UserName); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateProfile(in.Gender, in.Age, in.State, in.Email); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, &models.User{
		UserName:     in.UserName,
		FullName:     in.FullName,
		Gender:       in.Gender,
		Age:          in.Age,
		State:        in.State,
		Email:        in.Email,
		PasswordHash: passwordHash,
	})
	if errors.Is(err, repository.ErrUserNameTaken) {
		return nil, ErrUserNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.progress.Initialize(ctx, user.ID, game.PlayableTypes()); err != nil {
		return nil, fmt.Errorf("failed to initialize progress: %w", err)
	}

	if s.mailer != nil && user.Email != "" {
		if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.FullName); err != nil {
			s.logger.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("learner registered", "user_id", user.ID, "user_name", user.UserName)
	return s.signIn(ctx, user)
}

// Login authenticates a learner, bumps the login streak and issues a token
func (s *AuthService) Login(ctx context.Context, userName, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetUserByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(ctx, user)
}

func (s *AuthService) signIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	now := s.now()

	if _, err := s.progress.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	session, err := s.userRepo.CreateSession(ctx, security.GenerateSessionID(), user.ID, now.Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.issueToken(user, session, now)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session, Token: token}, nil
}

func (s *AuthService) issueToken(user *models.User, session *models.Session, now time.Time) (string, error) {
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *AuthService) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken checks the signature and the backing session and returns
// the learner
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.parseToken(raw)
	if err != nil {
		return nil, err
	}

	session, err := s.userRepo.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.userRepo.DeleteSession(ctx, session.ID)
		return nil, ErrSessionExpired
	}
	if strconv.FormatInt(session.UserID, 10) != claims.Subject {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates the session behind a token. Unknown or expired tokens
// are not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := s.parseToken(raw)
	if err != nil {
		return nil
	}
	if err := s.userRepo.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Profile returns the learner's account
func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile validates and stores the editable profile fields
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	if err := validation.ValidateName(in.FullName); err != nil {
		return nil, err
	}
	if err := validateProfile(in.Gender, in.Age, in.State, in.Email); err != nil {
		return nil, err
	}

	user.FullName = in.FullName
	user.Gender = in.Gender
	user.Age = in.Age
	user.State = in.State
	user.Email = in.Email
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !security.CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := security.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, hash)
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) error {
	n, err := s.userRepo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return nil
}

func validateProfile(gender string, age int, state, email string) error {
	if err := validation.ValidateGender(gender); err != nil {
		return err
	}
	if err := validation.ValidateAge(age); err != nil {
		return err
	}
	if err := validation.ValidateState(state); err != nil {
		return err
	}
	if email != "" {
		return validation.ValidateEmail(email)
	}
	return nil
}
