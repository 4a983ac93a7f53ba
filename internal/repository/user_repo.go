package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ullas/internal/database"
	"ullas/internal/models"
)

// ErrUserNameTaken is returned when a user name already exists
var ErrUserNameTaken = errors.New("user name already taken")

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository. db may be a *database.DB
// or a *database.Tx.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, user_name, full_name, gender, age, state, COALESCE(email, ''), password_hash, role, created_at, updated_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.FullName,
		&user.Gender,
		&user.Age,
		&user.State,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateUser inserts u. The first account becomes an admin.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	existing, err := r.GetUserByUserName(ctx, u.UserName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserNameTaken
	}

	count, err := r.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	role := u.Role
	if role == "" {
		role = models.RoleLearner
	}
	if count == 0 {
		role = models.RoleAdmin
	}

	query := `
		INSERT INTO users (user_name, full_name, gender, age, state, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, u.UserName, u.FullName, u.Gender, u.Age, u.State, nullString(u.Email), u.PasswordHash, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	created, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("user %d vanished after insert", id)
	}
	return created, nil
}

// CountUsers returns the number of accounts
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetUserByUserName retrieves a user by login name; nil when absent
func (r *UserRepository) GetUserByUserName(ctx context.Context, userName string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_name = ?`, userName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID; nil when absent
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account, oldest first
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateProfile writes the editable profile fields of u
func (r *UserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET full_name = ?, gender = ?, age = ?, state = ?, email = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, u.FullName, u.Gender, u.Age, u.State, nullString(u.Email), u.ID); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// RestoreUser inserts u with its original id and timestamps, as read from
// a backup
func (r *UserRepository) RestoreUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, user_name, full_name, gender, age, state, email, password_hash, role, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var lastLogin sql.NullTime
	if u.LastLogin != nil {
		lastLogin = sql.NullTime{Time: *u.LastLogin, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, u.UserName, u.FullName, u.Gender, u.Age, u.State, nullString(u.Email),
		u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt, lastLogin)
	if err != nil {
		return fmt.Errorf("failed to restore user %s: %w", u.UserName, err)
	}
	return nil
}

// DeleteUser deletes a user; sessions cascade
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	query := `INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, userID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetSession retrieves a session by ID; nil when absent
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
