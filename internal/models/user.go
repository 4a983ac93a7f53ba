package models

import "time"

// Roles a learner account can hold
const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

// User represents a learner account
type User struct {
	ID           int64
	UserName     string
	FullName     string
	Gender       string
	Age          int
	State        string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// IsAdmin reports whether the user can see admin-only data
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the client-facing view of a user
type Profile struct {
	ID                    int64      `json:"id"`
	FullName              string     `json:"fullName"`
	UserName              string     `json:"userName"`
	Gender                string     `json:"gender"`
	Age                   int        `json:"age"`
	StateOrUnionTerritory string     `json:"stateOrUnionTerritory"`
	Email                 string     `json:"email,omitempty"`
	Role                  string     `json:"role"`
	CreatedAt             time.Time  `json:"createdAt"`
	LastLoginDate         *time.Time `json:"lastLoginDate,omitempty"`
}

// Profile returns the user without credentials
func (u *User) Profile() Profile {
	return Profile{
		ID:                    u.ID,
		FullName:              u.FullName,
		UserName:              u.UserName,
		Gender:                u.Gender,
		Age:                   u.Age,
		StateOrUnionTerritory: u.State,
		Email:                 u.Email,
		Role:                  u.Role,
		CreatedAt:             u.CreatedAt,
		LastLoginDate:         u.LastLogin,
	}
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
