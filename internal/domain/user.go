package domain

import "time"

// Role enumerates user roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleUser:
		return true
	}
	return false
}

// User is anyone who can sign in: requesters, agents and administrators.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionContext identifies the caller of a service operation.
type SessionContext struct {
	UserID    string
	Role      Role
	ExpiresAt time.Time
}

// IsAdmin reports whether the session carries the admin role.
func (s SessionContext) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// IsStaff reports whether the session belongs to an agent or admin.
func (s SessionContext) IsStaff() bool {
	return s.Role == RoleAdmin || s.Role == RoleAgent
}

// Expired reports whether the session is past its expiry at now.
func (s SessionContext) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
