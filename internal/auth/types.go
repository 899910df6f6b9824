package auth

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user account can hold.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// ParseRole normalizes a role string into the closed enumeration.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "manager":
		return RoleManager, true
	case "employee":
		return RoleEmployee, true
	default:
		return "", false
	}
}

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleEmployee
}

// User is the identity record backing authentication. The refresh token
// columns are the only durable session state: at most one live refresh token
// exists per user, and a new login or refresh overwrites the previous one.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool

	// RefreshToken is empty and RefreshTokenExpiry zero when the session
	// has been revoked (logout, password change) or never existed.
	RefreshToken       string
	RefreshTokenExpiry time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for display and token claims.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Principal is the request-scoped identity derived from a validated access
// token. It is rebuilt from the token on every request and never cached.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// RegisterInput is the input for Service.Register.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
}
