package auth

import (
	"context"
	"time"
)

// Store is the persistence boundary for user accounts and their refresh
// token state. Implementations must treat emails case-insensitively.
type Store interface {
	// FindByID returns the user or ErrNotFound. Soft-deleted users are
	// invisible to every lookup.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail matches case-insensitively and returns ErrNotFound for
	// unknown addresses.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a new user and returns ErrEmailTaken when the email is
	// already registered.
	Create(ctx context.Context, u *User) error

	// UpdatePassword replaces the password hash and clears any stored refresh
	// token in the same operation, so a password change always revokes the
	// standing session.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SaveRefreshToken unconditionally overwrites the user's refresh token
	// and its expiry. Used at login, where the new session supersedes any
	// previous one.
	SaveRefreshToken(ctx context.Context, id, token string, expiry time.Time) error

	// RotateRefreshToken atomically swaps current for next, but only if the
	// stored token still equals current. It returns ErrInvalidRefreshToken
	// when the compare fails, which is how a replayed or already-rotated
	// token loses the race.
	RotateRefreshToken(ctx context.Context, id, current, next string, expiry time.Time) error

	// ClearRefreshToken removes the stored refresh token. Clearing an
	// already-clear user is not an error; logout is idempotent.
	ClearRefreshToken(ctx context.Context, id string) error
}
