package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInactiveAccount    = errors.New("auth: account is deactivated")
	// ErrInvalidToken means the access token is malformed, forged, or signed
	// with the wrong key.
	ErrInvalidToken = errors.New("auth: invalid access token")
	// ErrExpiredToken means the signature checked out but the expiry passed.
	// Kept distinct from ErrInvalidToken so clients know a refresh may help.
	ErrExpiredToken = errors.New("auth: access token expired")
	// ErrInvalidRefreshToken covers mismatch, natural expiry, and replay of a
	// token already superseded by rotation.
	ErrInvalidRefreshToken = errors.New("auth: invalid or expired refresh token")
	ErrUnauthenticated     = errors.New("auth: not authenticated")
	ErrForbidden           = errors.New("auth: insufficient role")
	ErrNotFound            = errors.New("auth: user not found")
	ErrEmailTaken          = errors.New("auth: email is already registered")
	ErrInvalidInput        = errors.New("auth: invalid input")
)
