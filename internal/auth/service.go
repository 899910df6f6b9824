package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the result of a successful login or refresh: a fresh token pair
// plus the account it belongs to.
type Session struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	User            *User
}

// Service coordinates credentials, tokens, and the store into the login,
// refresh, logout, and password-change flows.
type Service struct {
	store  Store
	tokens *TokenManager
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, tokens *TokenManager, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password both return ErrInvalidCredentials; only a verified password on a
// deactivated account reveals ErrInactiveAccount. The password check runs
// before the active check so the error order never leaks which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			// Burn a hash comparison anyway so response timing does not
			// distinguish unknown emails from wrong passwords.
			VerifyPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return s.openSession(ctx, u)
}

// Refresh rotates a token pair. The expired (or still-valid) access token
// proves who is asking; the refresh token proves the session is still live.
// Rotation is single-use: the presented refresh token is atomically replaced,
// so a second presentation of the same token fails.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	identity, err := s.tokens.Validate(accessToken, true)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.store.FindByID(ctx, identity.UserID)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	if u.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, ErrInvalidRefreshToken
	}
	if !u.RefreshTokenExpiry.After(s.now().UTC()) {
		return nil, ErrInvalidRefreshToken
	}

	access, expiresAt, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	next, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, err
	}
	if err := s.store.RotateRefreshToken(ctx, u.ID, refreshToken, next, s.tokens.RefreshExpiry()); err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, AccessExpiresAt: expiresAt, RefreshToken: next, User: u}, nil
}

// Logout revokes the user's refresh token. Already-issued access tokens stay
// valid until they expire; only the ability to mint new pairs is withdrawn.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.ClearRefreshToken(ctx, userID)
}

// ChangePassword verifies the current password, stores a new hash, and
// revokes the refresh token so stolen session state dies with the old
// password.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 6 {
		return fmt.Errorf("%w: new password must be at least 6 characters", ErrInvalidInput)
	}
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

// Register creates a new account. The caller is responsible for deciding who
// may register whom; the service only enforces input validity.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CurrentUser loads the account behind a principal.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	return s.store.FindByID(ctx, userID)
}

// Authenticate turns a bearer token into a Principal. It is claim-only: no
// store round trip, so a deactivated account keeps working until its access
// token expires.
func (s *Service) Authenticate(_ context.Context, accessToken string) (Principal, error) {
	identity, err := s.tokens.Validate(accessToken, false)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: identity.UserID, Email: identity.Email, Role: identity.Role}, nil
}

func (s *Service) openSession(ctx context.Context, u *User) (*Session, error) {
	access, expiresAt, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRefreshToken(ctx, u.ID, refresh, s.tokens.RefreshExpiry()); err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, AccessExpiresAt: expiresAt, RefreshToken: refresh, User: u}, nil
}

// dummyHash is a syntactically valid bcrypt hash compared against when the
// email is unknown, so login timing stays uniform across both failure modes.
const dummyHash = "$2a$11$k42ZFHFWqBp3vWli.nIn8uYyIkbvYRvodzbfbK18SSsY.CsIQPlxO"
