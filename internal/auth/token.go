package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// refreshTokenBytes of CSPRNG output; the refresh token carries no claims
	// and is only ever compared against the value stored on the user row.
	refreshTokenBytes = 64
)

// TokenConfig configures the token manager. Secret is required; TTLs fall
// back to 60 minutes / 7 days when unset.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager mints and validates access tokens (HS256 JWTs) and mints
// opaque refresh tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenIdentity is what a successfully validated access token proves.
type TokenIdentity struct {
	UserID string
	Email  string
	Role   Role
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenManager validates the configuration and returns a manager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("auth: signing secret must be at least 32 bytes")
	}
	m := &TokenManager{
		secret:     cfg.Secret,
		issuer:     strings.TrimSpace(cfg.Issuer),
		audience:   strings.TrimSpace(cfg.Audience),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	if m.accessTTL <= 0 {
		m.accessTTL = defaultAccessTTL
	}
	if m.refreshTTL <= 0 {
		m.refreshTTL = defaultRefreshTTL
	}
	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// IssueAccess signs a short-lived access token for the user. Claims carry the
// subject id, email, role, display name, and a fresh jti.
func (m *TokenManager) IssueAccess(u *User) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.accessTTL)
	claims := accessClaims{
		Email: u.Email,
		Role:  string(u.Role),
		Name:  u.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh mints an opaque refresh token: raw randomness, no claims. It
// cannot be decoded into identity data; it is a lookup capability only.
func (m *TokenManager) IssueRefresh() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// RefreshExpiry returns the moment a refresh token minted now would expire.
func (m *TokenManager) RefreshExpiry() time.Time {
	return m.now().UTC().Add(m.refreshTTL)
}

// Validate checks the access token signature, algorithm, issuer, and audience,
// and — unless ignoreExpiry — its expiry claim. ignoreExpiry exists solely for
// the refresh flow, which must recover identity from an expired-but-authentic
// token; no other caller may set it.
func (m *TokenManager) Validate(token string, ignoreExpiry bool) (TokenIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenIdentity{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ignoreExpiry {
		// Claims are checked by hand below; the library would otherwise
		// reject the expired token outright.
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithExpirationRequired())
		if m.issuer != "" {
			opts = append(opts, jwt.WithIssuer(m.issuer))
		}
		if m.audience != "" {
			opts = append(opts, jwt.WithAudience(m.audience))
		}
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		// Algorithm pinning: WithValidMethods already filters, the explicit
		// check keeps a misconfigured parser from ever reaching the secret.
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if !ignoreExpiry && errors.Is(err, jwt.ErrTokenExpired) {
			return TokenIdentity{}, ErrExpiredToken
		}
		return TokenIdentity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return TokenIdentity{}, ErrInvalidToken
	}

	if ignoreExpiry {
		if m.issuer != "" && claims.Issuer != m.issuer {
			return TokenIdentity{}, ErrInvalidToken
		}
		if m.audience != "" && !containsAudience(claims.Audience, m.audience) {
			return TokenIdentity{}, ErrInvalidToken
		}
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Email) == "" {
		return TokenIdentity{}, ErrInvalidToken
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return TokenIdentity{}, ErrInvalidToken
	}

	return TokenIdentity{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
