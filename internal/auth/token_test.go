package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{
		Secret:   testSecret,
		Issuer:   "ems-api",
		Audience: "ems-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

func testUser() *User {
	return &User{
		ID:        "user-1",
		Email:     "admin@ems.com",
		FirstName: "System",
		LastName:  "Administrator",
		Role:      RoleAdmin,
		IsActive:  true,
	}
}

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenManager(TokenConfig{Secret: []byte("short")}); err == nil {
		t.Fatalf("expected error for short secret")
	}
}

func TestIssueAndValidateAccess(t *testing.T) {
	m := newTestTokenManager(t)
	u := testUser()

	token, expiresAt, err := m.IssueAccess(u)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if until := time.Until(expiresAt); until < 59*time.Minute || until > 61*time.Minute {
		t.Fatalf("expected ~60m lifetime, got %v", until)
	}

	id, err := m.Validate(token, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "admin@ems.com" || id.Role != RoleAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIssueAccessUniqueJTI(t *testing.T) {
	m := newTestTokenManager(t)
	u := testUser()

	t1, _, err := m.IssueAccess(u)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	t2, _, err := m.IssueAccess(u)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if t1 == t2 {
		t.Fatalf("two access tokens for the same user are identical")
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	m := newTestTokenManager(t)
	other, err := NewTokenManager(TokenConfig{
		Secret:   []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:   "ems-api",
		Audience: "ems-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	token, _, err := other.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := m.Validate(token, false); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsIssuerMismatch(t *testing.T) {
	m := newTestTokenManager(t)
	rogue, err := NewTokenManager(TokenConfig{
		Secret:   testSecret,
		Issuer:   "someone-else",
		Audience: "ems-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	token, _, err := rogue.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := m.Validate(token, false); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
	// The issuer check also holds on the expiry-ignoring path.
	if _, err := m.Validate(token, true); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong issuer with ignoreExpiry, got %v", err)
	}
}

func TestValidateRejectsAlgNone(t *testing.T) {
	m := newTestTokenManager(t)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "ems-api",
		Audience:  jwt.ClaimStrings{"ems-clients"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Validate(unsigned, false); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
	if _, err := m.Validate(unsigned, true); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg=none with ignoreExpiry, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := newTestTokenManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	m.now = time.Now

	if _, err := m.Validate(token, false); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	// The refresh path still recovers the identity from the same token.
	id, err := m.Validate(token, true)
	if err != nil {
		t.Fatalf("Validate with ignoreExpiry: %v", err)
	}
	if id.UserID != "user-1" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestValidateGarbage(t *testing.T) {
	m := newTestTokenManager(t)
	for _, tok := range []string{"", "   ", "not.a.jwt", "aaaa.bbbb"} {
		if _, err := m.Validate(tok, false); err != ErrInvalidToken {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestIssueRefresh(t *testing.T) {
	m := newTestTokenManager(t)
	r1, err := m.IssueRefresh()
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	r2, err := m.IssueRefresh()
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if r1 == r2 {
		t.Fatalf("refresh tokens repeat")
	}
	raw, err := base64.StdEncoding.DecodeString(r1)
	if err != nil {
		t.Fatalf("refresh token is not standard base64: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("expected 64 random bytes, got %d", len(raw))
	}
	// Opaque tokens must not look like JWTs.
	if strings.Count(r1, ".") == 2 {
		t.Fatalf("refresh token resembles a JWT: %q", r1)
	}
}
