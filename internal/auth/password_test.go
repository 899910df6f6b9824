package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Admin@123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$11$") {
		t.Fatalf("expected cost-11 bcrypt hash, got %q", hash)
	}
	if !VerifyPassword("Admin@123", hash) {
		t.Fatalf("correct password did not verify")
	}
	if VerifyPassword("admin@123", hash) {
		t.Fatalf("wrong password verified")
	}
}

func TestHashPasswordSaltsIndependently(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("two hashes of the same password are identical")
	}
	if !VerifyPassword("same-password", h1) || !VerifyPassword("same-password", h2) {
		t.Fatalf("both hashes should verify the original password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if VerifyPassword("anything", "") {
		t.Fatalf("empty hash verified")
	}
	if VerifyPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash verified")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
