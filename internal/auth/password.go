package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost 11 keeps hashing deliberately slow enough to resist offline
// brute force while staying inside interactive login latency.
const bcryptCost = 11

// HashPassword hashes a plaintext password with bcrypt. Every call salts
// independently, so two hashes of the same password differ.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash in constant
// time. A malformed or empty hash yields false, never an error or panic.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
