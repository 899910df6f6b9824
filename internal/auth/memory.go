package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by deployments that
// run without a database. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string // lower(email) -> id
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(u.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrEmailTaken
	}
	cp := *u
	s.byID[cp.ID] = &cp
	s.byEmail[key] = cp.ID
	return nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.RefreshToken = ""
	u.RefreshTokenExpiry = time.Time{}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SaveRefreshToken(_ context.Context, id, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = token
	u.RefreshTokenExpiry = expiry
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RotateRefreshToken(_ context.Context, id, current, next string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrInvalidRefreshToken
	}
	// Compare-and-swap under the lock: a concurrent rotation that got here
	// first already changed the stored token, so the loser fails.
	if u.RefreshToken == "" || u.RefreshToken != current {
		return ErrInvalidRefreshToken
	}
	u.RefreshToken = next
	u.RefreshTokenExpiry = expiry
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = ""
	u.RefreshTokenExpiry = time.Time{}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
