package auth

import (
	"context"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	tokens, err := NewTokenManager(TokenConfig{
		Secret:   testSecret,
		Issuer:   "ems-api",
		Audience: "ems-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return NewService(store, tokens), store
}

func seedUser(t *testing.T, store *MemoryStore, email, password string, role Role, active bool) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &User{
		ID:           "id-" + email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     active,
	}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestLogin(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("session missing tokens: %+v", sess)
	}
	if sess.User.ID != u.ID {
		t.Fatalf("unexpected user: %+v", sess.User)
	}

	// The refresh token was persisted so it can be rotated later.
	stored, err := store.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.RefreshToken != sess.RefreshToken {
		t.Fatalf("stored refresh token does not match issued token")
	}
	if !stored.RefreshTokenExpiry.After(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("refresh expiry too short: %v", stored.RefreshTokenExpiry)
	}
}

func TestLoginCaseInsensitiveEmail(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)

	if _, err := svc.Login(context.Background(), "Admin@EMS.com", "Admin@123"); err != nil {
		t.Fatalf("Login with different email casing: %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	// Unknown email and wrong password must be indistinguishable.
	if _, err := svc.Login(ctx, "nobody@ems.com", "Admin@123"); err != ErrInvalidCredentials {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "admin@ems.com", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "gone@ems.com", "Employee@123", RoleEmployee, false)
	ctx := context.Background()

	// The distinct error appears only after the password verifies.
	if _, err := svc.Login(ctx, "gone@ems.com", "Employee@123"); err != ErrInactiveAccount {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
	if _, err := svc.Login(ctx, "gone@ems.com", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password on inactive account must not reveal the account state, got %v", err)
	}
}

func TestRefreshRotatesSingleUse(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	first, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if second.AccessToken == "" {
		t.Fatalf("refresh produced no access token")
	}

	// Replaying the consumed refresh token must fail.
	if _, err := svc.Refresh(ctx, first.AccessToken, first.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("replay: expected ErrInvalidRefreshToken, got %v", err)
	}

	// The rotated pair still works.
	if _, err := svc.Refresh(ctx, second.AccessToken, second.RefreshToken); err != nil {
		t.Fatalf("rotated pair failed to refresh: %v", err)
	}
}

func TestRefreshRejectsForeignAccessToken(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// An access token signed by another key proves nothing, even when the
	// refresh token itself is the real one.
	rogue, err := NewTokenManager(TokenConfig{
		Secret:   []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:   "ems-api",
		Audience: "ems-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	forged, _, err := rogue.IssueAccess(sess.User)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := svc.Refresh(ctx, forged, sess.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshExpiredRefreshToken(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	// Age the stored token past its expiry.
	if err := store.SaveRefreshToken(ctx, u.ID, sess.RefreshToken, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.AccessToken, sess.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, u.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.AccessToken, sess.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}
	// Logout is idempotent.
	if err := svc.Logout(ctx, u.ID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	// Access tokens are not revoked, only the refresh capability.
	if _, err := svc.Authenticate(ctx, sess.AccessToken); err != nil {
		t.Fatalf("access token should survive logout until expiry: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "admin@ems.com", "Admin@123", RoleAdmin, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "NewPass@456"); err != ErrInvalidCredentials {
		t.Fatalf("wrong current password: expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "Admin@123", "short"); err == nil {
		t.Fatalf("expected validation error for short password")
	}
	if err := svc.ChangePassword(ctx, u.ID, "Admin@123", "NewPass@456"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// Old password is dead, new one works.
	if _, err := svc.Login(ctx, "admin@ems.com", "Admin@123"); err != ErrInvalidCredentials {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, "admin@ems.com", "NewPass@456"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// The standing refresh token was revoked with the password change.
	if _, err := svc.Refresh(ctx, sess.AccessToken, sess.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken after password change, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email:     "New.Hire@EMS.com",
		Password:  "Welcome@1",
		FirstName: "New",
		LastName:  "Hire",
		Role:      RoleEmployee,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "new.hire@ems.com" {
		t.Fatalf("email was not normalized: %q", u.Email)
	}
	if !u.IsActive {
		t.Fatalf("new accounts start active")
	}
	if u.PasswordHash == "Welcome@1" {
		t.Fatalf("password stored in the clear")
	}

	if _, err := svc.Login(ctx, "new.hire@ems.com", "Welcome@1"); err != nil {
		t.Fatalf("Login as registered user: %v", err)
	}

	// Duplicate email, regardless of casing.
	if _, err := svc.Register(ctx, RegisterInput{
		Email:     "new.hire@ems.com",
		Password:  "Welcome@1",
		FirstName: "Other",
		LastName:  "Person",
		Role:      RoleEmployee,
	}); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterAssignsDistinctIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{
		Email: "admin@ems.com", Password: "Admin@123",
		FirstName: "System", LastName: "Administrator", Role: RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register admin: %v", err)
	}
	manager, err := svc.Register(ctx, RegisterInput{
		Email: "manager@ems.com", Password: "Manager@123",
		FirstName: "Default", LastName: "Manager", Role: RoleManager,
	})
	if err != nil {
		t.Fatalf("Register manager: %v", err)
	}
	if admin.ID == "" || manager.ID == "" {
		t.Fatalf("registered users must get ids, got %q and %q", admin.ID, manager.ID)
	}
	if admin.ID == manager.ID {
		t.Fatalf("registered users share id %q", admin.ID)
	}

	// The first account must survive later registrations intact.
	sess, err := svc.Login(ctx, "admin@ems.com", "Admin@123")
	if err != nil {
		t.Fatalf("Login as first registered user: %v", err)
	}
	identity, err := svc.tokens.Validate(sess.AccessToken, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if identity.UserID != admin.ID {
		t.Fatalf("token subject = %q, want %q", identity.UserID, admin.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "not-an-email", Password: "Welcome@1", FirstName: "A", LastName: "B", Role: RoleEmployee},
		{Email: "a@b.com", Password: "short", FirstName: "A", LastName: "B", Role: RoleEmployee},
		{Email: "a@b.com", Password: "Welcome@1", FirstName: "", LastName: "B", Role: RoleEmployee},
		{Email: "a@b.com", Password: "Welcome@1", FirstName: "A", LastName: "B", Role: Role("Superuser")},
	}
	for i, in := range cases {
		if _, err := svc.Register(ctx, in); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "manager@ems.com", "Manager@123", RoleManager, true)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "manager@ems.com", "Manager@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	p, err := svc.Authenticate(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Email != "manager@ems.com" || p.Role != RoleManager {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if _, err := svc.Authenticate(ctx, "garbage"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
