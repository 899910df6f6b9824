package auth

import (
	"context"
	"testing"
)

func TestAuthorize(t *testing.T) {
	admin := Principal{UserID: "u1", Email: "admin@ems.com", Role: RoleAdmin}
	employee := Principal{UserID: "u2", Email: "employee@ems.com", Role: RoleEmployee}

	t.Run("missing principal", func(t *testing.T) {
		if _, err := Authorize(context.Background(), Roles(RoleAdmin)); err != ErrUnauthenticated {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("allowed role", func(t *testing.T) {
		ctx := ContextWithPrincipal(context.Background(), admin)
		p, err := Authorize(ctx, Roles(RoleAdmin, RoleManager))
		if err != nil {
			t.Fatalf("Authorize: %v", err)
		}
		if p.UserID != "u1" {
			t.Fatalf("unexpected principal: %+v", p)
		}
	})

	t.Run("forbidden role", func(t *testing.T) {
		ctx := ContextWithPrincipal(context.Background(), employee)
		if _, err := Authorize(ctx, Roles(RoleAdmin)); err != ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("empty set admits any authenticated principal", func(t *testing.T) {
		ctx := ContextWithPrincipal(context.Background(), employee)
		if _, err := Authorize(ctx, nil); err != nil {
			t.Fatalf("Authorize: %v", err)
		}
	})
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"Admin": RoleAdmin, "admin": RoleAdmin, " ADMIN ": RoleAdmin,
		"Manager": RoleManager, "employee": RoleEmployee,
	} {
		got, ok := ParseRole(in)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("unknown role parsed")
	}
}
