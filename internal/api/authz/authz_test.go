package authz

import (
	"context"
	"errors"
	"testing"
)

func TestRequireUserUnauthenticated(t *testing.T) {
	_, err := RequireUser(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireUserReturnsContextUser(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: 10, Role: RoleMember})

	user, err := RequireUser(ctx)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if user.ID != 10 {
		t.Fatalf("expected user 10, got %d", user.ID)
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: 10, Role: RoleMember})

	err := RequireRole(ctx, RoleOwner)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireRoleAdminSatisfiesAnyRole(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: 10, Role: RoleAdmin})

	if err := RequireRole(ctx, RoleOwner); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := RequireRole(ctx, RoleMember); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	err := RequireRole(context.Background(), RoleOwner)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserFromContextEmpty(t *testing.T) {
	if user := UserFromContext(context.Background()); user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestIsOwner(t *testing.T) {
	if IsOwner(nil) {
		t.Fatal("nil user should not be owner")
	}
	if IsOwner(&AuthUser{Role: RoleMember}) {
		t.Fatal("member should not be owner")
	}
	if !IsOwner(&AuthUser{Role: RoleOwner}) {
		t.Fatal("owner should be owner")
	}
	if !IsOwner(&AuthUser{Role: RoleAdmin}) {
		t.Fatal("admin should satisfy owner checks")
	}
}
