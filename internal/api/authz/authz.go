package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Roles recognized in bearer tokens.
const (
	RoleMember = "member"
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
)

type AuthUser struct {
	ID   int64
	Role string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value
// has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// IsOwner reports whether user can manage facilities. Admins can do anything
// an owner can.
func IsOwner(user *AuthUser) bool {
	if user == nil {
		return false
	}
	return strings.EqualFold(user.Role, RoleOwner) || strings.EqualFold(user.Role, RoleAdmin)
}

// RequireUser returns ErrUnauthenticated unless a user is present in ctx.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole checks that the context user holds the role. Admins satisfy
// every role check.
func RequireRole(ctx context.Context, role string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if strings.EqualFold(user.Role, RoleAdmin) {
		return nil
	}
	if !strings.EqualFold(user.Role, role) {
		return ErrForbidden
	}
	return nil
}
