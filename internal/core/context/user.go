// Package context carries the caller identity and request metadata through a
// request's context.
package context

import (
	"context"
	"slices"
)

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleCustomer   = "customer"
)

// UserContext is the identity taken from a verified bearer token.
type UserContext struct {
	UserID string
	Email  string
	Role   string
}

func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Allowed reports whether u may act under one of roles. Admin is always allowed.
func (u *UserContext) Allowed(roles ...string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || slices.Contains(roles, u.Role)
}

type userKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns nil for unauthenticated contexts.
func GetUser(ctx context.Context) *UserContext {
	u, _ := ctx.Value(userKey{}).(*UserContext)
	return u
}

// GetUserID returns "" when no user is attached. Audit rows record it as the actor.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
