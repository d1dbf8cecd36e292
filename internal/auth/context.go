package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Role        domain.UserRole
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// IsAdmin reports whether the user may perform administrator-only
// operations such as bulk invoice deletion.
func (u *UserContext) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// CanWrite reports whether the user may create or modify records.
// Viewers are read-only.
func (u *UserContext) CanWrite() bool {
	return u.Role == domain.RoleAdmin || u.Role == domain.RoleOperator
}

// ActorName returns the name recorded in invoice history entries for
// actions performed by this user.
func ActorName(ctx context.Context) string {
	if user, ok := FromContext(ctx); ok && user.DisplayName != "" {
		return user.DisplayName
	}
	return "Sistema"
}
