package authcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey string

const (
	userIDKey contextKey = "auth_user_id"
	roleKey   contextKey = "auth_role"
	emailKey  contextKey = "auth_email"
)

// WithUser stores the authenticated caller on the request context.
func WithUser(ctx context.Context, userID snowflake.ID, role, email string) context.Context {
	if ctx == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	if role != "" {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	if email != "" {
		ctx = context.WithValue(ctx, emailKey, email)
	}
	return ctx
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	value, ok := ctx.Value(userIDKey).(snowflake.ID)
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}

// RoleFromContext returns the authenticated caller's role.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(roleKey).(string)
	return value
}

// EmailFromContext returns the authenticated caller's email.
func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(emailKey).(string)
	return value
}
