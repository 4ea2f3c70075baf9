package httpx

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyUserRole  ctxKey = "user_role"
	CtxKeySessionID ctxKey = "session_id"
)

// ContextWithSession injects the resolved session identity into ctx for
// downstream handlers.
func ContextWithSession(ctx context.Context, userID, role, sessionID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyUserRole, role)
	ctx = context.WithValue(ctx, CtxKeySessionID, sessionID)
	return ctx
}

// UserIDFromContext returns the authenticated user ID, or "" when the request
// carries no valid session.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// RoleFromContext returns the authenticated user's role name, or "".
func RoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserRole).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext returns the validated session ID, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// UserIDKeyExtractor extracts the authenticated user ID for rate limiting.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}
