package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	callerIDKey contextKey = "callerID"
	roleKey     contextKey = "callerRole"
)

// Middleware lifts the authenticated caller identity supplied by the
// upstream auth layer into the request context. This service trusts the
// headers; verification happens before requests reach it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get("X-Customer-ID"); id != "" {
			ctx = context.WithValue(ctx, callerIDKey, id)
		}
		if role := r.Header.Get("X-Actor-Role"); role != "" {
			ctx = context.WithValue(ctx, roleKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID returns the authenticated caller identity, if any.
func CallerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerIDKey).(string)
	return id, ok
}

// CallerRole returns the caller's role, if any.
func CallerRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}
