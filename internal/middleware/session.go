package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// SessionGuard validates the session token on every RPC call and resolves it
// to a user id. The host platform owns real session management; this guard is
// the boundary a host adapter plugs its own validation into.
type SessionGuard struct {
	tokens map[string]string // bearer token -> user id
}

func NewSessionGuard(tokens map[string]string) *SessionGuard {
	return &SessionGuard{tokens: tokens}
}

func (g *SessionGuard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}

		userID, ok := g.tokens[token]
		if !ok {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserID returns the authenticated user id placed in the context by
// RequireSession, or "" when the request was not authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
