// Package auth provides JWT session tokens and HTTP authentication middleware.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the request header for admin API key authentication
	APIKeyHeader = "X-Api-Key"

	// sessionContextKey is the context key for storing session info
	sessionContextKey contextKey = "session"
)

// SessionInfo holds session information extracted from a validated token
type SessionInfo struct {
	ID      uuid.UUID
	Channel string
}

// RequireAdminKey guards management endpoints (ingestion, report registry)
// behind a shared admin key. An empty configured key disables the endpoints
// entirely rather than leaving them open.
func RequireAdminKey(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				http.Error(w, "admin API key not configured", http.StatusForbidden)
				return
			}
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
				http.Error(w, "invalid API key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession validates the Bearer token on chat endpoints and stores the
// session info in the request context.
func RequireSession(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := manager.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			sessionID, err := claims.GetSessionID()
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}

			info := &SessionInfo{ID: sessionID, Channel: claims.Channel}
			ctx := context.WithValue(r.Context(), sessionContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts session info from context
func SessionFromContext(ctx context.Context) (*SessionInfo, bool) {
	session, ok := ctx.Value(sessionContextKey).(*SessionInfo)
	return session, ok
}
