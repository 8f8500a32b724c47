package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*TokenClaims, error)
}

// TokenClaims is the authenticated actor extracted from a token.
type TokenClaims struct {
	UserID  string
	IsAdmin bool
}

type contextKeyUserID struct{}
type contextKeyIsAdmin struct{}

var (
	ContextKeyUserID  = contextKeyUserID{}
	ContextKeyIsAdmin = contextKeyIsAdmin{}
)

// GetUserID retrieves the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// IsAdmin reports whether the authenticated actor holds the admin role.
func IsAdmin(ctx context.Context) bool {
	isAdmin, ok := ctx.Value(ContextKeyIsAdmin).(bool)
	return ok && isAdmin
}

// RequireAuth rejects requests without a valid bearer token and stores the
// actor's claims in the request context.
func RequireAuth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.Warn("unauthorized access, missing token", zap.String("path", r.URL.Path))
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("unauthorized access, invalid token",
					zap.String("path", r.URL.Path), zap.Error(err))
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyIsAdmin, claims.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be mounted inside RequireAuth; it rejects non-admin
// actors.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				logger.Warn("forbidden access, admin required",
					zap.String("path", r.URL.Path), zap.String("user_id", GetUserID(r.Context())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"message":"Admin privileges required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + description + `"}`))
}
