package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskyapp/tasky-backend/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Auth verifies the request's JWT and puts the authenticated user id on the
// request context. The token comes from the Authorization bearer header, or
// from the "token" query parameter for WebSocket upgrades where browsers
// cannot set headers.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				http.Error(w, "Missing credentials", http.StatusUnauthorized)
				return
			}

			claims, err := auth.Parse(secret, tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// UserID returns the authenticated user id placed on the context by Auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
