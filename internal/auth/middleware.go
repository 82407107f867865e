package auth

import (
	"context"
	"net/http"
)

// CookieName is the cookie that carries the bridge token.
const CookieName = "token"

type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid bridge token and stores the
// Moodle user id in the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"not signed in, please log in again"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id != 0
}

// extractUserID accepts the token from the cookie or an Authorization: Bearer header.
func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		return tokens.Validate(cookie.Value)
	}

	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return tokens.Validate(h[len(prefix):])
	}
	return 0, http.ErrNoCookie
}
