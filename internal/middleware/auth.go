package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// UserContextKey carries the JWT claims of the authenticated staff user
const UserContextKey contextKey = "user"

// Auth returns middleware that verifies staff JWT bearer tokens
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID extracts the authenticated staff user's id from the request
// context, or nil for unauthenticated (kiosk) requests.
func ActorID(r *http.Request) *uint {
	claims, ok := r.Context().Value(UserContextKey).(jwt.MapClaims)
	if !ok {
		return nil
	}
	raw, ok := claims["id"]
	if !ok {
		return nil
	}
	// JWT numeric claims decode as float64
	if f, ok := raw.(float64); ok {
		id := uint(f)
		return &id
	}
	return nil
}

// Role extracts the authenticated staff user's role from the request
// context, or "" for unauthenticated requests.
func Role(r *http.Request) string {
	claims, ok := r.Context().Value(UserContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	if role, ok := claims["role"].(string); ok {
		return role
	}
	return ""
}
