package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/afo-asso/membership-api/internal/models"
	pkghttp "github.com/afo-asso/membership-api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the resolved user in context
	UserContextKey contextKey = "user"
)

// UserResolver fetches the full user record behind a token subject, so role
// checks always see the current role rather than a stale claim.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Predicate is a pure authorization check over a resolved identity.
// Gates compose declaratively per route via Require.
type Predicate func(u *models.User) bool

// Authenticate validates the bearer token and injects the resolved user into
// the request context.
func Authenticate(tm *TokenManager, users UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "user not found")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			// A token stays valid after a suspension; the gate is here.
			if user.Statut != models.StatutActif {
				pkghttp.WriteForbidden(w, "account suspended or banned")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require enforces an authorization predicate over the authenticated user.
// Must be used after Authenticate.
func Require(allowed Predicate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if !allowed(user) {
				pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the resolved user from the request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
