package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"autolot/internal/auth"
	"autolot/internal/models"
	"autolot/internal/repository"
)

type ctxKey string

const ctxUser ctxKey = "current_user"

// UserFrom returns the authenticated user attached by Authenticator.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUser).(*models.User)
	return u
}

// WithUser attaches a user to the context the same way Authenticator does.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code, "message": message})
}

// Authenticator gates requests behind a valid session token. The token is
// taken from the Authorization header, falling back to the session cookie;
// the header wins when both are present. The user is re-resolved on every
// request, and tokens issued before the user's last password change are
// rejected.
func Authenticator(tokens *auth.Manager, users repository.UserRepository, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					tokenString = c.Value
				}
			}
			if tokenString == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
				return
			}

			userID, issuedAt, err := tokens.Verify(tokenString)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "The user belonging to this token no longer exists")
				return
			}

			if u.PasswordChangedAt.After(issuedAt) {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "Password changed recently, please log in again")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireRoles restricts a route to the given roles. Must run after
// Authenticator.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFrom(r.Context())
			if u == nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated", "You are not logged in")
				return
			}
			if !allowed[u.Role] {
				writeAuthError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
