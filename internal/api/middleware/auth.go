package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hugh/contact-keeper/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uint
	Email  string
}

// Auth requires "Authorization: Bearer <token>". A missing token is 401, a
// token that fails validation is 403.
func Auth(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusForbidden, "Invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the second whitespace-separated field of the header.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the caller set by Auth.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetUserID returns 0 outside an authenticated request.
func GetUserID(ctx context.Context) uint {
	id, _ := GetIdentity(ctx)
	return id.UserID
}

func GetUserEmail(ctx context.Context) string {
	id, _ := GetIdentity(ctx)
	return id.Email
}
