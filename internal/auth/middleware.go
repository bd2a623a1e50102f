package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aliuyar1234/propdesk/internal/apperrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDContextKey is the context key for storing user ID
	UserIDContextKey contextKey = "user_id"

	authMethodContextKey contextKey = "auth_method"
)

// AuthMethod records how the session of a request was presented.
type AuthMethod string

const (
	AuthMethodNone   AuthMethod = ""
	AuthMethodCookie AuthMethod = "cookie"
	AuthMethodBearer AuthMethod = "bearer"
)

// AuthMiddleware validates the session (Bearer token first, then cookie) and
// injects the user ID into context. Invalid sessions continue unauthenticated.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, method := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Str("method", string(method)).Msg("Invalid session token")
				if method == AuthMethodCookie {
					ClearSessionCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, method)))
		})
	}
}

func sessionToken(r *http.Request) (string, AuthMethod) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), AuthMethodBearer
		}
	}
	if token := GetSessionCookie(r); token != "" {
		return token, AuthMethodCookie
	}
	return "", AuthMethodNone
}

// RequireAuth is middleware that requires authentication
// Returns 401 if the user is not authenticated
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == uuid.Nil {
			apperrors.WriteUnauthorized(w, r, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying an authenticated user.
func WithUser(ctx context.Context, userID uuid.UUID, method AuthMethod) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, authMethodContextKey, method)
}

// GetUserID retrieves the user ID from the request context
// Returns uuid.Nil if no user is authenticated
func GetUserID(ctx context.Context) uuid.UUID {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// GetAuthMethod reports how the request authenticated.
func GetAuthMethod(ctx context.Context) AuthMethod {
	m, _ := ctx.Value(authMethodContextKey).(AuthMethod)
	return m
}
