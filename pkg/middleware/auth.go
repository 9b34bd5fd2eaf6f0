package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/httputil"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// SecretResolver maps an opaque user secret to the owning user's id.
type SecretResolver func(ctx context.Context, secret string) (string, error)

// Authenticate resolves an optional "Authorization: Bearer <secret>"
// header. Requests without the header pass through anonymously; a header
// that is malformed or names no user is rejected with 401.
func Authenticate(resolve SecretResolver, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, secret, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(secret) == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), l)
				return
			}

			userID, err := resolve(r.Context(), strings.TrimSpace(secret))
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrUnauthorized) {
					httputil.WriteError(w, r, apperrors.Unauthorized("unknown user secret"), l)
					return
				}
				httputil.WriteError(w, r, err, l)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID marks ctx as authenticated for userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
