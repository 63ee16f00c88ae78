package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// UserResolver turns a bearer access token into the account it was issued for.
type UserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (domain.User, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// BearerToken extracts the token from "Authorization: Bearer <token>".
// It returns TokenMissing when the header is absent and TokenInvalid when
// the header is malformed.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}

// Auth verifies the bearer access token and injects the resolved user into
// the request context.
func Auth(users UserResolver, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			u, err := users.CurrentUser(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
