package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/auth"
)

const tokenDataKey contextKey = "tokenData"

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.TokenData, error)
}

// Authenticate is middleware that validates the Authorization bearer token and
// stores the resulting TokenData in the request context. Missing or invalid
// tokens return 401; a failing key set returns 500.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			data, err := v.Validate(r.Context(), bearerToken(r))
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					w.Header().Set("WWW-Authenticate", "Bearer")
					response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, auth.Detail(err, "Not authenticated"), requestID)
					return
				}
				slog.Error("token validation failed", "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, response.CodeServiceError, auth.Detail(err, "Authentication failed"), requestID)
				return
			}

			setLogUsername(r.Context(), data.Username)
			ctx := context.WithValue(r.Context(), tokenDataKey, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTokenData retrieves the authenticated caller from the request context.
func GetTokenData(ctx context.Context) *auth.TokenData {
	if data, ok := ctx.Value(tokenDataKey).(*auth.TokenData); ok {
		return data
	}
	return nil
}

// WithTokenData returns a copy of ctx carrying data.
func WithTokenData(ctx context.Context, data *auth.TokenData) context.Context {
	return context.WithValue(ctx, tokenDataKey, data)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
