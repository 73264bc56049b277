package middleware

import (
	"net/http"

	"github.com/fireguard/fireguard/internal/api/response"
)

// RequireRole returns middleware that rejects callers whose token does not
// carry role. It must run after Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			data := GetTokenData(r.Context())
			if data == nil {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Not authenticated", requestID)
				return
			}

			if !data.HasRole(role) {
				response.Err(w, http.StatusForbidden, response.CodeForbidden, "Not authorized", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
