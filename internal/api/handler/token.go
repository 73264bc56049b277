package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/api/validation"
	"github.com/fireguard/fireguard/internal/keycloak"
)

// TokenIssuer performs user-facing grants.
type TokenIssuer interface {
	PasswordToken(ctx context.Context, username, password string) (*keycloak.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*keycloak.TokenPair, error)
}

// TokenHandler handles the /auth endpoints.
type TokenHandler struct {
	issuer TokenIssuer
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(issuer TokenIssuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// Token handles POST /auth/token.
func (h *TokenHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req validation.TokenRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateTokenRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	pair, err := h.issuer.PasswordToken(r.Context(), req.Username, req.Password)
	h.respond(w, r, pair, err, "Invalid username or password")
}

// Refresh handles POST /auth/refresh.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req validation.RefreshRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateRefreshRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	pair, err := h.issuer.RefreshToken(r.Context(), req.RefreshToken)
	h.respond(w, r, pair, err, "Invalid or expired refresh token")
}

func (h *TokenHandler) respond(w http.ResponseWriter, r *http.Request, pair *keycloak.TokenPair, err error, invalidMsg string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, keycloak.ErrInvalidGrant):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, invalidMsg, requestID)
	case err != nil:
		writeError(w, r, err, "Failed to obtain token")
	default:
		response.Success(w, http.StatusOK, pair, requestID)
	}
}
