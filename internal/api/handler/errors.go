package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/api/validation"
	"github.com/fireguard/fireguard/internal/firerisk"
	"github.com/fireguard/fireguard/internal/keycloak"
	"github.com/fireguard/fireguard/internal/location"
	"github.com/fireguard/fireguard/internal/store"
	"github.com/fireguard/fireguard/internal/user"
)

const maxBodyBytes = 1 << 20

// upstreamDetails describes a failed identity-provider call.
type upstreamDetails struct {
	Status int    `json:"status"`
	Body   string `json:"body,omitempty"`
}

// decodeJSON reads the request body into dst. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		requestID := middleware.GetRequestID(r.Context())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Err(w, http.StatusRequestEntityTooLarge, response.CodeTooLarge, "Request body is too large", requestID)
			return false
		}
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", requestID)
		return false
	}
	return true
}

func writeValidationErrors(w http.ResponseWriter, r *http.Request, errs []validation.FieldError) {
	response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Input validation failed", errs, middleware.GetRequestID(r.Context()))
}

// writeError maps domain errors onto status codes and error codes. Anything
// unrecognised is logged and reported as an internal error with fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	requestID := middleware.GetRequestID(r.Context())
	var apiErr *keycloak.APIError
	isAPIErr := errors.As(err, &apiErr)

	switch {
	case errors.Is(err, store.ErrInvalidID):
		response.Err(w, http.StatusBadRequest, response.CodeInvalidID, "id must be a 24-character hex identifier", requestID)
	case errors.Is(err, location.ErrNotFound), errors.Is(err, firerisk.ErrLocationNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "Location not found", requestID)
	case errors.Is(err, user.ErrNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "User not found", requestID)
	case errors.Is(err, user.ErrConflict):
		response.Err(w, http.StatusConflict, response.CodeConflict, "User already exists", requestID)
	case errors.Is(err, user.ErrUnknownRole), errors.Is(err, firerisk.ErrInvalidPeriod):
		response.Err(w, http.StatusBadRequest, response.CodeValidation, err.Error(), requestID)
	case errors.Is(err, user.ErrMissingIdentity):
		slog.Error(fallback, "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, response.CodeServiceError, "User is missing identity provider id", requestID)
	case errors.Is(err, user.ErrUpstream), errors.Is(err, firerisk.ErrPrediction), isAPIErr:
		slog.Error(fallback, "error", err, "requestId", requestID)
		if isAPIErr {
			response.ErrWithDetails(w, http.StatusInternalServerError, response.CodeServiceError, fallback,
				upstreamDetails{Status: apiErr.StatusCode, Body: apiErr.Body}, requestID)
			return
		}
		response.Err(w, http.StatusInternalServerError, response.CodeServiceError, fallback, requestID)
	default:
		slog.Error(fallback, "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, fallback, requestID)
	}
}
