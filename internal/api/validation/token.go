package validation

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// TokenRequest mirrors the fields of a password grant.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateTokenRequest validates a login request.
func ValidateTokenRequest(req TokenRequest) []FieldError {
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Password, validation.Required),
	))
}

// RefreshRequest mirrors the fields of a refresh grant.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidateRefreshRequest validates a refresh request.
func ValidateRefreshRequest(req RefreshRequest) []FieldError {
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.RefreshToken, validation.Required),
	))
}
