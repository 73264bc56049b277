package validation

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// CreateUserRequest mirrors the fields needed for registration validation.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateCreateUserRequest validates a registration request.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&req.Password, validation.Required, validation.Length(1, 256)),
	))
}

// UpdateSelfRequest mirrors the fields a caller may change on their own account.
type UpdateSelfRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ValidateUpdateSelfRequest requires at least one field and checks the supplied ones.
func ValidateUpdateSelfRequest(req UpdateSelfRequest) []FieldError {
	if req.Email == nil && req.Password == nil {
		return noFields()
	}
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&req.Password, validation.NilOrNotEmpty, validation.Length(1, 256)),
	))
}

// AdminUpdateUserRequest mirrors the fields an administrator may change.
type AdminUpdateUserRequest struct {
	Username *string   `json:"username"`
	Email    *string   `json:"email"`
	Roles    *[]string `json:"roles"`
	Password *string   `json:"password"`
}

// ValidateAdminUpdateUserRequest requires at least one field and checks the supplied ones.
func ValidateAdminUpdateUserRequest(req AdminUpdateUserRequest) []FieldError {
	if req.Username == nil && req.Email == nil && req.Roles == nil && req.Password == nil {
		return noFields()
	}

	var roles []string
	if req.Roles != nil {
		roles = *req.Roles
	}
	errs := fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&req.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&req.Password, validation.NilOrNotEmpty, validation.Length(1, 256)),
	))
	for _, role := range roles {
		if role == "" {
			errs = append(errs, FieldError{Field: "roles", Message: "roles must not contain empty names"})
			break
		}
	}
	return errs
}
