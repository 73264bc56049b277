package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the kind for missing, malformed or unverifiable tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServiceUnavailable is the kind for failures reaching the key set.
	ErrServiceUnavailable = errors.New("authentication service unavailable")
)

// Error carries a caller-facing detail message alongside its kind.
type Error struct {
	Kind   error
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func unauthorized(detail string) *Error {
	return &Error{Kind: ErrUnauthorized, Detail: detail}
}

// Detail returns the caller-facing message of err, or fallback when err is
// not an *Error.
func Detail(err error, fallback string) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Detail != "" {
		return authErr.Detail
	}
	return fallback
}
