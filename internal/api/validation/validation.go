// Package validation checks request payloads and reports field-level errors.
package validation

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const bodyField = "body"

// fieldErrors flattens ozzo validation errors into a stable, sorted slice.
// Returns nil when err is nil.
func fieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: bodyField, Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(verrs))
	for field, fe := range verrs {
		if fe == nil {
			continue
		}
		errs = append(errs, FieldError{Field: field, Message: field + " " + fe.Error()})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func noFields() []FieldError {
	return []FieldError{{Field: bodyField, Message: "at least one field must be provided"}}
}
