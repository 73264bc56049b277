package validation

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	latitudeRange  = []validation.Rule{validation.Min(-90.0), validation.Max(90.0)}
	longitudeRange = []validation.Rule{validation.Min(-180.0), validation.Max(180.0)}
)

// CreateLocationRequest mirrors the fields needed for create location validation.
type CreateLocationRequest struct {
	Name      string   `json:"locationName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ValidateCreateLocationRequest requires a name and both coordinates.
func ValidateCreateLocationRequest(req CreateLocationRequest) []FieldError {
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Latitude, append([]validation.Rule{validation.NotNil}, latitudeRange...)...),
		validation.Field(&req.Longitude, append([]validation.Rule{validation.NotNil}, longitudeRange...)...),
	))
}

// UpdateLocationRequest mirrors the fields of a partial location update.
type UpdateLocationRequest struct {
	Name      *string  `json:"locationName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ValidateUpdateLocationRequest requires at least one field and checks the supplied ones.
func ValidateUpdateLocationRequest(req UpdateLocationRequest) []FieldError {
	if req.Name == nil && req.Latitude == nil && req.Longitude == nil {
		return noFields()
	}
	return fieldErrors(validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&req.Latitude, latitudeRange...),
		validation.Field(&req.Longitude, longitudeRange...),
	))
}
