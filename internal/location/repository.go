package location

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a location record is not found.
var ErrNotFound = errors.New("location not found")

// Repository provides create, read and update operations on locations.
// Locations are never deleted.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id string) (*Location, error)
	GetByName(ctx context.Context, name string) (*Location, error)
	List(ctx context.Context) ([]Location, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*Location, error)
}
