package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a user record is not found.
var ErrNotFound = errors.New("user not found")

// Repository provides operations on stored user records.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
}
