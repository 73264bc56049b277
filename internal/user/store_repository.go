package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/fireguard/fireguard/internal/store"
)

const (
	fieldUsername       = "username"
	fieldEmail          = "email"
	fieldRoles          = "roles"
	fieldKeycloakUserID = "keycloak_user_id"
)

// Schema is the projection of a stored user onto its API shape. Roles are
// always rendered as a list.
var Schema = store.Schema{
	Fields: map[string]string{
		"id":               store.IDField,
		"username":         fieldUsername,
		"email":            fieldEmail,
		"roles":            fieldRoles,
		"keycloak_user_id": fieldKeycloakUserID,
	},
	DefaultLists: []string{"roles"},
}

// StoreRepository implements Repository on a document collection.
type StoreRepository struct {
	coll store.Collection
}

// NewRepository creates a Repository backed by the given collection.
func NewRepository(coll store.Collection) Repository {
	return &StoreRepository{coll: coll}
}

// Create inserts a user record and fills in its ID.
func (r *StoreRepository) Create(ctx context.Context, u *User) error {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	id, err := r.coll.InsertOne(ctx, store.Document{
		fieldUsername:       u.Username,
		fieldEmail:          u.Email,
		fieldRoles:          roles,
		fieldKeycloakUserID: u.KeycloakUserID,
	})
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	u.ID = id
	u.Roles = roles
	return nil
}

// GetByID retrieves a user by its local identifier.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "querying user")
	}
	u := fromDocument(doc)
	return &u, nil
}

// GetByEmail retrieves a user by email address.
func (r *StoreRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, store.Filter{fieldEmail: email})
}

// GetByUsername retrieves a user by username.
func (r *StoreRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, store.Filter{fieldUsername: username})
}

func (r *StoreRepository) findOne(ctx context.Context, filter store.Filter) (*User, error) {
	doc, err := r.coll.FindOne(ctx, filter)
	if err != nil {
		return nil, translate(err, "querying user")
	}
	u := fromDocument(doc)
	return &u, nil
}

// List retrieves all users.
func (r *StoreRepository) List(ctx context.Context) ([]User, error) {
	docs, err := r.coll.Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, fromDocument(doc))
	}
	return users, nil
}

// Update sets the supplied fields.
func (r *StoreRepository) Update(ctx context.Context, id string, fields Fields) error {
	set := store.Document{}
	if fields.Username != nil {
		set[fieldUsername] = *fields.Username
	}
	if fields.Email != nil {
		set[fieldEmail] = *fields.Email
	}
	if fields.Roles != nil {
		set[fieldRoles] = *fields.Roles
	}
	if len(set) == 0 {
		return nil
	}
	if err := r.coll.UpdateByID(ctx, id, set); err != nil {
		return translate(err, "updating user")
	}
	return nil
}

// Delete removes a user record.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	if err := r.coll.DeleteByID(ctx, id); err != nil {
		return translate(err, "deleting user")
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrInvalidID):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func fromDocument(doc store.Document) User {
	p := store.Project(doc, Schema)
	return User{
		ID:             store.IDString(p["id"]),
		Username:       store.String(p["username"]),
		Email:          store.String(p["email"]),
		Roles:          store.Strings(p["roles"]),
		KeycloakUserID: store.String(p["keycloak_user_id"]),
	}
}
