// Package store is the document store gateway: a small collection-oriented
// API over MongoDB, a Postgres JSONB table, or process memory.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names used by the service.
const (
	UsersCollection     = "users"
	LocationsCollection = "locations"
	FireRisksCollection = "firerisks"
)

// IDField is the stored key of every document.
const IDField = "_id"

// ErrNotFound is returned when no document matches.
var ErrNotFound = errors.New("document not found")

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex string.
var ErrInvalidID = errors.New("invalid document id")

// Document is a raw stored record.
type Document map[string]any

// Filter selects documents by field equality. An empty filter matches everything.
type Filter map[string]any

// Collection provides CRUD operations on a named set of documents.
type Collection interface {
	// InsertOne stores doc and returns its identifier as a hex string.
	InsertOne(ctx context.Context, doc Document) (string, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	FindByID(ctx context.Context, id string) (Document, error)
	Find(ctx context.Context, filter Filter) ([]Document, error)
	// UpdateByID sets the given fields, leaving all others untouched.
	UpdateByID(ctx context.Context, id string, set Document) error
	DeleteByID(ctx context.Context, id string) error
}

// Store hands out collections and reports backend health.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ParseID validates an identifier string and returns the ObjectID it encodes.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	_, err := ParseID(id)
	return err == nil
}

// NewID returns a fresh identifier hex string.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// clone copies the top level of a document so callers cannot alias stored state.
func clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
