package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/fireguard/fireguard/internal/store"
)

// Stored field names.
const (
	fieldName      = "locationName"
	fieldLatitude  = "latitude"
	fieldLongitude = "longitude"
)

// Schema is the projection of a stored location onto its API shape.
var Schema = store.Schema{
	Fields: map[string]string{
		"id":           store.IDField,
		"locationName": fieldName,
		"latitude":     fieldLatitude,
		"longitude":    fieldLongitude,
	},
}

// StoreRepository implements Repository on a document collection.
type StoreRepository struct {
	coll store.Collection
}

// NewRepository creates a Repository backed by the given collection.
func NewRepository(coll store.Collection) Repository {
	return &StoreRepository{coll: coll}
}

// Create inserts a new location and fills in its ID.
func (r *StoreRepository) Create(ctx context.Context, loc *Location) error {
	id, err := r.coll.InsertOne(ctx, store.Document{
		fieldName:      loc.Name,
		fieldLatitude:  loc.Latitude,
		fieldLongitude: loc.Longitude,
	})
	if err != nil {
		return fmt.Errorf("inserting location: %w", err)
	}
	loc.ID = id
	return nil
}

// GetByID retrieves a single location. Malformed ids yield store.ErrInvalidID.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	doc, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "querying location")
	}
	loc := fromDocument(doc)
	return &loc, nil
}

// GetByName retrieves the first location with the given name.
func (r *StoreRepository) GetByName(ctx context.Context, name string) (*Location, error) {
	doc, err := r.coll.FindOne(ctx, store.Filter{fieldName: name})
	if err != nil {
		return nil, translate(err, "querying location by name")
	}
	loc := fromDocument(doc)
	return &loc, nil
}

// List retrieves all locations in insertion order.
func (r *StoreRepository) List(ctx context.Context) ([]Location, error) {
	docs, err := r.coll.Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	locs := make([]Location, 0, len(docs))
	for _, doc := range docs {
		locs = append(locs, fromDocument(doc))
	}
	return locs, nil
}

// Update sets the supplied fields and returns the updated location.
func (r *StoreRepository) Update(ctx context.Context, id string, fields UpdateFields) (*Location, error) {
	set := store.Document{}
	if fields.Name != nil {
		set[fieldName] = *fields.Name
	}
	if fields.Latitude != nil {
		set[fieldLatitude] = *fields.Latitude
	}
	if fields.Longitude != nil {
		set[fieldLongitude] = *fields.Longitude
	}

	if len(set) > 0 {
		if err := r.coll.UpdateByID(ctx, id, set); err != nil {
			return nil, translate(err, "updating location")
		}
	}
	return r.GetByID(ctx, id)
}

func translate(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, store.ErrInvalidID) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func fromDocument(doc store.Document) Location {
	p := store.Project(doc, Schema)
	lat, _ := store.Float(p["latitude"])
	lon, _ := store.Float(p["longitude"])
	return Location{
		ID:        store.IDString(p["id"]),
		Name:      store.String(p["locationName"]),
		Latitude:  lat,
		Longitude: lon,
	}
}
