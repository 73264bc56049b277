package firerisk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fireguard/fireguard/internal/store"
)

// ErrNotCached is returned when no cache entry matches.
var ErrNotCached = errors.New("fire risk not cached")

const (
	fieldLocationName = "locationName"
	fieldTime         = "time"
	fieldRiskValue    = "risk_value"
)

// Schema is the projection of a cached entry onto its API shape.
var Schema = store.Schema{
	Fields: map[string]string{
		"id":           store.IDField,
		"locationName": fieldLocationName,
		"time":         fieldTime,
		"risk_value":   fieldRiskValue,
	},
}

// Cache stores computed risk values keyed by location name and time.
type Cache interface {
	FindByKey(ctx context.Context, locationName string, t time.Time) (*FireRisk, error)
	Save(ctx context.Context, fr *FireRisk) error
}

// StoreCache implements Cache on a document collection.
type StoreCache struct {
	coll store.Collection
}

// NewCache creates a Cache backed by the given collection.
func NewCache(coll store.Collection) Cache {
	return &StoreCache{coll: coll}
}

// FindByKey returns the entry stored for exactly (locationName, t).
func (c *StoreCache) FindByKey(ctx context.Context, locationName string, t time.Time) (*FireRisk, error) {
	doc, err := c.coll.FindOne(ctx, store.Filter{
		fieldLocationName: locationName,
		fieldTime:         t.UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("querying fire risk cache: %w", err)
	}

	p := store.Project(doc, Schema)
	ts, _ := store.Time(p["time"])
	risk, _ := store.Float(p["risk_value"])
	return &FireRisk{
		ID:           store.IDString(p["id"]),
		LocationName: store.String(p["locationName"]),
		Time:         ts,
		RiskValue:    risk,
	}, nil
}

// Save stores a new entry and fills in its ID.
func (c *StoreCache) Save(ctx context.Context, fr *FireRisk) error {
	id, err := c.coll.InsertOne(ctx, store.Document{
		fieldLocationName: fr.LocationName,
		fieldTime:         fr.Time.UTC(),
		fieldRiskValue:    fr.RiskValue,
	})
	if err != nil {
		return fmt.Errorf("inserting fire risk: %w", err)
	}
	fr.ID = id
	return nil
}
