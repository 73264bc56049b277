// Package firerisk answers fire-risk queries from a cache, falling back to the
// external prediction service.
package firerisk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fireguard/fireguard/internal/location"
)

// ObservationWindow is how far back point-in-time predictions read weather observations.
const ObservationWindow = 24 * time.Hour

var (
	// ErrLocationNotFound is returned when the queried location does not exist.
	ErrLocationNotFound = errors.New("location not found")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("end time must be after start time")

	// ErrInvalidTime is returned by ParseTime for unrecognised formats.
	ErrInvalidTime = errors.New("invalid time format")
)

// LocationFinder resolves a location by name.
type LocationFinder interface {
	GetByName(ctx context.Context, name string) (*location.Location, error)
}

// Service resolves fire-risk queries.
type Service struct {
	cache     Cache
	locations LocationFinder
	predictor Predictor
	writeBack bool
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithWriteBack stores the first computed value of each prediction in the cache.
func WithWriteBack(enabled bool) Option {
	return func(s *Service) { s.writeBack = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a fire-risk Service.
func NewService(cache Cache, locations LocationFinder, predictor Predictor, opts ...Option) *Service {
	s := &Service{
		cache:     cache,
		locations: locations,
		predictor: predictor,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Predict returns the cached entry for (location, time) when present and a
// fresh prediction otherwise.
func (s *Service) Predict(ctx context.Context, q Query) (*Result, error) {
	at := s.now().UTC().Truncate(time.Second)
	if q.Time != nil {
		at = q.Time.UTC()
	}

	cached, err := s.cache.FindByKey(ctx, q.LocationName, at)
	if err == nil {
		slog.Info("fire risk served from cache", "location", q.LocationName)
		return &Result{Cached: cached}, nil
	}
	if !errors.Is(err, ErrNotCached) {
		return nil, err
	}

	loc, err := s.locations.GetByName(ctx, q.LocationName)
	if errors.Is(err, location.ErrNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving location: %w", err)
	}
	coords := Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}

	var pred *Prediction
	if q.Start != nil && q.End != nil {
		if !q.End.After(*q.Start) {
			return nil, ErrInvalidPeriod
		}
		pred, err = s.predictor.ComputePeriod(ctx, coords, *q.Start, *q.End)
	} else {
		pred, err = s.predictor.ComputeNow(ctx, coords, ObservationWindow)
	}
	if err != nil {
		if errors.Is(err, ErrPrediction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}

	if s.writeBack && len(pred.FireRisks) > 0 {
		entry := &FireRisk{LocationName: q.LocationName, Time: at, RiskValue: pred.FireRisks[0].TTF}
		if err := s.cache.Save(ctx, entry); err != nil {
			slog.Error("failed to cache fire risk", "error", err, "location", q.LocationName)
		}
	}

	return &Result{Prediction: pred}, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts ISO 8601 timestamps with a "T" or space separator, with
// or without seconds, and bare dates. Values without an offset are read as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}
