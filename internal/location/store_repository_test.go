package location_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireguard/fireguard/internal/location"
	"github.com/fireguard/fireguard/internal/store"
)

func setupRepo(t *testing.T) location.Repository {
	t.Helper()
	return location.NewRepository(store.NewMemoryStore().Collection(store.LocationsCollection))
}

func ptr[T any](v T) *T { return &v }

func TestRepository_CreateAndGetByID(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	loc := &location.Location{Name: "Oslo", Latitude: 25.0, Longitude: 50.0}
	require.NoError(t, repo.Create(ctx, loc))
	assert.Regexp(t, `^[0-9a-f]{24}$`, loc.ID)

	got, err := repo.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, *loc, *got)
}

func TestRepository_GetByID_Errors(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, store.ErrInvalidID)

	_, err = repo.GetByID(context.Background(), store.NewID())
	assert.ErrorIs(t, err, location.ErrNotFound)
}

func TestRepository_GetByName(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &location.Location{Name: "Bergen", Latitude: 60.39, Longitude: 5.32}))

	got, err := repo.GetByName(ctx, "Bergen")
	require.NoError(t, err)
	assert.InDelta(t, 60.39, got.Latitude, 1e-9)

	_, err = repo.GetByName(ctx, "Atlantis")
	assert.ErrorIs(t, err, location.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	locs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)

	require.NoError(t, repo.Create(ctx, &location.Location{Name: "A"}))
	require.NoError(t, repo.Create(ctx, &location.Location{Name: "B"}))

	locs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "A", locs[0].Name)
	assert.Equal(t, "B", locs[1].Name)
}

func TestRepository_UpdateOnlySuppliedFields(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	loc := &location.Location{Name: "Oslo", Latitude: 25.0, Longitude: 50.0}
	require.NoError(t, repo.Create(ctx, loc))

	got, err := repo.Update(ctx, loc.ID, location.UpdateFields{Latitude: ptr(59.91)})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", got.Name)
	assert.InDelta(t, 59.91, got.Latitude, 1e-9)
	assert.InDelta(t, 50.0, got.Longitude, 1e-9)

	got, err = repo.Update(ctx, loc.ID, location.UpdateFields{Name: ptr("Oslo sentrum")})
	require.NoError(t, err)
	assert.Equal(t, "Oslo sentrum", got.Name)
	assert.InDelta(t, 59.91, got.Latitude, 1e-9)
}

func TestRepository_UpdateErrors(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)

	_, err := repo.Update(context.Background(), store.NewID(), location.UpdateFields{Name: ptr("x")})
	assert.ErrorIs(t, err, location.ErrNotFound)

	_, err = repo.Update(context.Background(), "zzz", location.UpdateFields{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrInvalidID)
}

func TestUpdateFields_Empty(t *testing.T) {
	t.Parallel()
	assert.True(t, location.UpdateFields{}.Empty())
	assert.False(t, location.UpdateFields{Longitude: ptr(1.0)}.Empty())
}
