package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireguard/fireguard/internal/store"
	"github.com/fireguard/fireguard/internal/user"
)

func TestRepository_RolesDefaultToEmptyList(t *testing.T) {
	t.Parallel()

	coll := store.NewMemoryStore().Collection(store.UsersCollection)
	repo := user.NewRepository(coll)

	// A record written without roles, as older documents may be.
	id, err := coll.InsertOne(context.Background(), store.Document{
		"username":         "legacy",
		"email":            "legacy@example.com",
		"roles":            nil,
		"keycloak_user_id": "kc-legacy",
	})
	require.NoError(t, err)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, u.Roles)
	assert.Empty(t, u.Roles)

	projected := store.Project(store.Document{"_id": id}, user.Schema)
	assert.Equal(t, []any{}, projected["roles"])
	assert.Len(t, projected, 5)
}

func TestRepository_LookupsAndUpdate(t *testing.T) {
	t.Parallel()

	repo := user.NewRepository(store.NewMemoryStore().Collection(store.UsersCollection))
	ctx := context.Background()

	u := &user.User{Username: "kari", Email: "kari@example.com", KeycloakUserID: "kc-1"}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, []string{}, u.Roles)

	byEmail, err := repo.GetByEmail(ctx, "kari@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := repo.GetByUsername(ctx, "kari")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = repo.GetByUsername(ctx, "ola")
	assert.ErrorIs(t, err, user.ErrNotFound)

	roles := []string{"User"}
	require.NoError(t, repo.Update(ctx, u.ID, user.Fields{Roles: &roles}))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"User"}, got.Roles)
	assert.Equal(t, "kari@example.com", got.Email)

	assert.ErrorIs(t, repo.Update(ctx, store.NewID(), user.Fields{Roles: &roles}), user.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), user.ErrNotFound)
}
