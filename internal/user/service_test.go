package user_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireguard/fireguard/internal/keycloak"
	"github.com/fireguard/fireguard/internal/store"
	"github.com/fireguard/fireguard/internal/user"
)

// --- Fake identity provider ---

type fakeIDP struct {
	mu       sync.Mutex
	roles    map[string]keycloak.Role
	accounts map[string]keycloak.UserRepresentation // by email
	mapped   map[string][]string                    // account id -> role names
	calls    []string

	createUserFn   func(u keycloak.NewUser) error
	assignRolesFn  func(userID string, roles []keycloak.Role) error
	deleteUserFn   func(userID string) error
	createRoleFn   func(name string) error
	resetPasswords map[string]string
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{
		roles:          map[string]keycloak.Role{},
		accounts:       map[string]keycloak.UserRepresentation{},
		mapped:         map[string][]string{},
		resetPasswords: map[string]string{},
	}
}

func (f *fakeIDP) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeIDP) GetRealmRole(_ context.Context, _ string, name string) (*keycloak.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRealmRole")
	r, ok := f.roles[name]
	if !ok {
		return nil, keycloak.ErrRoleNotFound
	}
	return &r, nil
}

func (f *fakeIDP) CreateRealmRole(_ context.Context, _ string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRealmRole")
	if f.createRoleFn != nil {
		if err := f.createRoleFn(name); err != nil {
			return err
		}
	}
	f.roles[name] = keycloak.Role{ID: "role-" + name, Name: name}
	return nil
}

func (f *fakeIDP) FindUsersByEmail(_ context.Context, _ string, email string) ([]keycloak.UserRepresentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindUsersByEmail")
	if a, ok := f.accounts[email]; ok {
		return []keycloak.UserRepresentation{a}, nil
	}
	return []keycloak.UserRepresentation{}, nil
}

func (f *fakeIDP) CreateUser(_ context.Context, _ string, u keycloak.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateUser")
	if f.createUserFn != nil {
		if err := f.createUserFn(u); err != nil {
			return err
		}
	}
	f.accounts[u.Email] = keycloak.UserRepresentation{ID: "kc-" + u.Username, Username: u.Username, Email: u.Email, Enabled: true}
	return nil
}

func (f *fakeIDP) UpdateUser(_ context.Context, _ string, userID string, u keycloak.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateUser")
	for email, a := range f.accounts {
		if a.ID != userID {
			continue
		}
		if u.Username != nil {
			a.Username = *u.Username
		}
		delete(f.accounts, email)
		if u.Email != nil {
			a.Email = *u.Email
		}
		f.accounts[a.Email] = a
		return nil
	}
	return &keycloak.APIError{Op: "PUT /users/" + userID, StatusCode: http.StatusNotFound}
}

func (f *fakeIDP) ResetPassword(_ context.Context, _ string, userID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ResetPassword")
	f.resetPasswords[userID] = password
	return nil
}

func (f *fakeIDP) AssignRealmRoles(_ context.Context, _ string, userID string, roles []keycloak.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AssignRealmRoles")
	if f.assignRolesFn != nil {
		if err := f.assignRolesFn(userID, roles); err != nil {
			return err
		}
	}
	for _, r := range roles {
		if !slices.Contains(f.mapped[userID], r.Name) {
			f.mapped[userID] = append(f.mapped[userID], r.Name)
		}
	}
	return nil
}

func (f *fakeIDP) RemoveRealmRoles(_ context.Context, _ string, userID string, roles []keycloak.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveRealmRoles")
	f.mapped[userID] = slices.DeleteFunc(f.mapped[userID], func(name string) bool {
		return slices.ContainsFunc(roles, func(r keycloak.Role) bool { return r.Name == name })
	})
	return nil
}

func (f *fakeIDP) DeleteUser(_ context.Context, _ string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteUser")
	if f.deleteUserFn != nil {
		if err := f.deleteUserFn(userID); err != nil {
			return err
		}
	}
	for email, a := range f.accounts {
		if a.ID == userID {
			delete(f.accounts, email)
		}
	}
	return nil
}

type fakeBroker struct {
	ok    bool
	calls int
}

func (b *fakeBroker) AdminToken(context.Context) (string, bool) {
	b.calls++
	if !b.ok {
		return "", false
	}
	return "admin-token", true
}

// --- Helpers ---

type fixture struct {
	svc    *user.Service
	repo   user.Repository
	idp    *fakeIDP
	broker *fakeBroker
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := user.NewRepository(store.NewMemoryStore().Collection(store.UsersCollection))
	idp := newFakeIDP()
	broker := &fakeBroker{ok: true}
	return &fixture{svc: user.NewService(repo, idp, broker), repo: repo, idp: idp, broker: broker}
}

func createKari(t *testing.T, fx *fixture) *user.User {
	t.Helper()
	u, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com", Password: "pw"})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T { return &v }

// ===== Create =====

func TestCreate_Success(t *testing.T) {
	t.Parallel()
	fx := setup(t)

	u := createKari(t, fx)

	assert.Regexp(t, `^[0-9a-f]{24}$`, u.ID)
	assert.Equal(t, "kc-kari", u.KeycloakUserID)
	assert.Equal(t, []string{user.RoleUser}, u.Roles)

	stored, err := fx.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "kari@example.com", stored.Email)
	assert.NotEmpty(t, stored.KeycloakUserID)
	assert.Equal(t, []string{user.RoleUser}, stored.Roles)

	assert.Equal(t, []string{user.RoleUser}, fx.idp.mapped["kc-kari"])
	assert.Contains(t, fx.idp.roles, user.RoleUser, "missing role is created")
	assert.Equal(t, []string{
		"GetRealmRole", "CreateRealmRole", "GetRealmRole",
		"FindUsersByEmail", "CreateUser", "FindUsersByEmail",
		"AssignRealmRoles",
	}, fx.idp.calls)
}

func TestCreate_ExistingRoleIsReused(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.idp.roles[user.RoleUser] = keycloak.Role{ID: "r1", Name: user.RoleUser}

	createKari(t, fx)
	assert.NotContains(t, fx.idp.calls, "CreateRealmRole")
}

func TestCreate_NoAdminToken(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.broker.ok = false

	_, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrUpstream)
	assert.ErrorIs(t, err, keycloak.ErrNoAdminToken)
	assert.Empty(t, fx.idp.calls)
}

func TestCreate_RoleCreationFails(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.idp.createRoleFn = func(string) error {
		return &keycloak.APIError{Op: "POST /roles", StatusCode: http.StatusForbidden}
	}

	_, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrUpstream)
	assert.NotContains(t, fx.idp.calls, "CreateUser")
}

func TestCreate_EmailTakenAtProvider(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.idp.accounts["kari@example.com"] = keycloak.UserRepresentation{ID: "kc-old", Email: "kari@example.com"}

	_, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrConflict)
	assert.NotContains(t, fx.idp.calls, "CreateUser")
}

func TestCreate_ProviderRejectsAccount(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.idp.createUserFn = func(keycloak.NewUser) error {
		return &keycloak.APIError{Op: "POST /users", StatusCode: http.StatusBadRequest, Body: `{"errorMessage":"invalid password"}`}
	}

	_, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrUpstream)

	var apiErr *keycloak.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	users, _ := fx.repo.List(context.Background())
	assert.Empty(t, users)
}

func TestCreate_EmailTakenInStore(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	require.NoError(t, fx.repo.Create(context.Background(), &user.User{Username: "other", Email: "kari@example.com"}))

	_, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrConflict)
	// The provider account is left in place.
	assert.Contains(t, fx.idp.accounts, "kari@example.com")
}

func TestCreate_RoleAssignmentFailsIsPartialSuccess(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	fx.idp.assignRolesFn = func(string, []keycloak.Role) error {
		return &keycloak.APIError{Op: "POST /role-mappings", StatusCode: http.StatusInternalServerError}
	}

	u, err := fx.svc.Create(context.Background(), user.CreateRequest{Username: "kari", Email: "kari@example.com"})
	assert.ErrorIs(t, err, user.ErrPartialSuccess)
	require.NotNil(t, u)
	assert.Equal(t, []string{}, u.Roles)

	stored, err := fx.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, stored.Roles)
	assert.Equal(t, "kc-kari", stored.KeycloakUserID)
}

// ===== Delete =====

func TestDelete_RemovesBothRecords(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)

	require.NoError(t, fx.svc.Delete(context.Background(), u.ID))

	_, err := fx.repo.GetByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NotContains(t, fx.idp.accounts, "kari@example.com")
}

func TestDelete_NotFoundAndInvalidID(t *testing.T) {
	t.Parallel()
	fx := setup(t)

	assert.ErrorIs(t, fx.svc.Delete(context.Background(), store.NewID()), user.ErrNotFound)
	assert.ErrorIs(t, fx.svc.Delete(context.Background(), "nope"), store.ErrInvalidID)
}

func TestDelete_MissingIdentity(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	orphan := &user.User{Username: "ghost", Email: "ghost@example.com"}
	require.NoError(t, fx.repo.Create(context.Background(), orphan))

	err := fx.svc.Delete(context.Background(), orphan.ID)
	assert.ErrorIs(t, err, user.ErrMissingIdentity)
	assert.Zero(t, fx.broker.calls)
}

func TestDelete_ProviderFailureKeepsLocalRecord(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)
	fx.idp.deleteUserFn = func(string) error {
		return &keycloak.APIError{Op: "DELETE /users", StatusCode: http.StatusBadGateway}
	}

	err := fx.svc.Delete(context.Background(), u.ID)
	assert.ErrorIs(t, err, user.ErrUpstream)

	_, err = fx.repo.GetByID(context.Background(), u.ID)
	assert.NoError(t, err)
}

// ===== UpdateSelf =====

func TestUpdateSelf_EmailAndPassword(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)

	changed, err := fx.svc.UpdateSelf(context.Background(), "kari", user.UpdateSelfRequest{
		Email:    ptr("kari@new.example.com"),
		Password: ptr("n3w"),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := fx.repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "kari@new.example.com", stored.Email)
	assert.Contains(t, fx.idp.accounts, "kari@new.example.com")
	assert.Equal(t, "n3w", fx.idp.resetPasswords["kc-kari"])
}

func TestUpdateSelf_NoChange(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	createKari(t, fx)
	before := fx.broker.calls

	changed, err := fx.svc.UpdateSelf(context.Background(), "kari", user.UpdateSelfRequest{Email: ptr("kari@example.com")})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, fx.broker.calls)
}

func TestUpdateSelf_UnknownCaller(t *testing.T) {
	t.Parallel()
	fx := setup(t)

	_, err := fx.svc.UpdateSelf(context.Background(), "nobody", user.UpdateSelfRequest{Password: ptr("x")})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUpdateSelf_EmailTaken(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	createKari(t, fx)
	require.NoError(t, fx.repo.Create(context.Background(), &user.User{Username: "ola", Email: "ola@example.com"}))

	_, err := fx.svc.UpdateSelf(context.Background(), "kari", user.UpdateSelfRequest{Email: ptr("ola@example.com")})
	assert.ErrorIs(t, err, user.ErrConflict)
}

// ===== AdminUpdate =====

func TestAdminUpdate_RolesReplaceAndMap(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)
	fx.idp.roles["Admin"] = keycloak.Role{ID: "role-admin", Name: "Admin"}

	updated, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{
		Username: ptr("kari.n"),
		Roles:    ptr([]string{"User", "Admin"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "kari.n", updated.Username)
	assert.Equal(t, []string{"User", "Admin"}, updated.Roles)
	assert.Equal(t, "kari@example.com", updated.Email)
	assert.Contains(t, fx.idp.mapped["kc-kari"], "Admin")
}

func TestAdminUpdate_RevokedRolesAreUnmapped(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)
	fx.idp.roles["Admin"] = keycloak.Role{ID: "role-admin", Name: "Admin"}

	_, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{Roles: ptr([]string{"User", "Admin"})})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"User", "Admin"}, fx.idp.mapped["kc-kari"])

	updated, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{Roles: ptr([]string{"User"})})
	require.NoError(t, err)
	assert.Equal(t, []string{"User"}, updated.Roles)
	assert.Equal(t, []string{"User"}, fx.idp.mapped["kc-kari"])

	updated, err = fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{Roles: ptr([]string{})})
	require.NoError(t, err)
	assert.Empty(t, updated.Roles)
	assert.Empty(t, fx.idp.mapped["kc-kari"])
}

func TestAdminUpdate_SameRolesOnlyRemapsRequested(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)
	fx.idp.calls = nil

	_, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{Roles: ptr([]string{"User"})})
	require.NoError(t, err)
	assert.Contains(t, fx.idp.calls, "AssignRealmRoles")
	assert.NotContains(t, fx.idp.calls, "RemoveRealmRoles")
}

func TestAdminUpdate_UnknownRole(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)

	_, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{
		Username: ptr("kari.n"),
		Roles:    ptr([]string{"Wizard"}),
	})
	assert.ErrorIs(t, err, user.ErrUnknownRole)
	assert.NotContains(t, fx.idp.calls, "UpdateUser")

	stored, _ := fx.repo.GetByID(context.Background(), u.ID)
	assert.Equal(t, []string{user.RoleUser}, stored.Roles)
	assert.Equal(t, "kari", stored.Username)
}

func TestAdminUpdate_ProviderFailureLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)
	fx.broker.ok = false

	_, err := fx.svc.AdminUpdate(context.Background(), u.ID, user.AdminUpdateRequest{Email: ptr("x@example.com")})
	assert.True(t, errors.Is(err, keycloak.ErrNoAdminToken))

	stored, _ := fx.repo.GetByID(context.Background(), u.ID)
	assert.Equal(t, "kari@example.com", stored.Email)
}

// ===== Get / List =====

func TestGetAndList(t *testing.T) {
	t.Parallel()
	fx := setup(t)
	u := createKari(t, fx)

	got, err := fx.svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)

	_, err = fx.svc.Get(context.Background(), store.NewID())
	assert.ErrorIs(t, err, user.ErrNotFound)

	all, err := fx.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
