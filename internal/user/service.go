// Package user keeps identity-provider accounts and local user records in step.
// The two stores are written independently; no step is rolled back.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/fireguard/fireguard/internal/keycloak"
)

var (
	// ErrConflict is returned when an account with the same email already exists.
	ErrConflict = errors.New("user already exists")

	// ErrPartialSuccess is returned when the account was created but the
	// default role could not be assigned. The created user is returned with it.
	ErrPartialSuccess = errors.New("user created but role assignment failed")

	// ErrMissingIdentity is returned when a stored user has no identity-provider id.
	ErrMissingIdentity = errors.New("user is missing identity provider id")

	// ErrUnknownRole is returned when an update names a role the realm does not define.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUpstream marks failures of the identity provider.
	ErrUpstream = errors.New("identity provider error")
)

// IdentityProvider is the subset of the realm admin API the service uses.
type IdentityProvider interface {
	GetRealmRole(ctx context.Context, token, name string) (*keycloak.Role, error)
	CreateRealmRole(ctx context.Context, token, name string) error
	FindUsersByEmail(ctx context.Context, token, email string) ([]keycloak.UserRepresentation, error)
	CreateUser(ctx context.Context, token string, u keycloak.NewUser) error
	UpdateUser(ctx context.Context, token, userID string, u keycloak.UserUpdate) error
	ResetPassword(ctx context.Context, token, userID, password string) error
	AssignRealmRoles(ctx context.Context, token, userID string, roles []keycloak.Role) error
	RemoveRealmRoles(ctx context.Context, token, userID string, roles []keycloak.Role) error
	DeleteUser(ctx context.Context, token, userID string) error
}

// TokenBroker hands out admin access tokens.
type TokenBroker interface {
	AdminToken(ctx context.Context) (string, bool)
}

// Service coordinates the user lifecycle.
type Service struct {
	repo   Repository
	idp    IdentityProvider
	broker TokenBroker
}

// NewService creates a new user Service.
func NewService(repo Repository, idp IdentityProvider, broker TokenBroker) *Service {
	return &Service{repo: repo, idp: idp, broker: broker}
}

// Create provisions an account on the identity provider, stores the local
// record and assigns the default role. When only the role assignment fails
// the stored user is returned together with ErrPartialSuccess.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	token, err := s.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	role, err := s.ensureRole(ctx, token, RoleUser)
	if err != nil {
		return nil, err
	}

	existing, err := s.idp.FindUsersByEmail(ctx, token, req.Email)
	if err != nil {
		return nil, upstream("looking up account by email", err)
	}
	// Reported as a conflict rather than a generic provider failure.
	if len(existing) > 0 {
		return nil, ErrConflict
	}

	err = s.idp.CreateUser(ctx, token, keycloak.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, upstream("creating account", err)
	}

	created, err := s.idp.FindUsersByEmail(ctx, token, req.Email)
	if err != nil {
		return nil, upstream("looking up created account", err)
	}
	if len(created) == 0 || created[0].ID == "" {
		return nil, fmt.Errorf("%w: created account not found by email", ErrUpstream)
	}
	account := created[0]

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking stored user: %w", err)
	}

	u := &User{
		Username:       req.Username,
		Email:          req.Email,
		Roles:          account.RealmRoles,
		KeycloakUserID: account.ID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}

	if err := s.idp.AssignRealmRoles(ctx, token, account.ID, []keycloak.Role{*role}); err != nil {
		slog.Error("failed to assign default role", "error", err, "userId", u.ID, "keycloakUserId", account.ID)
		return u, fmt.Errorf("%w: %w", ErrPartialSuccess, err)
	}

	if !slices.Contains(u.Roles, RoleUser) {
		roles := append(slices.Clone(u.Roles), RoleUser)
		if err := s.repo.Update(ctx, u.ID, Fields{Roles: &roles}); err != nil {
			slog.Error("failed to record assigned role", "error", err, "userId", u.ID)
		} else {
			u.Roles = roles
		}
	}

	slog.Info("user created", "userId", u.ID, "username", u.Username)
	return u, nil
}

// Delete removes the identity-provider account first and the local record
// only once that succeeded.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.KeycloakUserID == "" {
		return ErrMissingIdentity
	}

	token, err := s.adminToken(ctx)
	if err != nil {
		return err
	}

	if err := s.idp.DeleteUser(ctx, token, u.KeycloakUserID); err != nil {
		return upstream("deleting account", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting stored user: %w", err)
	}

	slog.Info("user deleted", "userId", id, "keycloakUserId", u.KeycloakUserID)
	return nil
}

// UpdateSelf changes the caller's own email and/or password. It reports
// whether anything changed.
func (s *Service) UpdateSelf(ctx context.Context, username string, req UpdateSelfRequest) (bool, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}

	emailChanged := req.Email != nil && *req.Email != u.Email
	if !emailChanged && req.Password == nil {
		return false, nil
	}

	if emailChanged {
		if err := s.checkEmailFree(ctx, *req.Email, u.ID); err != nil {
			return false, err
		}
	}

	var update keycloak.UserUpdate
	if emailChanged {
		update.Email = req.Email
	}
	if err := s.pushAccountChanges(ctx, u, update, req.Password, nil); err != nil {
		return false, err
	}

	if emailChanged {
		if err := s.repo.Update(ctx, u.ID, Fields{Email: req.Email}); err != nil {
			return false, fmt.Errorf("updating stored user: %w", err)
		}
	}
	return true, nil
}

// AdminUpdate changes any account attribute. Roles replace the stored list:
// requested roles are mapped on the identity provider and stored roles left
// out of the request are unmapped. An empty list removes every stored role.
func (s *Service) AdminUpdate(ctx context.Context, id string, req AdminUpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != u.Email {
		if err := s.checkEmailFree(ctx, *req.Email, u.ID); err != nil {
			return nil, err
		}
	}

	update := keycloak.UserUpdate{Username: req.Username, Email: req.Email}
	if err := s.pushAccountChanges(ctx, u, update, req.Password, req.Roles); err != nil {
		return nil, err
	}

	fields := Fields{Username: req.Username, Email: req.Email, Roles: req.Roles}
	if err := s.repo.Update(ctx, u.ID, fields); err != nil {
		return nil, fmt.Errorf("updating stored user: %w", err)
	}
	return s.repo.GetByID(ctx, u.ID)
}

// Get returns a stored user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all stored users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) pushAccountChanges(ctx context.Context, u *User, update keycloak.UserUpdate, password *string, roles *[]string) error {
	var granted, revoked []string
	if roles != nil {
		granted = *roles
		revoked = removedRoles(u.Roles, *roles)
	}
	if update.Username == nil && update.Email == nil && password == nil && len(granted) == 0 && len(revoked) == 0 {
		return nil
	}
	if u.KeycloakUserID == "" {
		return ErrMissingIdentity
	}

	token, err := s.adminToken(ctx)
	if err != nil {
		return err
	}

	// Resolve roles before changing anything so an unknown name fails cleanly.
	grant, err := s.resolveRoles(ctx, token, granted, false)
	if err != nil {
		return err
	}
	revoke, err := s.resolveRoles(ctx, token, revoked, true)
	if err != nil {
		return err
	}

	if update.Username != nil || update.Email != nil {
		if err := s.idp.UpdateUser(ctx, token, u.KeycloakUserID, update); err != nil {
			return upstream("updating account", err)
		}
	}
	if password != nil {
		if err := s.idp.ResetPassword(ctx, token, u.KeycloakUserID, *password); err != nil {
			return upstream("resetting password", err)
		}
	}
	if len(grant) > 0 {
		if err := s.idp.AssignRealmRoles(ctx, token, u.KeycloakUserID, grant); err != nil {
			return upstream("assigning roles", err)
		}
	}
	if len(revoke) > 0 {
		if err := s.idp.RemoveRealmRoles(ctx, token, u.KeycloakUserID, revoke); err != nil {
			return upstream("removing roles", err)
		}
	}
	return nil
}

// resolveRoles looks up realm roles by name. With skipMissing set, roles the
// realm no longer defines are dropped instead of failing with ErrUnknownRole.
func (s *Service) resolveRoles(ctx context.Context, token string, names []string, skipMissing bool) ([]keycloak.Role, error) {
	roles := make([]keycloak.Role, 0, len(names))
	for _, name := range names {
		role, err := s.idp.GetRealmRole(ctx, token, name)
		if errors.Is(err, keycloak.ErrRoleNotFound) {
			if skipMissing {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
		if err != nil {
			return nil, upstream("looking up role", err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// removedRoles returns the names in current that are absent from next.
func removedRoles(current, next []string) []string {
	var out []string
	for _, name := range current {
		if !slices.Contains(next, name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func (s *Service) checkEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking stored user: %w", err)
	case other.ID != selfID:
		return ErrConflict
	}
	return nil
}

func (s *Service) adminToken(ctx context.Context) (string, error) {
	token, ok := s.broker.AdminToken(ctx)
	if !ok {
		return "", fmt.Errorf("%w: %w", ErrUpstream, keycloak.ErrNoAdminToken)
	}
	return token, nil
}

// ensureRole returns the named realm role, creating it when absent.
func (s *Service) ensureRole(ctx context.Context, token, name string) (*keycloak.Role, error) {
	role, err := s.idp.GetRealmRole(ctx, token, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, keycloak.ErrRoleNotFound) {
		return nil, upstream("looking up role", err)
	}

	if err := s.idp.CreateRealmRole(ctx, token, name); err != nil {
		return nil, upstream("creating role", err)
	}
	role, err = s.idp.GetRealmRole(ctx, token, name)
	if err != nil {
		return nil, upstream("looking up created role", err)
	}
	return role, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
