// Package keycloak talks to the identity provider: the realm admin REST API
// and the OpenID Connect token endpoint.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrRoleNotFound is returned when a realm role does not exist.
var ErrRoleNotFound = errors.New("realm role not found")

// APIError describes a non-success response from the admin API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("keycloak: %s returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("keycloak: %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config locates the identity provider and holds the service credentials.
type Config struct {
	BaseURL           string
	Realm             string
	ClientID          string
	ClientSecret      string
	AdminRealm        string
	AdminClientID     string
	AdminClientSecret string
}

// JWKSURL is the realm's public signing key set.
func (c Config) JWKSURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.BaseURL, c.Realm)
}

// TokenURL is the token endpoint of the given realm.
func (c Config) TokenURL(realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.BaseURL, realm)
}

func (c Config) adminURL(path string) string {
	return fmt.Sprintf("%s/admin/realms/%s%s", c.BaseURL, c.Realm, path)
}

// Role is a realm role representation.
type Role struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UserRepresentation is the subset of the admin API user we read.
type UserRepresentation struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Enabled    bool     `json:"enabled"`
	RealmRoles []string `json:"realmRoles,omitempty"`
}

// NewUser is the payload for account creation.
type NewUser struct {
	Username string
	Email    string
	Password string
}

// UserUpdate holds account fields to change; nil fields are left alone.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type createUserPayload struct {
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Enabled     bool         `json:"enabled"`
	Credentials []credential `json:"credentials"`
}

// AdminClient calls the realm admin API. Every call takes the admin bearer
// token obtained from the Broker.
type AdminClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAdminClient creates an AdminClient.
func NewAdminClient(cfg Config, httpClient *http.Client) *AdminClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AdminClient{cfg: cfg, httpClient: httpClient}
}

// GetRealmRole looks up a realm role by name.
func (c *AdminClient) GetRealmRole(ctx context.Context, token, name string) (*Role, error) {
	var role Role
	err := c.do(ctx, http.MethodGet, "/roles/"+url.PathEscape(name), token, nil, &role, http.StatusOK)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// CreateRealmRole creates a realm role. A role that already exists is not an error.
func (c *AdminClient) CreateRealmRole(ctx context.Context, token, name string) error {
	err := c.do(ctx, http.MethodPost, "/roles", token, Role{Name: name}, nil, http.StatusCreated)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

// FindUsersByEmail returns accounts whose email matches exactly.
func (c *AdminClient) FindUsersByEmail(ctx context.Context, token, email string) ([]UserRepresentation, error) {
	q := url.Values{"email": {email}, "exact": {"true"}}
	var users []UserRepresentation
	if err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), token, nil, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates an enabled account with a non-temporary password.
// The admin API answers with no body; callers look the account up afterwards.
func (c *AdminClient) CreateUser(ctx context.Context, token string, u NewUser) error {
	payload := createUserPayload{
		Username: u.Username,
		Email:    u.Email,
		Enabled:  true,
		Credentials: []credential{
			{Type: "password", Value: u.Password, Temporary: false},
		},
	}
	return c.do(ctx, http.MethodPost, "/users", token, payload, nil, http.StatusCreated, http.StatusNoContent)
}

// UpdateUser changes account attributes.
func (c *AdminClient) UpdateUser(ctx context.Context, token, userID string, u UserUpdate) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), token, u, nil, http.StatusNoContent)
}

// ResetPassword replaces the account password with a non-temporary one.
func (c *AdminClient) ResetPassword(ctx context.Context, token, userID, password string) error {
	body := credential{Type: "password", Value: password, Temporary: false}
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/reset-password", token, body, nil, http.StatusNoContent)
}

// AssignRealmRoles maps realm roles onto an account.
func (c *AdminClient) AssignRealmRoles(ctx context.Context, token, userID string, roles []Role) error {
	path := "/users/" + url.PathEscape(userID) + "/role-mappings/realm"
	return c.do(ctx, http.MethodPost, path, token, roles, nil, http.StatusNoContent)
}

// RemoveRealmRoles unmaps realm roles from an account.
func (c *AdminClient) RemoveRealmRoles(ctx context.Context, token, userID string, roles []Role) error {
	path := "/users/" + url.PathEscape(userID) + "/role-mappings/realm"
	return c.do(ctx, http.MethodDelete, path, token, roles, nil, http.StatusNoContent)
}

// DeleteUser removes an account.
func (c *AdminClient) DeleteUser(ctx context.Context, token, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), token, nil, nil, http.StatusNoContent)
}

func (c *AdminClient) do(ctx context.Context, method, path, token string, in, out any, okStatus ...int) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("keycloak: encoding %s body: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.adminURL(path), body)
	if err != nil {
		return fmt.Errorf("keycloak: building %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("keycloak: reading %s response: %w", op, err)
	}

	if !statusIn(resp.StatusCode, okStatus) {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("keycloak: decoding %s response: %w", op, err)
		}
	}
	return nil
}

func statusIn(code int, allowed []int) bool {
	for _, s := range allowed {
		if code == s {
			return true
		}
	}
	return false
}
