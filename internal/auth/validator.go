// Package auth validates bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the access token the service reads.
type Claims struct {
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// Validator verifies RS256 tokens against the realm's key set. The key set is
// fetched on every call so rotated keys are picked up immediately.
type Validator struct {
	jwksURL    string
	httpClient *http.Client
	parser     *jwt.Parser
}

// NewValidator creates a Validator reading keys from jwksURL.
func NewValidator(jwksURL string, httpClient *http.Client) *Validator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Validator{
		jwksURL:    jwksURL,
		httpClient: httpClient,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}
}

// Validate verifies token and returns the identity it carries.
func (v *Validator) Validate(ctx context.Context, token string) (*TokenData, error) {
	if token == "" {
		return nil, unauthorized("Not authenticated")
	}

	jwks, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, &Error{Kind: ErrServiceUnavailable, Detail: "Server error", Err: err}
	}

	unverified, _, err := v.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, &Error{Kind: ErrUnauthorized, Detail: "Invalid token: " + err.Error(), Err: err}
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, unauthorized("Token missing 'kid' header")
	}
	if !slices.Contains(jwks.KIDs(), kid) {
		return nil, unauthorized("Matching key not found in JWKS")
	}

	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, jwks.Keyfunc); err != nil {
		return nil, &Error{Kind: ErrUnauthorized, Detail: "Invalid token: " + err.Error(), Err: err}
	}

	if claims.PreferredUsername == "" || len(claims.RealmAccess.Roles) == 0 {
		return nil, unauthorized("Token missing required claims")
	}

	return &TokenData{Username: claims.PreferredUsername, Roles: claims.RealmAccess.Roles}, nil
}

// Ping checks that the key set endpoint answers with a parseable key set.
func (v *Validator) Ping(ctx context.Context) error {
	_, err := v.fetchKeys(ctx)
	return err
}

func (v *Validator) fetchKeys(ctx context.Context) (*keyfunc.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building jwks request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching jwks: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading jwks: %w", err)
	}

	jwks, err := keyfunc.NewJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing jwks: %w", err)
	}
	return jwks, nil
}
