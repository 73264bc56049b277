package keycloak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrInvalidGrant is returned when the token endpoint rejects user credentials
// or a refresh token.
var ErrInvalidGrant = errors.New("invalid credentials")

// ErrNoAdminToken is reported by callers when AdminToken fails.
var ErrNoAdminToken = errors.New("failed to get admin token")

// TokenPair is the result of a user-facing grant.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Broker exchanges credentials at the token endpoint. Nothing is cached:
// every call is a fresh round trip.
type Broker struct {
	admin      clientcredentials.Config
	app        oauth2.Config
	httpClient *http.Client
}

// NewBroker creates a Broker. Admin tokens come from the admin realm via the
// client-credentials grant; user tokens come from the application realm.
func NewBroker(cfg Config, httpClient *http.Client) *Broker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Broker{
		admin: clientcredentials.Config{
			ClientID:     cfg.AdminClientID,
			ClientSecret: cfg.AdminClientSecret,
			TokenURL:     cfg.TokenURL(cfg.AdminRealm),
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		app: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL(cfg.Realm),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// AdminToken returns a short-lived admin access token. Failures are logged
// and reported as ok == false.
func (b *Broker) AdminToken(ctx context.Context) (string, bool) {
	tok, err := b.admin.Token(b.withClient(ctx))
	if err != nil {
		slog.Error("failed to get admin token", "error", err)
		return "", false
	}
	return tok.AccessToken, true
}

// PasswordToken performs the resource-owner password grant.
func (b *Broker) PasswordToken(ctx context.Context, username, password string) (*TokenPair, error) {
	tok, err := b.app.PasswordCredentialsToken(b.withClient(ctx), username, password)
	if err != nil {
		return nil, classifyGrantError("password grant", err)
	}
	return &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// RefreshToken exchanges a refresh token for a new token pair.
func (b *Broker) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	src := b.app.TokenSource(b.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyGrantError("refresh grant", err)
	}
	return &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

func (b *Broker) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

func classifyGrantError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		// Keycloak answers bad user credentials with 401 and a bad client
		// secret with 401 too; only the error code tells them apart.
		if retrieveErr.ErrorCode == "invalid_grant" {
			return fmt.Errorf("%s: %w", op, ErrInvalidGrant)
		}
		return &APIError{Op: op, StatusCode: retrieveErr.Response.StatusCode, Body: string(retrieveErr.Body)}
	}
	return fmt.Errorf("%s: %w", op, err)
}
