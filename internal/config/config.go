package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported document store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string `envconfig:"MONGO_URI" default:""`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"Fireguard"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:""`

	KeycloakURL       string `envconfig:"KEYCLOAK_URL" required:"true"`
	RealmName         string `envconfig:"REALM_NAME" required:"true"`
	ClientID          string `envconfig:"CLIENT_ID" default:""`
	ClientSecret      string `envconfig:"CLIENT_SECRET" default:""`
	AdminRealm        string `envconfig:"ADMIN_REALM" default:"master"`
	AdminClientID     string `envconfig:"ADMIN_CLIENT_ID" default:""`
	AdminClientSecret string `envconfig:"ADMIN_CLIENT_SECRET" default:""`

	FireRiskAPIURL         string `envconfig:"FIRERISK_API_URL" default:"http://localhost:8000"`
	FireRiskCacheWriteBack bool   `envconfig:"FIRERISK_CACHE_WRITEBACK" default:"false"`

	HTTPClientTimeout  time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"10s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
	RateLimitBurst     int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// Load reads configuration from environment variables into a Config struct
// and validates driver-specific settings.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	c.KeycloakURL = strings.TrimRight(c.KeycloakURL, "/")

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}

	return errors.Join(errs...)
}
