package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	specpkg "github.com/fireguard/fireguard/api"
	"github.com/fireguard/fireguard/internal/api"
	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/auth"
	"github.com/fireguard/fireguard/internal/config"
	"github.com/fireguard/fireguard/internal/firerisk"
	"github.com/fireguard/fireguard/internal/keycloak"
	"github.com/fireguard/fireguard/internal/location"
	"github.com/fireguard/fireguard/internal/metrics"
	"github.com/fireguard/fireguard/internal/store"
	"github.com/fireguard/fireguard/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	docs, err := openStore(startCtx, cfg)
	cancelStart()
	if err != nil {
		slog.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("document store ready", "driver", cfg.StoreDriver)

	collector := metrics.NewCollector()
	baseClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	kcCfg := keycloak.Config{
		BaseURL:           cfg.KeycloakURL,
		Realm:             cfg.RealmName,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		AdminRealm:        cfg.AdminRealm,
		AdminClientID:     cfg.AdminClientID,
		AdminClientSecret: cfg.AdminClientSecret,
	}
	kcClient := collector.InstrumentClient(metrics.TargetKeycloak, baseClient)
	broker := keycloak.NewBroker(kcCfg, kcClient)
	admin := keycloak.NewAdminClient(kcCfg, kcClient)
	validator := auth.NewValidator(kcCfg.JWKSURL(), collector.InstrumentClient(metrics.TargetJWKS, baseClient))

	locationRepo := location.NewRepository(docs.Collection(store.LocationsCollection))
	userSvc := user.NewService(user.NewRepository(docs.Collection(store.UsersCollection)), admin, broker)
	fireSvc := firerisk.NewService(
		firerisk.NewCache(docs.Collection(store.FireRisksCollection)),
		locationRepo,
		firerisk.NewHTTPPredictor(cfg.FireRiskAPIURL, collector.InstrumentClient(metrics.TargetPredictor, baseClient)),
		firerisk.WithWriteBack(cfg.FireRiskCacheWriteBack),
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	})

	router := api.NewRouter(api.RouterDeps{
		StorePinger:     docs,
		Validator:       validator,
		KeysPinger:      validator,
		LocationRepo:    locationRepo,
		UserService:     userSvc,
		FireRiskService: fireSvc,
		TokenIssuer:     broker,
		RateLimiter:     limiter,
		Metrics:         collector,
		Logger:          slog.Default(),
		Version:         cfg.Version,
		OpenAPISpec:     specpkg.OpenAPISpec,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting Fireguard server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		exitCode = 1
	}
	limiter.Stop()
	if err := docs.Close(ctx); err != nil {
		slog.Error("failed to close document store", "error", err)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		slog.Warn("using in-memory document store; data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
}
