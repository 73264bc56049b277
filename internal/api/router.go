package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fireguard/fireguard/internal/api/handler"
	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/auth"
	"github.com/fireguard/fireguard/internal/location"
	"github.com/fireguard/fireguard/internal/metrics"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	StorePinger     handler.Pinger
	Validator       middleware.TokenValidator
	KeysPinger      handler.Pinger
	LocationRepo    location.Repository
	UserService     handler.UserService
	FireRiskService handler.FireRiskPredictor
	TokenIssuer     handler.TokenIssuer
	RateLimiter     *middleware.RateLimiter
	Metrics         *metrics.Collector
	Logger          *slog.Logger
	Version         string
	OpenAPISpec     []byte
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	healthHandler := handler.NewHealthHandler(deps.StorePinger, deps.KeysPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	// Unauthenticated endpoints share the per-client rate limit.
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}
		if deps.TokenIssuer != nil {
			tokenHandler := handler.NewTokenHandler(deps.TokenIssuer)
			r.Post("/auth/token", tokenHandler.Token)
			r.Post("/auth/refresh", tokenHandler.Refresh)
		}
		if deps.UserService != nil {
			r.Post("/users", handler.NewUserHandler(deps.UserService).Create)
		}
	})

	if deps.Validator == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Validator))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleUser))

			if deps.LocationRepo != nil {
				locationHandler := handler.NewLocationHandler(deps.LocationRepo)
				r.Post("/locations", locationHandler.Create)
				r.Get("/locations", locationHandler.List)
				r.Get("/locations/{id}", locationHandler.GetByID)
				r.Put("/locations/{id}", locationHandler.Update)
			}

			if deps.FireRiskService != nil {
				r.Get("/firerisks", handler.NewFireRiskHandler(deps.FireRiskService).Predict)
			}
		})

		if deps.UserService != nil {
			userHandler := handler.NewUserHandler(deps.UserService)

			r.Put("/users/me", userHandler.UpdateMe)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Get("/users", userHandler.List)
				r.Get("/users/{id}", userHandler.GetByID)
				r.Put("/users/{id}", userHandler.AdminUpdate)
				r.Delete("/users/{id}", userHandler.Delete)
			})
		}
	})

	return r
}
