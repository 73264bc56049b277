package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	store   Pinger
	keys    Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. store is the document store
// and keys is the token validator's key set endpoint.
func NewHealthHandler(store, keys Pinger, version string) *HealthHandler {
	return &HealthHandler{
		store:   store,
		keys:    keys,
		version: version,
	}
}

type dependencyStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status  string           `json:"status"`
	Version string           `json:"version"`
	Store   dependencyStatus `json:"store"`
	JWKS    dependencyStatus `json:"jwks"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	storeUp := ping(r.Context(), h.store, "store")
	keysUp := ping(r.Context(), h.keys, "jwks")

	status := "healthy"
	if !storeUp || !keysUp {
		status = "degraded"
	}

	data := healthData{
		Status:  status,
		Version: h.version,
		Store:   dependencyStatus{Connected: storeUp},
		JWKS:    dependencyStatus{Connected: keysUp},
	}

	response.Success(w, http.StatusOK, data, requestID)
}

func ping(ctx context.Context, p Pinger, name string) bool {
	if p == nil {
		return false
	}
	if err := p.Ping(ctx); err != nil {
		slog.Warn("health check failed", "dependency", name, "error", err)
		return false
	}
	return true
}
