package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
)

// OpenAPIHandler serves the OpenAPI document as JSON.
type OpenAPIHandler struct {
	toJSON func() ([]byte, error)
}

// NewOpenAPIHandler creates a handler that converts the YAML document to JSON
// on first request and reuses the result afterwards.
func NewOpenAPIHandler(yamlSpec []byte) *OpenAPIHandler {
	return &OpenAPIHandler{
		toJSON: sync.OnceValues(func() ([]byte, error) {
			return yaml.YAMLToJSON(yamlSpec)
		}),
	}
}

func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, err := h.toJSON()
	if err != nil {
		slog.Error("failed to convert OpenAPI document to JSON", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to convert OpenAPI document", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Error("failed to write OpenAPI response", "error", err)
	}
}
