package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/api/validation"
	"github.com/fireguard/fireguard/internal/location"
)

// LocationHandler handles the /locations endpoints.
type LocationHandler struct {
	repo location.Repository
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(repo location.Repository) *LocationHandler {
	return &LocationHandler{repo: repo}
}

// Create handles POST /locations.
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateLocationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateCreateLocationRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	loc := &location.Location{Name: req.Name, Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := h.repo.Create(r.Context(), loc); err != nil {
		writeError(w, r, err, "Failed to create location")
		return
	}

	response.Success(w, http.StatusCreated, loc, requestID)
}

// List handles GET /locations.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list locations")
		return
	}
	response.SuccessList(w, http.StatusOK, locs, len(locs), middleware.GetRequestID(r.Context()))
}

// GetByID handles GET /locations/{id}.
func (h *LocationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	loc, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to get location")
		return
	}
	response.Success(w, http.StatusOK, loc, middleware.GetRequestID(r.Context()))
}

// Update handles PUT /locations/{id}. Only supplied fields change.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req validation.UpdateLocationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateUpdateLocationRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	loc, err := h.repo.Update(r.Context(), id, location.UpdateFields{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update location")
		return
	}
	response.Success(w, http.StatusOK, loc, middleware.GetRequestID(r.Context()))
}
