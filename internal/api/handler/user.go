package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/api/validation"
	"github.com/fireguard/fireguard/internal/user"
)

// UserService is the user lifecycle as seen by the HTTP layer.
type UserService interface {
	Create(ctx context.Context, req user.CreateRequest) (*user.User, error)
	Delete(ctx context.Context, id string) error
	UpdateSelf(ctx context.Context, username string, req user.UpdateSelfRequest) (bool, error)
	AdminUpdate(ctx context.Context, id string, req user.AdminUpdateRequest) (*user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

// UserHandler handles the /users endpoints.
type UserHandler struct {
	svc UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.CreateUserRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateCreateUserRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	u, err := h.svc.Create(r.Context(), user.CreateRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, user.ErrPartialSuccess) {
		slog.Error("user created without role", "error", err, "requestId", requestID)
		response.ErrWithDetails(w, http.StatusInternalServerError, response.CodePartialSuccess,
			"User created but role assignment failed", u, requestID)
		return
	}
	if err != nil {
		writeError(w, r, err, "Failed to create user")
		return
	}

	response.Success(w, http.StatusCreated, u, requestID)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list users")
		return
	}
	response.SuccessList(w, http.StatusOK, users, len(users), middleware.GetRequestID(r.Context()))
}

// GetByID handles GET /users/{id}.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to get user")
		return
	}
	response.Success(w, http.StatusOK, u, middleware.GetRequestID(r.Context()))
}

// UpdateMe handles PUT /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	caller := middleware.GetTokenData(r.Context())
	if caller == nil {
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Not authenticated", requestID)
		return
	}

	var req validation.UpdateSelfRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if errs := validation.ValidateUpdateSelfRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	changed, err := h.svc.UpdateSelf(r.Context(), caller.Username, user.UpdateSelfRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update profile")
		return
	}

	msg := "User profile successfully updated"
	if !changed {
		msg = "No changes made"
	}
	response.Success(w, http.StatusOK, messageResponse{Message: msg}, requestID)
}

// AdminUpdate handles PUT /users/{id}.
func (h *UserHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req validation.AdminUpdateUserRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if errs := validation.ValidateAdminUpdateUserRequest(req); len(errs) > 0 {
		writeValidationErrors(w, r, errs)
		return
	}

	u, err := h.svc.AdminUpdate(r.Context(), id, user.AdminUpdateRequest{
		Username: req.Username,
		Email:    req.Email,
		Roles:    req.Roles,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update user")
		return
	}
	response.Success(w, http.StatusOK, u, middleware.GetRequestID(r.Context()))
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete user")
		return
	}
	response.NoContent(w)
}
