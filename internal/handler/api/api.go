// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/olegiv/resourcehub/internal/auth"
	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/storage"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	accounts  *service.AccountService
	resources *service.ResourceService
	tokens    *auth.TokenIssuer
}

// NewHandler creates a new API handler.
func NewHandler(accounts *service.AccountService, resources *service.ResourceService, tokens *auth.TokenIssuer) *Handler {
	return &Handler{
		accounts:  accounts,
		resources: resources,
		tokens:    tokens,
	}
}

// Routes returns the API router. It expects middleware.LoadIdentity to run
// before it.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Get("/resources", h.ListResources)
	r.Get("/resources/{id}", h.GetResource)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Get("/me", h.Me)
		r.Get("/resources/mine", h.MyResources)
		r.Post("/resources", h.CreateResource)
		r.Post("/admin/resources/{id}/approve", h.ApproveResource)
		r.Post("/admin/approve", h.Approve)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any `json:"data"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data any) {
	WriteJSON(w, r, http.StatusOK, Response{Data: data})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, r *http.Request, data any) {
	WriteJSON(w, r, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, r, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, "not_found", message, nil)
}

// WriteServiceError maps a service or storage error to its status code.
// Unexpected errors are logged and reported without detail.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError

	switch {
	case errors.Is(err, storage.ErrTooLarge):
		WriteError(w, r, http.StatusRequestEntityTooLarge, "file_too_large", storage.ErrTooLarge.Error(), nil)
	case errors.Is(err, storage.ErrUnsupportedType):
		WriteError(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", storage.ErrUnsupportedType.Error(), nil)
	case errors.As(err, &ve):
		WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "Validation failed", ve.Fields)
	case errors.Is(err, service.ErrValidation):
		WriteBadRequest(w, r, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, r, http.StatusForbidden, "forbidden", "Insufficient permissions", nil)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, r, "Resource not found")
	case errors.Is(err, service.ErrConflict):
		WriteError(w, r, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "api request failed",
			"error", err,
			"path", middleware.GetRequestPath(r.Context()),
			"user_id", middleware.GetUserID(r))
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

// decodeJSON reads a bounded JSON body into v. A 400 is written on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		WriteBadRequest(w, r, "Invalid JSON body")
		return false
	}
	return true
}
