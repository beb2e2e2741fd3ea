// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/resourcehub/internal/middleware"
)

// ApproveRequest is the body of POST /api/v1/admin/approve. Any other
// field, including a requested status, is ignored: approval is the only
// transition.
type ApproveRequest struct {
	ID string `json:"id"`
}

// ApproveResource handles POST /api/v1/admin/resources/{id}/approve.
func (h *Handler) ApproveResource(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, chi.URLParam(r, "id"))
}

// Approve handles POST /api/v1/admin/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		WriteError(w, r, http.StatusUnprocessableEntity, "validation_error", "Validation failed",
			map[string]string{"id": "is required"})
		return
	}
	h.approve(w, r, strings.TrimSpace(req.ID))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.resources.Approve(r.Context(), middleware.GetIdentity(r), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, res)
}
