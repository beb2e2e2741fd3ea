// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/resourcehub/internal/handler"
	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/service"
)

// ListResources handles GET /api/v1/resources.
// Query parameters: subject (optional, "all" means no filter) and status
// (admins only).
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListFilter{
		Subject: q.Get("subject"),
		Status:  model.Status(q.Get("status")),
	}

	list, err := h.resources.List(r.Context(), middleware.GetIdentity(r), filter)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, nonNil(list))
}

// MyResources handles GET /api/v1/resources/mine.
func (h *Handler) MyResources(w http.ResponseWriter, r *http.Request) {
	list, err := h.resources.ListByOwner(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, nonNil(list))
}

// GetResource handles GET /api/v1/resources/{id}.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.resources.Get(r.Context(), middleware.GetIdentity(r), chi.URLParam(r, "id"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, res)
}

// CreateResource handles POST /api/v1/resources (multipart: title,
// description, subject, file).
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := handler.ReadUpload(w, r)
	defer cleanup()
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	res, err := h.resources.Upload(r.Context(), middleware.GetIdentity(r), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteCreated(w, r, res)
}

func nonNil(list []model.Resource) []model.Resource {
	if list == nil {
		return []model.Resource{}
	}
	return list
}
