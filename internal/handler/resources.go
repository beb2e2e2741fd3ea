// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/render"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/storage"
)

// ResourcesHandler serves browsing and upload pages.
type ResourcesHandler struct {
	resources *service.ResourceService
	renderer  *render.Renderer
}

// NewResourcesHandler creates a new ResourcesHandler.
func NewResourcesHandler(resources *service.ResourceService, renderer *render.Renderer) *ResourcesHandler {
	return &ResourcesHandler{
		resources: resources,
		renderer:  renderer,
	}
}

type listingData struct {
	Subject   string
	Resources []model.Resource
}

// Home redirects to the public listing.
func (h *ResourcesHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, RouteResources, http.StatusSeeOther)
}

// List renders the listing. Visitors and users only ever get APPROVED
// resources; admins see everything.
func (h *ResourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	list, err := h.resources.List(r.Context(), middleware.GetIdentity(r), service.ListFilter{Subject: subject})
	if err != nil {
		logAndInternalError(w, r, "failed to list resources", "error", err)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, pageResources, render.TemplateData{
		Title: "Resources",
		Data:  listingData{Subject: subject, Resources: list},
	})
}

// Dashboard renders the caller's own uploads, newest first.
func (h *ResourcesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.resources.ListByOwner(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		logAndInternalError(w, r, "failed to list own resources", "error", err)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, pageDashboard, render.TemplateData{
		Title: "Dashboard",
		Data:  listingData{Resources: list},
	})
}

// UploadForm renders the upload page.
func (h *ResourcesHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, pageUpload, render.TemplateData{Title: "Upload"})
}

// Upload handles the multipart upload form.
func (h *ResourcesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := ReadUpload(w, r)
	defer cleanup()
	if err == nil {
		_, err = h.resources.Upload(r.Context(), middleware.GetIdentity(r), in)
	}
	if err == nil {
		flashSuccess(w, r, h.renderer, RouteDashboard, "Resource submitted. It will appear publicly once approved.")
		return
	}

	form := map[string]string{"title": in.Title, "description": in.Description, "subject": in.Subject}
	data := render.TemplateData{Title: "Upload", Form: form}

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	case errors.Is(err, storage.ErrTooLarge):
		data.Errors = map[string]string{"file": storage.ErrTooLarge.Error()}
		renderPage(w, r, h.renderer, http.StatusRequestEntityTooLarge, pageUpload, data)
	case errors.Is(err, storage.ErrUnsupportedType):
		data.Errors = map[string]string{"file": storage.ErrUnsupportedType.Error()}
		renderPage(w, r, h.renderer, http.StatusUnsupportedMediaType, pageUpload, data)
	case errors.Is(err, service.ErrValidation):
		data.Errors = fieldErrors(err)
		if len(data.Errors) == 0 {
			data.Errors = map[string]string{"form": "The upload could not be read"}
		}
		renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, pageUpload, data)
	default:
		logAndInternalError(w, r, "upload failed", "error", err)
	}
}
