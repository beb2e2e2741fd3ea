// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/render"
	"github.com/olegiv/resourcehub/internal/scheduler"
	"github.com/olegiv/resourcehub/internal/service"
)

// recentEventsLimit is the number of audit events shown on the moderation page.
const recentEventsLimit = 20

// JobRunner lists scheduled jobs and runs them on demand.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(ctx context.Context, name string) error
}

// AdminHandler serves the moderation queue and maintenance pages.
type AdminHandler struct {
	resources *service.ResourceService
	events    *service.EventService
	jobs      JobRunner
	renderer  *render.Renderer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resources *service.ResourceService, events *service.EventService, jobs JobRunner, renderer *render.Renderer) *AdminHandler {
	return &AdminHandler{
		resources: resources,
		events:    events,
		jobs:      jobs,
		renderer:  renderer,
	}
}

type moderationData struct {
	Resources    []model.Resource
	PendingCount int64
	Events       []model.Event
}

// Dashboard renders the moderation queue with the recent audit log.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.resources.List(ctx, middleware.GetIdentity(r), service.ListFilter{Status: model.StatusPending})
	if err != nil {
		logAndInternalError(w, r, "failed to list pending resources", "error", err)
		return
	}
	count, err := h.resources.PendingCount(ctx)
	if err != nil {
		logAndInternalError(w, r, "failed to count pending resources", "error", err)
		return
	}

	var events []model.Event
	if h.events != nil {
		events, err = h.events.Recent(ctx, recentEventsLimit)
		if err != nil {
			// The queue is still usable without the audit panel.
			slog.Warn("failed to load recent events", "error", err)
		}
	}

	renderPage(w, r, h.renderer, http.StatusOK, pageAdmin, render.TemplateData{
		Title: "Moderation",
		Data: moderationData{
			Resources:    pending,
			PendingCount: count,
			Events:       events,
		},
	})
}

// Approve approves a resource from the moderation queue. The role is checked
// by the service regardless of the gate.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.resources.Approve(r.Context(), middleware.GetIdentity(r), id)
	switch {
	case err == nil:
		flashSuccess(w, r, h.renderer, RouteAdmin, "Approved \""+res.Title+"\"")
	case errors.Is(err, service.ErrUnauthenticated):
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	case errors.Is(err, service.ErrForbidden):
		renderError(w, r, h.renderer, http.StatusForbidden, "Only administrators can approve resources.")
	case errors.Is(err, service.ErrNotFound):
		flashError(w, r, h.renderer, RouteAdmin, "Resource not found")
	default:
		logAndInternalError(w, r, "approve failed", "resource_id", id, "error", err)
	}
}

// Jobs lists the scheduled maintenance jobs.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	var jobs []scheduler.JobInfo
	if h.jobs != nil {
		jobs = h.jobs.List()
	}
	renderPage(w, r, h.renderer, http.StatusOK, pageJobs, render.TemplateData{
		Title: "Scheduled jobs",
		Data:  jobs,
	})
}

// RunJob runs a scheduled job immediately.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		flashError(w, r, h.renderer, RouteJobs, "Unknown job "+name)
		return
	}

	err := h.jobs.TriggerNow(r.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		flashError(w, r, h.renderer, RouteJobs, "Unknown job "+name)
		return
	case err != nil:
		slog.Error("failed to run job", "name", name, "error", err)
		flashError(w, r, h.renderer, RouteJobs, "Job "+name+" failed: "+err.Error())
		return
	}

	h.events.LogEvent(r.Context(), model.EventLevelInfo, model.EventCategorySystem,
		"Job manually triggered", middleware.GetUserID(r), map[string]any{"job": name})
	slog.Info("scheduled job triggered", "name", name, "triggered_by", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, RouteJobs, "Job "+name+" finished")
}
