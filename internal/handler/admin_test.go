// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/testutil"
)

func TestAdmin_ApproveFlow(t *testing.T) {
	env := newTestEnv(t)
	userClient, alice := env.login(t, "Alice", "alice@example.com", model.RoleUser)
	adminClient, _ := env.login(t, "Admin", "admin@example.com", model.RoleAdmin)
	pending := testutil.CreateResource(t, env.db, alice, "Organic chemistry", "Chemistry", model.StatusPending)

	queue := env.get(t, adminClient, RouteAdmin)
	require.Equal(t, http.StatusOK, queue.status)
	assert.Contains(t, queue.body, "Organic chemistry")
	assert.Contains(t, queue.body, "1 pending")

	approvePath := "/admin/resources/" + pending.ID + "/approve"

	// The gate turns users away before the service is reached.
	res := env.postForm(t, userClient, approvePath, url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteDashboard, res.location)

	res = env.postForm(t, adminClient, approvePath, url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteAdmin, res.location)

	queue = env.get(t, adminClient, RouteAdmin)
	assert.Contains(t, queue.body, "Approved &#34;Organic chemistry&#34;")
	assert.Contains(t, queue.body, "Nothing waiting for review")

	public := env.get(t, env.client(t), RouteResources)
	assert.Contains(t, public.body, "Organic chemistry")

	// Approving again is a no-op that still succeeds.
	res = env.postForm(t, adminClient, approvePath, url.Values{})
	assert.Equal(t, RouteAdmin, res.location)
}

func TestAdmin_ApproveUnknown(t *testing.T) {
	env := newTestEnv(t)
	adminClient, _ := env.login(t, "Admin", "admin@example.com", model.RoleAdmin)

	res := env.postForm(t, adminClient, "/admin/resources/does-not-exist/approve", url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteAdmin, res.location)

	queue := env.get(t, adminClient, RouteAdmin)
	assert.Contains(t, queue.body, "Resource not found")
}

func TestAdmin_DashboardShowsQueueSizeAndActivity(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.login(t, "Alice", "alice@example.com", model.RoleUser)
	adminClient, _ := env.login(t, "Admin", "admin@example.com", model.RoleAdmin)
	first := testutil.CreateResource(t, env.db, alice, "Optics", "Physics", model.StatusPending)
	testutil.CreateResource(t, env.db, alice, "Genetics", "Biology", model.StatusPending)
	testutil.CreateResource(t, env.db, alice, "Algebra", "Mathematics", model.StatusApproved)

	page := env.get(t, adminClient, RouteAdmin)
	require.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, "2 pending")
	assert.Contains(t, page.body, "No recorded activity")
	assert.NotContains(t, page.body, "Algebra")

	res := env.postForm(t, adminClient, "/admin/resources/"+first.ID+"/approve", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.status)

	page = env.get(t, adminClient, RouteAdmin)
	assert.Contains(t, page.body, "1 pending")
	assert.Contains(t, page.body, "Recent activity")
	assert.Contains(t, page.body, "Resource approved")
	assert.Contains(t, page.body, `class="level-info"`)
}

func TestAdmin_JobsPage(t *testing.T) {
	env := newTestEnv(t)
	adminClient, _ := env.login(t, "Admin", "admin@example.com", model.RoleAdmin)

	page := env.get(t, adminClient, RouteJobs)
	require.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, "count_runs")
	assert.Contains(t, page.body, "Counts runs")
	assert.Contains(t, page.body, "@daily")
	assert.Contains(t, page.body, "never")
	assert.Contains(t, page.body, `action="/admin/jobs/count_runs/run"`)
}

func TestAdmin_JobsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	userClient, _ := env.login(t, "Alice", "alice@example.com", model.RoleUser)

	tests := []struct {
		name     string
		client   *http.Client
		method   string
		path     string
		location string
	}{
		{"anonymous list", env.client(t), http.MethodGet, RouteJobs, RouteLogin},
		{"user list", userClient, http.MethodGet, RouteJobs, RouteDashboard},
		{"anonymous run", env.client(t), http.MethodPost, "/admin/jobs/count_runs/run", RouteLogin},
		{"user run", userClient, http.MethodPost, "/admin/jobs/count_runs/run", RouteDashboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res result
			if tt.method == http.MethodGet {
				res = env.get(t, tt.client, tt.path)
			} else {
				res = env.postForm(t, tt.client, tt.path, url.Values{})
			}
			assert.Equal(t, http.StatusSeeOther, res.status)
			assert.Equal(t, tt.location, res.location)
		})
	}
	assert.Zero(t, env.jobRuns.Load(), "gated requests must not run jobs")
}

func TestAdmin_RunJob(t *testing.T) {
	env := newTestEnv(t)
	adminClient, admin := env.login(t, "Admin", "admin@example.com", model.RoleAdmin)

	tests := []struct {
		name  string
		job   string
		flash string
		runs  int32
	}{
		{"runs the job", "count_runs", "Job count_runs finished", 1},
		{"unknown job", "nope", "Unknown job nope", 1},
		{"failing job", "always_fails", "Job always_fails failed: disk full", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.postForm(t, adminClient, "/admin/jobs/"+tt.job+"/run", url.Values{})
			require.Equal(t, http.StatusSeeOther, res.status)
			assert.Equal(t, RouteJobs, res.location)

			page := env.get(t, adminClient, RouteJobs)
			assert.Contains(t, page.body, tt.flash)
			assert.Equal(t, tt.runs, env.jobRuns.Load())
		})
	}

	events, err := env.events.Recent(context.Background(), 10)
	require.NoError(t, err)
	var triggered []model.Event
	for _, e := range events {
		if e.Message == "Job manually triggered" {
			triggered = append(triggered, e)
		}
	}
	require.Len(t, triggered, 1, "only successful runs are recorded")
	assert.Equal(t, model.EventCategorySystem, triggered[0].Category)
	assert.Equal(t, admin.ID, triggered[0].UserID.String)
}
