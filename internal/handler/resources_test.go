// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/storage"
	"github.com/olegiv/resourcehub/internal/testutil"
)

func TestHome_RedirectsToResources(t *testing.T) {
	env := newTestEnv(t)

	res := env.get(t, env.client(t), RouteRoot)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteResources, res.location)
}

func TestList_VisitorSeesApprovedOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "Alice", "alice@example.com", "secret1", model.RoleUser)
	testutil.CreateResource(t, env.db, owner, "Approved algebra", "Mathematics", model.StatusApproved)
	testutil.CreateResource(t, env.db, owner, "Pending physics", "Physics", model.StatusPending)
	testutil.CreateResource(t, env.db, owner, "Approved mechanics", "Physics", model.StatusApproved)

	tests := []struct {
		name    string
		query   string
		want    []string
		notWant []string
	}{
		{"all", "", []string{"Approved algebra", "Approved mechanics"}, []string{"Pending physics"}},
		{"all keyword", "?subject=all", []string{"Approved algebra", "Approved mechanics"}, []string{"Pending physics"}},
		{"subject", "?subject=Physics", []string{"Approved mechanics"}, []string{"Approved algebra", "Pending physics"}},
		{"unknown subject", "?subject=Chemistry", []string{"No resources found"}, []string{"Approved"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.get(t, env.client(t), RouteResources+tt.query)
			require.Equal(t, http.StatusOK, res.status)
			for _, s := range tt.want {
				assert.Contains(t, res.body, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, res.body, s)
			}
		})
	}
}

func TestGate_Redirects(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.login(t, "Alice", "alice@example.com", model.RoleUser)
	anon := env.client(t)

	tests := []struct {
		name     string
		client   *http.Client
		path     string
		wantLoc  string
		wantCode int
	}{
		{"anonymous dashboard", anon, RouteDashboard, RouteLogin, http.StatusSeeOther},
		{"anonymous upload", anon, RouteUpload, RouteLogin, http.StatusSeeOther},
		{"anonymous admin", anon, RouteAdmin, RouteLogin, http.StatusSeeOther},
		{"user admin", user, RouteAdmin, RouteDashboard, http.StatusSeeOther},
		{"user upload", user, RouteUpload, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.get(t, tt.client, tt.path)
			assert.Equal(t, tt.wantCode, res.status)
			assert.Equal(t, tt.wantLoc, res.location)
		})
	}
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	c, alice := env.login(t, "Alice", "alice@example.com", model.RoleUser)

	res := env.postUpload(t, c, validFields(), pdfPart(1024))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, RouteDashboard, res.location)

	own, err := env.resources.ListByOwner(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, model.StatusPending, own[0].Status)
	assert.Equal(t, "Mathematics", own[0].Subject)

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	dash := env.get(t, c, RouteDashboard)
	assert.Contains(t, dash.body, "Calculus notes")
	assert.Contains(t, dash.body, "Pending")
	assert.Contains(t, dash.body, "<strong>derivatives</strong>")

	// Not public until approved.
	public := env.get(t, env.client(t), RouteResources)
	assert.NotContains(t, public.body, "Calculus notes")
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)
	c, alice := env.login(t, "Alice", "alice@example.com", model.RoleUser)

	missingTitle := validFields()
	delete(missingTitle, "title")

	tests := []struct {
		name       string
		fields     map[string]string
		file       *uploadPart
		wantStatus int
		wantBody   string
	}{
		{
			name:       "not a pdf",
			fields:     validFields(),
			file:       &uploadPart{name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
			wantStatus: http.StatusUnsupportedMediaType,
			wantBody:   storage.ErrUnsupportedType.Error(),
		},
		{
			name:       "file over limit",
			fields:     validFields(),
			file:       pdfPart(int(storage.MaxFileSize) + 1),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   storage.ErrTooLarge.Error(),
		},
		{
			name:       "missing file",
			fields:     validFields(),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "is required",
		},
		{
			name:       "missing title",
			fields:     missingTitle,
			file:       pdfPart(1024),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.postUpload(t, c, tt.fields, tt.file)
			assert.Equal(t, tt.wantStatus, res.status)
			assert.Contains(t, res.body, tt.wantBody)
		})
	}

	own, err := env.resources.ListByOwner(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, own)

	entries, err := os.ReadDir(env.uploadDir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestDashboard_DeletedAccountIsSignedOut(t *testing.T) {
	env := newTestEnv(t)
	c, alice := env.login(t, "Alice", "alice@example.com", model.RoleUser)

	_, err := env.db.Exec(`DELETE FROM users WHERE id = ?`, alice.ID)
	require.NoError(t, err)

	res := env.get(t, c, RouteDashboard)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, RouteLogin, res.location)
}
