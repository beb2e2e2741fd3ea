// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/render"
	"github.com/olegiv/resourcehub/internal/scheduler"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/session"
	"github.com/olegiv/resourcehub/internal/storage"
	"github.com/olegiv/resourcehub/internal/testutil"
)

type testEnv struct {
	db        *sql.DB
	accounts  *service.AccountService
	resources *service.ResourceService
	events    *service.EventService
	server    *httptest.Server
	uploadDir string
	jobRuns   *atomic.Int32
}

// newTestEnv serves the HTML routes the way the application mounts them,
// minus CSRF and security headers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	sm := session.New(db, true)
	renderer, err := render.New(render.Config{TemplatesFS: testutil.Templates(t), SessionManager: sm})
	require.NoError(t, err)

	logger := testutil.TestLoggerSilent()
	accounts := service.NewAccountService(db, service.WithAccountLogger(logger))
	events := service.NewEventService(db, logger)
	dir := filepath.Join(t.TempDir(), "uploads")
	resources := service.NewResourceService(db,
		storage.NewStager(storage.NewLocalBlob(dir, "/uploads")),
		service.WithResourceLogger(logger),
		service.WithResourceEvents(events),
	)

	jobRuns := &atomic.Int32{}
	sched := scheduler.New(logger, nil)
	require.NoError(t, sched.Register("count_runs", "Counts runs", "@daily", func(context.Context) error {
		jobRuns.Add(1)
		return nil
	}))
	require.NoError(t, sched.Register("always_fails", "Never succeeds", "@daily", func(context.Context) error {
		return errors.New("disk full")
	}))

	authHandler := NewAuthHandler(accounts, renderer, sm)
	resourcesHandler := NewResourcesHandler(resources, renderer)
	adminHandler := NewAdminHandler(resources, events, sched, renderer)
	healthHandler := NewHealthHandler(db, dir)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadIdentity(sm, accounts, nil))
	r.Use(middleware.NewGate().Handler)

	r.Get(RouteRoot, resourcesHandler.Home)
	r.Get(RouteResources, resourcesHandler.List)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Get(RouteRegister, authHandler.RegisterForm)
	r.Post(RouteRegister, authHandler.Register)
	r.Post(RouteLogout, authHandler.Logout)
	r.Get(RouteDashboard, resourcesHandler.Dashboard)
	r.Get(RouteUpload, resourcesHandler.UploadForm)
	r.Post(RouteUpload, resourcesHandler.Upload)
	r.Get(RouteAdmin, adminHandler.Dashboard)
	r.Post(RouteApprove, adminHandler.Approve)
	r.Get(RouteJobs, adminHandler.Jobs)
	r.Post(RouteRunJob, adminHandler.RunJob)
	r.Get(RouteHealth, healthHandler.Health)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		db:        db,
		accounts:  accounts,
		resources: resources,
		events:    events,
		server:    srv,
		uploadDir: dir,
		jobRuns:   jobRuns,
	}
}

// client returns a cookie-keeping client that does not follow redirects.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type result struct {
	status   int
	location string
	body     string
}

func do(t *testing.T, c *http.Client, req *http.Request) result {
	t.Helper()
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) result {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	return do(t, c, req)
}

func (e *testEnv) postForm(t *testing.T, c *http.Client, path string, form url.Values) result {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, c, req)
}

type uploadPart struct {
	name        string
	contentType string
	data        []byte
}

func (e *testEnv) postUpload(t *testing.T, c *http.Client, fields map[string]string, file *uploadPart) result {
	t.Helper()
	body, contentType := multipartBody(t, fields, file)
	req, err := http.NewRequest(http.MethodPost, e.server.URL+RouteUpload, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return do(t, c, req)
}

func multipartBody(t *testing.T, fields map[string]string, file *uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// login creates a user with role and returns a client holding its session.
func (e *testEnv) login(t *testing.T, name, email string, role model.Role) (*http.Client, *model.Identity) {
	t.Helper()
	identity := testutil.CreateUser(t, e.db, name, email, "secret123", role)
	c := e.client(t)
	res := e.postForm(t, c, RouteLogin, url.Values{"email": {email}, "password": {"secret123"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, RouteDashboard, res.location)
	return c, identity
}

func validFields() map[string]string {
	return map[string]string{
		"title":       "Calculus notes",
		"description": "Limits and **derivatives**",
		"subject":     "Mathematics",
	}
}

func pdfPart(size int) *uploadPart {
	return &uploadPart{name: "calc notes.pdf", contentType: "application/pdf", data: testutil.PDF(size)}
}
