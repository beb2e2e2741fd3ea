// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/resourcehub/internal/service"
)

var _ service.Metrics = (*Metrics)(nil)

func TestBusinessCounters(t *testing.T) {
	m := New()

	m.UserRegistered()
	m.LoginAttempt(true)
	m.LoginAttempt(false)
	m.LoginAttempt(false)
	m.ResourceSubmitted("Mathematics")
	m.ResourceSubmitted("Underwater Basket Weaving")
	m.ResourceApproved()
	m.UploadRejected("too_large")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.usersRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resourcesSubmitted.WithLabelValues("Mathematics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resourcesSubmitted.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resourcesApproved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsRejected.WithLabelValues("too_large")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.Nil(t, m.Registry())

	assert.NotPanics(t, func() {
		m.UserRegistered()
		m.LoginAttempt(true)
		m.ResourceSubmitted("Physics")
		m.ResourceApproved()
		m.UploadRejected("storage")
	})

	boom := errors.New("boom")
	assert.Equal(t, boom, m.ObserveJob("sweep", time.Now(), boom))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/resources/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/v1/resources/{id}", http.MethodGet, "418"))
	assert.Equal(t, 3.0, got)
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestObserveJob(t *testing.T) {
	m := New()

	require.NoError(t, m.ObserveJob("orphan_sweep", time.Now(), nil))
	require.Error(t, m.ObserveJob("orphan_sweep", time.Now(), errors.New("disk gone")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("orphan_sweep", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("orphan_sweep", "failure")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ResourceApproved()

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "resourcehub_resources_approved_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
