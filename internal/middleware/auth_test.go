// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/session"
)

type fakeUsers struct {
	users map[string]*model.Identity
	err   error
	calls int
}

func (f *fakeUsers) IdentityByID(_ context.Context, id string) (*model.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

type fakeTokens map[string]string

func (f fakeTokens) Parse(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

// captureIdentity records the identity seen by the final handler.
func captureIdentity(got **model.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetIdentity(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoadIdentity_Bearer(t *testing.T) {
	users := &fakeUsers{users: map[string]*model.Identity{"u1": testUser}}
	tokens := fakeTokens{"good": "u1", "ghost": "deleted"}

	tests := []struct {
		name   string
		header string
		want   *model.Identity
	}{
		{"no header", "", nil},
		{"valid token", "Bearer good", testUser},
		{"lowercase scheme", "bearer good", testUser},
		{"invalid token", "Bearer forged", nil},
		{"token for deleted user", "Bearer ghost", nil},
		{"wrong scheme", "Basic Z29vZA==", nil},
		{"empty token", "Bearer ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.Identity
			h := LoadIdentity(nil, users, tokens)(captureIdentity(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadIdentity_RoleComesFromStore(t *testing.T) {
	promoted := *testUser
	promoted.Role = model.RoleAdmin
	users := &fakeUsers{users: map[string]*model.Identity{"u1": &promoted}}

	var got *model.Identity
	h := LoadIdentity(nil, users, fakeTokens{"good": "u1"})(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Role", "USER")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.True(t, got.IsAdmin())
	assert.Equal(t, 1, users.calls)
}

func TestLoadIdentity_StoreFailure(t *testing.T) {
	users := &fakeUsers{err: errors.New("disk I/O error")}
	called := false
	h := LoadIdentity(nil, users, fakeTokens{"good": "u1"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestLoadIdentity_Session(t *testing.T) {
	sm := scs.New()
	users := &fakeUsers{users: map[string]*model.Identity{"u1": testUser}}

	var got *model.Identity
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, session.Login(r.Context(), sm, r.URL.Query().Get("id")))
	})
	mux.Handle("/", LoadIdentity(sm, users, nil)(captureIdentity(&got)))
	h := sm.LoadAndSave(mux)

	login := func(id string) *http.Cookie {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?id="+id, nil))
		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		return cookies[0]
	}
	visit := func(c *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(c)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	visit(login("u1"))
	assert.Equal(t, testUser, got)

	// A session whose account disappeared is destroyed and treated as anonymous.
	stale := login("gone")
	rec := visit(stale)
	assert.Nil(t, got)
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sm.Cookie.Name && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "stale session cookie should be expired")
}

func TestRequireIdentity(t *testing.T) {
	h := RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), testUser))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetUserIDAndRequestPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	assert.Equal(t, "", GetUserID(req))

	req = req.WithContext(WithIdentity(req.Context(), testUser))
	assert.Equal(t, "u1", GetUserID(req))

	var path string
	RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = GetRequestPath(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/resources", path)
}
