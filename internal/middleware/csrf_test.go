// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRF(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := SkipCSRFPrefix("/api/")(CSRF(DefaultCSRFConfig(key, false))(ok))

	tests := []struct {
		name      string
		method    string
		path      string
		fetchSite string
		want      int
	}{
		{"same-origin form post", http.MethodPost, "/login", "same-origin", http.StatusOK},
		{"cross-site form post", http.MethodPost, "/admin/resources/1/approve", "cross-site", http.StatusForbidden},
		{"cross-site get", http.MethodGet, "/resources", "cross-site", http.StatusOK},
		{"cross-site api post", http.MethodPost, "/api/v1/resources", "cross-site", http.StatusOK},
		{"non-browser client", http.MethodPost, "/login", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestDefaultCSRFConfig(t *testing.T) {
	if cfg := DefaultCSRFConfig(nil, false); len(cfg.TrustedOrigins) != 0 {
		t.Errorf("production should trust no extra origins, got %v", cfg.TrustedOrigins)
	}
	if cfg := DefaultCSRFConfig(nil, true); len(cfg.TrustedOrigins) == 0 {
		t.Error("development should trust localhost")
	}
}
