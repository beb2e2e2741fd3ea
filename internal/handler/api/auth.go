// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/service"
)

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *model.Identity `json:"user"`
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	identity, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteCreated(w, r, identity)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}

	identity, err := h.accounts.Authenticate(r.Context(), in)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(identity.ID)
	if err != nil {
		slog.Error("failed to issue token", "error", err, "user_id", identity.ID)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	WriteSuccess(w, r, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      identity,
	})
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, middleware.GetIdentity(r))
}
