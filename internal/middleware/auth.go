// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeyIdentity    ContextKey = "identity"
	ContextKeyRequestPath ContextKey = "request_path"
)

// IdentityLoader resolves a user id to a fresh identity.
type IdentityLoader interface {
	IdentityByID(ctx context.Context, id string) (*model.Identity, error)
}

// TokenParser validates a bearer token and returns its user id.
type TokenParser interface {
	Parse(token string) (string, error)
}

// LoadIdentity puts the caller's identity into the request context. A bearer
// token takes precedence over the session cookie. The user row is re-read on
// every request so role changes take effect immediately; a session that
// points at a deleted account is destroyed. sm and tokens may be nil.
func LoadIdentity(sm *scs.SessionManager, users IdentityLoader, tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, fromSession := "", false
			if raw, ok := bearerToken(r); ok && tokens != nil {
				id, err := tokens.Parse(raw)
				if err != nil {
					slog.Debug("rejected bearer token", "error", err, "path", r.URL.Path)
				}
				userID = id
			} else if sm != nil {
				userID = session.UserID(r.Context(), sm)
				fromSession = userID != ""
			}

			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := users.IdentityByID(r.Context(), userID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
			case errors.Is(err, service.ErrNotFound):
				if fromSession {
					_ = session.Logout(r.Context(), sm)
				}
				next.ServeHTTP(w, r)
			default:
				slog.Error("failed to load identity", "error", err, "user_id", userID)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// RequireIdentity rejects anonymous API requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// GetIdentity returns the caller's identity, or nil for anonymous requests.
func GetIdentity(r *http.Request) *model.Identity {
	identity, _ := r.Context().Value(ContextKeyIdentity).(*model.Identity)
	return identity
}

// GetUserID returns the caller's id, or "" when anonymous.
func GetUserID(r *http.Request) string {
	if identity := GetIdentity(r); identity != nil {
		return identity.ID
	}
	return ""
}

// RequestPath stores the request path in the context for error logging.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}
