// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler serves the server-rendered HTML interface.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/resourcehub/internal/middleware"
	"github.com/olegiv/resourcehub/internal/render"
	"github.com/olegiv/resourcehub/internal/service"
	"github.com/olegiv/resourcehub/internal/session"
)

// AuthHandler handles login, registration and logout.
type AuthHandler struct {
	accounts       *service.AccountService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// LoginForm renders the login page. Signed-in users go to their dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r) != nil {
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, pageLogin, render.TemplateData{Title: "Log in"})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, RouteLogin, "Invalid form data")
		return
	}

	in := service.LoginInput{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	form := map[string]string{"email": in.Email}

	identity, err := h.accounts.Authenticate(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			renderPage(w, r, h.renderer, http.StatusUnauthorized, pageLogin, render.TemplateData{
				Title:  "Log in",
				Form:   form,
				Errors: map[string]string{"form": "Invalid email or password"},
			})
		case errors.Is(err, service.ErrValidation):
			renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, pageLogin, render.TemplateData{
				Title:  "Log in",
				Form:   form,
				Errors: fieldErrors(err),
			})
		default:
			logAndInternalError(w, r, "login failed", "error", err)
		}
		return
	}

	if err := session.Login(r.Context(), h.sessionManager, identity.ID); err != nil {
		logAndInternalError(w, r, "failed to renew session token", "error", err)
		return
	}
	flashSuccess(w, r, h.renderer, RouteDashboard, "Welcome back, "+identity.Name)
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r) != nil {
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, pageRegister, render.TemplateData{Title: "Register"})
}

// Register creates a USER account and sends the visitor to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, RouteRegister, "Invalid form data")
		return
	}

	in := service.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form := map[string]string{"name": in.Name, "email": in.Email}

	if _, err := h.accounts.Register(r.Context(), in); err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			renderPage(w, r, h.renderer, http.StatusConflict, pageRegister, render.TemplateData{
				Title:  "Register",
				Form:   form,
				Errors: map[string]string{"email": "An account with this email already exists"},
			})
		case errors.Is(err, service.ErrValidation):
			renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, pageRegister, render.TemplateData{
				Title:  "Register",
				Form:   form,
				Errors: fieldErrors(err),
			})
		default:
			logAndInternalError(w, r, "registration failed", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteLogin, "Account created. You can log in now.")
}

// Logout destroys the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := session.Logout(r.Context(), h.sessionManager); err != nil {
		logAndInternalError(w, r, "failed to destroy session", "error", err)
		return
	}
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}
