// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/resourcehub/internal/model"
)

// PathClass is the access class of a page.
type PathClass int

// Path classes.
const (
	ClassPublic PathClass = iota
	ClassAuthenticated
	ClassAdmin
)

// Decision is the gate's verdict for a request.
type Decision int

// Gate decisions.
const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToDashboard
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToDashboard:
		return "redirect_dashboard"
	default:
		return "unknown"
	}
}

type gateRule struct {
	prefix string
	class  PathClass
}

// Gate redirects browsers away from pages they may not open. It only shapes
// navigation: services check roles again on every mutation.
type Gate struct {
	rules        []gateRule
	loginPath    string
	fallbackPath string
}

// NewGate returns the gate for the HTML interface: /dashboard and /upload
// need a signed-in user, /admin needs an ADMIN.
func NewGate() *Gate {
	return &Gate{
		rules: []gateRule{
			{prefix: "/dashboard", class: ClassAuthenticated},
			{prefix: "/upload", class: ClassAuthenticated},
			{prefix: "/admin", class: ClassAdmin},
		},
		loginPath:    "/login",
		fallbackPath: "/dashboard",
	}
}

// Classify returns the class of path. A prefix matches whole path segments,
// so "/admin" covers "/admin/resources/1" but not "/administrivia".
func (g *Gate) Classify(path string) PathClass {
	for _, rule := range g.rules {
		if path == rule.prefix || strings.HasPrefix(path, rule.prefix+"/") {
			return rule.class
		}
	}
	return ClassPublic
}

// Decide applies the access table to a path class and an optional identity.
func Decide(class PathClass, identity *model.Identity) Decision {
	switch class {
	case ClassPublic:
		return Allow
	case ClassAuthenticated:
		if identity == nil {
			return RedirectToLogin
		}
		return Allow
	case ClassAdmin:
		if identity == nil {
			return RedirectToLogin
		}
		if !identity.IsAdmin() {
			return RedirectToDashboard
		}
		return Allow
	default:
		return RedirectToLogin
	}
}

// Handler enforces the gate. It must run after LoadIdentity.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r)
		switch Decide(g.Classify(r.URL.Path), identity) {
		case RedirectToLogin:
			http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
		case RedirectToDashboard:
			slog.Warn("access denied",
				"category", model.EventCategoryAuth,
				"path", r.URL.Path,
				"user_id", identity.ID,
				"ip", r.RemoteAddr,
			)
			http.Redirect(w, r, g.fallbackPath, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
