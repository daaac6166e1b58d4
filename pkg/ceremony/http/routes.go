// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountChi mounts the ceremony routes on a chi router.
//
// Example:
//
//	handler := ceremonyhttp.NewHandler(svc)
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    ceremonyhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/register", h.Register)
	r.Post("/register/verify", h.RegisterVerify)
	r.Post("/login", h.Login)
	r.Post("/login/verify", h.LoginVerify)
}

// MountStdlib mounts the ceremony routes on a stdlib http.ServeMux.
// The prefix should not include a trailing slash. Method checking is done
// inside the handlers.
//
// Example:
//
//	handler := ceremonyhttp.NewHandler(svc)
//	ceremonyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
func MountStdlib(mux *http.ServeMux, prefix string, h *Handler) {
	mux.HandleFunc(prefix+"/register", h.Register)
	mux.HandleFunc(prefix+"/register/verify", h.RegisterVerify)
	mux.HandleFunc(prefix+"/login", h.Login)
	mux.HandleFunc(prefix+"/login/verify", h.LoginVerify)
}

// RouteEntry represents a single route with its method, path, and handler.
type RouteEntry struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns the route table for manual mounting on frameworks not
// directly supported.
func (h *Handler) Routes() []RouteEntry {
	return []RouteEntry{
		{Method: "POST", Path: "/register", Handler: h.Register},
		{Method: "POST", Path: "/register/verify", Handler: h.RegisterVerify},
		{Method: "POST", Path: "/login", Handler: h.Login},
		{Method: "POST", Path: "/login/verify", Handler: h.LoginVerify},
	}
}
