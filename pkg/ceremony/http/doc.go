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

// Package http provides composable HTTP handlers for the passkey ceremonies.
//
// This package allows applications to add passwordless authentication to
// their existing HTTP servers without coupling to go-passkey's demo server.
//
// # Usage
//
// Create a handler from a ceremony service and mount it on your router:
//
//	svc, _ := ceremony.NewService(...)
//	handler := ceremonyhttp.NewHandler(svc)
//
//	// For chi router:
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    ceremonyhttp.MountChi(r, handler)
//	})
//
//	// For stdlib http.ServeMux:
//	ceremonyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
//
// # Endpoints
//
//	POST /register         - Start registration ceremony
//	POST /register/verify  - Complete registration
//	POST /login            - Start authentication ceremony
//	POST /login/verify     - Complete authentication
//
// Begin operations bind the ceremony to the Origin request header. Byte
// fields on the wire are base64url encoded.
//
// # Response Format
//
// All responses are JSON. Completion failures are reported with a single
// generic verification_failed code no matter which check rejected the
// response; the specific reason is only logged server side. Other error
// responses have the format:
//
//	{
//	    "error": "error_code",
//	    "message": "Human-readable message"
//	}
package http
