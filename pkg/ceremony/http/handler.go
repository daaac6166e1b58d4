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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeremyhahn/go-passkey/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
)

// Handler provides HTTP handlers for the passkey ceremonies.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	service *ceremony.Service
	logger  *slog.Logger
}

// NewHandler creates a new ceremony HTTP handler.
func NewHandler(service *ceremony.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// Register handles POST /register
//
// Request body:
//
//	{"username": "alice"}
//
// Response: PublicKeyCredentialCreationOptions-shaped JSON.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req RegisterBeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	opts, err := h.service.BeginRegistration(r.Context(), req.Username, requestOrigin(r))
	if err != nil {
		h.handleBeginError(w, err)
		return
	}
	metrics.RecordCeremonyStarted(metrics.CeremonyRegistration)

	exclude := make([]CredentialRef, len(opts.ExcludeCredentialIDs))
	for i, id := range opts.ExcludeCredentialIDs {
		exclude[i] = CredentialRef{Type: "public-key", ID: ceremony.EncodeBytes(id)}
	}
	params := make([]CredentialParam, len(opts.Algorithms))
	for i, alg := range opts.Algorithms {
		params[i] = CredentialParam{Type: "public-key", Alg: alg}
	}

	h.writeJSON(w, http.StatusOK, RegisterOptionsResponse{
		Challenge: ceremony.EncodeBytes(opts.Challenge),
		RP: RelyingParty{
			ID:   opts.RPID,
			Name: opts.RPName,
		},
		User: UserEntity{
			ID:          ceremony.EncodeBytes(opts.UserHandle),
			Name:        opts.UserName,
			DisplayName: opts.UserName,
		},
		PubKeyCredParams:   params,
		Timeout:            opts.Timeout.Milliseconds(),
		ExcludeCredentials: exclude,
	})
}

// RegisterVerify handles POST /register/verify
//
// Request body: RegisterVerifyRequest with base64url byte fields.
// Response: {"status":"ok"} or a generic verification failure.
func (h *Handler) RegisterVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req RegisterVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := decodeAttestation(&req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid field encoding")
		return
	}

	result, err := h.service.FinishRegistration(r.Context(), req.Username, response)
	if err != nil {
		h.handleVerifyError(w, r, metrics.CeremonyRegistration, req.Username, err)
		return
	}
	metrics.RecordCeremonyCompleted(metrics.CeremonyRegistration, metrics.StatusSuccess, result.Elapsed.Seconds())

	h.writeJSON(w, http.StatusOK, VerifyResponse{Status: StatusOK})
}

// Login handles POST /login
//
// Request body:
//
//	{"username": "alice"}
//
// Response: PublicKeyCredentialRequestOptions-shaped JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req LoginBeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	opts, err := h.service.BeginAuthentication(r.Context(), req.Username, requestOrigin(r))
	if err != nil {
		h.handleBeginError(w, err)
		return
	}
	metrics.RecordCeremonyStarted(metrics.CeremonyAuthentication)

	allow := make([]CredentialRef, len(opts.AllowedCredentialIDs))
	for i, id := range opts.AllowedCredentialIDs {
		allow[i] = CredentialRef{Type: "public-key", ID: ceremony.EncodeBytes(id)}
	}

	h.writeJSON(w, http.StatusOK, LoginOptionsResponse{
		Challenge:        ceremony.EncodeBytes(opts.Challenge),
		AllowCredentials: allow,
		RPID:             opts.RPID,
		Timeout:          opts.Timeout.Milliseconds(),
	})
}

// LoginVerify handles POST /login/verify
//
// Request body: LoginVerifyRequest with base64url byte fields.
// Response: {"status":"ok","token":"..."} or a generic verification failure.
func (h *Handler) LoginVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req LoginVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := decodeAssertion(&req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid field encoding")
		return
	}

	result, err := h.service.FinishAuthentication(r.Context(), req.Username, response)
	if err != nil {
		h.handleVerifyError(w, r, metrics.CeremonyAuthentication, req.Username, err)
		return
	}
	metrics.RecordCeremonyCompleted(metrics.CeremonyAuthentication, metrics.StatusSuccess, result.Elapsed.Seconds())

	h.writeJSON(w, http.StatusOK, VerifyResponse{
		Status: StatusOK,
		Token:  result.Token,
	})
}

// decodeAttestation converts wire fields into canonical bytes.
func decodeAttestation(req *RegisterVerifyRequest) (*ceremony.AttestationResponse, error) {
	credentialID, err := ceremony.DecodeBytes(req.CredentialID)
	if err != nil {
		return nil, err
	}
	attestationObject, err := ceremony.DecodeBytes(req.RawAttestationObject)
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := ceremony.DecodeBytes(req.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	return &ceremony.AttestationResponse{
		CredentialID:      credentialID,
		AttestationObject: attestationObject,
		ClientDataJSON:    clientDataJSON,
	}, nil
}

// decodeAssertion converts wire fields into canonical bytes.
func decodeAssertion(req *LoginVerifyRequest) (*ceremony.AssertionResponse, error) {
	credentialID, err := ceremony.DecodeBytes(req.CredentialID)
	if err != nil {
		return nil, err
	}
	authenticatorData, err := ceremony.DecodeBytes(req.AuthenticatorData)
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := ceremony.DecodeBytes(req.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	signature, err := ceremony.DecodeBytes(req.Signature)
	if err != nil {
		return nil, err
	}
	var userHandle []byte
	if req.UserHandle != "" {
		userHandle, err = ceremony.DecodeBytes(req.UserHandle)
		if err != nil {
			return nil, err
		}
	}
	return &ceremony.AssertionResponse{
		CredentialID:      credentialID,
		AuthenticatorData: authenticatorData,
		ClientDataJSON:    clientDataJSON,
		Signature:         signature,
		UserHandle:        userHandle,
	}, nil
}

// requestOrigin extracts the web origin the browser reports for the request.
func requestOrigin(r *http.Request) string {
	return r.Header.Get("Origin")
}

// handleBeginError maps ceremony start errors to HTTP responses.
func (h *Handler) handleBeginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ceremony.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, ceremony.ErrOriginMismatch):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "origin not allowed")
	case errors.Is(err, ceremony.ErrMalformedEncoding):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request")
	default:
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// handleVerifyError reports every completion failure with the same generic
// message. The reason stays in the server log and the metrics registry;
// telling callers which check failed would hand probes a debugging oracle.
func (h *Handler) handleVerifyError(w http.ResponseWriter, r *http.Request, kind, userName string, err error) {
	h.logger.Warn("ceremony verification failed",
		"kind", kind,
		"user", userName,
		"remote", r.RemoteAddr,
		"error", err)
	metrics.RecordCeremonyCompleted(kind, metrics.StatusError, 0)
	metrics.RecordVerificationFailure(kind, failureType(err))
	h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
}

// failureType maps a verification failure to its metrics label.
func failureType(err error) string {
	switch {
	case errors.Is(err, ceremony.ErrPossibleCloneDetected):
		return "clone_detected"
	case errors.Is(err, ceremony.ErrChallengeMismatch):
		return "challenge_mismatch"
	case errors.Is(err, ceremony.ErrOriginMismatch):
		return "origin_mismatch"
	case errors.Is(err, ceremony.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ceremony.ErrNoPendingCeremony):
		return "no_pending_ceremony"
	case errors.Is(err, ceremony.ErrCeremonyExpired):
		return "ceremony_expired"
	case errors.Is(err, ceremony.ErrCredentialNotFound):
		return "credential_not_found"
	case errors.Is(err, ceremony.ErrDuplicateCredential):
		return "duplicate_credential"
	case errors.Is(err, ceremony.ErrMalformedEncoding):
		return "malformed_encoding"
	case errors.Is(err, ceremony.ErrUserNotFound):
		return "user_not_found"
	default:
		return "other"
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
