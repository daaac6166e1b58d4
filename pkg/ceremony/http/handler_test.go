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
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/pkg/ceremony"
)

const testOrigin = "https://example.com"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	svc, err := ceremony.NewService(ceremony.ServiceParams{
		Config: &ceremony.Config{
			RPID:          "example.com",
			RPDisplayName: "Example",
			RPOrigins:     []string{testOrigin},
		},
		UserStore:       ceremony.NewMemoryUserStore(),
		CredentialStore: ceremony.NewMemoryCredentialStore(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return NewHandler(svc).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doJSON(t *testing.T, handlerFunc http.HandlerFunc, body any, origin string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// registerOverHTTP runs the full wire-level registration ceremony.
func registerOverHTTP(t *testing.T, h *Handler, auth *ceremony.MockAuthenticator, username string) {
	t.Helper()

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: username}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decodeBody[RegisterOptionsResponse](t, rec)

	challenge, err := ceremony.DecodeBytes(opts.Challenge)
	require.NoError(t, err)
	attestation, err := auth.CreateAttestation(challenge, testOrigin)
	require.NoError(t, err)

	rec = doJSON(t, h.RegisterVerify, RegisterVerifyRequest{
		Username:             username,
		CredentialID:         ceremony.EncodeBytes(attestation.CredentialID),
		RawAttestationObject: ceremony.EncodeBytes(attestation.AttestationObject),
		ClientDataJSON:       ceremony.EncodeBytes(attestation.ClientDataJSON),
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	verify := decodeBody[VerifyResponse](t, rec)
	assert.Equal(t, StatusOK, verify.Status)
}

func TestRegisterReturnsCreationOptions(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: "alice"}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	opts := decodeBody[RegisterOptionsResponse](t, rec)
	assert.NotEmpty(t, opts.Challenge)
	assert.Equal(t, "example.com", opts.RP.ID)
	assert.Equal(t, "Example", opts.RP.Name)
	assert.Equal(t, "alice", opts.User.Name)
	assert.NotEmpty(t, opts.User.ID)
	require.Len(t, opts.PubKeyCredParams, 2)
	assert.Equal(t, int64(-7), opts.PubKeyCredParams[0].Alg)
	assert.Equal(t, int64(-257), opts.PubKeyCredParams[1].Alg)
	assert.Equal(t, int64(60000), opts.Timeout)
	assert.Empty(t, opts.ExcludeCredentials)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	h := newTestHandler(t)

	auth, err := ceremony.NewMockAuthenticator("example.com")
	require.NoError(t, err)
	registerOverHTTP(t, h, auth, "alice")

	rec := doJSON(t, h.Login, LoginBeginRequest{Username: "alice"}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decodeBody[LoginOptionsResponse](t, rec)
	assert.Equal(t, "example.com", opts.RPID)
	require.Len(t, opts.AllowCredentials, 1)
	assert.Equal(t, ceremony.EncodeBytes(auth.CredentialID), opts.AllowCredentials[0].ID)

	challenge, err := ceremony.DecodeBytes(opts.Challenge)
	require.NoError(t, err)
	assertion, err := auth.CreateAssertion(challenge, testOrigin)
	require.NoError(t, err)

	rec = doJSON(t, h.LoginVerify, LoginVerifyRequest{
		Username:          "alice",
		CredentialID:      ceremony.EncodeBytes(assertion.CredentialID),
		AuthenticatorData: ceremony.EncodeBytes(assertion.AuthenticatorData),
		ClientDataJSON:    ceremony.EncodeBytes(assertion.ClientDataJSON),
		Signature:         ceremony.EncodeBytes(assertion.Signature),
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	verify := decodeBody[VerifyResponse](t, rec)
	assert.Equal(t, StatusOK, verify.Status)
	assert.Empty(t, verify.Token)
}

func TestRegisterValidation(t *testing.T) {
	h := newTestHandler(t)

	// Missing username.
	rec := doJSON(t, h.Register, RegisterBeginRequest{}, testOrigin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeInvalidRequest, errResp.Error)

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	h.Register(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)

	// Wrong method.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec3 := httptest.NewRecorder()
	h.Register(rec3, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec3.Code)
}

func TestRegisterRejectsUnknownOrigin(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: "alice"}, "https://evil.example")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeInvalidRequest, errResp.Error)
}

func TestRegisterVerifyFailuresAreGeneric(t *testing.T) {
	h := newTestHandler(t)

	auth, err := ceremony.NewMockAuthenticator("example.com")
	require.NoError(t, err)

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: "alice"}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	// Attestation over a forged challenge. The response must not reveal that
	// the challenge was the problem.
	attestation, err := auth.CreateAttestation(make([]byte, 64), testOrigin)
	require.NoError(t, err)

	rec = doJSON(t, h.RegisterVerify, RegisterVerifyRequest{
		Username:             "alice",
		CredentialID:         ceremony.EncodeBytes(attestation.CredentialID),
		RawAttestationObject: ceremony.EncodeBytes(attestation.AttestationObject),
		ClientDataJSON:       ceremony.EncodeBytes(attestation.ClientDataJSON),
	}, testOrigin)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeVerificationFailed, errResp.Error)
	assert.Equal(t, "verification failed", errResp.Message)
}

func TestLoginUnknownUser(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.Login, LoginBeginRequest{Username: "nobody"}, testOrigin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeUserNotFound, errResp.Error)
}

func TestLoginVerifyBadEncoding(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.LoginVerify, LoginVerifyRequest{
		Username:          "alice",
		CredentialID:      "!!!not-base64url!!!",
		AuthenticatorData: "AA",
		ClientDataJSON:    "AA",
		Signature:         "AA",
	}, testOrigin)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeInvalidRequest, errResp.Error)
}

func TestLoginVerifyWithoutPendingCeremonyIsGeneric(t *testing.T) {
	h := newTestHandler(t)

	auth, err := ceremony.NewMockAuthenticator("example.com")
	require.NoError(t, err)
	registerOverHTTP(t, h, auth, "alice")

	assertion, err := auth.CreateAssertion(make([]byte, 64), testOrigin)
	require.NoError(t, err)

	rec := doJSON(t, h.LoginVerify, LoginVerifyRequest{
		Username:          "alice",
		CredentialID:      ceremony.EncodeBytes(assertion.CredentialID),
		AuthenticatorData: ceremony.EncodeBytes(assertion.AuthenticatorData),
		ClientDataJSON:    ceremony.EncodeBytes(assertion.ClientDataJSON),
		Signature:         ceremony.EncodeBytes(assertion.Signature),
	}, testOrigin)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeVerificationFailed, errResp.Error)
}

func TestMountChi(t *testing.T) {
	h := newTestHandler(t)

	r := chi.NewRouter()
	r.Route("/api/v1/passkey", func(r chi.Router) {
		MountChi(r, h)
	})

	payload, err := json.Marshal(RegisterBeginRequest{Username: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/passkey/register", bytes.NewReader(payload))
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown route falls through to the router's 404.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/passkey/unknown", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
