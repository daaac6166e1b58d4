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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tests in this file drive the wire API with a virtual authenticator
// instead of the in-process mock, so the full browser-format JSON round
// trip is exercised end to end.

// browserAttestation mirrors the PublicKeyCredential JSON a browser returns
// from navigator.credentials.create().
type browserAttestation struct {
	ID       string `json:"id"`
	RawID    string `json:"rawId"`
	Response struct {
		AttestationObject string `json:"attestationObject"`
		ClientDataJSON    string `json:"clientDataJSON"`
	} `json:"response"`
}

// browserAssertion mirrors the PublicKeyCredential JSON a browser returns
// from navigator.credentials.get().
type browserAssertion struct {
	ID       string `json:"id"`
	RawID    string `json:"rawId"`
	Response struct {
		AuthenticatorData string `json:"authenticatorData"`
		ClientDataJSON    string `json:"clientDataJSON"`
		Signature         string `json:"signature"`
		UserHandle        string `json:"userHandle"`
	} `json:"response"`
}

func newVirtualSetup() (virtualwebauthn.RelyingParty, virtualwebauthn.Authenticator, virtualwebauthn.Credential) {
	rp := virtualwebauthn.RelyingParty{
		Name:   "Example",
		ID:     "example.com",
		Origin: testOrigin,
	}
	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	return rp, authenticator, credential
}

// registerVirtual runs the full registration ceremony for username using the
// virtual authenticator and returns the browser-format attestation.
func registerVirtual(t *testing.T, h *Handler, rp virtualwebauthn.RelyingParty,
	authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential,
	username string) browserAttestation {
	t.Helper()

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: username}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decodeBody[RegisterOptionsResponse](t, rec)

	optionsJSON, err := json.Marshal(opts)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestationResponse := virtualwebauthn.CreateAttestationResponse(rp, authenticator, credential, *parsedOptions)

	var attestation browserAttestation
	require.NoError(t, json.Unmarshal([]byte(attestationResponse), &attestation))

	rec = doJSON(t, h.RegisterVerify, RegisterVerifyRequest{
		Username:             username,
		CredentialID:         attestation.RawID,
		RawAttestationObject: attestation.Response.AttestationObject,
		ClientDataJSON:       attestation.Response.ClientDataJSON,
	}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	verify := decodeBody[VerifyResponse](t, rec)
	assert.Equal(t, StatusOK, verify.Status)
	return attestation
}

// loginVirtual runs one assertion ceremony and returns the response recorder
// for the verify call so callers can assert success or failure.
func loginVirtual(t *testing.T, h *Handler, rp virtualwebauthn.RelyingParty,
	authenticator virtualwebauthn.Authenticator, credential virtualwebauthn.Credential,
	username string) *httptest.ResponseRecorder {
	t.Helper()

	rec := doJSON(t, h.Login, LoginBeginRequest{Username: username}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decodeBody[LoginOptionsResponse](t, rec)

	optionsJSON, err := json.Marshal(opts)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	assertionResponse := virtualwebauthn.CreateAssertionResponse(rp, authenticator, credential, *parsedOptions)

	var assertion browserAssertion
	require.NoError(t, json.Unmarshal([]byte(assertionResponse), &assertion))

	return doJSON(t, h.LoginVerify, LoginVerifyRequest{
		Username:          username,
		CredentialID:      assertion.RawID,
		AuthenticatorData: assertion.Response.AuthenticatorData,
		ClientDataJSON:    assertion.Response.ClientDataJSON,
		Signature:         assertion.Response.Signature,
		UserHandle:        assertion.Response.UserHandle,
	}, testOrigin)
}

func TestVirtualAuthenticatorRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t)
	rp, authenticator, credential := newVirtualSetup()

	registerVirtual(t, h, rp, authenticator, credential, "vw-user")
	authenticator.AddCredential(credential)

	// The virtual authenticator signs with whatever counter the credential
	// carries, so advance it before each assertion like a real device would.
	for i := 0; i < 3; i++ {
		credential.Counter++
		rec := loginVirtual(t, h, rp, authenticator, credential, "vw-user")
		require.Equal(t, http.StatusOK, rec.Code)

		verify := decodeBody[VerifyResponse](t, rec)
		assert.Equal(t, StatusOK, verify.Status)
	}
}

func TestVirtualAuthenticatorStaleCounterRejected(t *testing.T) {
	h := newTestHandler(t)
	rp, authenticator, credential := newVirtualSetup()

	registerVirtual(t, h, rp, authenticator, credential, "vw-clone")
	authenticator.AddCredential(credential)

	credential.Counter++
	rec := loginVirtual(t, h, rp, authenticator, credential, "vw-clone")
	require.Equal(t, http.StatusOK, rec.Code)

	// Replaying the same counter value looks like a cloned authenticator.
	rec = loginVirtual(t, h, rp, authenticator, credential, "vw-clone")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, ErrorCodeVerificationFailed, errResp.Error)

	// The stored counter was not updated by the rejected assertion, so a
	// properly advanced one still succeeds.
	credential.Counter++
	rec = loginVirtual(t, h, rp, authenticator, credential, "vw-clone")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVirtualAuthenticatorExcludeCredentials(t *testing.T) {
	h := newTestHandler(t)
	rp, authenticator, credential := newVirtualSetup()

	attestation := registerVirtual(t, h, rp, authenticator, credential, "vw-exclude")
	authenticator.AddCredential(credential)

	rec := doJSON(t, h.Register, RegisterBeginRequest{Username: "vw-exclude"}, testOrigin)
	require.Equal(t, http.StatusOK, rec.Code)

	opts := decodeBody[RegisterOptionsResponse](t, rec)
	require.Len(t, opts.ExcludeCredentials, 1)
	assert.Equal(t, attestation.RawID, opts.ExcludeCredentials[0].ID)
	assert.Equal(t, "public-key", opts.ExcludeCredentials[0].Type)
}

func TestVirtualAuthenticatorMultipleCredentials(t *testing.T) {
	h := newTestHandler(t)
	rp := virtualwebauthn.RelyingParty{
		Name:   "Example",
		ID:     "example.com",
		Origin: testOrigin,
	}

	authenticator1 := virtualwebauthn.NewAuthenticator()
	credential1 := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	authenticator2 := virtualwebauthn.NewAuthenticator()
	credential2 := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	registerVirtual(t, h, rp, authenticator1, credential1, "vw-alice")
	authenticator1.AddCredential(credential1)
	registerVirtual(t, h, rp, authenticator2, credential2, "vw-bob")
	authenticator2.AddCredential(credential2)

	credential1.Counter++
	rec := loginVirtual(t, h, rp, authenticator1, credential1, "vw-alice")
	require.Equal(t, http.StatusOK, rec.Code)

	credential2.Counter++
	rec = loginVirtual(t, h, rp, authenticator2, credential2, "vw-bob")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVirtualAuthenticatorRSACredential(t *testing.T) {
	h := newTestHandler(t)
	rp := virtualwebauthn.RelyingParty{
		Name:   "Example",
		ID:     "example.com",
		Origin: testOrigin,
	}
	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeRSA)

	registerVirtual(t, h, rp, authenticator, credential, "vw-rsa")
	authenticator.AddCredential(credential)

	credential.Counter++
	rec := loginVirtual(t, h, rp, authenticator, credential, "vw-rsa")
	require.Equal(t, http.StatusOK, rec.Code)
}
