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

// RegisterBeginRequest is the request body for starting registration.
type RegisterBeginRequest struct {
	// Username identifies the account being registered (required).
	Username string `json:"username"`
}

// LoginBeginRequest is the request body for starting authentication.
type LoginBeginRequest struct {
	// Username identifies the account logging in (required).
	Username string `json:"username"`
}

// RelyingParty identifies the server to the authenticator.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity is the user descriptor shown to the authenticator.
type UserEntity struct {
	// ID is the base64url-encoded opaque user handle.
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// CredentialParam advertises an accepted credential algorithm.
type CredentialParam struct {
	Type string `json:"type"`
	Alg  int64  `json:"alg"`
}

// CredentialRef references a registered credential by encoded ID.
type CredentialRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RegisterOptionsResponse is the creation options payload returned by
// POST /register.
type RegisterOptionsResponse struct {
	// Challenge is the base64url-encoded ceremony challenge.
	Challenge string `json:"challenge"`

	RP   RelyingParty `json:"rp"`
	User UserEntity   `json:"user"`

	PubKeyCredParams []CredentialParam `json:"pubKeyCredParams"`

	// Timeout is the ceremony lifetime hint in milliseconds.
	Timeout int64 `json:"timeout"`

	// ExcludeCredentials lists credentials already registered for the user.
	ExcludeCredentials []CredentialRef `json:"excludeCredentials,omitempty"`
}

// RegisterVerifyRequest is the request body for completing registration.
// All byte fields are base64url encoded.
type RegisterVerifyRequest struct {
	Username             string `json:"username"`
	CredentialID         string `json:"credentialId"`
	RawAttestationObject string `json:"rawAttestationObject"`
	ClientDataJSON       string `json:"clientDataJSON"`
}

// LoginOptionsResponse is the request options payload returned by
// POST /login.
type LoginOptionsResponse struct {
	// Challenge is the base64url-encoded ceremony challenge.
	Challenge string `json:"challenge"`

	// AllowCredentials lists the user's registered credentials.
	AllowCredentials []CredentialRef `json:"allowCredentials"`

	RPID string `json:"rpId"`

	// Timeout is the ceremony lifetime hint in milliseconds.
	Timeout int64 `json:"timeout"`
}

// LoginVerifyRequest is the request body for completing authentication.
// All byte fields are base64url encoded.
type LoginVerifyRequest struct {
	Username          string `json:"username"`
	CredentialID      string `json:"credentialId"`
	AuthenticatorData string `json:"authenticatorData"`
	ClientDataJSON    string `json:"clientDataJSON"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"userHandle,omitempty"`
}

// VerifyResponse is the completion response for both ceremonies. It reports
// success or failure and nothing about why a failure happened.
type VerifyResponse struct {
	Status string `json:"status"`

	// Token is a session token when the service is configured to issue one.
	Token string `json:"token,omitempty"`
}

// StatusOK is the status value on successful completion.
const StatusOK = "ok"

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse. Completion failures always use
// ErrorCodeVerificationFailed regardless of the underlying cause.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeUserNotFound       = "user_not_found"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeInternalError      = "internal_error"
)
