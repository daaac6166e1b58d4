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

package ceremony

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two ceremony types a user can have in flight.
type Kind int

const (
	// Registration is a new-credential attestation ceremony.
	Registration Kind = iota + 1

	// Authentication is a signed-assertion ceremony against an existing credential.
	Authentication
)

// String returns the ceremony kind name.
func (k Kind) String() string {
	switch k {
	case Registration:
		return "registration"
	case Authentication:
		return "authentication"
	default:
		return "unknown"
	}
}

// User is a registered identity. The Handle is the opaque stable identifier
// shown to authenticators as the WebAuthn user ID; Name is the human-readable
// username used for lookups.
type User struct {
	// Handle is the opaque per-user identifier, assigned once at creation.
	Handle []byte `json:"handle"`

	// Name is the username the user registered under.
	Name string `json:"name"`

	// CreatedAt is when the user was first seen.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a User with a fresh opaque handle.
func NewUser(name string) *User {
	id := uuid.New()
	return &User{
		Handle:    id[:],
		Name:      name,
		CreatedAt: nowUTC(),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Credential is the public key record stored by the relying party after a
// successful registration. The ID is globally unique across all users and is
// the sole lookup key during authentication.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	ID []byte `json:"id"`

	// UserHandle is the opaque handle of the owning user.
	UserHandle []byte `json:"user_handle"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// SignCount is the signature counter for clone detection. It only ever
	// moves forward; the authentication engine enforces monotonicity.
	SignCount uint32 `json:"sign_count"`

	// AAGUID identifies the authenticator model, when reported.
	AAGUID []byte `json:"aaguid,omitempty"`

	// AttestationFormat is the attestation statement format the credential
	// was registered with ("none", "packed", ...).
	AttestationFormat string `json:"attestation_format,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// PendingCeremony is the transient binding between an issued challenge and
// the user, ceremony kind, and origin it was issued for. At most one exists
// per user; it is consumed exactly once.
type PendingCeremony struct {
	// UserName is the username the ceremony was started for.
	UserName string

	// Challenge is the fresh random value the client must echo back.
	Challenge []byte

	// Origin is the web origin the ceremony is bound to.
	Origin string

	// Kind is Registration or Authentication.
	Kind Kind

	// CreatedAt is when the ceremony started; Consume rejects stale entries.
	CreatedAt time.Time
}

// AttestationResponse is the decoded registration completion payload.
// All fields hold canonical bytes; wire decoding happens in the codec.
type AttestationResponse struct {
	// CredentialID is the raw credential identifier the client reports.
	CredentialID []byte

	// AttestationObject is the raw CBOR attestation object.
	AttestationObject []byte

	// ClientDataJSON is the serialized client data the authenticator signed over.
	ClientDataJSON []byte
}

// AssertionResponse is the decoded authentication completion payload.
type AssertionResponse struct {
	// CredentialID is the raw credential identifier the client selected.
	CredentialID []byte

	// AuthenticatorData is the raw authenticator data covered by the signature.
	AuthenticatorData []byte

	// ClientDataJSON is the serialized client data covered by the signature.
	ClientDataJSON []byte

	// Signature is the assertion signature.
	Signature []byte

	// UserHandle optionally carries the user handle for resident credentials.
	UserHandle []byte
}

// RegistrationOptions is returned by BeginRegistration with everything the
// client needs to create a key pair.
type RegistrationOptions struct {
	// Challenge is the fresh challenge the attestation must echo.
	Challenge []byte

	// UserHandle is the opaque per-user identifier shown to the authenticator.
	UserHandle []byte

	// UserName is the username the ceremony was started for.
	UserName string

	// RPID and RPName identify the relying party.
	RPID   string
	RPName string

	// Algorithms lists accepted COSE algorithm identifiers (-7 ES256, -257 RS256).
	Algorithms []int64

	// ExcludeCredentialIDs lists credentials already registered for the user.
	ExcludeCredentialIDs [][]byte

	// Timeout is the ceremony lifetime hint for the client.
	Timeout time.Duration
}

// AuthenticationOptions is returned by BeginAuthentication.
type AuthenticationOptions struct {
	// Challenge is the fresh challenge the assertion must echo.
	Challenge []byte

	// AllowedCredentialIDs lists the user's registered credential IDs so the
	// authenticator can select the right key.
	AllowedCredentialIDs [][]byte

	// RPID identifies the relying party.
	RPID string

	// Timeout is the ceremony lifetime hint for the client.
	Timeout time.Duration
}

// RegistrationResult reports a successful registration. No secret material
// is included.
type RegistrationResult struct {
	// Credential is the stored credential record.
	Credential *Credential

	// Elapsed is the wall time from challenge issuance to verification.
	Elapsed time.Duration
}

// AuthenticationResult reports a successful authentication. No secret
// material is included.
type AuthenticationResult struct {
	// UserName is the authenticated user.
	UserName string

	// CredentialID is the credential that proved possession.
	CredentialID []byte

	// SignCount is the counter value now stored for the credential.
	SignCount uint32

	// Token is a post-authentication session token when a TokenIssuer is
	// configured; empty otherwise.
	Token string

	// Elapsed is the wall time from challenge issuance to verification.
	Elapsed time.Duration
}
