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

package verification

// AttestedCredential is the material extracted from a valid attestation.
type AttestedCredential struct {
	// CredentialID is the identifier assigned by the authenticator.
	CredentialID []byte

	// PublicKey is the credential public key in COSE format.
	PublicKey []byte

	// SignCount is the initial signature counter.
	SignCount uint32

	// AAGUID identifies the authenticator model.
	AAGUID []byte

	// Format is the attestation statement format that was validated.
	Format string

	// UserPresent and UserVerified mirror the authenticator flags.
	UserPresent  bool
	UserVerified bool
}

// AssertionResult is the material extracted from a valid assertion.
type AssertionResult struct {
	// SignCount is the counter reported by the authenticator. Zero means the
	// authenticator does not implement a signature counter.
	SignCount uint32

	// UserPresent and UserVerified mirror the authenticator flags.
	UserPresent  bool
	UserVerified bool
}
