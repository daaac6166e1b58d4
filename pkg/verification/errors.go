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

import "errors"

var (
	// ErrInvalidAttestation indicates the attestation object could not be
	// parsed or its statement did not verify.
	ErrInvalidAttestation = errors.New("verification: invalid attestation")

	// ErrInvalidAssertion indicates the assertion data could not be parsed
	// or the signature did not verify.
	ErrInvalidAssertion = errors.New("verification: invalid assertion")

	// ErrUnsupportedFormat indicates an attestation statement format this
	// verifier does not validate.
	ErrUnsupportedFormat = errors.New("verification: unsupported attestation format")

	// ErrRPIDMismatch indicates authenticator data produced for a different
	// relying party.
	ErrRPIDMismatch = errors.New("verification: relying party ID mismatch")

	// ErrUserNotPresent indicates the authenticator did not set the user
	// presence flag.
	ErrUserNotPresent = errors.New("verification: user presence flag not set")

	// ErrUserNotVerified indicates policy requires user verification and the
	// authenticator did not set the UV flag.
	ErrUserNotVerified = errors.New("verification: user verification flag not set")
)
