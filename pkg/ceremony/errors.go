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
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations. Transport layers must collapse
// these into a single generic failure message; the distinction exists for
// server-side logging and tests only.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when creating a user that already exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrNoPendingCeremony is returned when no ceremony is in flight for the
	// user, or when the pending ceremony is of a different kind. A second
	// completion attempt after a consume lands here.
	ErrNoPendingCeremony = errors.New("no pending ceremony")

	// ErrCeremonyExpired is returned when the pending ceremony outlived the
	// configured timeout before being consumed.
	ErrCeremonyExpired = errors.New("ceremony expired")

	// ErrChallengeMismatch is returned when the client data does not encode
	// the exact challenge that was issued for the ceremony.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrOriginMismatch is returned when the client data origin differs from
	// the origin the ceremony was bound to at start.
	ErrOriginMismatch = errors.New("origin mismatch")

	// ErrCredentialNotFound is returned when a credential ID does not resolve,
	// or resolves to a credential owned by a different user.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrDuplicateCredential is returned when registering a credential ID that
	// already exists for any user.
	ErrDuplicateCredential = errors.New("credential already exists")

	// ErrSignatureInvalid is returned when attestation or assertion
	// verification fails cryptographically.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrPossibleCloneDetected is returned when the reported signature counter
	// did not advance past the stored one.
	ErrPossibleCloneDetected = errors.New("possible cloned authenticator detected")

	// ErrMalformedEncoding is returned when a wire field cannot be decoded
	// into its canonical binary form.
	ErrMalformedEncoding = errors.New("malformed encoding")

	// ErrNotConfigured is returned when the service is not properly configured.
	ErrNotConfigured = errors.New("ceremony service not configured")
)

// Error wraps a sentinel with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with the given operation and error.
func NewError(op string, err error) error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsNoPendingCeremony returns true if the error indicates no ceremony was in flight.
func IsNoPendingCeremony(err error) bool {
	return errors.Is(err, ErrNoPendingCeremony)
}

// IsCeremonyExpired returns true if the error indicates the ceremony expired.
func IsCeremonyExpired(err error) bool {
	return errors.Is(err, ErrCeremonyExpired)
}

// IsCloneDetected returns true if the error indicates a replayed or cloned
// authenticator.
func IsCloneDetected(err error) bool {
	return errors.Is(err, ErrPossibleCloneDetected)
}
