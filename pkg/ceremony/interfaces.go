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
	"context"

	"github.com/jeremyhahn/go-passkey/pkg/verification"
)

// UserStore is the interface applications implement for user persistence.
// This interface is intentionally minimal - applications bring their own user model.
type UserStore interface {
	// GetByName retrieves a user by their unique username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByName(ctx context.Context, name string) (*User, error)

	// Create persists a new user.
	// Returns ErrUserAlreadyExists if the username is taken.
	Create(ctx context.Context, user *User) error
}

// CredentialStore manages credential persistence. Credentials are the public
// key records stored by the relying party. Credential IDs are unique across
// the whole store, not per user.
type CredentialStore interface {
	// Add stores a new credential.
	// Returns ErrDuplicateCredential if a credential with the same ID
	// already exists, regardless of owner.
	Add(ctx context.Context, cred *Credential) error

	// GetByID retrieves a credential by exact credential ID match.
	// Returns ErrCredentialNotFound if the credential does not exist.
	GetByID(ctx context.Context, credentialID []byte) (*Credential, error)

	// GetByUser retrieves all credentials owned by the given user handle.
	// Returns an empty slice if the user has no credentials.
	GetByUser(ctx context.Context, userHandle []byte) ([]*Credential, error)

	// UpdateCounter unconditionally writes the stored signature counter and
	// last-used timestamp for a credential. Counter policy belongs to the
	// caller; the store never compares values.
	// Returns ErrCredentialNotFound if the credential does not exist.
	UpdateCounter(ctx context.Context, credentialID []byte, signCount uint32) error
}

// Verifier performs the cryptographic validation of authenticator responses.
// The ceremony engines treat it as a black box: it inspects attestation and
// assertion structures and signatures but never challenge, origin, session,
// or counter state.
type Verifier interface {
	// VerifyAttestation validates a raw CBOR attestation object against the
	// SHA-256 hash of the client data JSON and extracts the new credential.
	VerifyAttestation(ctx context.Context, attestationObject, clientDataHash []byte) (*verification.AttestedCredential, error)

	// VerifyAssertion validates an assertion signature over
	// authenticatorData || clientDataHash using the stored COSE public key.
	VerifyAssertion(ctx context.Context, authenticatorData, clientDataHash, signature, publicKey []byte) (*verification.AssertionResult, error)
}

// TokenIssuer is an optional interface for minting tokens after successful
// authentication. When not provided, authentication results carry no token.
type TokenIssuer interface {
	// IssueToken creates a session token for the authenticated user.
	IssueToken(ctx context.Context, user *User) (string, error)
}
