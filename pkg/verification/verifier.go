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

// Package verification implements the cryptographic checks the ceremony
// engines delegate to: attestation validation at registration and assertion
// signature validation at authentication. It parses CBOR/COSE structures via
// the go-webauthn protocol layers and never makes protocol-state decisions;
// challenge, origin, and counter policy belong to the engines.
package verification

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// Verifier validates attestations and assertions for a single relying party.
type Verifier struct {
	rpID     string
	rpIDHash []byte

	// requireUserVerification demands the UV flag on every response.
	requireUserVerification bool
}

// New creates a Verifier bound to the given relying party ID.
func New(rpID string, requireUserVerification bool) *Verifier {
	hash := sha256.Sum256([]byte(rpID))
	return &Verifier{
		rpID:                    rpID,
		rpIDHash:                hash[:],
		requireUserVerification: requireUserVerification,
	}
}

// VerifyAttestation parses and validates a raw CBOR attestation object.
// clientDataHash is the SHA-256 of the client data JSON the authenticator
// signed over. Supported statement formats are "none" and "packed" (self and
// x5c-leaf); attestation chain-of-trust validation is out of scope.
func (v *Verifier) VerifyAttestation(ctx context.Context, attestationObject, clientDataHash []byte) (*AttestedCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
	}

	var obj protocol.AttestationObject
	if err := webauthncbor.Unmarshal(attestationObject, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
	}
	if err := obj.AuthData.Unmarshal(obj.RawAuthData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
	}

	if err := v.checkFlags(obj.AuthData); err != nil {
		return nil, err
	}
	if !obj.AuthData.Flags.HasAttestedCredentialData() {
		return nil, fmt.Errorf("%w: no attested credential data", ErrInvalidAttestation)
	}

	att := obj.AuthData.AttData
	if len(att.CredentialID) == 0 {
		return nil, fmt.Errorf("%w: empty credential ID", ErrInvalidAttestation)
	}

	// The key must at least parse, even for "none" attestation, so the
	// credential is usable at authentication time.
	key, err := webauthncose.ParsePublicKey(att.CredentialPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: credential public key: %v", ErrInvalidAttestation, err)
	}

	switch obj.Format {
	case "none":
		if len(obj.AttStatement) != 0 {
			return nil, fmt.Errorf("%w: none format with attestation statement", ErrInvalidAttestation)
		}
	case "packed":
		if err := v.verifyPacked(&obj, key, clientDataHash); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, obj.Format)
	}

	return &AttestedCredential{
		CredentialID: att.CredentialID,
		PublicKey:    att.CredentialPublicKey,
		SignCount:    obj.AuthData.Counter,
		AAGUID:       att.AAGUID,
		Format:       obj.Format,
		UserPresent:  obj.AuthData.Flags.UserPresent(),
		UserVerified: obj.AuthData.Flags.UserVerified(),
	}, nil
}

// VerifyAssertion parses raw authenticator data and validates the assertion
// signature over authenticatorData || clientDataHash with the stored COSE
// public key.
func (v *Verifier) VerifyAssertion(ctx context.Context, authenticatorData, clientDataHash, signature, publicKey []byte) (*AssertionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	var authData protocol.AuthenticatorData
	if err := authData.Unmarshal(authenticatorData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	if err := v.checkFlags(authData); err != nil {
		return nil, err
	}

	key, err := webauthncose.ParsePublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: stored public key: %v", ErrInvalidAssertion, err)
	}

	signed := signedData(authenticatorData, clientDataHash)
	valid, err := webauthncose.VerifySignature(key, signed, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	if !valid {
		return nil, ErrInvalidAssertion
	}

	return &AssertionResult{
		SignCount:    authData.Counter,
		UserPresent:  authData.Flags.UserPresent(),
		UserVerified: authData.Flags.UserVerified(),
	}, nil
}

// checkFlags enforces RP binding and presence/verification flags.
func (v *Verifier) checkFlags(authData protocol.AuthenticatorData) error {
	if !bytes.Equal(authData.RPIDHash, v.rpIDHash) {
		return ErrRPIDMismatch
	}
	if !authData.Flags.UserPresent() {
		return ErrUserNotPresent
	}
	if v.requireUserVerification && !authData.Flags.UserVerified() {
		return ErrUserNotVerified
	}
	return nil
}

// verifyPacked validates a packed attestation statement. With an x5c chain
// the leaf certificate signs; without one the credential key self-attests.
func (v *Verifier) verifyPacked(obj *protocol.AttestationObject, credentialKey any, clientDataHash []byte) error {
	alg, ok := statementAlg(obj.AttStatement)
	if !ok {
		return fmt.Errorf("%w: packed statement missing alg", ErrInvalidAttestation)
	}
	sig, ok := obj.AttStatement["sig"].([]byte)
	if !ok || len(sig) == 0 {
		return fmt.Errorf("%w: packed statement missing sig", ErrInvalidAttestation)
	}

	signed := signedData(obj.RawAuthData, clientDataHash)

	if raw, ok := obj.AttStatement["x5c"]; ok {
		chain, ok := raw.([]any)
		if !ok || len(chain) == 0 {
			return fmt.Errorf("%w: packed statement malformed x5c", ErrInvalidAttestation)
		}
		leafDER, ok := chain[0].([]byte)
		if !ok {
			return fmt.Errorf("%w: packed statement malformed x5c leaf", ErrInvalidAttestation)
		}
		leaf, err := x509.ParseCertificate(leafDER)
		if err != nil {
			return fmt.Errorf("%w: packed attestation certificate: %v", ErrInvalidAttestation, err)
		}
		sigAlgo, err := x509SignatureAlgorithm(alg)
		if err != nil {
			return err
		}
		if err := leaf.CheckSignature(sigAlgo, signed, sig); err != nil {
			return fmt.Errorf("%w: packed attestation signature: %v", ErrInvalidAttestation, err)
		}
		return nil
	}

	// Self attestation: the credential key signs its own authenticator data.
	valid, err := webauthncose.VerifySignature(credentialKey, signed, sig)
	if err != nil {
		return fmt.Errorf("%w: packed self attestation: %v", ErrInvalidAttestation, err)
	}
	if !valid {
		return fmt.Errorf("%w: packed self attestation signature", ErrInvalidAttestation)
	}
	return nil
}

// statementAlg extracts the COSE algorithm identifier from an attestation
// statement. CBOR decoding yields int64 for negative and uint64 for positive
// integers.
func statementAlg(stmt map[string]any) (int64, bool) {
	switch a := stmt["alg"].(type) {
	case int64:
		return a, true
	case uint64:
		return int64(a), true
	default:
		return 0, false
	}
}

// x509SignatureAlgorithm maps a COSE algorithm to its x509 counterpart for
// certificate-based attestation signatures.
func x509SignatureAlgorithm(coseAlg int64) (x509.SignatureAlgorithm, error) {
	switch webauthncose.COSEAlgorithmIdentifier(coseAlg) {
	case webauthncose.AlgES256:
		return x509.ECDSAWithSHA256, nil
	case webauthncose.AlgES384:
		return x509.ECDSAWithSHA384, nil
	case webauthncose.AlgES512:
		return x509.ECDSAWithSHA512, nil
	case webauthncose.AlgRS256:
		return x509.SHA256WithRSA, nil
	case webauthncose.AlgRS384:
		return x509.SHA384WithRSA, nil
	case webauthncose.AlgRS512:
		return x509.SHA512WithRSA, nil
	default:
		return x509.UnknownSignatureAlgorithm, fmt.Errorf("%w: alg %d", ErrUnsupportedFormat, coseAlg)
	}
}

// signedData concatenates authenticator data and the client data hash into
// the byte string authenticators sign.
func signedData(authData, clientDataHash []byte) []byte {
	signed := make([]byte, 0, len(authData)+len(clientDataHash))
	signed = append(signed, authData...)
	return append(signed, clientDataHash...)
}
