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
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates an authenticator for testing. It produces raw
// attestation and assertion payloads that pass verification, and exposes
// enough knobs to produce ones that must not.
type MockAuthenticator struct {
	// AAGUID is the authenticator's model identifier (16 bytes).
	AAGUID []byte

	// privateKey is the authenticator's signing key.
	privateKey *ecdsa.PrivateKey

	// CredentialID is the credential identifier.
	CredentialID []byte

	// SignCount is the current signature counter.
	SignCount uint32

	// UserPresent indicates whether the UP flag should be set.
	UserPresent bool

	// UserVerified indicates whether the UV flag should be set.
	UserVerified bool

	// UserHandle is included in assertion responses when set.
	UserHandle []byte

	rpID     string
	rpIDHash []byte
}

// MockAuthenticatorOption is a functional option for configuring a MockAuthenticator.
type MockAuthenticatorOption func(*MockAuthenticator)

// WithAAGUID sets a custom AAGUID.
func WithAAGUID(aaguid []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.AAGUID = aaguid
	}
}

// WithCredentialID sets a custom credential ID.
func WithCredentialID(credID []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = credID
	}
}

// WithSignCount sets the initial sign count.
func WithSignCount(count uint32) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// WithUserPresent sets the UP flag.
func WithUserPresent(up bool) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserPresent = up
	}
}

// WithUserVerified sets the UV flag.
func WithUserVerified(uv bool) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserVerified = uv
	}
}

// WithUserHandle sets the user handle carried in assertion responses.
func WithUserHandle(handle []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserHandle = handle
	}
}

// NewMockAuthenticator creates a new mock authenticator for testing.
func NewMockAuthenticator(rpID string, opts ...MockAuthenticatorOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		privateKey:   privateKey,
		CredentialID: credID,
		SignCount:    0,
		UserPresent:  true,
		UserVerified: true,
		rpID:         rpID,
		rpIDHash:     rpIDHash[:],
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// PublicKeyBytes returns the public key in COSE format.
func (m *MockAuthenticator) PublicKeyBytes() ([]byte, error) {
	pubKey := m.privateKey.Public().(*ecdsa.PublicKey)

	x := make([]byte, 32)
	y := make([]byte, 32)
	pubKey.X.FillBytes(x)
	pubKey.Y.FillBytes(y)

	// COSE key representation for ES256
	coseKey := map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg: ES256
		-1: 1,                          // crv: P-256
		-2: x,
		-3: y,
	}

	return webauthncbor.Marshal(coseKey)
}

// SetSignCount sets the sign count to a specific value (useful for testing
// clone detection).
func (m *MockAuthenticator) SetSignCount(count uint32) {
	m.SignCount = count
}

// CreateAttestation produces a registration completion payload with a "none"
// attestation statement, the most common real-world format.
func (m *MockAuthenticator) CreateAttestation(challenge []byte, origin string) (*AttestationResponse, error) {
	authData, err := m.buildAuthenticatorData(true)
	if err != nil {
		return nil, err
	}

	attestationObject := map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	}
	attestationObjectBytes, err := webauthncbor.Marshal(attestationObject)
	if err != nil {
		return nil, err
	}

	return &AttestationResponse{
		CredentialID:      m.CredentialID,
		AttestationObject: attestationObjectBytes,
		ClientDataJSON:    m.buildClientDataJSON(challenge, origin, ClientDataTypeCreate),
	}, nil
}

// CreatePackedAttestation produces a registration completion payload with a
// packed self-attestation statement.
func (m *MockAuthenticator) CreatePackedAttestation(challenge []byte, origin string) (*AttestationResponse, error) {
	authData, err := m.buildAuthenticatorData(true)
	if err != nil {
		return nil, err
	}

	clientDataJSON := m.buildClientDataJSON(challenge, origin, ClientDataTypeCreate)
	clientDataHash := sha256.Sum256(clientDataJSON)

	signature, err := m.sign(append(append([]byte{}, authData...), clientDataHash[:]...))
	if err != nil {
		return nil, err
	}

	attestationObject := map[string]interface{}{
		"authData": authData,
		"fmt":      "packed",
		"attStmt": map[string]interface{}{
			"alg": int64(webauthncose.AlgES256),
			"sig": signature,
		},
	}
	attestationObjectBytes, err := webauthncbor.Marshal(attestationObject)
	if err != nil {
		return nil, err
	}

	return &AttestationResponse{
		CredentialID:      m.CredentialID,
		AttestationObject: attestationObjectBytes,
		ClientDataJSON:    clientDataJSON,
	}, nil
}

// CreateAssertion produces an authentication completion payload, advancing
// the sign counter first the way real authenticators do.
func (m *MockAuthenticator) CreateAssertion(challenge []byte, origin string) (*AssertionResponse, error) {
	m.SignCount++
	return m.CreateAssertionWithClientData(m.buildClientDataJSON(challenge, origin, ClientDataTypeGet))
}

// CreateAssertionWithClientData signs an assertion over arbitrary client
// data without touching the counter. Tests use it to produce payloads whose
// signature is valid but whose client data content is wrong.
func (m *MockAuthenticator) CreateAssertionWithClientData(clientDataJSON []byte) (*AssertionResponse, error) {
	authData, err := m.buildAuthenticatorData(false)
	if err != nil {
		return nil, err
	}

	clientDataHash := sha256.Sum256(clientDataJSON)
	signature, err := m.sign(append(append([]byte{}, authData...), clientDataHash[:]...))
	if err != nil {
		return nil, err
	}

	return &AssertionResponse{
		CredentialID:      m.CredentialID,
		AuthenticatorData: authData,
		ClientDataJSON:    clientDataJSON,
		Signature:         signature,
		UserHandle:        m.UserHandle,
	}, nil
}

// buildFlags builds the authenticator flags byte.
func (m *MockAuthenticator) buildFlags(includeCredential bool) byte {
	var flags byte
	if m.UserPresent {
		flags |= 0x01 // UP
	}
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	if includeCredential {
		flags |= 0x40 // AT (attested credential data present)
	}
	return flags
}

// buildAuthenticatorData builds the raw authenticator data structure.
// If includeCredential is true, attested credential data is appended.
func (m *MockAuthenticator) buildAuthenticatorData(includeCredential bool) ([]byte, error) {
	var buf bytes.Buffer

	// rpIdHash (32 bytes)
	buf.Write(m.rpIDHash)

	// flags (1 byte)
	buf.WriteByte(m.buildFlags(includeCredential))

	// signCount (4 bytes, big-endian)
	signCountBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(signCountBytes, m.SignCount)
	buf.Write(signCountBytes)

	if includeCredential {
		// AAGUID (16 bytes)
		buf.Write(m.AAGUID)

		// Credential ID length (2 bytes, big-endian)
		credIDLen := make([]byte, 2)
		binary.BigEndian.PutUint16(credIDLen, uint16(len(m.CredentialID)))
		buf.Write(credIDLen)

		// Credential ID
		buf.Write(m.CredentialID)

		// Credential public key (COSE format)
		pubKeyBytes, err := m.PublicKeyBytes()
		if err != nil {
			return nil, err
		}
		buf.Write(pubKeyBytes)
	}

	return buf.Bytes(), nil
}

// buildClientDataJSON builds the serialized collected client data.
func (m *MockAuthenticator) buildClientDataJSON(challenge []byte, origin, ceremonyType string) []byte {
	clientData := ClientData{
		Type:      ceremonyType,
		Challenge: EncodeBytes(challenge),
		Origin:    origin,
	}
	data, _ := json.Marshal(clientData)
	return data
}

// sign produces an ASN.1 DER ECDSA signature over SHA-256 of the data.
func (m *MockAuthenticator) sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return ecdsa.SignASN1(rand.Reader, m.privateKey, digest[:])
}
