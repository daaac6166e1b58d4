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
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Client data type values fixed by the WebAuthn wire format.
const (
	ClientDataTypeCreate = "webauthn.create"
	ClientDataTypeGet    = "webauthn.get"
)

// ClientData is the decoded collected client data embedded in attestation
// and assertion responses.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// EncodeBytes renders canonical bytes in the wire encoding (unpadded
// base64url).
func EncodeBytes(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBytes parses a wire-encoded byte string. Padded input is accepted;
// anything else fails with ErrMalformedEncoding.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, WrapError("decode base64url", ErrMalformedEncoding)
	}
	return b, nil
}

// DecodeClientData parses serialized client data into its canonical form.
// Missing fields count as malformed: every downstream check depends on them.
func DecodeClientData(clientDataJSON []byte) (*ClientData, error) {
	var cd ClientData
	if err := json.Unmarshal(clientDataJSON, &cd); err != nil {
		return nil, WrapError("decode client data", ErrMalformedEncoding)
	}
	if cd.Type == "" || cd.Challenge == "" || cd.Origin == "" {
		return nil, WrapError("decode client data", ErrMalformedEncoding)
	}
	return &cd, nil
}

// ChallengeMatches reports whether the client data challenge encodes exactly
// the issued challenge bytes. The comparison is constant time; a truncated or
// otherwise modified challenge never matches, regardless of signatures.
func ChallengeMatches(clientChallenge string, issued []byte) bool {
	got, err := DecodeBytes(clientChallenge)
	if err != nil {
		return false
	}
	if len(got) != len(issued) {
		return false
	}
	return subtle.ConstantTimeCompare(got, issued) == 1
}
