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
	"context"
	"crypto/sha256"
	"time"
)

// BeginAuthentication starts an authentication ceremony for an existing
// user. Any ceremony already pending for the user is replaced.
func (s *Service) BeginAuthentication(ctx context.Context, userName, origin string) (*AuthenticationOptions, error) {
	if userName == "" {
		return nil, NewError("authentication.begin", ErrMalformedEncoding)
	}
	if !s.config.OriginAllowed(origin) {
		return nil, NewError("authentication.begin", ErrOriginMismatch)
	}

	user, err := s.users.GetByName(ctx, userName)
	if err != nil {
		return nil, WrapError("get user", err)
	}

	creds, err := s.creds.GetByUser(ctx, user.Handle)
	if err != nil {
		return nil, WrapError("get credentials", err)
	}
	allowed := make([][]byte, len(creds))
	for i, cred := range creds {
		allowed[i] = cred.ID
	}

	pending, err := s.sessions.Start(ctx, userName, Authentication, origin)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("authentication ceremony started",
		"user", userName,
		"origin", origin,
		"credentials", len(allowed))

	return &AuthenticationOptions{
		Challenge:            pending.Challenge,
		AllowedCredentialIDs: allowed,
		RPID:                 s.config.RPID,
		Timeout:              s.config.CeremonyTimeout,
	}, nil
}

// FinishAuthentication completes an authentication ceremony. The pending
// ceremony is consumed on every path. Credential resolution and ownership
// are checked before any signature work, and the signature counter must
// strictly advance when counters are in use.
func (s *Service) FinishAuthentication(ctx context.Context, userName string, response *AssertionResponse) (*AuthenticationResult, error) {
	pending, err := s.sessions.Consume(ctx, userName, Authentication)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByName(ctx, userName)
	if err != nil {
		return nil, WrapError("get user", err)
	}

	cred, err := s.creds.GetByID(ctx, response.CredentialID)
	if err != nil {
		return nil, err
	}

	// A credential owned by another user is indistinguishable from an
	// unknown one. Resolved before touching the signature.
	if !bytes.Equal(cred.UserHandle, user.Handle) {
		s.logger.Warn("credential ownership mismatch",
			"user", userName,
			"credential", EncodeBytes(cred.ID))
		return nil, NewError("authentication.finish", ErrCredentialNotFound)
	}
	if len(response.UserHandle) > 0 && !bytes.Equal(response.UserHandle, user.Handle) {
		return nil, NewError("authentication.finish", ErrCredentialNotFound)
	}

	if _, err := s.checkClientData(response.ClientDataJSON, ClientDataTypeGet, pending); err != nil {
		return nil, err
	}

	clientDataHash := sha256.Sum256(response.ClientDataJSON)
	assertion, err := s.verifier.VerifyAssertion(ctx,
		response.AuthenticatorData, clientDataHash[:], response.Signature, cred.PublicKey)
	if err != nil {
		s.logger.Warn("assertion verification failed",
			"user", userName,
			"credential", EncodeBytes(cred.ID),
			"error", err)
		return nil, NewError("authentication.finish", ErrSignatureInvalid)
	}

	// Counter replay check. A pair of zeros means the authenticator does not
	// implement counters; otherwise the reported value must strictly advance
	// past the stored one, and a stalled counter leaves stored state untouched.
	if assertion.SignCount != 0 || cred.SignCount != 0 {
		if assertion.SignCount <= cred.SignCount {
			s.logger.Warn("signature counter did not advance",
				"user", userName,
				"credential", EncodeBytes(cred.ID),
				"stored", cred.SignCount,
				"reported", assertion.SignCount)
			return nil, NewError("authentication.finish", ErrPossibleCloneDetected)
		}
	}

	if err := s.creds.UpdateCounter(ctx, cred.ID, assertion.SignCount); err != nil {
		return nil, WrapError("update counter", err)
	}

	result := &AuthenticationResult{
		UserName:     user.Name,
		CredentialID: cred.ID,
		SignCount:    assertion.SignCount,
		Elapsed:      time.Since(pending.CreatedAt),
	}

	if s.tokens != nil {
		token, err := s.tokens.IssueToken(ctx, user)
		if err != nil {
			return nil, WrapError("issue token", err)
		}
		result.Token = token
	}

	s.logger.Info("authentication ceremony completed",
		"user", userName,
		"credential", EncodeBytes(cred.ID),
		"sign_count", assertion.SignCount)

	return result, nil
}
