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

// BeginRegistration starts a registration ceremony for the given username,
// creating the user on first contact. Any ceremony already pending for the
// user is replaced.
func (s *Service) BeginRegistration(ctx context.Context, userName, origin string) (*RegistrationOptions, error) {
	if userName == "" {
		return nil, NewError("registration.begin", ErrMalformedEncoding)
	}
	if !s.config.OriginAllowed(origin) {
		return nil, NewError("registration.begin", ErrOriginMismatch)
	}

	user, err := s.users.GetByName(ctx, userName)
	if err != nil {
		if !IsUserNotFound(err) {
			return nil, WrapError("get user", err)
		}
		user = NewUser(userName)
		if err := s.users.Create(ctx, user); err != nil {
			return nil, WrapError("create user", err)
		}
		s.logger.Info("registered new user", "user", userName)
	}

	// Already-registered credentials go into the exclude list so the client
	// does not create a second key on the same authenticator.
	existing, err := s.creds.GetByUser(ctx, user.Handle)
	if err != nil {
		return nil, WrapError("get credentials", err)
	}
	exclude := make([][]byte, len(existing))
	for i, cred := range existing {
		exclude[i] = cred.ID
	}

	pending, err := s.sessions.Start(ctx, userName, Registration, origin)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("registration ceremony started",
		"user", userName,
		"origin", origin,
		"excluded", len(exclude))

	return &RegistrationOptions{
		Challenge:            pending.Challenge,
		UserHandle:           user.Handle,
		UserName:             user.Name,
		RPID:                 s.config.RPID,
		RPName:               s.config.RPDisplayName,
		Algorithms:           s.config.Algorithms,
		ExcludeCredentialIDs: exclude,
		Timeout:              s.config.CeremonyTimeout,
	}, nil
}

// FinishRegistration completes a registration ceremony. The pending ceremony
// is consumed whether or not validation succeeds, so a second attempt with
// the same challenge always fails with ErrNoPendingCeremony.
func (s *Service) FinishRegistration(ctx context.Context, userName string, response *AttestationResponse) (*RegistrationResult, error) {
	pending, err := s.sessions.Consume(ctx, userName, Registration)
	if err != nil {
		return nil, err
	}

	if _, err := s.checkClientData(response.ClientDataJSON, ClientDataTypeCreate, pending); err != nil {
		return nil, err
	}

	user, err := s.users.GetByName(ctx, userName)
	if err != nil {
		return nil, WrapError("get user", err)
	}

	clientDataHash := sha256.Sum256(response.ClientDataJSON)
	attested, err := s.verifier.VerifyAttestation(ctx, response.AttestationObject, clientDataHash[:])
	if err != nil {
		s.logger.Warn("attestation verification failed",
			"user", userName,
			"error", err)
		return nil, NewError("registration.finish", ErrSignatureInvalid)
	}

	// The credential ID reported on the wire must agree with the one inside
	// the signed attestation.
	if len(response.CredentialID) > 0 && !bytes.Equal(response.CredentialID, attested.CredentialID) {
		return nil, NewError("registration.finish", ErrMalformedEncoding)
	}

	cred := &Credential{
		ID:                attested.CredentialID,
		UserHandle:        user.Handle,
		PublicKey:         attested.PublicKey,
		SignCount:         attested.SignCount,
		AAGUID:            attested.AAGUID,
		AttestationFormat: attested.Format,
		CreatedAt:         nowUTC(),
	}
	if err := s.creds.Add(ctx, cred); err != nil {
		return nil, err
	}

	s.logger.Info("registration ceremony completed",
		"user", userName,
		"credential", EncodeBytes(cred.ID),
		"format", cred.AttestationFormat)

	return &RegistrationResult{
		Credential: cred,
		Elapsed:    time.Since(pending.CreatedAt),
	}, nil
}

// checkClientData decodes client data and binds it to the pending ceremony:
// correct type, byte-exact challenge, and matching origin.
func (s *Service) checkClientData(clientDataJSON []byte, wantType string, pending *PendingCeremony) (*ClientData, error) {
	clientData, err := DecodeClientData(clientDataJSON)
	if err != nil {
		return nil, err
	}

	switch clientData.Type {
	case wantType:
	case ClientDataTypeCreate, ClientDataTypeGet:
		// A valid type for the other ceremony kind: the response was built
		// for a different ceremony than the one pending.
		return nil, NewError("check client data", ErrChallengeMismatch)
	default:
		return nil, NewError("check client data", ErrMalformedEncoding)
	}

	if !ChallengeMatches(clientData.Challenge, pending.Challenge) {
		return nil, NewError("check client data", ErrChallengeMismatch)
	}
	if clientData.Origin != pending.Origin {
		return nil, NewError("check client data", ErrOriginMismatch)
	}
	return clientData, nil
}
