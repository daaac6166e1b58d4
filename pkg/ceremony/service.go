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

// Package ceremony implements passwordless registration and authentication
// ceremonies: challenge issuance, client data binding, attestation and
// assertion completion, and signature-counter replay detection. Cryptographic
// validation is delegated to a Verifier; persistence to the store interfaces.
package ceremony

import (
	"fmt"
	"log/slog"

	"github.com/jeremyhahn/go-passkey/pkg/verification"
)

// Service coordinates registration and authentication ceremonies.
type Service struct {
	config   *Config
	users    UserStore
	creds    CredentialStore
	sessions *SessionManager
	verifier Verifier
	tokens   TokenIssuer // optional
	logger   *slog.Logger
}

// ServiceParams contains dependencies for creating a ceremony service.
type ServiceParams struct {
	// Config is the ceremony configuration (required).
	Config *Config

	// UserStore is the user persistence layer (required).
	UserStore UserStore

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// Verifier validates attestations and assertions. If nil, a verifier
	// bound to Config.RPID is created.
	Verifier Verifier

	// TokenIssuer is an optional post-authentication token minter.
	TokenIssuer TokenIssuer

	// Logger receives structured ceremony logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a ceremony service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	verifier := params.Verifier
	if verifier == nil {
		verifier = verification.New(params.Config.RPID, params.Config.RequireUserVerification())
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   params.Config,
		users:    params.UserStore,
		creds:    params.CredentialStore,
		sessions: NewSessionManager(params.Config.ChallengeSize, params.Config.CeremonyTimeout),
		verifier: verifier,
		tokens:   params.TokenIssuer,
		logger:   logger,
	}, nil
}

// Sessions exposes the session manager so callers can wire up periodic
// cleanup of expired ceremonies.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the active configuration.
func (s *Service) Config() *Config {
	return s.config
}
