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

package config

import (
	"fmt"

	"github.com/jeremyhahn/go-passkey/pkg/ceremony"
)

// CreateTokenIssuer creates a session token issuer from the configuration.
// Returns nil when token issuance is disabled; the ceremony service treats
// a nil issuer as "report success without a token".
func (cfg *AuthConfig) CreateTokenIssuer() (ceremony.TokenIssuer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.JWT == nil {
		return nil, fmt.Errorf("auth.jwt configuration is required when auth is enabled")
	}

	issuer, err := ceremony.NewJWTIssuer(&ceremony.JWTIssuerConfig{
		SigningKey: []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		ExpiresIn:  cfg.JWT.ExpiresIn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT issuer: %w", err)
	}

	return issuer, nil
}
