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
	"fmt"
	"time"
)

// MinChallengeSize is the smallest permitted challenge length in bytes.
const MinChallengeSize = 32

// Default COSE algorithm identifiers offered to authenticators at
// registration: ES256 (-7) and RS256 (-257).
var defaultAlgorithms = []int64{-7, -257}

// Config configures the ceremony service.
type Config struct {
	// RPID is the relying party identifier, typically the domain name.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id"`

	// RPDisplayName is the human-readable name of the relying party.
	RPDisplayName string `yaml:"display_name" json:"display_name"`

	// RPOrigins are the web origins ceremonies may be bound to.
	// Example: []string{"https://example.com"}
	RPOrigins []string `yaml:"origins" json:"origins"`

	// ChallengeSize is the challenge length in bytes.
	// Default: 64. Minimum: 32.
	ChallengeSize int `yaml:"challenge_size" json:"challenge_size"`

	// CeremonyTimeout is how long a pending ceremony stays consumable.
	// Default: 60 seconds.
	CeremonyTimeout time.Duration `yaml:"timeout" json:"timeout"`

	// UserVerification selects the user verification policy, applied
	// identically to registration and authentication.
	// Options: "required", "preferred". Default: "preferred".
	UserVerification string `yaml:"user_verification" json:"user_verification"`

	// Algorithms lists accepted COSE algorithm identifiers.
	// Default: ES256 (-7) and RS256 (-257).
	Algorithms []int64 `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}
	if c.ChallengeSize != 0 && c.ChallengeSize < MinChallengeSize {
		return fmt.Errorf("challenge size %d below minimum %d", c.ChallengeSize, MinChallengeSize)
	}

	switch c.UserVerification {
	case "", "required", "preferred":
		// Valid
	default:
		return fmt.Errorf("invalid user verification: %s", c.UserVerification)
	}

	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ChallengeSize == 0 {
		c.ChallengeSize = 64
	}
	if c.CeremonyTimeout == 0 {
		c.CeremonyTimeout = 60 * time.Second
	}
	if c.UserVerification == "" {
		c.UserVerification = "preferred"
	}
	if len(c.Algorithms) == 0 {
		c.Algorithms = append([]int64(nil), defaultAlgorithms...)
	}
}

// RequireUserVerification reports whether the UV flag is mandatory.
func (c *Config) RequireUserVerification() bool {
	return c.UserVerification == "required"
}

// OriginAllowed reports whether ceremonies may bind to the given origin.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.RPOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
