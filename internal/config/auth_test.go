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
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-passkey/pkg/ceremony"
)

func TestCreateTokenIssuer_Disabled(t *testing.T) {
	cfg := &AuthConfig{Enabled: false}

	issuer, err := cfg.CreateTokenIssuer()
	if err != nil {
		t.Fatalf("CreateTokenIssuer() error = %v, want nil", err)
	}
	if issuer != nil {
		t.Error("CreateTokenIssuer() = non-nil, want nil when disabled")
	}
}

func TestCreateTokenIssuer_MissingJWT(t *testing.T) {
	cfg := &AuthConfig{Enabled: true}

	_, err := cfg.CreateTokenIssuer()
	if err == nil {
		t.Fatal("CreateTokenIssuer() error = nil, want error for missing jwt config")
	}
}

func TestCreateTokenIssuer_MissingSecret(t *testing.T) {
	cfg := &AuthConfig{
		Enabled: true,
		JWT:     &JWTConfig{Issuer: "example.com"},
	}

	_, err := cfg.CreateTokenIssuer()
	if err == nil {
		t.Fatal("CreateTokenIssuer() error = nil, want error for missing secret")
	}
}

func TestCreateTokenIssuer_IssuesValidToken(t *testing.T) {
	cfg := &AuthConfig{
		Enabled: true,
		JWT: &JWTConfig{
			Secret:    "test-secret",
			Issuer:    "example.com",
			Audience:  []string{"example.com"},
			ExpiresIn: 15 * time.Minute,
		},
	}

	issuer, err := cfg.CreateTokenIssuer()
	if err != nil {
		t.Fatalf("CreateTokenIssuer() error = %v, want nil", err)
	}
	if issuer == nil {
		t.Fatal("CreateTokenIssuer() = nil, want issuer")
	}

	user := ceremony.NewUser("alice")
	tokenStr, err := issuer.IssueToken(context.Background(), user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v, want nil", err)
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if !token.Valid {
		t.Error("issued token failed validation")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("expected map claims")
	}
	if claims["iss"] != "example.com" {
		t.Errorf("iss = %v, want example.com", claims["iss"])
	}
	if claims["name"] != "alice" {
		t.Errorf("name = %v, want alice", claims["name"])
	}
}
