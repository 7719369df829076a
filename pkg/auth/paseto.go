// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

// PasetoValidator validates PASETO v4 tokens, either local (32-byte
// symmetric key) or public (Ed25519 public key).
type PasetoValidator struct {
	purpose   string
	localKey  paseto.V4SymmetricKey
	publicKey paseto.V4AsymmetricPublicKey
	issuer    string
	audience  string
}

// NewPasetoValidator creates a validator from configuration. The key is read
// from key_hex or, failing that, from key_file (hex-encoded contents).
func NewPasetoValidator(cfg config.PASETOConfig) (*PasetoValidator, error) {
	keyBytes, err := loadPasetoKey(cfg)
	if err != nil {
		return nil, err
	}

	v := &PasetoValidator{
		purpose:  cfg.Purpose,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	switch cfg.Purpose {
	case "local":
		key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
		if err != nil {
			return nil, errors.NewConfig("paseto local key must be 32 bytes", err)
		}
		v.localKey = key
	case "public":
		key, err := paseto.NewV4AsymmetricPublicKeyFromBytes(keyBytes)
		if err != nil {
			return nil, errors.NewConfig("paseto public key must be an Ed25519 public key", err)
		}
		v.publicKey = key
	default:
		return nil, errors.NewConfig(fmt.Sprintf("unsupported paseto purpose %q", cfg.Purpose), nil)
	}

	return v, nil
}

func loadPasetoKey(cfg config.PASETOConfig) ([]byte, error) {
	keyHex := cfg.KeyHex
	if keyHex == "" {
		raw, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, errors.NewConfig(fmt.Sprintf("failed to read paseto key file %s", cfg.KeyFile), err)
		}
		keyHex = strings.TrimSpace(string(raw))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, errors.NewConfig("paseto key must be hex encoded", err)
	}
	return keyBytes, nil
}

// Validate parses and verifies the token and extracts claims. Expiry is
// checked here rather than by the parser so that both RFC-3339 strings and
// Unix-second numbers are accepted for time claims.
func (v *PasetoValidator) Validate(_ context.Context, token string) (*Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	var (
		parsed *paseto.Token
		err    error
	)
	switch v.purpose {
	case "local":
		parsed, err = parser.ParseV4Local(v.localKey, token, nil)
	default:
		parsed, err = parser.ParseV4Public(v.publicKey, token, nil)
	}
	if err != nil {
		return nil, errors.NewPaseto("token validation failed", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(parsed.ClaimsJSON(), &raw); err != nil {
		return nil, errors.NewPaseto("token claims are not valid JSON", err)
	}

	claims, err := claimsFromPasetoMap(raw)
	if err != nil {
		return nil, err
	}

	if claims.Expired(time.Now()) {
		return nil, errors.NewPaseto("token has expired", nil)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.NewPaseto("token issuer mismatch", nil)
	}
	if v.audience != "" && claims.Audience != v.audience {
		return nil, errors.NewPaseto("token audience mismatch", nil)
	}

	return claims, nil
}

func claimsFromPasetoMap(m map[string]any) (*Claims, error) {
	claims := &Claims{
		Subject:  stringClaim(m, "sub"),
		Email:    stringClaim(m, "email"),
		Username: stringClaim(m, "username"),
		TokenID:  stringClaim(m, "jti"),
		Issuer:   stringClaim(m, "iss"),
		Audience: stringClaim(m, "aud"),
		Roles:    stringSliceClaim(m, "roles"),
		Perms:    stringSliceClaim(m, "perms"),
	}

	exp, err := timeClaim(m, "exp")
	if err != nil {
		return nil, errors.NewPaseto("token exp claim is malformed", err)
	}
	claims.ExpiresAt = exp

	if iat, err := timeClaim(m, "iat"); err == nil {
		claims.IssuedAt = iat
	}

	if err := validateStandardClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// timeClaim accepts RFC-3339 strings and Unix-second numbers.
func timeClaim(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case nil:
		return 0, fmt.Errorf("claim %q is absent", key)
	case float64:
		return int64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, err
		}
		return t.Unix(), nil
	default:
		return 0, fmt.Errorf("claim %q has unsupported type %T", key, v)
	}
}
