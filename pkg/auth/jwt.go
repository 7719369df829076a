// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

// JWTValidator validates JWT bearer tokens. The signing algorithm is pinned
// at construction time; tokens signed with any other algorithm are rejected
// before signature verification.
type JWTValidator struct {
	algorithm string
	key       any
	opts      []jwt.ParserOption
}

// NewJWTValidator creates a validator from configuration. Key material is
// loaded from the configured file: PEM for RSA and EC algorithms, raw bytes
// for HMAC.
func NewJWTValidator(cfg config.JWTConfig) (*JWTValidator, error) {
	raw, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("failed to read jwt key file %s", cfg.KeyFile), err)
	}

	var key any
	switch {
	case strings.HasPrefix(cfg.Algorithm, "RS"):
		key, err = jwt.ParseRSAPublicKeyFromPEM(raw)
	case strings.HasPrefix(cfg.Algorithm, "ES"):
		key, err = jwt.ParseECPublicKeyFromPEM(raw)
	case strings.HasPrefix(cfg.Algorithm, "HS"):
		key = raw
	default:
		return nil, errors.NewConfig(fmt.Sprintf("unsupported jwt algorithm %q", cfg.Algorithm), nil)
	}
	if err != nil {
		return nil, errors.NewConfig("failed to parse jwt key material", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.Algorithm}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTValidator{algorithm: cfg.Algorithm, key: key, opts: opts}, nil
}

// Validate parses and verifies the token and extracts claims.
func (v *JWTValidator) Validate(_ context.Context, token string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, mapClaims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, errors.NewJWT("token validation failed", err)
	}
	if !parsed.Valid {
		return nil, errors.NewJWT("token is not valid", nil)
	}

	claims, err := claimsFromMap(mapClaims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *JWTValidator) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != v.algorithm {
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
	return v.key, nil
}

// claimsFromMap converts generic JWT map claims to the typed model.
func claimsFromMap(m jwt.MapClaims) (*Claims, error) {
	claims := &Claims{}

	if sub, err := m.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Unix()
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Unix()
	}
	if iss, err := m.GetIssuer(); err == nil {
		claims.Issuer = iss
	}
	if aud, err := m.GetAudience(); err == nil && len(aud) > 0 {
		claims.Audience = aud[0]
	}

	claims.Email = stringClaim(m, "email")
	claims.Username = stringClaim(m, "username")
	claims.TokenID = stringClaim(m, "jti")
	claims.Roles = stringSliceClaim(m, "roles")
	claims.Perms = stringSliceClaim(m, "perms")

	if err := validateStandardClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func stringClaim(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringSliceClaim(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
