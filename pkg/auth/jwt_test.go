// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

const testHMACKey = "test-hmac-key-for-unit-tests-only"

func writeKeyFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func hs256Validator(t *testing.T, mutate func(*config.JWTConfig)) *JWTValidator {
	t.Helper()
	cfg := config.JWTConfig{
		Algorithm: "HS256",
		KeyFile:   writeKeyFile(t, testHMACKey),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)
	return v
}

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testHMACKey))
	require.NoError(t, err)
	return token
}

func TestJWTValidateExtractsClaims(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token := signHS256(t, jwt.MapClaims{
		"sub":      "user:alice",
		"email":    "alice@example.com",
		"username": "alice",
		"jti":      "token-1",
		"roles":    []string{"admin", "admin", "editor"},
		"perms":    []string{"orders:read"},
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	})

	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user:alice", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "token-1", claims.TokenID)
	// Normalization dedupes roles.
	assert.Equal(t, []string{"admin", "editor"}, claims.Roles)
	assert.True(t, claims.HasRole("admin"))
	assert.True(t, claims.HasPerm("orders:read"))
	assert.False(t, claims.HasPerm("orders:write"))
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token := signHS256(t, jwt.MapClaims{
		"sub": "user:alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := v.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindJWT))
}

func TestJWTRequiresExpiration(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token := signHS256(t, jwt.MapClaims{"sub": "user:alice"})

	_, err := v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestJWTRejectsWrongSignature(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user:alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("a-different-key"))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindJWT))
}

func TestJWTRejectsAlgorithmSubstitution(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"sub": "user:alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testHMACKey))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestJWTIssuerAndAudience(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, func(cfg *config.JWTConfig) {
		cfg.Issuer = "acton-test"
		cfg.Audience = "orders-api"
	})

	good := signHS256(t, jwt.MapClaims{
		"sub": "user:alice",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": "acton-test",
		"aud": "orders-api",
	})
	_, err := v.Validate(context.Background(), good)
	require.NoError(t, err)

	badIssuer := signHS256(t, jwt.MapClaims{
		"sub": "user:alice",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": "someone-else",
		"aud": "orders-api",
	})
	_, err = v.Validate(context.Background(), badIssuer)
	require.Error(t, err)
}

func TestJWTRejectsMissingSubject(t *testing.T) {
	t.Parallel()

	v := hs256Validator(t, nil)
	token := signHS256(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestNewJWTValidatorRejectsUnknownAlgorithm(t *testing.T) {
	t.Parallel()

	_, err := NewJWTValidator(config.JWTConfig{
		Algorithm: "none",
		KeyFile:   writeKeyFile(t, testHMACKey),
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
