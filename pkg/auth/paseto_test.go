// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

func localValidator(t *testing.T, key paseto.V4SymmetricKey, mutate func(*config.PASETOConfig)) *PasetoValidator {
	t.Helper()
	cfg := config.PASETOConfig{
		Version: "v4",
		Purpose: "local",
		KeyHex:  key.ExportHex(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	v, err := NewPasetoValidator(cfg)
	require.NoError(t, err)
	return v
}

func newLocalToken(t *testing.T) paseto.Token {
	t.Helper()
	token := paseto.NewToken()
	token.SetSubject("user:alice")
	token.SetExpiration(time.Now().Add(time.Hour))
	token.SetIssuedAt(time.Now())
	token.SetString("jti", "token-1")
	return token
}

func TestPasetoLocalValidate(t *testing.T) {
	t.Parallel()

	key := paseto.NewV4SymmetricKey()
	v := localValidator(t, key, nil)

	token := newLocalToken(t)
	require.NoError(t, token.Set("roles", []string{"admin"}))

	claims, err := v.Validate(context.Background(), token.V4Encrypt(key, nil))
	require.NoError(t, err)

	assert.Equal(t, "user:alice", claims.Subject)
	assert.Equal(t, "token-1", claims.TokenID)
	assert.True(t, claims.HasRole("admin"))
	assert.True(t, claims.IsUser())
	assert.False(t, claims.Expired(time.Now()))
}

func TestPasetoRejectsWrongKey(t *testing.T) {
	t.Parallel()

	v := localValidator(t, paseto.NewV4SymmetricKey(), nil)
	otherKey := paseto.NewV4SymmetricKey()

	_, err := v.Validate(context.Background(), newLocalToken(t).V4Encrypt(otherKey, nil))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPaseto))
}

func TestPasetoRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	key := paseto.NewV4SymmetricKey()
	v := localValidator(t, key, nil)

	token := paseto.NewToken()
	token.SetSubject("user:alice")
	token.SetExpiration(time.Now().Add(-time.Minute))

	_, err := v.Validate(context.Background(), token.V4Encrypt(key, nil))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPaseto))
}

func TestPasetoAcceptsUnixSecondTimeClaims(t *testing.T) {
	t.Parallel()

	key := paseto.NewV4SymmetricKey()
	v := localValidator(t, key, nil)

	token := paseto.NewToken()
	token.SetSubject("user:alice")
	require.NoError(t, token.Set("exp", time.Now().Add(time.Hour).Unix()))

	claims, err := v.Validate(context.Background(), token.V4Encrypt(key, nil))
	require.NoError(t, err)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())
}

func TestPasetoIssuerMismatch(t *testing.T) {
	t.Parallel()

	key := paseto.NewV4SymmetricKey()
	v := localValidator(t, key, func(cfg *config.PASETOConfig) {
		cfg.Issuer = "acton-test"
	})

	token := newLocalToken(t)
	token.SetIssuer("someone-else")

	_, err := v.Validate(context.Background(), token.V4Encrypt(key, nil))
	require.Error(t, err)
}

func TestPasetoPublicValidate(t *testing.T) {
	t.Parallel()

	secret := paseto.NewV4AsymmetricSecretKey()
	v, err := NewPasetoValidator(config.PASETOConfig{
		Version: "v4",
		Purpose: "public",
		KeyHex:  secret.Public().ExportHex(),
	})
	require.NoError(t, err)

	token := newLocalToken(t)
	claims, err := v.Validate(context.Background(), token.V4Sign(secret, nil))
	require.NoError(t, err)
	assert.Equal(t, "user:alice", claims.Subject)
}

func TestNewPasetoValidatorRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewPasetoValidator(config.PASETOConfig{Purpose: "local", KeyHex: "zz"})
	require.Error(t, err)

	_, err = NewPasetoValidator(config.PASETOConfig{Purpose: "local", KeyHex: "dead"})
	require.Error(t, err)

	key := paseto.NewV4SymmetricKey()
	_, err = NewPasetoValidator(config.PASETOConfig{Purpose: "sealed", KeyHex: key.ExportHex()})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
