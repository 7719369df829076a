// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/acton-framework/acton/pkg/errors"
)

// TokenValidator extracts claims from a bearer token string.
// Implementations return Unauthorized, JWT or Paseto errors on failure.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// BearerToken extracts the bearer token from the Authorization header.
// Any other shape is an unauthorized error.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.NewUnauthorized("missing authorization header", nil)
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.NewUnauthorized("authorization header must use the Bearer scheme", nil)
	}
	return token, nil
}

// validateStandardClaims enforces the invariants shared by all validators.
func validateStandardClaims(claims *Claims) error {
	if claims.Subject == "" {
		return errors.NewUnauthorized("token has no subject", nil)
	}
	if claims.ExpiresAt <= 0 {
		return errors.NewUnauthorized("token has no expiry", nil)
	}
	claims.Normalize()
	return nil
}
