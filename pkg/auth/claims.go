// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides bearer-token validation (PASETO and JWT), the
// claims model, and the authentication middleware.
package auth

import (
	"slices"
	"strings"
	"time"
)

// Subject prefixes discriminate token scopes by convention.
const (
	// UserPrefix marks a subject as an end user.
	UserPrefix = "user:"

	// ClientPrefix marks a subject as a machine client.
	ClientPrefix = "client:"
)

// Claims are the identity and authorisation facts extracted from a
// validated token.
type Claims struct {
	// Subject is the token subject, conventionally prefixed "user:" or
	// "client:". Never empty for valid claims.
	Subject string `json:"sub"`

	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`

	// Roles and Perms are sets; duplicates are collapsed on construction.
	Roles []string `json:"roles,omitempty"`
	Perms []string `json:"perms,omitempty"`

	// ExpiresAt is the expiry as Unix seconds. Always positive.
	ExpiresAt int64 `json:"exp"`
	IssuedAt  int64 `json:"iat,omitempty"`

	TokenID  string `json:"jti,omitempty"`
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud,omitempty"`
}

// Normalize collapses duplicate roles and perms in place.
func (c *Claims) Normalize() {
	c.Roles = dedupe(c.Roles)
	c.Perms = dedupe(c.Perms)
}

// IsUser reports whether the subject carries the user prefix.
func (c *Claims) IsUser() bool {
	return strings.HasPrefix(c.Subject, UserPrefix)
}

// IsClient reports whether the subject carries the client prefix.
func (c *Claims) IsClient() bool {
	return strings.HasPrefix(c.Subject, ClientPrefix)
}

// HasRole reports whether the claims include the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasPerm reports whether the claims include the given permission.
func (c *Claims) HasPerm(perm string) bool {
	return slices.Contains(c.Perms, perm)
}

// Expired reports whether the claims have expired at the given time.
func (c *Claims) Expired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
