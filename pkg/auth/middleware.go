// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"slices"

	"github.com/acton-framework/acton/pkg/auth/revocation"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

// EventType classifies an authentication outcome for the audit trail.
type EventType string

// Authentication event types
const (
	EventLoginSuccess EventType = "login_success"
	EventLoginFailed  EventType = "login_failed"
	EventTokenRevoked EventType = "token_revoked"
)

// EventRecorder receives authentication outcomes. claims is nil for
// failures that never produced claims.
type EventRecorder func(r *http.Request, event EventType, claims *Claims)

// MiddlewareOptions configures the authentication middleware.
type MiddlewareOptions struct {
	// Validator is the token validator to run. Required.
	Validator TokenValidator

	// Revocation, when non-nil, is consulted after validation.
	Revocation *revocation.Store

	// SkipPaths are exempt from validation. /health and /ready are always
	// exempt.
	SkipPaths []string

	// Events, when non-nil, receives authentication outcomes.
	Events EventRecorder
}

// Middleware returns HTTP middleware that validates the bearer token,
// checks revocation, and injects the claims into the request context.
// Errors short-circuit with the canonical error body.
func Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	skip := append([]string{"/health", "/ready"}, opts.SkipPaths...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skip, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := BearerToken(r)
			if err != nil {
				opts.record(r, EventLoginFailed, nil)
				errors.WriteHTTP(w, err)
				return
			}

			claims, err := opts.Validator.Validate(r.Context(), token)
			if err != nil {
				opts.record(r, EventLoginFailed, nil)
				errors.WriteHTTP(w, err)
				return
			}

			if opts.Revocation != nil {
				if claims.TokenID == "" {
					logger.Warnw("token without jti while revocation is enabled",
						"subject", claims.Subject)
				} else if opts.Revocation.IsRevoked(claims.TokenID) {
					opts.record(r, EventTokenRevoked, claims)
					errors.WriteHTTP(w, errors.NewUnauthorized("Token has been revoked", nil))
					return
				}
			}

			opts.record(r, EventLoginSuccess, claims)
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (o MiddlewareOptions) record(r *http.Request, event EventType, claims *Claims) {
	if o.Events != nil {
		o.Events(r, event, claims)
	}
}
