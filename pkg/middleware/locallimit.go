// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

// LocalRateLimit applies a single in-process token bucket across all
// requests. It shields the service when no redis pool is configured, or
// sits in front of the distributed limiter as a cheap first gate.
func LocalRateLimit(cfg config.LocalRateLimitConfig) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				errors.WriteHTTP(w, errors.NewRateLimitExceeded("local rate limit exceeded", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
