// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/audit"
	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

// rateLimitKeyPrefix namespaces limiter counters in redis.
const rateLimitKeyPrefix = "ratelimit:"

// window is the fixed limiter window. Limits are expressed per minute.
const window = time.Minute

// RateLimiter enforces distributed fixed-window limits backed by redis.
// Resolution order per request: a matching route override, then the
// per-user limit when claims are present, then the per-client limit keyed
// by source address.
type RateLimiter struct {
	cfg        config.RateLimitConfig
	client     *redis.Client
	normalizer PathNormalizer
	clock      func() time.Time
}

// NewRateLimiter builds the limiter. A nil normalizer selects the default
// path normalization.
func NewRateLimiter(cfg config.RateLimitConfig, client *redis.Client, normalizer PathNormalizer) *RateLimiter {
	if normalizer == nil {
		normalizer = NormalizePath
	}
	return &RateLimiter{cfg: cfg, client: client, normalizer: normalizer, clock: time.Now}
}

// decision is the outcome of one limiter check.
type decision struct {
	allowed   bool
	limit     int
	remaining int
	reset     time.Time
}

// Middleware applies the limiter to every request. Redis unavailability
// fails open: an unreachable limiter must not take the service down with
// it.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, key := l.resolve(r)
		if limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		d, err := l.check(r.Context(), key, limit)
		if err != nil {
			logger.Warnw("rate limiter unavailable, failing open", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))

		if !d.allowed {
			retryAfter := int(time.Until(d.reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			errors.WriteHTTP(w, errors.NewRateLimitExceeded(
				fmt.Sprintf("rate limit exceeded for %s", key), nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolve picks the limit and counter key for the request. A zero limit
// means the request is not limited.
func (l *RateLimiter) resolve(r *http.Request) (int, string) {
	path := l.normalizer(r.URL.Path)
	identity := clientAddr(r)
	claims, authenticated := auth.ClaimsFromContext(r.Context())
	if authenticated {
		identity = claims.Subject
	}

	for pattern, route := range l.cfg.Routes {
		if !audit.MatchRoute(pattern, r.URL.Path) {
			continue
		}
		if route.PerUser {
			return route.RPM, "route:" + pattern + ":" + identity
		}
		return route.RPM, "route:" + pattern
	}

	// The trailing route component is "global" for the fallback limits,
	// keeping their keys disjoint from route-override counters.
	if authenticated {
		return l.cfg.PerUserRPM, "user:" + claims.Subject + ":global"
	}
	return l.cfg.PerClientRPM, "client:" + identity + ":" + path + ":global"
}

// check increments the window counter and derives the decision. The key
// carries the window start so counters expire on their own.
func (l *RateLimiter) check(ctx context.Context, key string, limit int) (decision, error) {
	now := l.clock()
	windowStart := now.Truncate(window)
	reset := windowStart.Add(window)
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return decision{}, err
	}

	n := int(count.Val())
	remaining := limit - n
	if remaining < 0 {
		remaining = 0
	}
	return decision{
		allowed:   n <= limit,
		limit:     limit,
		remaining: remaining,
		reset:     reset,
	}, nil
}

// clientAddr returns the request source address without the port.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
