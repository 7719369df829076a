// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package middleware provides the HTTP request pipeline: request identity,
// recovery, security headers, CORS, limits, logging, metrics and
// resilience. Layers are assembled in a fixed order by Chain; individual
// layers are exported for services that compose their own stack.
package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/config"
)

// Options carries the runtime dependencies the pipeline layers need beyond
// configuration.
type Options struct {
	// Redis backs the distributed rate limiter. When nil the distributed
	// limiter is skipped even if configured.
	Redis *redis.Client

	// RateLimit enables the distributed limiter when non-nil.
	RateLimit *config.RateLimitConfig

	// Normalizer overrides path normalization for metrics and limiter keys.
	Normalizer PathNormalizer

	// TLSActive gates the HSTS header.
	TLSActive bool

	// Tracing is the per-request span layer, inserted between the body
	// limit and the logging layer when non-nil.
	Tracing func(http.Handler) http.Handler

	// Extra layers run after the built-in stack, before routing.
	Extra []func(http.Handler) http.Handler
}

// Chain assembles the pipeline in its fixed outer-to-inner order:
//
//	security headers, CORS, compression, timeout, body limit, tracing,
//	logging with header redaction, request-id, recovery, metrics, local
//	rate limit, distributed rate limit, extra layers.
//
// Resilience is not part of the chain; it belongs inside authentication so
// breaker and bulkhead capacity is spent only on requests that will be
// handled. Rate-limit rejections happen outside resilience for the same
// reason in reverse: a 429 is a user error and must not trip the breaker.
func Chain(svc config.ServiceConfig, cfg config.MiddlewareConfig, opts Options) []func(http.Handler) http.Handler {
	var layers []func(http.Handler) http.Handler

	if cfg.SecurityHeaders.Enabled {
		layers = append(layers, SecurityHeaders(cfg.SecurityHeaders, opts.TLSActive))
	}
	if c := CORS(cfg); c != nil {
		layers = append(layers, c)
	}
	if !cfg.CompressionOff {
		layers = append(layers, chimiddleware.Compress(5))
	}

	layers = append(layers,
		Timeout(svc.Timeout()),
		BodyLimit(cfg.BodyLimitMB),
	)

	if opts.Tracing != nil {
		layers = append(layers, opts.Tracing)
	}

	layers = append(layers,
		RequestLogger(cfg.SensitiveHeaders),
		RequestID,
		Recovery,
	)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		layers = append(layers, Metrics(opts.Normalizer))
	}
	if cfg.LocalRateLimit != nil && cfg.LocalRateLimit.Enabled {
		layers = append(layers, LocalRateLimit(*cfg.LocalRateLimit))
	}
	if opts.RateLimit != nil && opts.RateLimit.Enabled && opts.Redis != nil {
		limiter := NewRateLimiter(*opts.RateLimit, opts.Redis, opts.Normalizer)
		layers = append(layers, limiter.Middleware)
	}

	return append(layers, opts.Extra...)
}
