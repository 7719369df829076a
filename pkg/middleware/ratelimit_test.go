// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/config"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func limiterHandler(t *testing.T, cfg config.RateLimitConfig) http.Handler {
	t.Helper()
	limiter := NewRateLimiter(cfg, testRedis(t), nil)
	limiter.clock = func() time.Time {
		return time.Date(2026, 8, 24, 12, 0, 30, 0, time.UTC)
	}
	return limiter.Middleware(okHandler())
}

func TestRateLimiterPerClient(t *testing.T) {
	t.Parallel()

	handler := limiterHandler(t, config.RateLimitConfig{
		Enabled:      true,
		PerUserRPM:   100,
		PerClientRPM: 2,
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests")

	// A different client address gets its own counter.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.RemoteAddr = "203.0.113.50:1000"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterPerUserOverridesClient(t *testing.T) {
	t.Parallel()

	handler := limiterHandler(t, config.RateLimitConfig{
		Enabled:      true,
		PerUserRPM:   1,
		PerClientRPM: 100,
	})

	claims := &auth.Claims{Subject: "user:alice", ExpiresAt: time.Now().Add(time.Hour).Unix()}

	send := func(addr string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
		req.RemoteAddr = addr
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.9:1000").Code)
	// Same user from another address shares the counter.
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.10:1000").Code)
}

func TestRateLimiterRouteOverride(t *testing.T) {
	t.Parallel()

	handler := limiterHandler(t, config.RateLimitConfig{
		Enabled:      true,
		PerUserRPM:   100,
		PerClientRPM: 100,
		Routes: map[string]config.RouteLimit{
			"/api/v1/export/**": {RPM: 1},
		},
	})

	send := func(path string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.9:1000"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("/api/v1/export/csv"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/v1/export/csv"))
	// Other routes use the default limits.
	assert.Equal(t, http.StatusOK, send("/api/v1/items"))
}

func TestRateLimiterKeyShapes(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:      true,
		PerUserRPM:   10,
		PerClientRPM: 10,
	}, client, nil)
	limiter.clock = func() time.Time {
		return time.Date(2026, 8, 24, 12, 0, 30, 0, time.UTC)
	}
	handler := limiter.Middleware(okHandler())

	anon := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	anon.RemoteAddr = "203.0.113.9:1000"
	handler.ServeHTTP(httptest.NewRecorder(), anon)

	user := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	user.RemoteAddr = "203.0.113.9:1000"
	claims := &auth.Claims{Subject: "user:alice", ExpiresAt: time.Now().Add(time.Hour).Unix()}
	user = user.WithContext(auth.WithClaims(user.Context(), claims))
	handler.ServeHTTP(httptest.NewRecorder(), user)

	window := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC).Unix()
	keys := mr.Keys()
	assert.Contains(t, keys, fmt.Sprintf("ratelimit:client:203.0.113.9:/api/v1/items:global:%d", window))
	assert.Contains(t, keys, fmt.Sprintf("ratelimit:user:user:alice:global:%d", window))
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:      true,
		PerUserRPM:   1,
		PerClientRPM: 1,
	}, client, nil)
	handler := limiter.Middleware(okHandler())

	mr.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
