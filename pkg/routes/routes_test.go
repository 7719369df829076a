// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func buildTestRoutes() *VersionedRoutes {
	return NewBuilder().
		Base("/api").
		AddVersion("v2", func(r chi.Router) {
			r.Get("/ping", ping)
		}).
		AddVersionDeprecated("v1", Deprecation{
			Sunset: time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC),
			Link:   "https://example.com/migrate",
		}, func(r chi.Router) {
			r.Get("/ping", ping)
		}).
		Build()
}

func TestAttachMountsVersions(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	buildTestRoutes().Attach(r)

	for _, path := range []string{"/api/v1/ping", "/api/v2/ping"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v3/ping", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachAlwaysServesHealthAndReady(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	buildTestRoutes().Attach(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestAttachWithReadinessProbe(t *testing.T) {
	t.Parallel()

	ready := false
	r := chi.NewRouter()
	buildTestRoutes().AttachWithReadiness(r, func() bool { return ready })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", rec.Body.String())

	ready = true
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	// Liveness does not depend on the probe.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestZeroVersionBundle(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	NewBuilder().Base("/api").Build().Attach(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeprecatedVersionEmitsHeaders(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	buildTestRoutes().Attach(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Deprecation"))
	assert.Equal(t, "2026-12-01T00:00:00Z", rec.Header().Get("Sunset"))
	assert.Equal(t, `<https://example.com/migrate>; rel="successor-version"`, rec.Header().Get("Link"))
	assert.Contains(t, rec.Header().Get("Warning"), "299")
	assert.Contains(t, rec.Header().Get("Warning"), "v1")
}

func TestActiveVersionHasNoDeprecationHeaders(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	buildTestRoutes().Attach(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Deprecation"))
	assert.Empty(t, rec.Header().Get("Sunset"))
	assert.Empty(t, rec.Header().Get("Warning"))
}

func TestFirstVersionCanBeDeprecated(t *testing.T) {
	t.Parallel()

	routes := NewBuilder().
		Base("/api").
		AddVersionDeprecated("v1", Deprecation{Message: "use v2"}, func(r chi.Router) {
			r.Get("/ping", ping)
		}).
		Build()

	r := chi.NewRouter()
	routes.Attach(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Deprecation"))
	assert.Empty(t, rec.Header().Get("Sunset"))
	assert.Contains(t, rec.Header().Get("Warning"), "use v2")
}

func TestVersions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"v2", "v1"}, buildTestRoutes().Versions())
}
