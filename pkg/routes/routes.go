// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package routes builds versioned route trees. The builder moves through
// typed stages so an incomplete tree cannot be mounted: a base path must be
// set before versions, and handlers attach only under a version. Every
// built tree carries the health and readiness endpoints.
package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Builder is the entry stage. It carries no state beyond its existence; the
// only move is to fix the base path.
type Builder struct{}

// NewBuilder starts a route tree.
func NewBuilder() *Builder {
	return &Builder{}
}

// Base fixes the mount prefix, e.g. "/api". Versions mount beneath it as
// "<base>/<version>".
func (*Builder) Base(path string) *BaseBuilder {
	return &BaseBuilder{base: path}
}

// BaseBuilder has a base path and no versions yet.
type BaseBuilder struct {
	base string
}

// AddVersion registers the first version and moves to the version stage.
func (b *BaseBuilder) AddVersion(version string, register func(chi.Router)) *VersionBuilder {
	vb := &VersionBuilder{base: b.base}
	return vb.AddVersion(version, register)
}

// AddVersionDeprecated registers a deprecated first version and moves to the
// version stage.
func (b *BaseBuilder) AddVersionDeprecated(version string, dep Deprecation, register func(chi.Router)) *VersionBuilder {
	vb := &VersionBuilder{base: b.base}
	return vb.AddVersionDeprecated(version, dep, register)
}

// Build freezes an empty tree: no API versions, only the health and
// readiness endpoints.
func (b *BaseBuilder) Build() *VersionedRoutes {
	return &VersionedRoutes{base: b.base}
}

// VersionBuilder accumulates versions. Build becomes available here.
type VersionBuilder struct {
	base     string
	versions []versionEntry
}

type versionEntry struct {
	version     string
	register    func(chi.Router)
	deprecation *Deprecation
}

// Deprecation describes a sunsetting API version. Its fields become the
// Deprecation, Sunset and Link response headers plus a Warning header on
// every response from that version.
type Deprecation struct {
	// Sunset is when the version stops being served. Zero means no date has
	// been announced.
	Sunset time.Time

	// Link points at migration documentation.
	Link string

	// Message is the human-readable warning. Empty selects a default.
	Message string
}

// AddVersion registers an active version.
func (b *VersionBuilder) AddVersion(version string, register func(chi.Router)) *VersionBuilder {
	b.versions = append(b.versions, versionEntry{version: version, register: register})
	return b
}

// AddVersionDeprecated registers a version that emits deprecation headers
// on every response.
func (b *VersionBuilder) AddVersionDeprecated(version string, dep Deprecation, register func(chi.Router)) *VersionBuilder {
	b.versions = append(b.versions, versionEntry{version: version, register: register, deprecation: &dep})
	return b
}

// Build freezes the tree. The returned value is opaque: routes can be
// attached to a server but no longer modified.
func (b *VersionBuilder) Build() *VersionedRoutes {
	return &VersionedRoutes{base: b.base, versions: b.versions}
}

// VersionedRoutes is a frozen route tree produced by Build.
type VersionedRoutes struct {
	base     string
	versions []versionEntry
}

// Attach mounts the tree on r: every version under the base path, plus the
// health and readiness endpoints at the root. Deprecated versions are
// wrapped so each response carries the deprecation headers. Readiness
// always answers ready; servers with dependencies use AttachWithReadiness.
func (v *VersionedRoutes) Attach(r chi.Router) {
	v.AttachWithReadiness(r, nil)
}

// AttachWithReadiness is Attach with a readiness probe: /ready answers 503
// until ready returns true. A nil probe means always ready.
func (v *VersionedRoutes) AttachWithReadiness(r chi.Router, ready func() bool) {
	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady(ready))

	r.Route(v.base, func(base chi.Router) {
		for _, entry := range v.versions {
			entry := entry
			base.Route("/"+entry.version, func(vr chi.Router) {
				if entry.deprecation != nil {
					vr.Use(deprecationHeaders(entry.version, *entry.deprecation))
				}
				entry.register(vr)
			})
		}
	})
}

// handleHealth is the liveness probe: the process is up.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("healthy"))
}

// handleReady is the readiness probe.
func handleReady(ready func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
		_, _ = w.Write([]byte("ready"))
	}
}

// Versions lists the registered version names in registration order.
func (v *VersionedRoutes) Versions() []string {
	names := make([]string, len(v.versions))
	for i, entry := range v.versions {
		names[i] = entry.version
	}
	return names
}

// deprecationHeaders emits the sunset headers and a 299 warning.
func deprecationHeaders(version string, dep Deprecation) func(http.Handler) http.Handler {
	message := dep.Message
	if message == "" {
		message = fmt.Sprintf("API version %s is deprecated", version)
	}
	warning := fmt.Sprintf("299 - %q", message)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Deprecation", "true")
			if !dep.Sunset.IsZero() {
				h.Set("Sunset", dep.Sunset.UTC().Format(time.RFC3339))
			}
			if dep.Link != "" {
				h.Set("Link", fmt.Sprintf("<%s>; rel=\"successor-version\"", dep.Link))
			}
			h.Set("Warning", warning)

			next.ServeHTTP(w, r)
		})
	}
}
