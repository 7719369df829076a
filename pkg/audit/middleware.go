// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/ids"
)

type contextKey int

const requiredKey contextKey = iota

// Required marks every request passing through it as audited, regardless
// of the route selection configuration. Mount it on route groups that must
// always leave a trail.
func Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requiredKey, true)))
	})
}

func isRequired(ctx context.Context) bool {
	required, _ := ctx.Value(requiredKey).(bool)
	return required
}

// shouldRecord applies the selection policy: a route annotation always
// records; with audit_all_requests everything records except excluded
// routes; otherwise only audited_routes record.
func shouldRecord(ctx context.Context, cfg config.AuditConfig, path string) bool {
	if isRequired(ctx) {
		return true
	}
	if cfg.AuditAllRequests {
		return !MatchAny(cfg.ExcludedRoutes, path)
	}
	return MatchAny(cfg.AuditedRoutes, path)
}

// Middleware records an audit event for selected requests after the
// handler completes. Severity derives from the response status.
func Middleware(auditor *Auditor, cfg config.AuditConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			if !shouldRecord(r.Context(), cfg, r.URL.Path) {
				return
			}

			event := NewEvent(KindHTTPRequest, SeverityFromStatus(ww.Status()))
			event.Method = r.Method
			event.Path = r.URL.Path
			event.StatusCode = ww.Status()
			event.DurationMS = time.Since(start).Milliseconds()
			event.Source = sourceFromRequest(r)

			auditor.Record(event)
		})
	}
}

// AuthEvents adapts the auditor to the authentication middleware's event
// hook. Returns nil when audit_auth_events is disabled.
func AuthEvents(auditor *Auditor, cfg config.AuditConfig) auth.EventRecorder {
	if !cfg.AuditAuthEvents {
		return nil
	}

	return func(r *http.Request, eventType auth.EventType, claims *auth.Claims) {
		var kind Kind
		severity := SeverityNotice
		switch eventType {
		case auth.EventLoginSuccess:
			kind = KindAuthLoginSuccess
		case auth.EventLoginFailed:
			kind = KindAuthLoginFailed
			severity = SeverityWarning
		case auth.EventTokenRevoked:
			kind = KindAuthTokenRevoked
			severity = SeverityWarning
		default:
			return
		}

		event := NewEvent(kind, severity)
		event.Method = r.Method
		event.Path = r.URL.Path
		event.Source = sourceFromRequest(r)
		if claims != nil && claims.Subject != "" {
			event.Source.Subject = claims.Subject
		}

		auditor.Record(event)
	}
}

func sourceFromRequest(r *http.Request) Source {
	source := Source{
		UserAgent: r.UserAgent(),
		RequestID: ids.RequestIDFromContext(r.Context()),
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		source.IP = host
	} else {
		source.IP = r.RemoteAddr
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		source.Subject = claims.Subject
	}
	return source
}
