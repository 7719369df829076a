// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acton-framework/acton/pkg/logger"
)

// defaultSensitiveHeaders are always redacted from request logs, in
// addition to any configured ones.
var defaultSensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"}

// RequestLogger logs one structured line per request with status, duration
// and redacted headers. Sensitive header values never reach the log.
func RequestLogger(sensitiveHeaders []string) func(http.Handler) http.Handler {
	sensitive := make(map[string]struct{}, len(defaultSensitiveHeaders)+len(sensitiveHeaders))
	for _, h := range defaultSensitiveHeaders {
		sensitive[strings.ToLower(h)] = struct{}{}
	}
	for _, h := range sensitiveHeaders {
		sensitive[strings.ToLower(h)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			// The request-id layer runs inside this one; it echoes the id on
			// the response, which is the only place it is visible out here.
			logger.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
				"request_id", ww.Header().Get(RequestIDHeader),
				"user_agent", redactValue(sensitive, "user-agent", r.UserAgent()),
			)
		})
	}
}

// RedactHeaders returns a copy of h with sensitive values replaced. Used by
// anything that needs to dump full headers, e.g. debug logging.
func RedactHeaders(h http.Header, extra []string) http.Header {
	sensitive := make(map[string]struct{}, len(defaultSensitiveHeaders)+len(extra))
	for _, name := range defaultSensitiveHeaders {
		sensitive[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range extra {
		sensitive[strings.ToLower(name)] = struct{}{}
	}

	out := make(http.Header, len(h))
	for name, values := range h {
		if _, ok := sensitive[strings.ToLower(name)]; ok {
			out[name] = []string{"[REDACTED]"}
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

func redactValue(sensitive map[string]struct{}, name, value string) string {
	if _, ok := sensitive[name]; ok {
		return "[REDACTED]"
	}
	return value
}
