// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/ids"
	"github.com/acton-framework/acton/pkg/logger"
)

// Recovery converts handler panics into the canonical 500 response. The
// panic value and stack stay in the log, never in the response body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Errorw("panic in handler",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", ids.RequestIDFromContext(r.Context()),
				"stack", string(debug.Stack()))

			errors.WriteHTTP(w, errors.NewInternal("handler panicked", nil))
		}()

		next.ServeHTTP(w, r)
	})
}
