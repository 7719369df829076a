// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"github.com/acton-framework/acton/pkg/errors"
)

// BodyLimit rejects requests whose declared length exceeds the limit with a
// 413 and caps reads for the rest, so chunked uploads cannot bypass the
// check.
func BodyLimit(limitMB int) func(http.Handler) http.Handler {
	limit := int64(limitMB) << 20

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				errors.WriteStatus(w, http.StatusRequestEntityTooLarge,
					"Request body too large", "PAYLOAD_TOO_LARGE")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
