// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/acton-framework/acton/pkg/errors"
)

// Timeout cancels the request context after d and answers 408 if the
// handler has not started writing by then. A handler that already wrote
// keeps its response; its context is cancelled either way.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.markTimedOut() {
					errors.WriteStatus(w, http.StatusRequestTimeout,
						"Request timed out", "REQUEST_TIMEOUT")
				}
				<-done
			}
		})
	}
}

// timeoutWriter suppresses handler writes once the deadline response has
// been sent, so the two goroutines never interleave on the connection.
type timeoutWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	wrote    bool
	timedOut bool
}

func (t *timeoutWriter) WriteHeader(status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return
	}
	t.wrote = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *timeoutWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timedOut {
		return len(b), nil
	}
	t.wrote = true
	return t.ResponseWriter.Write(b)
}

// markTimedOut flips the writer into timed-out mode. It reports false when
// the handler already produced output, in which case the 408 must not be
// written.
func (t *timeoutWriter) markTimedOut() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wrote {
		return false
	}
	t.timedOut = true
	return true
}
