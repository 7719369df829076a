// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package lockout

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
)

// lockedBody is the 423 response payload.
type lockedBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status uint16 `json:"status"`
}

// Middleware returns HTTP middleware that enforces lockout on a login
// route. It peeks the request body (size-limited) for the configured
// identity field, rejects locked identities with 423 and Retry-After, and
// records the outcome from the response status: 401 counts as a failure and
// sleeps the progressive delay, 2xx clears the state.
func Middleware(svc *Service, cfg config.LockoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := peekIdentity(r, cfg)
			if identity == "" {
				next.ServeHTTP(w, r)
				return
			}

			status, err := svc.Check(r.Context(), identity)
			if err != nil {
				// Lockout must not take the login path down with the
				// cache; log and let the request through.
				logger.Warnw("lockout check failed", "identity", identity, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if status.Locked {
				writeLocked(w, status.RetryAfter)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			switch {
			case ww.Status() == http.StatusUnauthorized:
				outcome, err := svc.RecordFailure(r.Context(), identity)
				if err != nil {
					logger.Warnw("failed to record login failure", "identity", identity, "error", err)
					return
				}
				if !outcome.Locked && outcome.Delay > 0 {
					time.Sleep(outcome.Delay)
				}
			case ww.Status() >= 200 && ww.Status() < 300:
				if err := svc.RecordSuccess(r.Context(), identity); err != nil {
					logger.Warnw("failed to record login success", "identity", identity, "error", err)
				}
			}
		})
	}
}

// peekIdentity reads the identity field from the JSON body without
// consuming it for the downstream handler.
func peekIdentity(r *http.Request, cfg config.LockoutConfig) string {
	if r.Body == nil {
		return ""
	}

	limit := int64(cfg.MaxBodyPeekBytes)
	if limit <= 0 {
		limit = 64 * 1024
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	identity, _ := payload[cfg.IdentityField].(string)
	return identity
}

func writeLocked(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusLocked)
	_ = json.NewEncoder(w).Encode(lockedBody{
		Error:  "Account is locked",
		Code:   "ACCOUNT_LOCKED",
		Status: http.StatusLocked,
	})
}
