// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acton-framework/acton/pkg/logger"
)

// genericMessage is returned to clients for infrastructure failures. The
// detailed error is logged server-side and never leaks to the response.
const genericMessage = "An internal error occurred"

// HTTPResponse is the canonical JSON error body.
type HTTPResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status uint16 `json:"status"`
}

// Status returns the HTTP status code for an error kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized, KindJWT, KindPaseto:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest, KindHTTP:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable error code for a kind.
func (k Kind) Code() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindHTTP:
		return "HTTP_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindRateLimitExceeded:
		return "RATE_LIMIT_EXCEEDED"
	case KindJWT, KindPaseto:
		return "INVALID_TOKEN"
	case KindConfig:
		return "CONFIG_ERROR"
	case KindDatabase:
		return "DATABASE_ERROR"
	case KindCache:
		return "CACHE_ERROR"
	case KindMessageBroker:
		return "MESSAGE_BROKER_ERROR"
	case KindAltDB:
		return "ALT_DB_ERROR"
	case KindIO:
		return "IO_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// leaksInternals reports whether the kind's message must be replaced with a
// generic one before reaching the client.
func (k Kind) leaksInternals() bool {
	switch k {
	case KindConfig, KindDatabase, KindCache, KindMessageBroker,
		KindAltDB, KindIO, KindInternal, KindOther:
		return true
	default:
		return false
	}
}

// ToHTTPResponse converts any error into the canonical response body and its
// HTTP status. Non-taxonomy errors are treated as internal.
func ToHTTPResponse(err error) (int, HTTPResponse) {
	var e *Error
	if !errors.As(err, &e) {
		e = NewInternal("unexpected error", err)
	}

	status := e.Kind.Status()
	msg := e.Message
	switch {
	case e.Kind == KindRateLimitExceeded:
		msg = "Too many requests"
	case e.Kind.leaksInternals():
		msg = genericMessage
	}

	return status, HTTPResponse{
		Error:  msg,
		Code:   e.Kind.Code(),
		Status: uint16(status), //nolint:gosec // statuses are small constants
	}
}

// WriteStatus writes the canonical JSON body with an explicit status and
// code, for responses that fall outside the kind taxonomy (408, 413, 503).
func WriteStatus(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := HTTPResponse{
		Error:  message,
		Code:   code,
		Status: uint16(status), //nolint:gosec // statuses are small constants
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warnw("failed to encode error response", "error", err)
	}
}

// WriteHTTP writes err to w using the canonical JSON body. This is the only
// place that formats user-visible messages for internal failures; the full
// error is logged here at error level for 5xx and debug level otherwise.
func WriteHTTP(w http.ResponseWriter, err error) {
	status, body := ToHTTPResponse(err)

	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err, "status", status)
	} else {
		logger.Debugw("request rejected", "error", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		logger.Warnw("failed to encode error response", "error", encodeErr)
	}
}
