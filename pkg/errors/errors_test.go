// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfAndIsKind(t *testing.T) {
	t.Parallel()

	err := NewDatabase("connect failed", fmt.Errorf("dial tcp: refused"))
	assert.Equal(t, KindDatabase, KindOf(err))
	assert.True(t, IsKind(err, KindDatabase))
	assert.False(t, IsKind(err, KindCache))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, KindDatabase, KindOf(wrapped))

	assert.Equal(t, KindOther, KindOf(fmt.Errorf("plain")))
}

func TestToHTTPResponseStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unauthorized", err: NewUnauthorized("no token", nil), status: 401, code: "UNAUTHORIZED"},
		{name: "jwt", err: NewJWT("bad signature", nil), status: 401, code: "INVALID_TOKEN"},
		{name: "paseto", err: NewPaseto("bad token", nil), status: 401, code: "INVALID_TOKEN"},
		{name: "forbidden", err: NewForbidden("nope", nil), status: 403, code: "FORBIDDEN"},
		{name: "not found", err: NewNotFound("gone", nil), status: 404, code: "NOT_FOUND"},
		{name: "validation", err: NewValidation("bad field", nil), status: 422, code: "VALIDATION_ERROR"},
		{name: "rate limit", err: NewRateLimitExceeded("slow down", nil), status: 429, code: "RATE_LIMIT_EXCEEDED"},
		{name: "database", err: NewDatabase("boom", nil), status: 500, code: "DATABASE_ERROR"},
		{name: "non-taxonomy", err: fmt.Errorf("plain"), status: 500, code: "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, body := ToHTTPResponse(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, uint16(tc.status), body.Status)
		})
	}
}

func TestInternalMessagesNeverLeak(t *testing.T) {
	t.Parallel()

	_, body := ToHTTPResponse(NewDatabase("pgx: connect to 10.0.0.5 failed", nil))
	assert.Equal(t, "An internal error occurred", body.Error)

	_, body = ToHTTPResponse(NewRateLimitExceeded("limit for user:alice exceeded", nil))
	assert.Equal(t, "Too many requests", body.Error)

	_, body = ToHTTPResponse(NewNotFound("Order not found", nil))
	assert.Equal(t, "Order not found", body.Error)
}

func TestWriteHTTP(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteHTTP(rec, NewUnauthorized("Missing bearer token", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Missing bearer token", body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, uint16(401), body.Status)
}

func TestWriteStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteStatus(rec, http.StatusRequestTimeout, "Request timed out", "REQUEST_TIMEOUT")

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)

	var body HTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REQUEST_TIMEOUT", body.Code)
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("root cause")
	err := NewIO("write failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "write failed")
	assert.Contains(t, err.Error(), "root cause")
}
