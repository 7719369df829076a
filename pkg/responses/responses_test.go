// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package responses

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreatedSetsLocation(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "42"}, "/api/v1/items/42")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/items/42", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	Created(rec, nil, "")
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestNoContentHasEmptyBody(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ValidationError(rec, []FieldError{
		{Field: "email", Message: "must be a valid address", Code: "format"},
		{Field: "age", Message: "must be positive"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors []FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)
	assert.Equal(t, "email", body.Errors[0].Field)
	assert.Equal(t, "format", body.Errors[0].Code)
}

func TestNewListResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       int
		perPage    int
		totalItems int64
		wantPages  int
		wantNext   bool
		wantPrev   bool
	}{
		{"first of many", 1, 10, 45, 5, true, false},
		{"middle page", 3, 10, 45, 5, true, true},
		{"last page", 5, 10, 45, 5, false, true},
		{"exact fit", 2, 10, 20, 2, false, true},
		{"empty set", 1, 10, 0, 0, false, false},
		{"clamped inputs", 0, 0, 3, 3, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := NewListResponse([]string{"a"}, tc.page, tc.perPage, tc.totalItems)
			assert.Equal(t, tc.wantPages, resp.Pagination.TotalPages)
			assert.Equal(t, tc.wantNext, resp.Pagination.HasNext)
			assert.Equal(t, tc.wantPrev, resp.Pagination.HasPrev)
			assert.Equal(t, tc.totalItems, resp.Pagination.TotalItems)
		})
	}
}
