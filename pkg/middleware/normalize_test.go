// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", ""},
		{"/api/v1/users", "/api/v1/users"},
		{"/users/42", "/users/{n}"},
		{"/users/42/orders/7", "/users/{n}/orders/{n}"},
		{"/items/0190cafe-0000-7abc-8def-001122334455", "/items/{id}"},
		{"/items/0190CAFE-0000-7ABC-8DEF-001122334455", "/items/{id}"},
		// Undashed hex identifiers collapse too.
		{"/blobs/deadbeefcafe1234", "/blobs/{id}"},
		{"/blobs/dead-beef", "/blobs/{id}"},
		// Hex shorter than eight characters is left alone.
		{"/blobs/dead", "/blobs/dead"},
		// Long numerics are numeric, not hex.
		{"/users/12345678", "/users/{n}"},
		{"/items/not-a-uuid-message", "/items/not-a-uuid-message"},
		{"/v2/things", "/v2/things"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizePath(tc.in), "input %q", tc.in)
	}
}
