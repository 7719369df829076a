// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/v1/users", "/api/v1/users", true},
		{"/api/v1/users", "/api/v1/orders", false},

		{"/api/v1/admin/*", "/api/v1/admin/settings", true},
		{"/api/v1/admin/*", "/api/v1/admin/settings/deep", true},
		{"/api/v1/admin/*", "/api/v1/admin", false},

		{"/api/v1/admin/**", "/api/v1/admin", true},
		{"/api/v1/admin/**", "/api/v1/admin/settings", true},
		{"/api/v1/admin/**", "/api/v1/administrator", false},

		{"/api/*/users", "/api/v1/users", true},
		{"/api/*/users", "/api/v2/users", true},
		{"/api/*/users", "/api/v1/orders", false},
		{"/api/*/users", "/api/v1/extra/users", false},

		{"/health", "/health/live", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MatchRoute(tc.pattern, tc.path),
			"pattern %q path %q", tc.pattern, tc.path)
	}
}

func TestMatchAny(t *testing.T) {
	t.Parallel()

	patterns := []string{"/health", "/metrics", "/api/v1/admin/**"}
	assert.True(t, MatchAny(patterns, "/metrics"))
	assert.True(t, MatchAny(patterns, "/api/v1/admin/keys"))
	assert.False(t, MatchAny(patterns, "/api/v1/users"))
	assert.False(t, MatchAny(nil, "/anything"))
}
