// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/config"
)

func TestShouldRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.AuditConfig
		path string
		want bool
	}{
		{
			name: "audit all records everything",
			cfg:  config.AuditConfig{AuditAllRequests: true},
			path: "/api/v1/users",
			want: true,
		},
		{
			name: "audit all honors exclusions",
			cfg:  config.AuditConfig{AuditAllRequests: true, ExcludedRoutes: []string{"/health"}},
			path: "/health",
			want: false,
		},
		{
			name: "selective records matching route",
			cfg:  config.AuditConfig{AuditedRoutes: []string{"/api/v1/admin/**"}},
			path: "/api/v1/admin/keys",
			want: true,
		},
		{
			name: "selective skips unmatched route",
			cfg:  config.AuditConfig{AuditedRoutes: []string{"/api/v1/admin/**"}},
			path: "/api/v1/users",
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := shouldRecord(context.Background(), tc.cfg, tc.path)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestShouldRecordRequiredAnnotationWins(t *testing.T) {
	t.Parallel()

	cfg := config.AuditConfig{ExcludedRoutes: []string{"/internal/**"}}

	var recorded bool
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		recorded = shouldRecord(r.Context(), cfg, r.URL.Path)
	})

	req := httptest.NewRequest(http.MethodGet, "/internal/debug", nil)
	Required(inner).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, recorded)
}

func TestMiddlewareRecordsEvent(t *testing.T) {
	t.Parallel()

	storage := &memStorage{}
	ctx := context.Background()
	cfg := testAuditConfig()
	cfg.AuditAllRequests = true

	auditor, err := NewAuditor(ctx, "orders", cfg, storage, false)
	require.NoError(t, err)

	handler := Middleware(auditor, cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.RemoteAddr = "203.0.113.9:4455"
	req.Header.Set("User-Agent", "test-agent")
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Subject: "user:alice", ExpiresAt: time.Now().Add(time.Hour).Unix()}))

	handler.ServeHTTP(httptest.NewRecorder(), req)
	auditor.Close(ctx)

	events := storage.stored()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, KindHTTPRequest, e.Kind)
	assert.Equal(t, SeverityWarning, e.Severity)
	assert.Equal(t, http.MethodPost, e.Method)
	assert.Equal(t, "/api/v1/orders", e.Path)
	assert.Equal(t, http.StatusTeapot, e.StatusCode)
	assert.Equal(t, "203.0.113.9", e.Source.IP)
	assert.Equal(t, "test-agent", e.Source.UserAgent)
	assert.Equal(t, "user:alice", e.Source.Subject)
	assert.NotEmpty(t, e.Hash)
}

func TestAuthEventsAdapter(t *testing.T) {
	t.Parallel()

	storage := &memStorage{}
	ctx := context.Background()
	cfg := testAuditConfig()
	cfg.AuditAuthEvents = true

	auditor, err := NewAuditor(ctx, "orders", cfg, storage, false)
	require.NoError(t, err)

	recorder := AuthEvents(auditor, cfg)
	require.NotNil(t, recorder)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	recorder(req, auth.EventLoginFailed, nil)
	recorder(req, auth.EventTokenRevoked, &auth.Claims{Subject: "user:alice"})
	auditor.Close(ctx)

	events := storage.stored()
	require.Len(t, events, 2)
	assert.Equal(t, KindAuthLoginFailed, events[0].Kind)
	assert.Equal(t, SeverityWarning, events[0].Severity)
	assert.Equal(t, KindAuthTokenRevoked, events[1].Kind)
	assert.Equal(t, "user:alice", events[1].Source.Subject)
}

func TestAuthEventsDisabled(t *testing.T) {
	t.Parallel()

	cfg := testAuditConfig()
	cfg.AuditAuthEvents = false
	assert.Nil(t, AuthEvents(nil, cfg))
}
