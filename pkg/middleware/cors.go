// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/acton-framework/acton/pkg/config"
)

// CORS returns the CORS layer for the configured mode, or nil when CORS is
// disabled. Restrictive mode allows only the configured origins and
// supports credentials; permissive mode allows any origin without them.
func CORS(cfg config.MiddlewareConfig) func(http.Handler) http.Handler {
	switch cfg.CORSMode {
	case config.CORSPermissive:
		return cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		})
	case config.CORSRestrictive:
		return cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		})
	default:
		return nil
	}
}
