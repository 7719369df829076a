// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Command acton-demo is a minimal service built on the framework. It wires
// a versioned API with one deprecated version and serves until terminated.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
	"github.com/acton-framework/acton/pkg/responses"
	"github.com/acton-framework/acton/pkg/routes"
	"github.com/acton-framework/acton/pkg/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorw("failed to load configuration", "error", err)
		os.Exit(1)
	}

	api := routes.NewBuilder().
		Base("/api").
		AddVersion("v2", func(r chi.Router) {
			r.Get("/greeting", handleGreeting)
		}).
		AddVersionDeprecated("v1", routes.Deprecation{
			Sunset: time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC),
			Link:   "https://example.com/docs/migrate-v2",
		}, func(r chi.Router) {
			r.Get("/greeting", handleGreeting)
		}).
		Build()

	svc, err := service.New().
		WithConfig(cfg).
		WithRoutes(api).
		Build()
	if err != nil {
		logger.Errorw("failed to build service", "error", err)
		os.Exit(1)
	}

	if err := svc.Serve(context.Background()); err != nil {
		logger.Errorw("service exited with error", "error", err)
		os.Exit(1)
	}
}

func handleGreeting(w http.ResponseWriter, _ *http.Request) {
	responses.Success(w, map[string]string{"greeting": "hello"})
}
