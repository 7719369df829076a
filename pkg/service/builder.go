// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package service assembles a complete service from configuration, routes
// and optional application state. The builder moves through typed stages so
// a service cannot be built without configuration and routes.
package service

import (
	"net/http"

	"google.golang.org/grpc"

	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/health"
	"github.com/acton-framework/acton/pkg/logger"
	"github.com/acton-framework/acton/pkg/middleware"
	"github.com/acton-framework/acton/pkg/pools"
	"github.com/acton-framework/acton/pkg/routes"
)

// Builder is the entry stage.
type Builder struct{}

// New starts building a service.
func New() *Builder {
	return &Builder{}
}

// WithConfig fixes the configuration and moves to the config stage. The
// logger is initialized here so everything downstream logs consistently.
func (*Builder) WithConfig(cfg *config.Config) *ConfigStage {
	logger.Initialize(cfg.Service.Environment)
	return &ConfigStage{cfg: cfg}
}

// ConfigStage has configuration and still needs routes.
type ConfigStage struct {
	cfg *config.Config
}

// WithRoutes fixes the route tree and moves to the final stage.
func (s *ConfigStage) WithRoutes(r *routes.VersionedRoutes) *RoutesStage {
	return &RoutesStage{cfg: s.cfg, routes: r}
}

// RoutesStage accumulates optional pieces; Build becomes available here.
type RoutesStage struct {
	cfg    *config.Config
	routes *routes.VersionedRoutes

	state        any
	grpcRegister func(*grpc.Server)
	normalizer   middleware.PathNormalizer
	extra        []func(http.Handler) http.Handler
	skipPaths    []string
}

// WithState attaches opaque application state, retrievable from the built
// service.
func (s *RoutesStage) WithState(state any) *RoutesStage {
	s.state = state
	return s
}

// WithGRPC registers application gRPC services on the dual-protocol server.
func (s *RoutesStage) WithGRPC(register func(*grpc.Server)) *RoutesStage {
	s.grpcRegister = register
	return s
}

// WithNormalizer overrides path normalization for metrics and rate-limit
// keys.
func (s *RoutesStage) WithNormalizer(n middleware.PathNormalizer) *RoutesStage {
	s.normalizer = n
	return s
}

// WithMiddleware appends extra layers after the built-in pipeline.
func (s *RoutesStage) WithMiddleware(mw ...func(http.Handler) http.Handler) *RoutesStage {
	s.extra = append(s.extra, mw...)
	return s
}

// WithAuthSkipPaths exempts additional paths from token validation.
func (s *RoutesStage) WithAuthSkipPaths(paths ...string) *RoutesStage {
	s.skipPaths = append(s.skipPaths, paths...)
	return s
}

// Build validates the cross-cutting configuration and assembles the
// service. Pools are created but not connected; connection happens in
// Serve.
func (s *RoutesStage) Build() (*Service, error) {
	cfg := s.cfg

	if cfg.JWT != nil && cfg.PASETO != nil {
		return nil, errors.NewConfig("jwt and paseto blocks are mutually exclusive", nil)
	}

	var validator auth.TokenValidator
	var err error
	switch {
	case cfg.JWT != nil:
		validator, err = auth.NewJWTValidator(*cfg.JWT)
	case cfg.PASETO != nil:
		validator, err = auth.NewPasetoValidator(*cfg.PASETO)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Audit != nil && cfg.Audit.Enabled {
		switch cfg.Audit.Storage {
		case "database":
			if cfg.Database == nil {
				return nil, errors.NewConfig("audit storage requires a database block", nil)
			}
		case "altdb":
			if cfg.AltDB == nil {
				return nil, errors.NewConfig("audit storage requires an altdb block", nil)
			}
		}
	}
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled && cfg.Redis == nil {
		return nil, errors.NewConfig("rate limiting requires a redis block", nil)
	}
	if cfg.Lockout != nil && cfg.Lockout.Enabled && cfg.Redis == nil {
		return nil, errors.NewConfig("lockout requires a redis block", nil)
	}

	return &Service{
		cfg:          cfg,
		routes:       s.routes,
		state:        s.state,
		validator:    validator,
		grpcRegister: s.grpcRegister,
		normalizer:   s.normalizer,
		extra:        s.extra,
		skipPaths:    s.skipPaths,
		pools:        pools.NewSet(cfg),
		aggregator:   health.NewAggregator(),
	}, nil
}
