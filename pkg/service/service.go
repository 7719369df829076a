// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/acton-framework/acton/pkg/audit"
	"github.com/acton-framework/acton/pkg/auth"
	"github.com/acton-framework/acton/pkg/auth/lockout"
	"github.com/acton-framework/acton/pkg/auth/revocation"
	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/health"
	"github.com/acton-framework/acton/pkg/logger"
	"github.com/acton-framework/acton/pkg/middleware"
	"github.com/acton-framework/acton/pkg/pools"
	"github.com/acton-framework/acton/pkg/routes"
	"github.com/acton-framework/acton/pkg/server"
	"github.com/acton-framework/acton/pkg/telemetry"
)

// poolWarmupTimeout bounds how long Serve waits for eager pools before
// wiring the components that depend on them. Lazy and optional pools are
// not waited for.
const poolWarmupTimeout = 30 * time.Second

// retentionInterval is how often the audit retention sweep runs.
const retentionInterval = 24 * time.Hour

// revocationSweepInterval is how often expired revocations are swept from
// memory.
const revocationSweepInterval = time.Minute

// Service is a fully assembled service, ready to Serve.
type Service struct {
	cfg    *config.Config
	routes *routes.VersionedRoutes
	state  any

	validator    auth.TokenValidator
	grpcRegister func(*grpc.Server)
	normalizer   middleware.PathNormalizer
	extra        []func(http.Handler) http.Handler
	skipPaths    []string

	pools      *pools.Set
	aggregator *health.Aggregator

	// Wired during Serve; read through atomics so embedders can observe
	// them from other goroutines.
	auditor    atomic.Pointer[audit.Auditor]
	revocation atomic.Pointer[revocation.Store]
}

// State returns the application state attached at build time.
func (s *Service) State() any {
	return s.state
}

// Pools returns the connection pool set for handler use.
func (s *Service) Pools() *pools.Set {
	return s.pools
}

// Revocation returns the token revocation store, nil until Serve has wired
// authentication.
func (s *Service) Revocation() *revocation.Store {
	return s.revocation.Load()
}

// Auditor returns the audit agent, nil when auditing is disabled or Serve
// has not run yet.
func (s *Service) Auditor() *audit.Auditor {
	return s.auditor.Load()
}

// Serve connects pools, wires the remaining components, and serves until
// ctx is cancelled or a termination signal arrives. It blocks for the
// lifetime of the service.
func (s *Service) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.pools.Start(ctx)
	go s.aggregator.Run(ctx, s.pools.Updates())

	redisClient := s.warmRedis(ctx)

	if err := s.wireAuth(ctx, redisClient); err != nil {
		return err
	}
	auditMW, err := s.wireAudit(ctx)
	if err != nil {
		return err
	}
	defer s.closeAudit()

	handler := s.buildHandler(redisClient, auditMW)

	opts := []server.Option{
		server.WithReadiness(s.aggregator.RequiredHealthy),
	}
	if s.cfg.TLS != nil {
		opts = append(opts, server.WithTLS(s.cfg.TLS))
	}
	if s.cfg.Service.GRPC.Enabled {
		opts = append(opts, server.WithGRPC(s.grpcRegister))
	}

	srv := server.New(s.cfg.Service, handler, opts...)

	s.recordLifecycle(audit.KindServiceStart)
	defer s.recordLifecycle(audit.KindServiceStop)

	err = srv.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.pools.Shutdown(shutdownCtx)

	return err
}

// warmRedis blocks until the redis pool connects, for up to the warmup
// timeout. Lazy pools are not waited for. When the warmup window elapses
// without a connection the redis-backed components start degraded.
func (s *Service) warmRedis(ctx context.Context) *redis.Client {
	if s.cfg.Redis == nil {
		return nil
	}
	if s.cfg.Redis.LazyInit {
		return nil
	}

	warmCtx, cancel := context.WithTimeout(ctx, poolWarmupTimeout)
	defer cancel()

	client, err := s.pools.Redis(warmCtx)
	if err != nil {
		logger.Warnw("redis not ready at startup", "error", err)
		return nil
	}
	return client
}

// wireAuth builds the revocation store once redis is known.
func (s *Service) wireAuth(ctx context.Context, redisClient *redis.Client) error {
	if s.validator == nil {
		return nil
	}

	store := revocation.New(redisClient)
	if err := store.Rehydrate(ctx); err != nil {
		logger.Warnw("revocation rehydration failed, starting with empty cache", "error", err)
	}
	store.StartSweeper(ctx, revocationSweepInterval)
	s.revocation.Store(store)
	return nil
}

// wireAudit builds storage, the sealing agent and the request middleware.
func (s *Service) wireAudit(ctx context.Context) (func(http.Handler) http.Handler, error) {
	cfg := s.cfg.Audit
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	// The storage pool may still be dialing; give it the same warmup grace
	// as redis before declaring startup failed.
	warmCtx, cancel := context.WithTimeout(ctx, poolWarmupTimeout)
	defer cancel()

	var storage audit.Storage
	var err error
	switch cfg.Storage {
	case "database":
		pool, poolErr := s.pools.Database(warmCtx)
		if poolErr != nil {
			return nil, poolErr
		}
		storage, err = audit.NewPostgresStorage(ctx, pool)
	case "altdb":
		db, poolErr := s.pools.AltDB(warmCtx)
		if poolErr != nil {
			return nil, poolErr
		}
		storage, err = audit.NewSQLiteStorage(ctx, db)
	}
	if err != nil {
		return nil, err
	}

	auditor, err := audit.NewAuditor(ctx, s.cfg.Service.Name, *cfg, storage, s.cfg.OTLP != nil && s.cfg.OTLP.Enabled)
	if err != nil {
		return nil, err
	}
	s.auditor.Store(auditor)

	if cfg.RetentionDays > 0 && storage != nil {
		go s.runRetention(ctx, storage)
	}

	return audit.Middleware(auditor, *cfg), nil
}

func (s *Service) closeAudit() {
	auditor := s.auditor.Load()
	if auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	auditor.Close(ctx)
}

func (s *Service) runRetention(ctx context.Context, storage audit.Storage) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := audit.RunRetention(ctx, storage, s.cfg.Audit.ArchiveDir, s.cfg.Audit.RetentionDays); err != nil {
				logger.Errorw("audit retention sweep failed", "error", err)
			}
		}
	}
}

// recordLifecycle emits a service start or stop audit event.
func (s *Service) recordLifecycle(kind audit.Kind) {
	auditor := s.auditor.Load()
	if auditor == nil {
		return
	}
	auditor.Record(audit.NewEvent(kind, audit.SeverityNotice))
}

// buildHandler assembles the full request pipeline around the route tree.
// Resilience is applied after auth so breaker and bulkhead capacity is only
// spent on authenticated traffic.
func (s *Service) buildHandler(redisClient *redis.Client, auditMW func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	opts := middleware.Options{
		Redis:      redisClient,
		RateLimit:  s.cfg.RateLimit,
		Normalizer: s.normalizer,
		TLSActive:  s.cfg.TLS != nil,
	}
	if s.cfg.OTLP != nil && s.cfg.OTLP.Enabled {
		opts.Tracing = telemetry.NewHTTPMiddleware(s.cfg.Service.Name).Handler
	}
	for _, layer := range middleware.Chain(s.cfg.Service, s.cfg.Middleware, opts) {
		r.Use(layer)
	}

	if auditMW != nil {
		r.Use(auditMW)
	}
	if s.validator != nil {
		var events auth.EventRecorder
		if auditor := s.auditor.Load(); auditor != nil && s.cfg.Audit != nil {
			events = audit.AuthEvents(auditor, *s.cfg.Audit)
		}
		r.Use(auth.Middleware(auth.MiddlewareOptions{
			Validator:  s.validator,
			Revocation: s.revocation.Load(),
			SkipPaths:  s.skipPaths,
			Events:     events,
		}))
	}
	if s.cfg.Lockout != nil && s.cfg.Lockout.Enabled && redisClient != nil {
		svc := lockout.NewService(redisClient, *s.cfg.Lockout)
		r.Use(lockout.Middleware(svc, *s.cfg.Lockout))
	}
	if c := s.cfg.Middleware.Resilience; c != nil && c.Enabled {
		r.Use(middleware.NewResilience(*c).Middleware)
	}
	for _, layer := range s.extra {
		r.Use(layer)
	}

	if m := s.cfg.Middleware.Metrics; m != nil && m.Enabled {
		r.Handle(m.Path, middleware.MetricsHandler())
	}

	s.routes.AttachWithReadiness(r, s.aggregator.RequiredHealthy)
	return r
}
