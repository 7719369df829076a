// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package server runs the listening side of a service: HTTP, optionally
// gRPC on the same socket or a separate port, TLS termination and graceful
// drain on shutdown.
package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

// drainTimeout bounds graceful shutdown. Connections still open after this
// are closed hard.
const drainTimeout = 30 * time.Second

// ReadinessProbe reports whether the service should accept traffic. The
// gRPC health service mirrors it.
type ReadinessProbe func() bool

// Server serves HTTP and optionally gRPC for one service.
type Server struct {
	cfg     config.ServiceConfig
	tlsCfg  *config.TLSConfig
	handler http.Handler

	grpcServer *grpc.Server
	grpcHealth *health.Server
	ready      ReadinessProbe
}

// Option configures optional server behaviour.
type Option func(*Server)

// WithGRPC enables the gRPC half. register is called with the server so the
// embedding service can add its own services; the standard health service
// is always registered.
func WithGRPC(register func(*grpc.Server)) Option {
	return func(s *Server) {
		s.grpcServer = grpc.NewServer()
		s.grpcHealth = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)
		if register != nil {
			register(s.grpcServer)
		}
	}
}

// WithTLS terminates TLS on the listener with certificates from disk.
func WithTLS(cfg *config.TLSConfig) Option {
	return func(s *Server) {
		s.tlsCfg = cfg
	}
}

// WithReadiness wires the readiness probe into the gRPC health service.
func WithReadiness(probe ReadinessProbe) Option {
	return func(s *Server) {
		s.ready = probe
	}
}

// New builds a server for the configured service.
func New(cfg config.ServiceConfig, handler http.Handler, opts ...Option) *Server {
	s := &Server{cfg: cfg, handler: handler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TLSActive reports whether the server terminates TLS.
func (s *Server) TLSActive() bool {
	return s.tlsCfg != nil
}

// Serve listens and serves until ctx is cancelled, then drains gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := s.listen(addr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	switch {
	case s.grpcServer == nil:
		logger.Infow("listening", "addr", addr, "tls", s.TLSActive())
		g.Go(func() error { return ignoreClosed(httpServer.Serve(ln)) })

	case s.cfg.GRPC.UseSeparatePort:
		grpcAddr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.GRPC.Port))
		grpcLn, err := s.listen(grpcAddr)
		if err != nil {
			_ = ln.Close()
			return err
		}
		logger.Infow("listening", "http_addr", addr, "grpc_addr", grpcAddr, "tls", s.TLSActive())
		g.Go(func() error { return ignoreClosed(httpServer.Serve(ln)) })
		g.Go(func() error { return ignoreClosed(s.grpcServer.Serve(grpcLn)) })

	default:
		// Single socket: split by protocol. gRPC is HTTP/2 with the grpc
		// content type; everything else is plain HTTP.
		mux := cmux.New(ln)
		grpcLn := mux.MatchWithWriters(
			cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
		httpLn := mux.Match(cmux.Any())

		logger.Infow("listening dual-protocol", "addr", addr, "tls", s.TLSActive())
		g.Go(func() error { return ignoreClosed(s.grpcServer.Serve(grpcLn)) })
		g.Go(func() error { return ignoreClosed(httpServer.Serve(httpLn)) })
		g.Go(func() error { return ignoreClosed(mux.Serve()) })
	}

	if s.grpcHealth != nil {
		g.Go(func() error {
			s.runHealthMirror(gctx)
			return nil
		})
	}

	<-gctx.Done()
	logger.Infow("shutting down", "service", s.cfg.Name)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if s.grpcHealth != nil {
		s.grpcHealth.Shutdown()
	}
	if err := httpServer.Shutdown(drainCtx); err != nil {
		logger.Warnw("http drain incomplete", "error", err)
	}
	if s.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-drainCtx.Done():
			s.grpcServer.Stop()
		}
	}

	_ = g.Wait()
	return nil
}

// listen opens the socket, wrapping it for TLS when configured.
func (s *Server) listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.NewIO(fmt.Sprintf("listening on %s", addr), err)
	}
	if s.tlsCfg == nil {
		return ln, nil
	}

	cert, err := tls.LoadX509KeyPair(s.tlsCfg.CertFile, s.tlsCfg.KeyFile)
	if err != nil {
		_ = ln.Close()
		return nil, errors.NewConfig("loading TLS key pair", err)
	}
	return tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}), nil
}

// runHealthMirror keeps the gRPC health status in sync with the readiness
// probe.
func (s *Server) runHealthMirror(ctx context.Context) {
	probe := s.ready
	if probe == nil {
		s.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if probe() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		s.grpcHealth.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func ignoreClosed(err error) error {
	switch {
	case err == nil,
		stderrors.Is(err, http.ErrServerClosed),
		stderrors.Is(err, net.ErrClosed),
		stderrors.Is(err, cmux.ErrServerClosed),
		stderrors.Is(err, grpc.ErrServerStopped):
		return nil
	}
	return err
}
