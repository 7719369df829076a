// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
)

// Set holds one agent per configured dependency and the shared broadcast
// channel their health updates flow through.
type Set struct {
	mu      sync.RWMutex
	agents  map[Kind]*Agent
	updates chan HealthUpdate
}

// NewSet creates an agent for every dependency present in the configuration.
// Nothing is connected until Start.
func NewSet(cfg *config.Config) *Set {
	s := &Set{
		agents:  make(map[Kind]*Agent),
		updates: make(chan HealthUpdate, 64),
	}

	if cfg.Database != nil {
		s.register(NewAgent(NewDatabaseConnector(*cfg.Database), cfg.Database.PoolSettings, s.updates))
	}
	if cfg.Redis != nil {
		s.register(NewAgent(NewRedisConnector(*cfg.Redis), cfg.Redis.PoolSettings, s.updates))
	}
	if cfg.NATS != nil {
		s.register(NewAgent(NewNATSConnector(*cfg.NATS), cfg.NATS.PoolSettings, s.updates))
	}
	if cfg.AltDB != nil {
		s.register(NewAgent(NewAltDBConnector(*cfg.AltDB), cfg.AltDB.PoolSettings, s.updates))
	}

	return s
}

// Register adds an agent for a custom connector. Used by tests and by
// embedders with additional dependencies.
func (s *Set) Register(a *Agent) {
	s.register(a)
}

func (s *Set) register(a *Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.Kind()] = a
}

// Start launches every agent; eager agents begin connecting immediately.
func (s *Set) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		a.Start(ctx)
	}
}

// Updates returns the health broadcast channel for the aggregator.
func (s *Set) Updates() <-chan HealthUpdate {
	return s.updates
}

// Agent returns the agent for a kind, or nil if not configured.
func (s *Set) Agent(kind Kind) *Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[kind]
}

// Kinds returns the configured dependency kinds.
func (s *Set) Kinds() []Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kinds := make([]Kind, 0, len(s.agents))
	for k := range s.agents {
		kinds = append(kinds, k)
	}
	return kinds
}

// checkoutPollInterval paces the wait for a pool that is still connecting.
const checkoutPollInterval = 50 * time.Millisecond

// handleFor checks out the handle for a kind. A first GetPool triggers lazy
// connection; while the agent is connecting the checkout polls until the
// handle is available or ctx expires, so callers with a bounded context get
// the handle as soon as the dial completes.
func (s *Set) handleFor(ctx context.Context, kind Kind) (Handle, error) {
	agent := s.Agent(kind)
	if agent == nil {
		return nil, fmt.Errorf("pool %s is not configured", kind)
	}

	ticker := time.NewTicker(checkoutPollInterval)
	defer ticker.Stop()

	for {
		resp := agent.GetPool(ctx)
		if resp.State == PoolAvailable {
			return resp.Handle, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pool %s is not connected: %w", kind, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Database checks out the relational database pool.
func (s *Set) Database(ctx context.Context) (*pgxpool.Pool, error) {
	h, err := s.handleFor(ctx, KindDatabase)
	if err != nil {
		return nil, errors.NewDatabase("database pool unavailable", err)
	}
	return h.(*DatabaseHandle).Pool, nil
}

// Redis checks out the cache client.
func (s *Set) Redis(ctx context.Context) (*redis.Client, error) {
	h, err := s.handleFor(ctx, KindRedis)
	if err != nil {
		return nil, errors.NewCache("redis pool unavailable", err)
	}
	return h.(*RedisHandle).Client, nil
}

// NATS checks out the broker connection.
func (s *Set) NATS(ctx context.Context) (*nats.Conn, error) {
	h, err := s.handleFor(ctx, KindNATS)
	if err != nil {
		return nil, errors.NewMessageBroker("nats connection unavailable", err)
	}
	return h.(*NATSHandle).Conn, nil
}

// AltDB checks out the alternative database.
func (s *Set) AltDB(ctx context.Context) (*sql.DB, error) {
	h, err := s.handleFor(ctx, KindAltDB)
	if err != nil {
		return nil, errors.NewAltDB("altdb unavailable", err)
	}
	return h.(*AltDBHandle).DB, nil
}

// Shutdown closes every pool handle.
func (s *Set) Shutdown(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		a.Shutdown(ctx)
	}
}
