// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/config"
)

// RedisHandle wraps a go-redis client.
type RedisHandle struct {
	Client *redis.Client
}

// HealthCheck pings redis and reports pool utilisation.
func (h *RedisHandle) HealthCheck(ctx context.Context) (ComponentHealth, error) {
	if err := h.Client.Ping(ctx).Err(); err != nil {
		return ComponentHealth{}, fmt.Errorf("redis ping failed: %w", err)
	}

	stats := h.Client.PoolStats()
	return ComponentHealth{
		Status:  StatusHealthy,
		Message: "connected",
		Active:  int(stats.TotalConns - stats.IdleConns), //nolint:gosec // counts are small
		Idle:    int(stats.IdleConns),                    //nolint:gosec // counts are small
	}, nil
}

// Close closes the client.
func (h *RedisHandle) Close(_ context.Context) error {
	return h.Client.Close()
}

// redisConnector dials redis.
type redisConnector struct {
	cfg config.RedisConfig
}

// NewRedisConnector creates a connector for the key-value cache.
func NewRedisConnector(cfg config.RedisConfig) Connector {
	return &redisConnector{cfg: cfg}
}

func (*redisConnector) Kind() Kind {
	return KindRedis
}

func (c *redisConnector) Connect(ctx context.Context) (Handle, error) {
	opts, err := redis.ParseURL(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if c.cfg.PoolSize > 0 {
		opts.PoolSize = c.cfg.PoolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisHandle{Client: client}, nil
}
