// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acton-framework/acton/pkg/config"
)

// DatabaseHandle wraps a pgx connection pool.
type DatabaseHandle struct {
	Pool *pgxpool.Pool
}

// HealthCheck pings the database and reports pool utilisation.
func (h *DatabaseHandle) HealthCheck(ctx context.Context) (ComponentHealth, error) {
	if err := h.Pool.Ping(ctx); err != nil {
		return ComponentHealth{}, fmt.Errorf("database ping failed: %w", err)
	}

	stat := h.Pool.Stat()
	return ComponentHealth{
		Status:  StatusHealthy,
		Message: "connected",
		Active:  int(stat.AcquiredConns()),
		Idle:    int(stat.IdleConns()),
	}, nil
}

// Close closes the pool.
func (h *DatabaseHandle) Close(_ context.Context) error {
	h.Pool.Close()
	return nil
}

// databaseConnector dials postgres via pgxpool.
type databaseConnector struct {
	cfg config.DatabaseConfig
}

// NewDatabaseConnector creates a connector for the relational database.
func NewDatabaseConnector(cfg config.DatabaseConfig) Connector {
	return &databaseConnector{cfg: cfg}
}

func (*databaseConnector) Kind() Kind {
	return KindDatabase
}

func (c *databaseConnector) Connect(ctx context.Context) (Handle, error) {
	poolCfg, err := pgxpool.ParseConfig(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if c.cfg.MaxConns > 0 {
		poolCfg.MaxConns = c.cfg.MaxConns
	}
	if c.cfg.MinConns > 0 {
		poolCfg.MinConns = c.cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DatabaseHandle{Pool: pool}, nil
}
