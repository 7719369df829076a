// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

import (
	"context"
	"database/sql"
	"fmt"

	// Register the cgo-free sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/acton-framework/acton/pkg/config"
)

// AltDBHandle wraps the embedded alternative database.
type AltDBHandle struct {
	DB *sql.DB
}

// HealthCheck pings the database.
func (h *AltDBHandle) HealthCheck(ctx context.Context) (ComponentHealth, error) {
	if err := h.DB.PingContext(ctx); err != nil {
		return ComponentHealth{}, fmt.Errorf("altdb ping failed: %w", err)
	}

	stats := h.DB.Stats()
	return ComponentHealth{
		Status:  StatusHealthy,
		Message: "connected",
		Active:  stats.InUse,
		Idle:    stats.Idle,
	}, nil
}

// Close closes the database.
func (h *AltDBHandle) Close(_ context.Context) error {
	return h.DB.Close()
}

// altDBConnector opens the sqlite file.
type altDBConnector struct {
	cfg config.AltDBConfig
}

// NewAltDBConnector creates a connector for the alternative database.
func NewAltDBConnector(cfg config.AltDBConfig) Connector {
	return &altDBConnector{cfg: cfg}
}

func (*altDBConnector) Kind() Kind {
	return KindAltDB
}

func (c *altDBConnector) Connect(ctx context.Context) (Handle, error) {
	// WAL keeps readers unblocked during the audit append stream.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", c.cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening altdb: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging altdb: %w", err)
	}

	return &AltDBHandle{DB: db}, nil
}
