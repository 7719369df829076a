// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/acton-framework/acton/pkg/config"
)

// NATSHandle wraps a NATS connection.
type NATSHandle struct {
	Conn *nats.Conn
}

// HealthCheck verifies the connection is alive with a round trip.
func (h *NATSHandle) HealthCheck(ctx context.Context) (ComponentHealth, error) {
	if !h.Conn.IsConnected() {
		return ComponentHealth{}, fmt.Errorf("nats connection is %s", h.Conn.Status())
	}
	if err := h.Conn.FlushWithContext(ctx); err != nil {
		return ComponentHealth{}, fmt.Errorf("nats flush failed: %w", err)
	}
	return ComponentHealth{Status: StatusHealthy, Message: "connected"}, nil
}

// Close drains and closes the connection.
func (h *NATSHandle) Close(_ context.Context) error {
	return h.Conn.Drain()
}

// natsConnector dials the message broker.
type natsConnector struct {
	cfg config.NATSConfig
}

// NewNATSConnector creates a connector for the message broker.
func NewNATSConnector(cfg config.NATSConfig) Connector {
	return &natsConnector{cfg: cfg}
}

func (*natsConnector) Kind() Kind {
	return KindNATS
}

func (c *natsConnector) Connect(_ context.Context) (Handle, error) {
	// Reconnection within an established session is handled by the client
	// itself; the agent only supervises initial connection establishment.
	conn, err := nats.Connect(c.cfg.URL,
		nats.Name(c.cfg.Name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSHandle{Conn: conn}, nil
}
