// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package pools

// Kind identifies a pool dependency.
type Kind string

// Pool kinds
const (
	// KindDatabase is the relational database pool.
	KindDatabase Kind = "database"

	// KindRedis is the key-value cache pool.
	KindRedis Kind = "redis"

	// KindNATS is the message broker client.
	KindNATS Kind = "nats"

	// KindAltDB is the embedded alternative database.
	KindAltDB Kind = "altdb"
)

// Status is the health status of a single pool.
type Status string

// Pool statuses
const (
	StatusHealthy    Status = "healthy"
	StatusDegraded   Status = "degraded"
	StatusUnhealthy  Status = "unhealthy"
	StatusConnecting Status = "connecting"
)

// ComponentHealth describes the health of one pool at a point in time.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	// Connection counts where the driver exposes them.
	Active int `json:"active,omitempty"`
	Idle   int `json:"idle,omitempty"`
}

// HealthUpdate is broadcast by an agent whenever its pool changes state.
type HealthUpdate struct {
	Kind     Kind
	Health   ComponentHealth
	Optional bool
}
