// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package health aggregates pool health broadcasts into a cached overall
// answer. The aggregator performs no I/O of its own; it only reflects the
// last update received per dependency kind.
package health

import (
	"context"
	"sync"

	"github.com/acton-framework/acton/pkg/pools"
)

// Aggregated is the cached answer to an overall-health query.
type Aggregated struct {
	OverallHealthy bool                                  `json:"overall_healthy"`
	Components     map[pools.Kind]pools.ComponentHealth `json:"components"`
}

// Aggregator subscribes to pool health updates and maintains the mapping
// kind to component health. Queries are answered from cache.
type Aggregator struct {
	mu         sync.RWMutex
	components map[pools.Kind]pools.ComponentHealth
	optional   map[pools.Kind]bool
}

// NewAggregator creates an empty aggregator. With no pools registered the
// overall answer is healthy.
func NewAggregator() *Aggregator {
	return &Aggregator{
		components: make(map[pools.Kind]pools.ComponentHealth),
		optional:   make(map[pools.Kind]bool),
	}
}

// Run consumes updates until the channel closes or the context ends.
// Last writer wins per kind.
func (a *Aggregator) Run(ctx context.Context, updates <-chan pools.HealthUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.apply(update)
		}
	}
}

func (a *Aggregator) apply(update pools.HealthUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components[update.Kind] = update.Health
	a.optional[update.Kind] = update.Optional
}

// Aggregated returns the cached overall health. Overall is healthy when
// every known component is healthy, or when no component is known.
func (a *Aggregator) Aggregated() Aggregated {
	a.mu.RLock()
	defer a.mu.RUnlock()

	components := make(map[pools.Kind]pools.ComponentHealth, len(a.components))
	overall := true
	for kind, h := range a.components {
		components[kind] = h
		if h.Status != pools.StatusHealthy {
			overall = false
		}
	}

	return Aggregated{OverallHealthy: overall, Components: components}
}

// RequiredHealthy reports whether every non-optional component is healthy.
// Optional pools never demote readiness.
func (a *Aggregator) RequiredHealthy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for kind, h := range a.components {
		if a.optional[kind] {
			continue
		}
		if h.Status != pools.StatusHealthy {
			return false
		}
	}
	return true
}
