// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acton-framework/acton/pkg/pools"
)

func TestEmptyAggregatorIsHealthy(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	assert.True(t, a.Aggregated().OverallHealthy)
	assert.True(t, a.RequiredHealthy())
}

func TestAggregatorTracksLastUpdatePerKind(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	updates := make(chan pools.HealthUpdate, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, updates)

	updates <- pools.HealthUpdate{
		Kind:   pools.KindDatabase,
		Health: pools.ComponentHealth{Status: pools.StatusConnecting},
	}
	updates <- pools.HealthUpdate{
		Kind:   pools.KindDatabase,
		Health: pools.ComponentHealth{Status: pools.StatusHealthy},
	}

	require.Eventually(t, func() bool {
		agg := a.Aggregated()
		return agg.Components[pools.KindDatabase].Status == pools.StatusHealthy
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, a.Aggregated().OverallHealthy)
}

func TestUnhealthyRequiredPoolDemotesReadiness(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.apply(pools.HealthUpdate{
		Kind:   pools.KindDatabase,
		Health: pools.ComponentHealth{Status: pools.StatusUnhealthy, Message: "connection refused"},
	})
	a.apply(pools.HealthUpdate{
		Kind:   pools.KindRedis,
		Health: pools.ComponentHealth{Status: pools.StatusHealthy},
	})

	assert.False(t, a.Aggregated().OverallHealthy)
	assert.False(t, a.RequiredHealthy())
}

func TestOptionalPoolNeverDemotesReadiness(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.apply(pools.HealthUpdate{
		Kind:     pools.KindNATS,
		Health:   pools.ComponentHealth{Status: pools.StatusUnhealthy, Message: "connection refused"},
		Optional: true,
	})
	a.apply(pools.HealthUpdate{
		Kind:   pools.KindDatabase,
		Health: pools.ComponentHealth{Status: pools.StatusHealthy},
	})

	// Overall reflects every component; readiness only the required ones.
	assert.False(t, a.Aggregated().OverallHealthy)
	assert.True(t, a.RequiredHealthy())
}
