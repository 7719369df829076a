// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package pools supervises the lifecycle of external connection pools. Each
// dependency (database, cache, broker, alternative database) is owned by one
// message-driven agent: the agent connects lazily or eagerly with
// exponential-backoff retry, broadcasts health transitions, and hands out a
// thread-safe handle for request-path checkout. Agents exist for lifecycle
// management only; user I/O goes directly through the handle.
package pools

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
)

// Handle is a connected, internally thread-safe client for one dependency.
type Handle interface {
	// HealthCheck probes the underlying client.
	HealthCheck(ctx context.Context) (ComponentHealth, error)

	// Close releases the client.
	Close(ctx context.Context) error
}

// Connector dials one dependency kind.
type Connector interface {
	Kind() Kind
	Connect(ctx context.Context) (Handle, error)
}

// PoolState describes what GetPool returned.
type PoolState int

// Pool states
const (
	// PoolAvailable means the handle is connected and usable.
	PoolAvailable PoolState = iota

	// PoolNotConnected means the pool has not been connected yet and the
	// agent has now started a connection attempt.
	PoolNotConnected

	// PoolConnecting means a connection attempt is already in flight.
	PoolConnecting
)

// PoolResponse is the reply to a GetPool request.
type PoolResponse struct {
	State  PoolState
	Handle Handle
}

// agent-internal lifecycle states
type lifecycle int

const (
	stateAbsent lifecycle = iota
	stateConnecting
	stateAvailable
	stateUnhealthy
)

type getPoolMsg struct{ reply chan PoolResponse }

type healthCheckMsg struct{ reply chan ComponentHealth }

type reconnectMsg struct{}

type connectResultMsg struct {
	handle Handle
	err    error
}

type shutdownMsg struct{ done chan struct{} }

// Agent supervises a single pool. All state transitions happen on the
// agent's goroutine; callers interact only through messages.
type Agent struct {
	kind      Kind
	settings  config.PoolSettings
	connector Connector
	mailbox   chan any
	updates   chan<- HealthUpdate

	// state below is owned by run()
	state  lifecycle
	handle Handle
	health ComponentHealth
}

// NewAgent creates an agent for the given connector. Broadcast updates are
// delivered on updates; sends never block (stale updates are dropped).
func NewAgent(connector Connector, settings config.PoolSettings, updates chan<- HealthUpdate) *Agent {
	return &Agent{
		kind:      connector.Kind(),
		settings:  settings,
		connector: connector,
		mailbox:   make(chan any, 32),
		updates:   updates,
		state:     stateAbsent,
	}
}

// Kind returns the dependency kind this agent supervises.
func (a *Agent) Kind() Kind {
	return a.kind
}

// Optional reports whether failures of this pool are non-fatal for readiness.
func (a *Agent) Optional() bool {
	return a.settings.Optional
}

// Start launches the agent goroutine. When eager (lazy_init unset) the first
// connection attempt begins immediately.
func (a *Agent) Start(ctx context.Context) {
	go a.run(ctx)
	if !a.settings.LazyInit {
		a.Reconnect()
	}
}

// GetPool requests the pool handle. The reply is Available with a handle,
// Connecting when an attempt is in flight, or NotConnected when the request
// itself triggered a lazy connection attempt.
func (a *Agent) GetPool(ctx context.Context) PoolResponse {
	reply := make(chan PoolResponse, 1)
	select {
	case a.mailbox <- getPoolMsg{reply: reply}:
	case <-ctx.Done():
		return PoolResponse{State: PoolNotConnected}
	}
	select {
	case resp := <-reply:
		return resp
	case <-ctx.Done():
		return PoolResponse{State: PoolNotConnected}
	}
}

// HealthCheck asks the agent to probe its pool and returns the result.
func (a *Agent) HealthCheck(ctx context.Context) ComponentHealth {
	reply := make(chan ComponentHealth, 1)
	select {
	case a.mailbox <- healthCheckMsg{reply: reply}:
	case <-ctx.Done():
		return ComponentHealth{Status: StatusUnhealthy, Message: "agent unavailable"}
	}
	select {
	case h := <-reply:
		return h
	case <-ctx.Done():
		return ComponentHealth{Status: StatusUnhealthy, Message: "agent unavailable"}
	}
}

// Reconnect forces a reconnection attempt. It never blocks.
func (a *Agent) Reconnect() {
	select {
	case a.mailbox <- reconnectMsg{}:
	default:
	}
}

// Shutdown closes the pool handle and stops the agent.
func (a *Agent) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	select {
	case a.mailbox <- shutdownMsg{done: done}:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// run is the serial message loop. It is the only goroutine that touches
// agent state.
func (a *Agent) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.closeHandle()
			return
		case msg := <-a.mailbox:
			switch m := msg.(type) {
			case getPoolMsg:
				m.reply <- a.handleGetPool(ctx)
			case healthCheckMsg:
				m.reply <- a.handleHealthCheck(ctx)
			case reconnectMsg:
				a.startConnect(ctx)
			case connectResultMsg:
				a.finishConnect(m)
			case shutdownMsg:
				a.closeHandle()
				close(m.done)
				return
			}
		}
	}
}

func (a *Agent) handleGetPool(ctx context.Context) PoolResponse {
	switch a.state {
	case stateAvailable:
		return PoolResponse{State: PoolAvailable, Handle: a.handle}
	case stateConnecting:
		return PoolResponse{State: PoolConnecting}
	default:
		a.startConnect(ctx)
		return PoolResponse{State: PoolNotConnected}
	}
}

func (a *Agent) handleHealthCheck(ctx context.Context) ComponentHealth {
	if a.state != stateAvailable {
		return a.health
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := a.handle.HealthCheck(checkCtx)
	if err != nil {
		logger.Warnw("pool health check failed", "kind", a.kind, "error", err)
		a.setHealth(ComponentHealth{Status: StatusUnhealthy, Message: err.Error()})
		a.state = stateUnhealthy
		// The cached handle may be dead; reconnect in the background.
		a.startConnect(ctx)
		return a.health
	}

	a.setHealth(health)
	return a.health
}

// startConnect transitions to Connecting and runs the retry loop off the
// agent goroutine so the mailbox stays responsive.
func (a *Agent) startConnect(ctx context.Context) {
	if a.state == stateConnecting {
		return
	}
	a.closeHandle()
	a.state = stateConnecting
	a.setHealth(ComponentHealth{Status: StatusConnecting, Message: "connecting"})

	go func() {
		handle, err := a.connectWithRetry(ctx)
		select {
		case a.mailbox <- connectResultMsg{handle: handle, err: err}:
		case <-ctx.Done():
			if handle != nil {
				_ = handle.Close(context.Background())
			}
		}
	}()
}

func (a *Agent) finishConnect(m connectResultMsg) {
	if m.err != nil {
		a.state = stateUnhealthy
		a.setHealth(ComponentHealth{Status: StatusUnhealthy, Message: m.err.Error()})
		if a.settings.Optional {
			logger.Warnw("optional pool failed to connect", "kind", a.kind, "error", m.err)
		} else {
			logger.Errorw("pool failed to connect", "kind", a.kind, "error", m.err)
		}
		return
	}

	a.handle = m.handle
	a.state = stateAvailable
	a.setHealth(ComponentHealth{Status: StatusHealthy, Message: "connected"})
	logger.Infow("pool connected", "kind", a.kind)
}

// connectWithRetry attempts up to max_retries+1 connections, sleeping
// base_delay * 2^(attempt-1) between attempts.
func (a *Agent) connectWithRetry(ctx context.Context) (Handle, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.settings.RetryBaseDelay()
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	operation := func() (Handle, error) {
		attempt++
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		handle, err := a.connector.Connect(connectCtx)
		if err != nil {
			logger.Debugw("pool connection attempt failed",
				"kind", a.kind, "attempt", attempt, "error", err)
			return nil, err
		}
		return handle, nil
	}

	handle, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(a.settings.MaxRetries+1))) //nolint:gosec // retries are small
	if err != nil {
		return nil, fmt.Errorf("connecting %s after %d attempts: %w", a.kind, attempt, err)
	}
	return handle, nil
}

func (a *Agent) setHealth(h ComponentHealth) {
	a.health = h
	update := HealthUpdate{Kind: a.kind, Health: h, Optional: a.settings.Optional}
	select {
	case a.updates <- update:
	default:
		// The aggregator keeps last-writer-wins state; dropping a stale
		// update under pressure is acceptable.
	}
}

func (a *Agent) closeHandle() {
	if a.handle == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.handle.Close(closeCtx); err != nil {
		logger.Warnw("failed to close pool handle", "kind", a.kind, "error", err)
	}
	a.handle = nil
}
