// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acton_circuit_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	resilienceRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acton_resilience_rejections_total",
		Help: "Requests rejected by the breaker or the bulkhead.",
	}, []string{"reason"})
)

// Resilience wraps handlers in a circuit breaker and a bulkhead. The
// breaker opens when the failure rate over the rolling window crosses the
// threshold; the bulkhead bounds concurrent in-flight requests. Rejections
// answer 503 with Retry-After.
type Resilience struct {
	cfg      config.ResilienceConfig
	breaker  *gobreaker.CircuitBreaker
	bulkhead *semaphore.Weighted
}

// NewResilience builds the breaker and bulkhead from the configuration.
func NewResilience(cfg config.ResilienceConfig) *Resilience {
	settings := gobreaker.Settings{
		Name:        "http",
		MaxRequests: uint32(cfg.HalfOpenMaxRequests), //nolint:gosec // validated small
		Timeout:     time.Duration(cfg.OpenTimeoutSecs) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) { //nolint:gosec // validated small
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.FailureRateThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateGauge(to))
			logger.Warnw("circuit breaker state change",
				"name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Resilience{
		cfg:      cfg,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		bulkhead: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Middleware applies the bulkhead first, then runs the handler through the
// breaker. A 5xx response counts as a breaker failure.
func (re *Resilience) Middleware(next http.Handler) http.Handler {
	maxWait := time.Duration(re.cfg.MaxWaitMS) * time.Millisecond

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acquireCtx, cancel := context.WithTimeout(r.Context(), maxWait)
		err := re.bulkhead.Acquire(acquireCtx, 1)
		cancel()
		if err != nil {
			resilienceRejections.WithLabelValues("bulkhead").Inc()
			writeUnavailable(w, "Service is at capacity")
			return
		}
		defer re.bulkhead.Release(1)

		_, err = re.breaker.Execute(func() (any, error) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusInternalServerError {
				return nil, errors.NewInternal("upstream handler failed", nil)
			}
			return nil, nil
		})

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			resilienceRejections.WithLabelValues("breaker").Inc()
			writeUnavailable(w, "Service is temporarily unavailable")
		}
		// Handler failures already wrote their own response.
	})
}

func writeUnavailable(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", "1")
	errors.WriteStatus(w, http.StatusServiceUnavailable, message, "SERVICE_UNAVAILABLE")
}

func stateGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
