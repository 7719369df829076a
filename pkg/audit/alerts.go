// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/logger"
)

// FailureTracker watches consecutive audit-storage failures. Once failures
// have persisted for threshold_secs an alert fires; a cooldown suppresses
// repeats, and recovery after an alert optionally fires a recovery
// notification. Failures never drop the in-flight event from the other
// side channels.
type FailureTracker struct {
	cfg   config.AlertsConfig
	clock func() time.Time

	mu            sync.Mutex
	failingSince  time.Time
	failureCount  int
	lastAlert     time.Time
	alerted       bool
	client        *http.Client
}

// AlertPayload is the JSON body POSTed to alert webhooks.
type AlertPayload struct {
	Type         string    `json:"type"`
	ServiceName  string    `json:"service_name"`
	Message      string    `json:"message"`
	FailureCount int       `json:"failure_count,omitempty"`
	FailingSince time.Time `json:"failing_since,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewFailureTracker creates a tracker for the given alert configuration.
func NewFailureTracker(cfg config.AlertsConfig) *FailureTracker {
	return &FailureTracker{
		cfg:    cfg,
		clock:  time.Now,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetClock overrides the time source for tests.
func (t *FailureTracker) SetClock(clock func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
}

// RecordFailure notes a storage failure and fires an alert when the
// continuous-failure threshold is crossed and no cooldown is active.
func (t *FailureTracker) RecordFailure(serviceName string, err error) {
	t.mu.Lock()
	now := t.clock()
	if t.failureCount == 0 {
		t.failingSince = now
	}
	t.failureCount++

	threshold := time.Duration(t.cfg.ThresholdSecs) * time.Second
	cooldown := time.Duration(t.cfg.CooldownSecs) * time.Second

	shouldAlert := now.Sub(t.failingSince) >= threshold &&
		(t.lastAlert.IsZero() || now.Sub(t.lastAlert) >= cooldown)
	if shouldAlert {
		t.lastAlert = now
		t.alerted = true
	}
	payload := AlertPayload{
		Type:         "audit_storage_failure",
		ServiceName:  serviceName,
		Message:      "audit storage has been failing continuously: " + err.Error(),
		FailureCount: t.failureCount,
		FailingSince: t.failingSince,
		Timestamp:    now,
	}
	t.mu.Unlock()

	if shouldAlert {
		t.post(payload)
	}
}

// RecordSuccess resets the tracker; if an alert had fired and
// notify_recovery is set, a recovery notification goes out.
func (t *FailureTracker) RecordSuccess(serviceName string) {
	t.mu.Lock()
	wasAlerted := t.alerted
	t.failureCount = 0
	t.failingSince = time.Time{}
	t.alerted = false
	now := t.clock()
	t.mu.Unlock()

	if wasAlerted && t.cfg.NotifyRecovery {
		t.post(AlertPayload{
			Type:        "audit_storage_recovered",
			ServiceName: serviceName,
			Message:     "audit storage has recovered",
			Timestamp:   now,
		})
	}
}

// post delivers the payload to every webhook on detached goroutines.
func (t *FailureTracker) post(payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warnw("failed to encode alert payload", "error", err)
		return
	}

	for _, url := range t.cfg.WebhookURLs {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				logger.Warnw("failed to build alert request", "url", url, "error", err)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := t.client.Do(req)
			if err != nil {
				logger.Warnw("alert webhook delivery failed", "url", url, "error", err)
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode >= 300 {
				logger.Warnw("alert webhook rejected payload", "url", url, "status", resp.StatusCode)
			}
		}()
	}
}
