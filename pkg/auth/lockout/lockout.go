// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockout tracks failed authentication attempts per identity and
// enforces progressive delay and account locking. State lives in the
// key-value store so it is shared across replicas; notifications are
// dispatched on fire-and-forget tasks and never block the login path.
package lockout

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/config"
	"github.com/acton-framework/acton/pkg/errors"
	"github.com/acton-framework/acton/pkg/logger"
)

// EventType classifies a lockout notification.
type EventType string

// Event types
const (
	// EventFailedAttempt fires on every recorded failure.
	EventFailedAttempt EventType = "failed_attempt"

	// EventApproachingThreshold fires when the warning threshold is hit.
	EventApproachingThreshold EventType = "approaching_threshold"

	// EventAccountLocked fires exactly once per lock.
	EventAccountLocked EventType = "account_locked"

	// EventAccountUnlocked fires when a locked account becomes usable.
	EventAccountUnlocked EventType = "account_unlocked"
)

// UnlockReason explains an account_unlocked event.
type UnlockReason string

// Unlock reasons
const (
	UnlockSuccessfulLogin UnlockReason = "successful_login"
	UnlockExpired         UnlockReason = "lockout_expired"
)

// Event is delivered to notification handlers.
type Event struct {
	Type        EventType
	Identity    string
	Attempts    int
	LockedUntil time.Time
	Reason      UnlockReason
}

// Handler receives lockout events. Handlers run on detached goroutines;
// panics are caught and logged.
type Handler func(ctx context.Context, event Event)

// Status is the answer to a lockout check.
type Status struct {
	Locked     bool
	RetryAfter time.Duration
}

// Outcome is the result of recording a failure.
type Outcome struct {
	// Delay is the progressive delay the caller should apply before
	// responding.
	Delay time.Duration

	// Locked reports whether this failure locked the account.
	Locked bool

	// Attempts is the failure count within the current window.
	Attempts int
}

// Redis hash fields per identity key.
const (
	fieldAttempts     = "attempt_count"
	fieldFirstFailure = "first_failure_at"
	fieldLockedUntil  = "locked_until"
)

// Service enforces the lockout policy.
type Service struct {
	client   *redis.Client
	cfg      config.LockoutConfig
	handlers []Handler
	clock    func() time.Time
}

// NewService creates a lockout service over the given redis client.
func NewService(client *redis.Client, cfg config.LockoutConfig, handlers ...Handler) *Service {
	return &Service{
		client:   client,
		cfg:      cfg,
		handlers: handlers,
		clock:    time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *Service) key(identity string) string {
	return s.cfg.KeyPrefix + ":" + identity
}

// Check reports whether the identity is currently locked.
func (s *Service) Check(ctx context.Context, identity string) (Status, error) {
	lockedUntil, err := s.lockedUntil(ctx, identity)
	if err != nil {
		return Status{}, err
	}

	now := s.clock()
	if lockedUntil.After(now) {
		return Status{Locked: true, RetryAfter: lockedUntil.Sub(now)}, nil
	}
	return Status{}, nil
}

// RecordFailure increments the failure counter. Reaching max_attempts locks
// the account for lockout_duration_secs and emits exactly one account_locked
// event; below the threshold a progressive delay is returned.
func (s *Service) RecordFailure(ctx context.Context, identity string) (Outcome, error) {
	key := s.key(identity)
	now := s.clock()

	count, err := s.client.HIncrBy(ctx, key, fieldAttempts, 1).Result()
	if err != nil {
		return Outcome{}, errors.NewCache("failed to record lockout failure", err)
	}
	if count == 1 {
		s.client.HSet(ctx, key, fieldFirstFailure, now.Unix())
	}

	window := time.Duration(s.cfg.WindowSecs) * time.Second

	if int(count) >= s.cfg.MaxAttempts {
		lockDuration := time.Duration(s.cfg.LockoutDurationSecs) * time.Second
		lockedUntil := now.Add(lockDuration)

		pipe := s.client.Pipeline()
		pipe.HSet(ctx, key, fieldLockedUntil, lockedUntil.Unix())
		// Counter resets on lock so the next window starts clean.
		pipe.HSet(ctx, key, fieldAttempts, 0)
		pipe.Expire(ctx, key, maxDuration(window, lockDuration))
		if _, err := pipe.Exec(ctx); err != nil {
			return Outcome{}, errors.NewCache("failed to persist account lock", err)
		}

		s.dispatch(ctx, Event{
			Type:        EventAccountLocked,
			Identity:    identity,
			Attempts:    int(count),
			LockedUntil: lockedUntil,
		})
		return Outcome{Locked: true, Delay: lockDuration, Attempts: int(count)}, nil
	}

	if err := s.client.Expire(ctx, key, window).Err(); err != nil {
		logger.Warnw("failed to refresh lockout window", "identity", identity, "error", err)
	}

	s.dispatch(ctx, Event{Type: EventFailedAttempt, Identity: identity, Attempts: int(count)})
	if s.cfg.WarningThreshold > 0 && int(count) == s.cfg.WarningThreshold {
		s.dispatch(ctx, Event{Type: EventApproachingThreshold, Identity: identity, Attempts: int(count)})
	}

	return Outcome{Delay: s.progressiveDelay(int(count)), Attempts: int(count)}, nil
}

// RecordSuccess clears the identity's state. If the account was locked when
// the success arrived (a rare race) an unlocked event is emitted.
func (s *Service) RecordSuccess(ctx context.Context, identity string) error {
	lockedUntil, err := s.lockedUntil(ctx, identity)
	if err != nil {
		return err
	}
	wasLocked := lockedUntil.After(s.clock())

	if err := s.client.Del(ctx, s.key(identity)).Err(); err != nil {
		return errors.NewCache("failed to clear lockout state", err)
	}

	if wasLocked {
		s.dispatch(ctx, Event{
			Type:     EventAccountUnlocked,
			Identity: identity,
			Reason:   UnlockSuccessfulLogin,
		})
	}
	return nil
}

func (s *Service) lockedUntil(ctx context.Context, identity string) (time.Time, error) {
	value, err := s.client.HGet(ctx, s.key(identity), fieldLockedUntil).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.NewCache("failed to read lockout state", err)
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.NewCache(fmt.Sprintf("malformed lockout entry for %s", identity), err)
	}
	return time.Unix(unix, 0), nil
}

// progressiveDelay computes min(max_delay, base_delay * multiplier^(n-1)).
func (s *Service) progressiveDelay(attempts int) time.Duration {
	base := float64(s.cfg.BaseDelayMS)
	delay := base * math.Pow(s.cfg.DelayMultiplier, float64(attempts-1))
	if maxDelay := float64(s.cfg.MaxDelayMS); delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay) * time.Millisecond
}

// dispatch fans the event out to handlers on detached goroutines. Handler
// panics are isolated per spawn.
func (s *Service) dispatch(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, handler := range s.handlers {
		h := handler
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("lockout notification handler panicked",
						"event", event.Type, "panic", r)
				}
			}()
			h(detached, event)
		}()
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
