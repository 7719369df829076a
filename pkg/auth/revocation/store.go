// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package revocation implements a write-behind token revocation cache. The
// hot path (is this jti revoked) is an in-memory read under an RWMutex;
// persistence to the key-value store happens on a detached task so a
// revocation decision never blocks on a network round trip. Cross-replica
// convergence relies on startup rehydration plus per-write SET EX.
package revocation

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acton-framework/acton/pkg/logger"
)

// DefaultKeyPrefix is the key namespace for revoked token IDs.
const DefaultKeyPrefix = "token:revoked:"

// LegacyKeyPrefix is also scanned at startup for compatibility with
// deployments that revoked under the jwt namespace.
const LegacyKeyPrefix = "jwt:revoked:"

// Store tracks revoked token IDs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	client *redis.Client
	prefix string
	clock  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the persistence key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates a store. client may be nil, in which case revocations are
// process-local only.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]time.Time),
		client:  client,
		prefix:  DefaultKeyPrefix,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsRevoked reports whether the token ID is currently revoked. Pure
// in-memory; expired entries count as not revoked even before the sweeper
// removes them.
func (s *Store) IsRevoked(jti string) bool {
	s.mu.RLock()
	expires, ok := s.entries[jti]
	s.mu.RUnlock()
	return ok && s.clock().Before(expires)
}

// Revoke marks the token ID revoked until expiresAt. The in-memory map is
// updated synchronously; persistence is fire-and-forget. A persistence
// failure is logged but the in-memory decision stands.
func (s *Store) Revoke(ctx context.Context, jti string, expiresAt time.Time) {
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.mu.Unlock()

	if s.client == nil {
		return
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	go func() {
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		key := s.prefix + jti
		value := strconv.FormatInt(expiresAt.Unix(), 10)
		if err := s.client.Set(persistCtx, key, value, ttl).Err(); err != nil {
			logger.Warnw("failed to persist token revocation", "jti", jti, "error", err)
		}
	}()
}

// Len returns the number of in-memory entries, expired included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Rehydrate loads existing revocations from the store into memory. Called
// once at startup; scans both the current and the legacy namespace.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	for _, prefix := range []string{s.prefix, LegacyKeyPrefix} {
		if err := s.rehydratePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rehydratePrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 256).Iterator()
	count := 0
	for iter.Next(ctx) {
		key := iter.Val()
		value, err := s.client.Get(ctx, key).Result()
		if err != nil {
			// The key may have expired between SCAN and GET.
			continue
		}

		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			logger.Warnw("skipping malformed revocation entry", "key", key)
			continue
		}

		jti := strings.TrimPrefix(key, prefix)
		s.mu.Lock()
		s.entries[jti] = time.Unix(unix, 0)
		s.mu.Unlock()
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if count > 0 {
		logger.Infow("rehydrated token revocations", "prefix", prefix, "count", count)
	}
	return nil
}

// StartSweeper periodically removes expired entries from the in-memory map.
// Store-side expiry is handled by the key TTL.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, expires := range s.entries {
		if !now.Before(expires) {
			delete(s.entries, jti)
		}
	}
}
