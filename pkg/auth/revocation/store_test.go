// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package revocation

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeIsImmediatelyVisible(t *testing.T) {
	t.Parallel()

	store := New(nil)
	assert.False(t, store.IsRevoked("jti-1"))

	store.Revoke(context.Background(), "jti-1", time.Now().Add(time.Hour))
	assert.True(t, store.IsRevoked("jti-1"))
	assert.False(t, store.IsRevoked("jti-2"))
}

func TestExpiredRevocationNotRevoked(t *testing.T) {
	t.Parallel()

	store := New(nil)
	store.Revoke(context.Background(), "jti-1", time.Now().Add(-time.Minute))
	assert.False(t, store.IsRevoked("jti-1"))
}

func TestRevokePersistsToRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(client)

	expires := time.Now().Add(time.Hour)
	store.Revoke(context.Background(), "jti-1", expires)

	require.Eventually(t, func() bool {
		return mr.Exists(DefaultKeyPrefix + "jti-1")
	}, 2*time.Second, 10*time.Millisecond)

	value, err := mr.Get(DefaultKeyPrefix + "jti-1")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(expires.Unix(), 10), value)
}

func TestRehydrateLoadsBothPrefixes(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	future := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"jti-new", future))
	require.NoError(t, mr.Set(LegacyKeyPrefix+"jti-old", future))
	require.NoError(t, mr.Set(DefaultKeyPrefix+"jti-bad", "not-a-number"))

	store := New(client)
	require.NoError(t, store.Rehydrate(context.Background()))

	assert.True(t, store.IsRevoked("jti-new"))
	assert.True(t, store.IsRevoked("jti-old"))
	assert.False(t, store.IsRevoked("jti-bad"))
}

func TestSweeperRemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	current := now
	store := New(nil, WithClock(func() time.Time { return current }))

	store.Revoke(context.Background(), "jti-1", now.Add(time.Minute))
	store.Revoke(context.Background(), "jti-2", now.Add(time.Hour))
	require.Equal(t, 2, store.Len())

	current = now.Add(30 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	assert.True(t, store.IsRevoked("jti-2"))
}

func TestCustomKeyPrefix(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(client, WithKeyPrefix("custom:revoked:"))

	store.Revoke(context.Background(), "jti-1", time.Now().Add(time.Hour))

	require.Eventually(t, func() bool {
		return mr.Exists("custom:revoked:jti-1")
	}, 2*time.Second, 10*time.Millisecond)
}
