// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(context.Background(), openTestDB(t))
	require.NoError(t, err)
	return storage
}

func TestSQLiteAppendAndLatest(t *testing.T) {
	t.Parallel()

	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	latest, err := storage.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	chain := NewChain("orders")
	events := sealedEvents(t, chain, 3)
	for _, e := range events {
		require.NoError(t, storage.Append(ctx, e))
	}

	latest, err = storage.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(3), latest.Sequence)
	assert.Equal(t, events[2].Hash, latest.Hash)
}

func TestSQLiteRoundTripPreservesChain(t *testing.T) {
	t.Parallel()

	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	chain := NewChain("orders")
	for _, e := range sealedEvents(t, chain, 5) {
		require.NoError(t, storage.Append(ctx, e))
	}

	loaded, err := storage.EventsInRange(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, loaded, 5)
	require.NoError(t, VerifyChain(loaded))
}

func TestSQLiteRejectsMutation(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	storage, err := NewSQLiteStorage(context.Background(), db)
	require.NoError(t, err)
	ctx := context.Background()

	chain := NewChain("orders")
	for _, e := range sealedEvents(t, chain, 2) {
		require.NoError(t, storage.Append(ctx, e))
	}

	_, err = db.ExecContext(ctx, "UPDATE audit_events SET path = '/tampered' WHERE sequence = 1")
	assert.Error(t, err)

	_, err = db.ExecContext(ctx, "DELETE FROM audit_events WHERE sequence = 1")
	assert.Error(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLitePurgeBefore(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	storage, err := NewSQLiteStorage(context.Background(), db)
	require.NoError(t, err)
	ctx := context.Background()

	chain := NewChain("orders")
	old := NewEvent(KindHTTPRequest, SeverityInformational)
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	chain.Seal(old)
	require.NoError(t, storage.Append(ctx, old))

	recent := NewEvent(KindHTTPRequest, SeverityInformational)
	chain.Seal(recent)
	require.NoError(t, storage.Append(ctx, recent))

	purged, err := storage.PurgeBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	// The immutability trigger is back in place after the purge.
	_, err = db.ExecContext(ctx, "DELETE FROM audit_events WHERE sequence = 2")
	assert.Error(t, err)

	latest, err := storage.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(2), latest.Sequence)
}
