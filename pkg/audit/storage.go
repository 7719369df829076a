// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"time"
)

// Storage persists sealed audit events. Implementations enforce
// immutability at the storage layer: UPDATE and DELETE against stored
// events are discarded or aborted. The only sanctioned removal path is
// PurgeBefore, which callers must precede with archival.
type Storage interface {
	// Append stores a sealed event.
	Append(ctx context.Context, event *Event) error

	// Latest returns the highest-sequence event, or nil if storage is
	// empty.
	Latest(ctx context.Context) (*Event, error)

	// EventsInRange returns events with from <= sequence <= to, ordered by
	// sequence. Used for chain verification.
	EventsInRange(ctx context.Context, from, to uint64) ([]*Event, error)

	// EventsBefore returns events older than cutoff, ordered by sequence.
	// Used to build the retention archive.
	EventsBefore(ctx context.Context, cutoff time.Time) ([]*Event, error)

	// PurgeBefore removes events older than cutoff, temporarily lifting
	// the immutability guard within a transaction. It returns the number
	// of removed events.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
