// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage stores audit events in the relational database.
// Immutability is enforced with rewrite rules that turn UPDATE and DELETE
// into no-ops.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates the storage and ensures the schema exists.
func NewPostgresStorage(ctx context.Context, pool *pgxpool.Pool) (*PostgresStorage, error) {
	s := &PostgresStorage{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring audit schema: %w", err)
	}
	return s, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id                 TEXT PRIMARY KEY,
		timestamp          TIMESTAMPTZ NOT NULL,
		kind               TEXT NOT NULL,
		severity           SMALLINT NOT NULL,
		source_ip          TEXT,
		source_user_agent  TEXT,
		source_subject     TEXT,
		source_request_id  TEXT,
		method             TEXT,
		path               TEXT,
		status_code        INTEGER,
		duration_ms        BIGINT,
		service_name       TEXT NOT NULL,
		metadata           JSONB,
		hash               TEXT NOT NULL,
		previous_hash      TEXT,
		sequence           BIGINT NOT NULL UNIQUE
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_sequence_idx ON audit_events (sequence)`,
	`CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON audit_events (timestamp)`,
	// Rewrite rules make mutation a silent no-op rather than an error.
	`CREATE OR REPLACE RULE audit_events_no_update AS ON UPDATE TO audit_events DO INSTEAD NOTHING`,
	`CREATE OR REPLACE RULE audit_events_no_delete AS ON DELETE TO audit_events DO INSTEAD NOTHING`,
}

func (s *PostgresStorage) ensureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const postgresColumns = `id, timestamp, kind, severity, source_ip, source_user_agent,
	source_subject, source_request_id, method, path, status_code, duration_ms,
	service_name, metadata, hash, previous_hash, sequence`

// Append stores a sealed event.
func (s *PostgresStorage) Append(ctx context.Context, event *Event) error {
	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO audit_events (`+postgresColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		event.ID, event.Timestamp, string(event.Kind), int16(event.Severity),
		nullable(event.Source.IP), nullable(event.Source.UserAgent),
		nullable(event.Source.Subject), nullable(event.Source.RequestID),
		nullable(event.Method), nullable(event.Path),
		nullableInt(event.StatusCode), event.DurationMS,
		event.ServiceName, metadata, event.Hash,
		nullable(event.PreviousHash), int64(event.Sequence)) //nolint:gosec // sequence fits
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

// Latest returns the highest-sequence event, or nil if storage is empty.
func (s *PostgresStorage) Latest(ctx context.Context) (*Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM audit_events ORDER BY sequence DESC LIMIT 1`)
	event, err := scanPostgresEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return event, err
}

// EventsInRange returns events with from <= sequence <= to.
func (s *PostgresStorage) EventsInRange(ctx context.Context, from, to uint64) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresColumns+` FROM audit_events
		 WHERE sequence BETWEEN $1 AND $2 ORDER BY sequence`,
		int64(from), int64(to)) //nolint:gosec // sequences fit
	if err != nil {
		return nil, fmt.Errorf("querying audit range: %w", err)
	}
	defer rows.Close()
	return collectPostgresEvents(rows)
}

// EventsBefore returns events older than cutoff ordered by sequence.
func (s *PostgresStorage) EventsBefore(ctx context.Context, cutoff time.Time) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresColumns+` FROM audit_events WHERE timestamp < $1 ORDER BY sequence`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying expired audit events: %w", err)
	}
	defer rows.Close()
	return collectPostgresEvents(rows)
}

// PurgeBefore removes events older than cutoff. The no-delete rule is
// lifted inside the transaction and restored before commit, so concurrent
// sessions never observe a mutable table.
func (s *PostgresStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DROP RULE audit_events_no_delete ON audit_events`); err != nil {
		return 0, fmt.Errorf("lifting delete rule: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging audit events: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`CREATE RULE audit_events_no_delete AS ON DELETE TO audit_events DO INSTEAD NOTHING`); err != nil {
		return 0, fmt.Errorf("restoring delete rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanPostgresEvent(row pgxRow) (*Event, error) {
	var (
		event      Event
		kind       string
		severity   int16
		ip, ua     *string
		subject    *string
		requestID  *string
		method     *string
		path       *string
		statusCode *int32
		metadata   []byte
		prevHash   *string
		sequence   int64
	)

	err := row.Scan(&event.ID, &event.Timestamp, &kind, &severity, &ip, &ua,
		&subject, &requestID, &method, &path, &statusCode, &event.DurationMS,
		&event.ServiceName, &metadata, &event.Hash, &prevHash, &sequence)
	if err != nil {
		return nil, err
	}

	event.Timestamp = event.Timestamp.UTC()
	event.Kind = Kind(kind)
	event.Severity = Severity(severity) //nolint:gosec // stored values are 0..7
	event.Source.IP = deref(ip)
	event.Source.UserAgent = deref(ua)
	event.Source.Subject = deref(subject)
	event.Source.RequestID = deref(requestID)
	event.Method = deref(method)
	event.Path = deref(path)
	if statusCode != nil {
		event.StatusCode = int(*statusCode)
	}
	event.PreviousHash = deref(prevHash)
	event.Sequence = uint64(sequence) //nolint:gosec // sequences are positive

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("decoding audit metadata: %w", err)
		}
	}
	return &event, nil
}

func collectPostgresEvents(rows pgx.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		event, err := scanPostgresEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding audit metadata: %w", err)
	}
	return raw, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(v int) *int32 {
	if v == 0 {
		return nil
	}
	i := int32(v) //nolint:gosec // status codes fit
	return &i
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
