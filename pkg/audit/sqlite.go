// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStorage stores audit events in the embedded alternative database.
// Immutability is enforced with triggers that abort UPDATE and DELETE.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates the storage and applies pending migrations.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	migrationFS, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub filesystem: %w", err)
	}

	provider, err := goose.NewProvider(database.DialectSQLite3, db, migrationFS)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply audit migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

const sqliteColumns = `id, timestamp, kind, severity, source_ip, source_user_agent,
	source_subject, source_request_id, method, path, status_code, duration_ms,
	service_name, metadata, hash, previous_hash, sequence`

// Append stores a sealed event.
func (s *SQLiteStorage) Append(ctx context.Context, event *Event) error {
	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO audit_events (`+sqliteColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		event.ID, event.Timestamp.UTC().Format(timestampLayout), string(event.Kind),
		int(event.Severity), nullable(event.Source.IP), nullable(event.Source.UserAgent),
		nullable(event.Source.Subject), nullable(event.Source.RequestID),
		nullable(event.Method), nullable(event.Path),
		nullableInt(event.StatusCode), event.DurationMS,
		event.ServiceName, nullableBytes(metadata), event.Hash,
		nullable(event.PreviousHash), int64(event.Sequence)) //nolint:gosec // sequence fits
	if err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

// Latest returns the highest-sequence event, or nil if storage is empty.
func (s *SQLiteStorage) Latest(ctx context.Context) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM audit_events ORDER BY sequence DESC LIMIT 1`)
	event, err := scanSQLiteEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return event, err
}

// EventsInRange returns events with from <= sequence <= to.
func (s *SQLiteStorage) EventsInRange(ctx context.Context, from, to uint64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM audit_events
		 WHERE sequence BETWEEN ? AND ? ORDER BY sequence`,
		int64(from), int64(to)) //nolint:gosec // sequences fit
	if err != nil {
		return nil, fmt.Errorf("querying audit range: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSQLiteEvents(rows)
}

// EventsBefore returns events older than cutoff ordered by sequence.
func (s *SQLiteStorage) EventsBefore(ctx context.Context, cutoff time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM audit_events WHERE timestamp < ? ORDER BY sequence`,
		cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return nil, fmt.Errorf("querying expired audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSQLiteEvents(rows)
}

// PurgeBefore removes events older than cutoff. The no-delete trigger is
// dropped inside the transaction and recreated before commit.
func (s *SQLiteStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TRIGGER audit_events_no_delete`); err != nil {
		return 0, fmt.Errorf("lifting delete trigger: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`,
		cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("purging audit events: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE TRIGGER audit_events_no_delete
		BEFORE DELETE ON audit_events
		BEGIN SELECT RAISE(ABORT, 'audit events are immutable'); END`); err != nil {
		return 0, fmt.Errorf("restoring delete trigger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purge: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

type sqlRow interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(row sqlRow) (*Event, error) {
	var (
		event      Event
		timestamp  string
		kind       string
		severity   int
		ip, ua     sql.NullString
		subject    sql.NullString
		requestID  sql.NullString
		method     sql.NullString
		path       sql.NullString
		statusCode sql.NullInt64
		metadata   sql.NullString
		prevHash   sql.NullString
		sequence   int64
	)

	err := row.Scan(&event.ID, &timestamp, &kind, &severity, &ip, &ua,
		&subject, &requestID, &method, &path, &statusCode, &event.DurationMS,
		&event.ServiceName, &metadata, &event.Hash, &prevHash, &sequence)
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("decoding audit timestamp: %w", err)
	}
	event.Timestamp = ts.UTC()

	event.Kind = Kind(kind)
	event.Severity = Severity(severity) //nolint:gosec // stored values are 0..7
	event.Source.IP = ip.String
	event.Source.UserAgent = ua.String
	event.Source.Subject = subject.String
	event.Source.RequestID = requestID.String
	event.Method = method.String
	event.Path = path.String
	event.StatusCode = int(statusCode.Int64)
	event.PreviousHash = prevHash.String
	event.Sequence = uint64(sequence) //nolint:gosec // sequences are positive

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decoding audit metadata: %w", err)
		}
	}
	return &event, nil
}

func collectSQLiteEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		event, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
