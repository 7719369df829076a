// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/acton-framework/acton/pkg/logger"
)

// archiveTimeFormat names archive files audit_archive_YYYYMMDD_HHMMSS.jsonl.
const archiveTimeFormat = "20060102_150405"

// WriteArchive serialises events to a JSONL file in dir, one JSON document
// per line, creating the directory if needed. It returns the archive path.
func WriteArchive(dir string, events []*Event, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("audit_archive_%s.jsonl", now.UTC().Format(archiveTimeFormat)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("writing archive entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("flushing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing archive: %w", err)
	}
	return path, nil
}

// RunRetention archives and purges events older than retentionDays.
// Archival failure blocks the purge: storage keeps the events until a later
// run succeeds.
func RunRetention(ctx context.Context, storage Storage, archiveDir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	events, err := storage.EventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("collecting expired audit events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	path, err := WriteArchive(archiveDir, events, time.Now())
	if err != nil {
		return fmt.Errorf("archiving %d audit events: %w", len(events), err)
	}

	removed, err := storage.PurgeBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purging archived audit events: %w", err)
	}

	logger.Infow("audit retention complete",
		"archived", len(events), "purged", removed, "archive", path)
	return nil
}
