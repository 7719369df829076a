// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit implements the tamper-evident audit subsystem: a sealing
// agent that hash-chains events with BLAKE3 in strict arrival order, appends
// them to immutable storage, and mirrors them to fire-and-forget side
// channels (syslog, OTLP). Chain state has exactly one owner; no other
// writer may touch it.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an audit event. The set is open: values outside the
// predeclared constants act as custom kinds.
type Kind string

// Event kinds
const (
	KindHTTPRequest      Kind = "http_request"
	KindAuthLoginSuccess Kind = "auth_login_success"
	KindAuthLoginFailed  Kind = "auth_login_failed"
	KindAuthTokenRevoked Kind = "auth_token_revoked"
	KindAccountLocked    Kind = "account_locked"
	KindAccountUnlocked  Kind = "account_unlocked"
	KindServiceStart     Kind = "service_start"
	KindServiceStop      Kind = "service_stop"
	KindConfigChange     Kind = "config_change"
	KindDataAccess       Kind = "data_access"
	KindDataModification Kind = "data_modification"
)

// Severity is the syslog severity scale, 0 (emergency) to 7 (debug).
type Severity uint8

// Severities
const (
	SeverityEmergency     Severity = 0
	SeverityAlert         Severity = 1
	SeverityCritical      Severity = 2
	SeverityError         Severity = 3
	SeverityWarning       Severity = 4
	SeverityNotice        Severity = 5
	SeverityInformational Severity = 6
	SeverityDebug         Severity = 7
)

// SeverityFromStatus derives severity from an HTTP status code: 5xx is
// error, 4xx is warning, everything else informational.
func SeverityFromStatus(status int) Severity {
	switch {
	case status >= 500:
		return SeverityError
	case status >= 400:
		return SeverityWarning
	default:
		return SeverityInformational
	}
}

// Source identifies where an event originated.
type Source struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Subject   string `json:"subject,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Event is a single audit record. Chain fields (Hash, PreviousHash,
// Sequence, ServiceName) are populated by the sealing agent; once persisted
// the record is immutable.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Severity  Severity  `json:"severity"`
	Source    Source    `json:"source"`

	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	ServiceName string         `json:"service_name"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash,omitempty"`
	Sequence     uint64 `json:"sequence"`
}

// NewEvent creates an unsealed event with a fresh ID and UTC timestamp.
func NewEvent(kind Kind, severity Severity) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Severity:  severity,
	}
}
