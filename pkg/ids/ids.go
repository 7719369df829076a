// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package ids provides typed, time-sortable request identifiers.
//
// A RequestID wraps a UUIDv7 rendered as lowercase Crockford base32 behind a
// fixed "req" prefix, e.g. "req_068a1f2c3d4e5f6a7b8c9d0e1f2". Because the
// UUIDv7 timestamp occupies the high bits and the alphabet is in ASCII order,
// lexicographic order of the string form matches creation order.
package ids

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the fixed component prefix for request identifiers.
const Prefix = "req"

// encodedLen is the length of the base32 suffix (128 bits at 5 bits per char).
const encodedLen = 26

// crockford is the lowercase Crockford base32 alphabet. It excludes i, l, o
// and u, and sorts in ASCII order so encoded values stay time-ordered.
var crockford = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").
	WithPadding(base32.NoPadding)

// RequestID identifies a single request.
type RequestID struct {
	id uuid.UUID
}

// New generates a fresh request identifier from a UUIDv7.
func New() RequestID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the entropy source does; fall back to v4
		// rather than panic in the request path.
		id = uuid.New()
	}
	return RequestID{id: id}
}

// String renders the identifier as "req_<26-char-base32>".
func (r RequestID) String() string {
	return Prefix + "_" + crockford.EncodeToString(r.id[:])
}

// UUID returns the underlying UUID.
func (r RequestID) UUID() uuid.UUID {
	return r.id
}

// IsZero reports whether the identifier is the zero value.
func (r RequestID) IsZero() bool {
	return r.id == uuid.Nil
}

// Parse parses a string of the form "req_<26-char-base32>". The prefix must
// match exactly.
func Parse(s string) (RequestID, error) {
	suffix, ok := strings.CutPrefix(s, Prefix+"_")
	if !ok {
		return RequestID{}, fmt.Errorf("request id %q missing %q prefix", s, Prefix+"_")
	}
	if len(suffix) != encodedLen {
		return RequestID{}, fmt.Errorf("request id suffix must be %d characters, got %d", encodedLen, len(suffix))
	}

	raw, err := crockford.DecodeString(suffix)
	if err != nil {
		return RequestID{}, fmt.Errorf("invalid request id encoding: %w", err)
	}

	var id uuid.UUID
	copy(id[:], raw)
	return RequestID{id: id}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r RequestID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RequestID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
