// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import "strings"

// PathNormalizer collapses identifier-bearing path segments into
// placeholders so paths can serve as metric labels and rate-limit keys.
type PathNormalizer func(path string) string

// NormalizePath is the default normalizer: purely numeric segments become
// "{n}", UUID-like segments (eight or more hex-or-dash characters) become
// "{id}". "/users/42/orders/b2a…" normalizes to "/users/{n}/orders/{id}".
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return path
	}

	segments := strings.Split(path, "/")
	changed := false
	for i, seg := range segments {
		switch {
		case isNumeric(seg):
			segments[i] = "{n}"
			changed = true
		case isUUIDLike(seg):
			segments[i] = "{id}"
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isUUIDLike matches any identifier-shaped segment: at least eight
// characters, all hex digits or dashes. This covers canonical UUIDs as well
// as undashed hex ids, which would otherwise explode metric cardinality.
func isUUIDLike(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if c != '-' && !isHexDigit(c) {
			return false
		}
	}
	return true
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
