// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	gopath "path"
	"strings"
)

// MatchRoute reports whether a request path matches a route pattern.
//
// Pattern syntax:
//   - "*" within a segment matches within that segment only.
//   - A trailing "/*" matches one or more remaining segments.
//   - A trailing "/**" matches the prefix itself and any remaining
//     segments.
//
// So "/api/v1/admin/*" matches "/api/v1/admin/settings" but not
// "/api/v1/admin", while "/api/v1/admin/**" matches both.
func MatchRoute(pattern, path string) bool {
	if pattern == path {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}

	psegs := splitPath(pattern)
	segs := splitPath(path)

	if len(psegs) > 0 && psegs[len(psegs)-1] == "*" {
		// Trailing wildcard segment swallows everything after the prefix,
		// but requires at least one segment to be present.
		if len(segs) < len(psegs) {
			return false
		}
		return segmentsMatch(psegs[:len(psegs)-1], segs[:len(psegs)-1])
	}

	if len(psegs) != len(segs) {
		return false
	}
	return segmentsMatch(psegs, segs)
}

// MatchAny reports whether the path matches any of the patterns.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if MatchRoute(p, path) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func segmentsMatch(patterns, segments []string) bool {
	for i, p := range patterns {
		if p == segments[i] {
			continue
		}
		ok, err := gopath.Match(p, segments[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
