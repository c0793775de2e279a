// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// GLOB MATCHING
// =============================================================================

// MatchGlob matches a slash-separated relative path against pattern.
// Supports:
// - * matches any sequence of characters within a path segment
// - ** matches any sequence of characters including path separators
// - ? matches any single character
//
// A pattern without a separator also matches against the base name, so
// "*.go" finds Go files at any depth.
func MatchGlob(pattern, path string) (bool, error) {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)

	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}
	if !strings.Contains(pattern, "/") {
		base := path
		if i := strings.LastIndex(path, "/"); i >= 0 {
			base = path[i+1:]
		}
		return filepath.Match(pattern, base)
	}
	return filepath.Match(pattern, path)
}

func matchDoublestar(pattern, path string) (bool, error) {
	parts := strings.SplitN(pattern, "**", 2)

	// "**/*.go"
	if parts[0] == "" {
		return matchSuffix(strings.TrimPrefix(parts[1], "/"), path)
	}

	// "src/**/*.go"
	prefix := strings.TrimSuffix(parts[0], "/")
	if path != prefix && !strings.HasPrefix(path, prefix+"/") {
		return false, nil
	}
	remaining := strings.TrimPrefix(strings.TrimPrefix(path, prefix), "/")
	return matchSuffix(strings.TrimPrefix(parts[1], "/"), remaining)
}

// matchSuffix tries suffix against path and every trailing sub-path.
func matchSuffix(suffix, path string) (bool, error) {
	if suffix == "" {
		return true, nil
	}
	if strings.Contains(suffix, "**") {
		segments := strings.Split(path, "/")
		for i := 0; i <= len(segments); i++ {
			if ok, err := matchDoublestar(suffix, strings.Join(segments[i:], "/")); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	segments := strings.Split(path, "/")
	for i := 0; i <= len(segments); i++ {
		matched, err := filepath.Match(suffix, strings.Join(segments[i:], "/"))
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
