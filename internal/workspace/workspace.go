// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace resolves model-supplied path strings into absolute
// handles confined to the workspace roots.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// =============================================================================
// ORACLE
// =============================================================================

// Oracle answers boundary questions about the active workspace.
type Oracle interface {
	// Roots returns the workspace root folders. The first root anchors
	// relative paths.
	Roots() []string
	// Contains returns the root that holds path, if any. path must already
	// be absolute and canonical.
	Contains(path string) (root string, ok bool)
}

// Static is an Oracle over a fixed list of root folders.
type Static struct {
	roots []string
}

// ErrNoRoots is returned when a workspace is built with no roots.
var ErrNoRoots = errors.New("workspace has no root folders")

// NewStatic canonicalizes each root (absolute, symlinks evaluated) and
// returns an Oracle over them.
func NewStatic(roots ...string) (*Static, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	s := &Static{roots: make([]string, 0, len(roots))}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("workspace root %q: %w", root, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("workspace root %q: %w", root, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("workspace root %q: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("workspace root %q is not a directory", root)
		}
		s.roots = append(s.roots, filepath.Clean(resolved))
	}
	return s, nil
}

// Roots returns a copy of the canonical roots.
func (s *Static) Roots() []string {
	return append([]string(nil), s.roots...)
}

// Contains returns the first root that holds path.
func (s *Static) Contains(path string) (string, bool) {
	for _, root := range s.roots {
		if isPathWithinDir(path, root) {
			return root, true
		}
	}
	return "", false
}

// =============================================================================
// PATH HELPERS
// =============================================================================

func normalizePath(p string) string {
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(filepath.ToSlash(p))
	}
	return p
}

// isPathWithinDir reports whether path is dir or lies beneath it.
// SECURITY: The separator suffix keeps /home/userEVIL from matching /home/user.
func isPathWithinDir(path, dir string) bool {
	normalizedPath := normalizePath(path)
	normalizedDir := normalizePath(dir)

	if normalizedPath == normalizedDir {
		return true
	}

	sep := string(filepath.Separator)
	if runtime.GOOS == "windows" {
		sep = "/"
	}
	dirWithSep := normalizedDir
	if !strings.HasSuffix(dirWithSep, sep) {
		dirWithSep += sep
	}
	return strings.HasPrefix(normalizedPath, dirWithSep)
}

// canonicalize makes path absolute and evaluates symlinks. Paths that do
// not exist yet (create targets) keep their missing tail appended to the
// nearest existing ancestor, so a symlinked parent is still followed.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	var tail []string
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			parts := append([]string{resolved}, reverse(tail)...)
			return filepath.Join(parts...), nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			// Nothing on the path exists; the lexical form is all we have.
			return abs, nil
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
