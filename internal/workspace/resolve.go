// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrEmptyPath is returned for an empty path string.
var ErrEmptyPath = errors.New("path is empty")

// Handle is a resolved, boundary-checked file-system resource.
type Handle struct {
	// Path is absolute and canonical.
	Path string
	// Root is the workspace root that contains Path.
	Root string
	// IsFolder records a trailing separator on the raw string.
	IsFolder bool
}

// URI returns the handle as a file:// locator.
func (h Handle) URI() string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(h.Path)}).String()
}

// Rel returns the path relative to its root, or the absolute path when that
// fails.
func (h Handle) Rel() string {
	rel, err := filepath.Rel(h.Root, h.Path)
	if err != nil {
		return h.Path
	}
	return rel
}

// BoundaryError reports a path that resolves outside every workspace root.
type BoundaryError struct {
	Path   string
	Roots  []string
	Reason string
}

func (e *BoundaryError) Error() string {
	msg := fmt.Sprintf("path %q is outside the workspace", e.Path)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg + "; permitted workspace roots: " + strings.Join(e.Roots, ", ")
}

// Resolver turns raw path strings into Handles.
//
// Resolution rules:
//   - "scheme://..." is parsed as a locator; only file:// names a file.
//   - A relative path is joined to the first root.
//   - An absolute path inside a root is accepted as is. Otherwise a leading
//     segment equal to a root's folder name is stripped and the rest is
//     resolved against that root ("/myproject/src/x" -> "<root>/src/x").
//
// The folder-name strip is a string match and misfires when a project
// contains a top-level directory whose name equals the root's own name.
type Resolver struct {
	oracle Oracle
}

// NewResolver returns a resolver bound to oracle.
func NewResolver(oracle Oracle) *Resolver {
	return &Resolver{oracle: oracle}
}

// Oracle returns the boundary oracle.
func (r *Resolver) Oracle() Oracle {
	return r.oracle
}

// Resolve resolves raw and enforces the workspace boundary.
func (r *Resolver) Resolve(raw string) (Handle, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Handle{}, ErrEmptyPath
	}
	folder := strings.HasSuffix(trimmed, "/") || strings.HasSuffix(trimmed, `\`)
	roots := r.oracle.Roots()
	if len(roots) == 0 {
		return Handle{}, ErrNoRoots
	}

	if strings.Contains(trimmed, "://") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return Handle{}, &BoundaryError{Path: raw, Roots: roots, Reason: "malformed locator"}
		}
		if !strings.EqualFold(u.Scheme, "file") {
			return Handle{}, &BoundaryError{Path: raw, Roots: roots, Reason: "unsupported scheme " + u.Scheme}
		}
		if u.Host != "" && u.Host != "localhost" {
			return Handle{}, &BoundaryError{Path: raw, Roots: roots, Reason: "remote file host " + u.Host}
		}
		return r.check(raw, filepath.FromSlash(u.Path), folder)
	}

	if !filepath.IsAbs(trimmed) && !strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, `\`) {
		return r.check(raw, filepath.Join(roots[0], trimmed), folder)
	}

	h, err := r.check(raw, trimmed, folder)
	if err == nil {
		return h, nil
	}

	if candidate, ok := stripRootName(trimmed, roots); ok {
		if h, err2 := r.check(raw, candidate, folder); err2 == nil {
			return h, nil
		}
	}
	return Handle{}, err
}

func (r *Resolver) check(raw, candidate string, folder bool) (Handle, error) {
	resolved, err := canonicalize(candidate)
	if err != nil {
		return Handle{}, &BoundaryError{Path: raw, Roots: r.oracle.Roots(), Reason: err.Error()}
	}
	root, ok := r.oracle.Contains(resolved)
	if !ok {
		return Handle{}, &BoundaryError{Path: raw, Roots: r.oracle.Roots()}
	}
	return Handle{Path: resolved, Root: root, IsFolder: folder}, nil
}

// stripRootName drops a leading segment that equals a root's base name and
// joins the remainder to that root.
func stripRootName(path string, roots []string) (string, bool) {
	clean := filepath.ToSlash(filepath.Clean(path))
	clean = strings.TrimLeft(clean, "/")
	if vol := filepath.VolumeName(path); vol != "" {
		clean = strings.TrimLeft(strings.TrimPrefix(clean, filepath.ToSlash(vol)), "/")
	}
	first, rest, _ := strings.Cut(clean, "/")
	if first == "" {
		return "", false
	}
	for _, root := range roots {
		if filepath.Base(root) == first {
			return filepath.Join(root, filepath.FromSlash(rest)), true
		}
	}
	return "", false
}
