// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// QUERIES & BACKENDS
// =============================================================================

// ContentQuery asks which files contain Text.
type ContentQuery struct {
	Text    string
	IsRegex bool
	// Folder limits the search to one directory (absolute). Empty means the
	// whole workspace.
	Folder string
}

// PathQuery asks which paths contain Text, optionally filtered by an
// Include glob.
type PathQuery struct {
	Text    string
	Include string
}

// IndexBackend is the fast, possibly stale, tier. *index.ContentIndex
// satisfies it.
type IndexBackend interface {
	SearchContent(ctx context.Context, query string) ([]string, error)
	Paths(ctx context.Context) ([]string, error)
}

// ScanBackend is the slow, always-correct tier.
type ScanBackend interface {
	ScanContent(ctx context.Context, q ContentQuery) ([]string, error)
	ScanPathnames(ctx context.Context, q PathQuery) ([]string, error)
	FindBaseName(ctx context.Context, name string) ([]string, error)
}

// =============================================================================
// SELECTOR
// =============================================================================

// Selector answers searches index-first with a scan fallback.
type Selector struct {
	index  IndexBackend
	scan   ScanBackend
	oracle workspace.Oracle
	log    zerolog.Logger
}

// NewSelector builds a Selector. index may be nil, in which case every
// query goes to scan.
func NewSelector(index IndexBackend, scan ScanBackend, oracle workspace.Oracle, log zerolog.Logger) *Selector {
	return &Selector{
		index:  index,
		scan:   scan,
		oracle: oracle,
		log:    log.With().Str("component", "search").Logger(),
	}
}

// SearchFiles returns the sorted paths of files whose content matches q.
// Regex and folder-scoped queries skip the index.
func (s *Selector) SearchFiles(ctx context.Context, q ContentQuery) ([]string, error) {
	return Run(ctx, s.log, []Strategy[string]{
		{Name: "index", Attempt: func(ctx context.Context) ([]string, error) {
			if s.index == nil {
				return nil, ErrUnavailable
			}
			if q.IsRegex || q.Folder != "" {
				return nil, ErrInapplicable
			}
			return s.index.SearchContent(ctx, q.Text)
		}},
		{Name: "scan", Attempt: func(ctx context.Context) ([]string, error) {
			return s.scan.ScanContent(ctx, q)
		}},
	})
}

// SearchPathnames returns the sorted paths matching q.
func (s *Selector) SearchPathnames(ctx context.Context, q PathQuery) ([]string, error) {
	return Run(ctx, s.log, []Strategy[string]{
		{Name: "index", Attempt: func(ctx context.Context) ([]string, error) {
			if s.index == nil {
				return nil, ErrUnavailable
			}
			paths, err := s.index.Paths(ctx)
			if err != nil {
				return nil, err
			}
			var out []string
			for _, path := range paths {
				root, ok := s.oracle.Contains(path)
				if !ok {
					continue
				}
				if match, err := q.Matches(path, root); err != nil {
					return nil, err
				} else if match {
					out = append(out, path)
				}
			}
			return out, nil
		}},
		{Name: "scan", Attempt: func(ctx context.Context) ([]string, error) {
			return s.scan.ScanPathnames(ctx, q)
		}},
	})
}

// FindByBaseName recovers from a not-found path: it looks for files anywhere
// in the workspace with the same base name.
func (s *Selector) FindByBaseName(ctx context.Context, missing string) ([]string, error) {
	name := filepath.Base(missing)
	return Run(ctx, s.log, []Strategy[string]{
		{Name: "index", Attempt: func(ctx context.Context) ([]string, error) {
			if s.index == nil {
				return nil, ErrUnavailable
			}
			paths, err := s.index.Paths(ctx)
			if err != nil {
				return nil, err
			}
			var out []string
			for _, path := range paths {
				if filepath.Base(path) == name {
					out = append(out, path)
				}
			}
			return out, nil
		}},
		{Name: "scan", Attempt: func(ctx context.Context) ([]string, error) {
			return s.scan.FindBaseName(ctx, name)
		}},
	})
}
