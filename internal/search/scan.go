// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/util"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// LOCAL SCANNER
// =============================================================================

// LocalScanner implements ScanBackend by walking the workspace directly.
// It is always correct but slower than the index on large trees.
type LocalScanner struct {
	oracle      workspace.Oracle
	ignore      []string
	maxFileSize int64
	log         zerolog.Logger
}

// NewLocalScanner builds a scanner over the oracle's roots. ignore lists
// directory and file names that are never descended into or matched.
func NewLocalScanner(oracle workspace.Oracle, ignore []string, log zerolog.Logger) *LocalScanner {
	return &LocalScanner{
		oracle:      oracle,
		ignore:      append([]string(nil), ignore...),
		maxFileSize: util.MaxContentFileSize,
		log:         log.With().Str("component", "scan").Logger(),
	}
}

// SetMaxFileSize changes the size above which files are skipped by
// ScanContent. Values of 0 or less restore the default.
func (s *LocalScanner) SetMaxFileSize(n int64) {
	if n <= 0 {
		n = util.MaxContentFileSize
	}
	s.maxFileSize = n
}

// ScanContent returns the sorted paths of files under q.Folder (or every
// root) whose content matches q.
func (s *LocalScanner) ScanContent(ctx context.Context, q ContentQuery) ([]string, error) {
	match, err := contentMatcher(q)
	if err != nil {
		return nil, err
	}

	var out []string
	err = s.walk(ctx, scanBases(s.oracle, q.Folder), func(path, _ string, d fs.DirEntry) error {
		if util.IsBinaryExt(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > s.maxFileSize {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("unreadable file skipped")
			return nil
		}
		if util.IsBinary(content) {
			return nil
		}
		if match(content) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ScanPathnames returns the sorted paths whose workspace-relative form
// contains q.Text (case-insensitive) and matches q.Include when set.
func (s *LocalScanner) ScanPathnames(ctx context.Context, q PathQuery) ([]string, error) {
	if q.Include != "" {
		if _, err := MatchGlob(q.Include, "x"); err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", q.Include, err)
		}
	}

	var out []string
	err := s.walk(ctx, scanBases(s.oracle, ""), func(path, root string, _ fs.DirEntry) error {
		if ok, _ := q.Matches(path, root); ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// FindBaseName returns every file whose base name equals name.
func (s *LocalScanner) FindBaseName(ctx context.Context, name string) ([]string, error) {
	var out []string
	err := s.walk(ctx, scanBases(s.oracle, ""), func(path, _ string, d fs.DirEntry) error {
		if d.Name() == name {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

type scanBase struct {
	dir  string
	root string
}

func scanBases(oracle workspace.Oracle, folder string) []scanBase {
	if folder != "" {
		root, _ := oracle.Contains(folder)
		if root == "" {
			root = folder
		}
		return []scanBase{{dir: folder, root: root}}
	}
	var bases []scanBase
	for _, root := range oracle.Roots() {
		bases = append(bases, scanBase{dir: root, root: root})
	}
	return bases
}

// walk visits every regular, non-ignored file under bases. ctx is checked
// per entry.
func (s *LocalScanner) walk(ctx context.Context, bases []scanBase, visit func(path, root string, d fs.DirEntry) error) error {
	for _, base := range bases {
		err := filepath.WalkDir(base.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == base.dir {
					return err
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != base.dir && s.ignored(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || s.ignored(d.Name()) {
				return nil
			}
			return visit(path, base.root, d)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalScanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if name == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// contentMatcher compiles q into a predicate over file bytes. Plain
// queries match case-insensitively; regex queries are used as written.
func contentMatcher(q ContentQuery) (func([]byte) bool, error) {
	if q.IsRegex {
		re, err := regexp.Compile(q.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", q.Text, err)
		}
		return re.Match, nil
	}
	needle := bytes.ToLower([]byte(q.Text))
	return func(content []byte) bool {
		return bytes.Contains(bytes.ToLower(content), needle)
	}, nil
}

// Matches reports whether path (under root) satisfies the query.
func (q PathQuery) Matches(path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if !strings.Contains(strings.ToLower(rel), strings.ToLower(q.Text)) {
		return false, nil
	}
	if q.Include == "" {
		return true, nil
	}
	return MatchGlob(q.Include, rel)
}
