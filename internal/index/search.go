// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// CONTENT SEARCH
// =============================================================================

// trigramLen is the shortest query the trigram tokenizer can match on.
const trigramLen = 3

// SearchContent returns the sorted paths of indexed files whose body
// contains query (case-insensitive substring). For queries of three or more
// characters the trigram MATCH narrows candidates; the substring check on
// each body keeps the result identical to a direct scan.
func (idx *ContentIndex) SearchContent(ctx context.Context, query string) ([]string, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	stmt := `SELECT f.path, c.body FROM contents_fts c JOIN files f ON f.id = c.rowid`
	var args []any
	if utf8.RuneCountInString(query) >= trigramLen {
		stmt += ` WHERE contents_fts MATCH ?`
		args = append(args, ftsPhrase(query))
	}
	stmt += ` ORDER BY f.path`

	rows, err := idx.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	needle := strings.ToLower(query)
	var out []string
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if strings.Contains(strings.ToLower(body), needle) {
			out = append(out, path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return out, nil
}

// Paths returns every indexed path, sorted.
func (idx *ContentIndex) Paths(ctx context.Context) ([]string, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}
	return idx.queryPaths(ctx, "SELECT path FROM files ORDER BY path")
}

func (idx *ContentIndex) queryPaths(ctx context.Context, stmt string, args ...any) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		out = append(out, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return out, nil
}

// ftsPhrase quotes query as a single FTS5 phrase. Under the trigram
// tokenizer a phrase matches any substring of the body.
func ftsPhrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
