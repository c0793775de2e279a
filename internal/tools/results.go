// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"github.com/jeranaias/rigrun-gateway/internal/web"
)

// =============================================================================
// TOOL RESULTS
// =============================================================================
//
// Terminal tools return terminal.Result as is.

// FileResult is one page of a file.
type FileResult struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	Page       int    `json:"page"`
	HasNext    bool   `json:"has_next_page"`
	TotalChars int    `json:"total_chars"`
	// StartLine and EndLine are the line range that was read, or zero.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
	// RecoveredFrom is the requested path when it did not exist and a
	// unique file with the same base name was read instead.
	RecoveredFrom string `json:"recovered_from,omitempty"`
}

// DirEntry is one entry of a listing.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// DirResult is one page of a directory listing.
type DirResult struct {
	Path    string     `json:"path"`
	Entries []DirEntry `json:"entries"`
	Page    int        `json:"page"`
	HasNext bool       `json:"has_next_page"`
	Total   int        `json:"total"`
}

// TreeResult is a rendered directory tree.
type TreeResult struct {
	Path      string `json:"path"`
	Tree      string `json:"tree"`
	Truncated bool   `json:"truncated,omitempty"`
}

// PathsResult is one page of path or content search hits.
type PathsResult struct {
	Query   string   `json:"query"`
	Paths   []string `json:"paths"`
	Page    int      `json:"page"`
	HasNext bool     `json:"has_next_page"`
	Total   int      `json:"total"`
}

// LinesResult holds the 1-based line numbers matching a query in one file.
type LinesResult struct {
	Path  string `json:"path"`
	Query string `json:"query"`
	Lines []int  `json:"lines"`
}

// LintResult holds the error diagnostics of one file.
type LintResult struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// CreateResult reports a created file or folder.
type CreateResult struct {
	Path     string `json:"path"`
	IsFolder bool   `json:"is_folder"`
}

// DeleteResult reports a deleted file or folder.
type DeleteResult struct {
	Path     string `json:"path"`
	IsFolder bool   `json:"is_folder"`
}

// WriteResult reports a rewrite or edit. Lint is nil when no diagnostics
// store is configured.
type WriteResult struct {
	Path   string      `json:"path"`
	Blocks int         `json:"blocks,omitempty"`
	Chars  int         `json:"chars"`
	Lint   *LintResult `json:"lint,omitempty"`
}

// OpenTerminalResult reports an opened persistent terminal.
type OpenTerminalResult struct {
	TerminalID string `json:"persistent_terminal_id"`
	Cwd        string `json:"cwd"`
}

// KillTerminalResult reports a killed persistent terminal.
type KillTerminalResult struct {
	TerminalID string `json:"persistent_terminal_id"`
}

// WebSearchResult is the answer to web_search.
type WebSearchResult struct {
	Query   string             `json:"query"`
	Results []web.SearchResult `json:"results"`
}

// BrowseResult is the answer to browse_url.
type BrowseResult struct {
	Page web.Page `json:"page"`
}
