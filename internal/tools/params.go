// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"regexp"

	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// VALIDATED PARAMETERS
// =============================================================================
//
// One struct per tool. A value of any of these types has passed Validate:
// every Handle is inside the workspace and every page number is >= 1.

// ReadFileParams are the parameters of read_file. StartLine and EndLine are
// 1-based and inclusive; zero means unbounded.
type ReadFileParams struct {
	Handle    workspace.Handle
	StartLine int
	EndLine   int
	Page      int
}

// LsDirParams are the parameters of ls_dir.
type LsDirParams struct {
	Handle workspace.Handle
	Page   int
}

// DirTreeParams are the parameters of get_dir_tree.
type DirTreeParams struct {
	Handle workspace.Handle
}

// SearchPathnamesParams are the parameters of search_pathnames_only.
type SearchPathnamesParams struct {
	Query   string
	Include string
	Page    int
}

// SearchFilesParams are the parameters of search_for_files. Folder is nil
// for a whole-workspace search.
type SearchFilesParams struct {
	Query   string
	Folder  *workspace.Handle
	IsRegex bool
	Page    int
}

// SearchInFileParams are the parameters of search_in_file.
type SearchInFileParams struct {
	Handle  workspace.Handle
	Query   string
	IsRegex bool

	pattern *regexp.Regexp
}

// LintParams are the parameters of read_lint_errors.
type LintParams struct {
	Handle workspace.Handle
}

// CreateParams are the parameters of create_file_or_folder.
// Handle.IsFolder carries the folder intent.
type CreateParams struct {
	Handle workspace.Handle
}

// DeleteParams are the parameters of delete_file_or_folder.
type DeleteParams struct {
	Handle    workspace.Handle
	Recursive bool
}

// RewriteParams are the parameters of rewrite_file.
type RewriteParams struct {
	Handle  workspace.Handle
	Content string
}

// EditParams are the parameters of edit_file.
type EditParams struct {
	Handle workspace.Handle
	Blocks []EditBlock
}

// RunCommandParams are the parameters of run_command. Cwd is absolute.
type RunCommandParams struct {
	Command string
	Cwd     string
}

// RunPersistentParams are the parameters of run_persistent_command.
type RunPersistentParams struct {
	Command    string
	TerminalID string
}

// OpenTerminalParams are the parameters of open_persistent_terminal. An
// empty TerminalID asks for a generated one.
type OpenTerminalParams struct {
	Cwd        string
	TerminalID string
}

// KillTerminalParams are the parameters of kill_persistent_terminal.
type KillTerminalParams struct {
	TerminalID string
}

// RunNLParams are the parameters of run_nl_command.
type RunNLParams struct {
	Request string
	Cwd     string
}

// WebSearchParams are the parameters of web_search.
type WebSearchParams struct {
	Query   string
	K       int
	Refresh bool
}

// BrowseParams are the parameters of browse_url.
type BrowseParams struct {
	URL     string
	Refresh bool
}
