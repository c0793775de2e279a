// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

// Name identifies one of the fixed gateway tools.
type Name string

const (
	ReadFile               Name = "read_file"
	LsDir                  Name = "ls_dir"
	GetDirTree             Name = "get_dir_tree"
	SearchPathnamesOnly    Name = "search_pathnames_only"
	SearchForFiles         Name = "search_for_files"
	SearchInFile           Name = "search_in_file"
	ReadLintErrors         Name = "read_lint_errors"
	CreateFileOrFolder     Name = "create_file_or_folder"
	DeleteFileOrFolder     Name = "delete_file_or_folder"
	RewriteFile            Name = "rewrite_file"
	EditFile               Name = "edit_file"
	RunCommand             Name = "run_command"
	RunPersistentCommand   Name = "run_persistent_command"
	OpenPersistentTerminal Name = "open_persistent_terminal"
	KillPersistentTerminal Name = "kill_persistent_terminal"
	RunNLCommand           Name = "run_nl_command"
	WebSearch              Name = "web_search"
	BrowseURL              Name = "browse_url"
)

var allNames = []Name{
	ReadFile, LsDir, GetDirTree, SearchPathnamesOnly, SearchForFiles, SearchInFile,
	ReadLintErrors, CreateFileOrFolder, DeleteFileOrFolder, RewriteFile, EditFile,
	RunCommand, RunPersistentCommand, OpenPersistentTerminal, KillPersistentTerminal,
	RunNLCommand, WebSearch, BrowseURL,
}

// AllNames returns every tool name in catalog order.
func AllNames() []Name {
	return append([]Name(nil), allNames...)
}

// ParseName returns the Name for s, or false when s is not a tool.
func ParseName(s string) (Name, bool) {
	for _, n := range allNames {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// IsMutation reports whether the tool changes the file system.
func (n Name) IsMutation() bool {
	switch n {
	case CreateFileOrFolder, DeleteFileOrFolder, RewriteFile, EditFile:
		return true
	}
	return false
}

// IsNetwork reports whether the tool reaches the network.
func (n Name) IsNetwork() bool {
	return n == WebSearch || n == BrowseURL
}
