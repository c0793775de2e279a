// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools is the tool-call gateway: it validates a model-generated
// call, runs it against the workspace, and renders the result as text.
//
// # Pipeline
//
//	Invocation{Name, Params} -> Validator -> executor -> ToText
//
// Validation is a closed switch over Name producing one typed *Params
// struct per tool. Every path is resolved through workspace.Resolver, so
// nothing that reaches an executor points outside the workspace.
//
// # Key Types
//
//   - Gateway: runs calls; Start returns a *Call with Wait and Interrupt
//   - Validator: raw parameter bag to typed parameters
//   - FileStore / LocalFileStore: file-content collaborator
//   - DiagnosticsStore / MemoryDiagnostics: lint markers
//   - ValidationError, ExecutionError, ResourceBusyError: failure taxonomy
//   - Record / Auditor: execution history and its optional audit sink
//
// # Available Tools
//
// Files: read_file, ls_dir, get_dir_tree, search_pathnames_only,
// search_for_files, search_in_file, read_lint_errors.
//
// Mutations: create_file_or_folder, delete_file_or_folder, rewrite_file,
// edit_file. Writers hold a per-file slot; a second writer fails fast.
//
// Terminals: run_command, run_persistent_command, open_persistent_terminal,
// kill_persistent_terminal, run_nl_command.
//
// Network: web_search, browse_url.
//
// # Usage
//
//	gw, err := tools.New(tools.Deps{Resolver: resolver, Files: tools.NewLocalFileStore()}, tools.DefaultOptions(), log)
//	text, err := gw.Run(ctx, "read_file", map[string]any{"uri": "main.go"})
package tools
