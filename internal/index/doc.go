// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index keeps a SQLite FTS5 index of workspace file contents.
//
// The index answers two questions fast on large workspaces: which files
// contain a string, and which paths exist. Search falls back to a direct
// scan when the index is absent or stale (see package search).
//
// # Usage
//
//	idx, err := index.New(index.DefaultConfig(dbPath, roots...))
//	err = idx.Index(ctx)
//	paths, err := idx.SearchContent(ctx, "handleRequest")
//
// After the first Index run a watcher (fsnotify, or polling when fsnotify is
// unavailable) applies incremental updates.
package index
