// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the gateway.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, StringWidth: display columns (go-runewidth)
//   - KeepHead, KeepTail: character caps with a visible marker
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// Content Search:
//   - IsBinary, IsBinaryExt: skip non-text files
//   - MaxContentFileSize, IgnoreNames: limits shared by the scanner and index
//
// # Usage
//
//	// Keep the last 100k characters of terminal output
//	out := util.KeepTail(raw, 100_000)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
