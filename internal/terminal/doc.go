// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package terminal runs shell commands for tool calls.
//
// Temporary runs get an anonymous terminal that is killed after a period
// without output. Persistent terminals are opened by id and run one command
// at a time; a call waits a short background window and then returns the
// output so far while the command keeps going. Poll reads a persistent
// terminal's latest output at any time.
//
// Every command is classified with package danger before it starts. Risky
// commands produce a Notice but are never blocked.
package terminal
