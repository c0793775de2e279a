// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigrun-gateway command line.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus the command's raw arguments
//   - ArgParser: Flag and positional parsing for one command
//   - App: The gateway and every collaborator, wired from configuration
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	switch cmd {
//	case cli.CmdServe:
//	    err = cli.HandleServe(ctx, args, os.Stdout)
//	case cli.CmdCall:
//	    err = cli.HandleCall(ctx, args, os.Stdout)
//	// ... other commands
//	}
//	os.Exit(cli.ExitCode(err))
//
// # Commands Overview
//
//   - serve: HTTP API over the tool gateway
//   - call: One tool call, parameters as JSON or key=value pairs
//   - repl: Interactive tool shell with history and completion
//   - tools: The tool catalog with risk levels and parameters
//   - index: Build the content index used by search_for_files
//   - status: Configuration and collaborator reachability
//   - config: Show, locate, initialize or validate the config file
//   - audit: Recent entries of the tool call audit log
//
// # Output Formats
//
// Every command accepts --json and prints one JSONResponse on stdout.
// Tool results are rendered with glamour when stdout is a terminal and
// printed verbatim otherwise.
package cli
