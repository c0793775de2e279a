// rigrun-gateway - sandboxed tool execution for LLM agents.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/rigrun-gateway/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if err != nil {
		fail(err)
	}

	ctx := context.Background()
	out := os.Stdout

	switch cmd {
	case cli.CmdServe:
		err = cli.HandleServe(ctx, args, out)
	case cli.CmdCall:
		err = cli.HandleCall(ctx, args, out)
	case cli.CmdRepl:
		err = cli.HandleRepl(ctx, args, out)
	case cli.CmdTools:
		err = cli.HandleTools(args, out)
	case cli.CmdIndex:
		err = cli.HandleIndex(ctx, args, out)
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, args, out)
	case cli.CmdConfig:
		err = cli.HandleConfig(args, out)
	case cli.CmdAudit:
		err = cli.HandleAudit(args, out)
	case cli.CmdVersion:
		err = cli.HandleVersion(args, out)
	default:
		err = cli.HandleHelp(out)
	}
	if err != nil {
		fail(err)
	}
}

// fail prints err to stderr and exits with the matching code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", cli.ErrorStyle.Render("error:"), err)
	os.Exit(cli.ExitCode(err))
}
