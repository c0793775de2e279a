// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"

	"github.com/jeranaias/rigrun-gateway/internal/terminal"
)

// =============================================================================
// TERMINAL TOOLS
// =============================================================================
//
// A command that exits non-zero still resolves successfully: the output
// and exit code are what the caller needs to react.

func (g *Gateway) runCommand(ctx context.Context, call *Call, p RunCommandParams) (terminal.Result, error) {
	if err := g.needTerminals(RunCommand); err != nil {
		return terminal.Result{}, err
	}
	run, err := g.deps.Terminals.RunTemporary(ctx, p.Command, p.Cwd)
	if err != nil {
		return terminal.Result{}, terminalError(RunCommand, err, "cannot start command")
	}
	return g.await(ctx, call, run), nil
}

func (g *Gateway) runPersistent(ctx context.Context, call *Call, p RunPersistentParams) (terminal.Result, error) {
	if err := g.needTerminals(RunPersistentCommand); err != nil {
		return terminal.Result{}, err
	}
	run, err := g.deps.Terminals.RunPersistent(ctx, p.TerminalID, p.Command)
	if err != nil {
		return terminal.Result{}, terminalError(RunPersistentCommand, err, "cannot run in terminal %s", p.TerminalID)
	}
	return g.await(ctx, call, run), nil
}

func (g *Gateway) runNL(ctx context.Context, call *Call, p RunNLParams) (terminal.Result, error) {
	if err := g.needTerminals(RunNLCommand); err != nil {
		return terminal.Result{}, err
	}
	run, err := g.deps.Terminals.RunNL(ctx, p.Request, p.Cwd)
	if err != nil {
		return terminal.Result{}, terminalError(RunNLCommand, err, "cannot run %q", p.Request)
	}
	return g.await(ctx, call, run), nil
}

func (g *Gateway) openTerminal(ctx context.Context, p OpenTerminalParams) (OpenTerminalResult, error) {
	if err := g.needTerminals(OpenPersistentTerminal); err != nil {
		return OpenTerminalResult{}, err
	}
	id, err := g.deps.Terminals.OpenPersistent(ctx, p.TerminalID, p.Cwd)
	if err != nil {
		return OpenTerminalResult{}, terminalError(OpenPersistentTerminal, err, "cannot open terminal")
	}
	return OpenTerminalResult{TerminalID: id, Cwd: p.Cwd}, nil
}

func (g *Gateway) killTerminal(p KillTerminalParams) (KillTerminalResult, error) {
	if err := g.needTerminals(KillPersistentTerminal); err != nil {
		return KillTerminalResult{}, err
	}
	if err := g.deps.Terminals.KillPersistent(p.TerminalID); err != nil {
		return KillTerminalResult{}, terminalError(KillPersistentTerminal, err, "cannot kill terminal %s", p.TerminalID)
	}
	return KillTerminalResult{TerminalID: p.TerminalID}, nil
}

// await ties the call's interrupt handle to run and waits for it.
func (g *Gateway) await(ctx context.Context, call *Call, run *terminal.Run) terminal.Result {
	call.onInterrupt(run.Interrupt)
	return run.Wait(ctx)
}

func (g *Gateway) needTerminals(tool Name) error {
	if g.deps.Terminals == nil {
		return failed(tool, nil, "no terminal host is configured")
	}
	return nil
}

func terminalError(tool Name, err error, format string, args ...any) error {
	if errors.Is(err, terminal.ErrEmptyCommand) {
		return &ValidationError{Tool: tool, Param: "command", Message: err.Error(), Err: err}
	}
	return failed(tool, err, format, args...)
}
