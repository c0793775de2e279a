// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// =============================================================================
// LOCAL HOST
// =============================================================================

// LocalHost runs each command as `<shell> -c <command>` in its own process
// group so Interrupt reaches every child.
type LocalHost struct {
	// Shell is the interpreter path. Empty picks bash, then sh.
	Shell string

	// MaxOutputChars bounds the retained output (tail kept). 0 or less
	// keeps everything.
	MaxOutputChars int
}

// NewLocalHost creates a LocalHost.
func NewLocalHost(shell string, maxOutputChars int) *LocalHost {
	return &LocalHost{Shell: shell, MaxOutputChars: maxOutputChars}
}

// Start launches spec.Command. ctx only bounds the start itself; the
// process lives until it exits or is interrupted.
func (h *LocalHost) Start(ctx context.Context, spec ProcessSpec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shell, flag := h.shell()

	cmd := exec.Command(shell, flag, spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	if cmd.Env == nil {
		cmd.Env = sanitizeEnvironment()
	}
	setProcessGroup(cmd)
	// Background children can hold the pipes open after the shell exits.
	cmd.WaitDelay = time.Second

	p := &localProcess{
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
		maxChars: h.MaxOutputChars,
	}
	p.touch()
	w := &activityWriter{p: p}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	go p.wait()
	return p, nil
}

func (h *LocalHost) shell() (string, string) {
	if h.Shell != "" {
		return h.Shell, shellFlag(h.Shell)
	}
	return defaultShell()
}

func shellFlag(shell string) string {
	lower := strings.ToLower(shell)
	switch {
	case strings.HasSuffix(lower, "cmd"), strings.HasSuffix(lower, "cmd.exe"):
		return "/C"
	case strings.Contains(lower, "powershell"), strings.Contains(lower, "pwsh"):
		return "-Command"
	}
	return "-c"
}

// =============================================================================
// LOCAL PROCESS
// =============================================================================

type localProcess struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int

	mu       sync.Mutex
	out      strings.Builder
	maxChars int

	lastActivity atomic.Int64
	interrupted  atomic.Bool
}

func (p *localProcess) touch() {
	p.lastActivity.Store(time.Now().UnixNano())
}

func (p *localProcess) wait() {
	err := p.cmd.Wait()
	code := -1
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		code = 0
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		if state := p.cmd.ProcessState; state != nil {
			code = state.ExitCode()
		}
	}
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	close(p.done)
}

func (p *localProcess) Done() <-chan struct{} { return p.done }

func (p *localProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *localProcess) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func (p *localProcess) LastActivity() time.Time {
	return time.Unix(0, p.lastActivity.Load())
}

func (p *localProcess) Interrupt() {
	select {
	case <-p.done:
		return
	default:
	}
	if p.interrupted.Swap(true) {
		return
	}
	killProcessGroup(p.cmd)
}

// activityWriter appends output and records activity. exec serializes
// writes when Stdout and Stderr share a writer.
type activityWriter struct {
	p *localProcess
}

func (w *activityWriter) Write(b []byte) (int, error) {
	p := w.p
	p.mu.Lock()
	p.out.Write(b)
	// Trim lazily so long-running chatter stays bounded.
	if p.maxChars > 0 && p.out.Len() > 4*p.maxChars {
		tail := p.out.String()
		cut := len(tail) - 2*p.maxChars
		for cut < len(tail) && !utf8.RuneStart(tail[cut]) {
			cut++
		}
		tail = tail[cut:]
		p.out.Reset()
		p.out.WriteString(tail)
	}
	p.mu.Unlock()
	p.touch()
	return len(b), nil
}
