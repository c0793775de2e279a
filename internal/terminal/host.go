// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"context"
	"time"
)

// =============================================================================
// PROCESS HOST
// =============================================================================

// ProcessSpec describes one shell command to start.
type ProcessSpec struct {
	Command string
	Dir     string
	Env     []string
}

// Process is a started command. Output accumulates while it runs.
type Process interface {
	// Done is closed once the process has exited and its output is drained.
	Done() <-chan struct{}

	// ExitCode is valid after Done. -1 when the process was killed by a
	// signal or never reported a status.
	ExitCode() int

	// Output returns the combined stdout/stderr captured so far.
	Output() string

	// LastActivity is the time of the most recent output (or the start).
	LastActivity() time.Time

	// Interrupt kills the process and anything it spawned. Safe to call
	// more than once and after exit.
	Interrupt()
}

// Host starts processes. LocalHost runs them on this machine.
type Host interface {
	Start(ctx context.Context, spec ProcessSpec) (Process, error)
}
