// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling and exit codes for the gateway CLI.
//
// Commands always return errors; Run decides how to display them and which
// exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitValidationError indicates a tool call with invalid parameters
	ExitValidationError = 4
	// ExitExecutionError indicates a tool call that failed while running
	ExitExecutionError = 5
	// ExitBusyError indicates the target file already has a writer
	ExitBusyError = 6
	// ExitInterrupted follows the shell convention for SIGINT
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// ConfigError wraps a configuration load or validation failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

func usageErr(command, format string, args ...any) error {
	return &UsageError{Command: command, Reason: fmt.Sprintf(format, args...)}
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		usage *UsageError
		cfg   *ConfigError
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfg), errors.Is(err, config.ErrNoRoots):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	switch tools.ErrorKind(err) {
	case "validation":
		return ExitValidationError
	case "execution":
		return ExitExecutionError
	case "busy":
		return ExitBusyError
	}
	return ExitGeneralError
}
