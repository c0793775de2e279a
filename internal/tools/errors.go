// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError is a malformed, missing or out-of-range parameter, or a
// path outside the workspace. Never retried.
type ValidationError struct {
	Tool    Name
	Param   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid parameters")
	if e.Tool != "" {
		b.WriteString(" for " + string(e.Tool))
	}
	if e.Param != "" {
		b.WriteString(": " + e.Param)
	}
	b.WriteString(": " + e.Message)
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExecutionError is a failure while running a validated call. The message
// carries enough context (paths, roots, strategy failures) for the caller
// to correct itself.
type ExecutionError struct {
	Tool    Name
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := string(e.Tool) + ": " + e.Message
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResourceBusyError is returned when a file already has a writer in flight.
type ResourceBusyError struct {
	Tool     Name
	Resource string
	Holder   Name
}

func (e *ResourceBusyError) Error() string {
	return fmt.Sprintf("%s: %s is being written by another %s call; retry after it finishes", e.Tool, e.Resource, e.Holder)
}

// ErrUnknownTool is returned for a name outside the tool enumeration.
var ErrUnknownTool = errors.New("unknown tool")

// ErrNotFound is returned by a FileStore for a missing resource.
var ErrNotFound = errors.New("no such file or directory")

func invalid(tool Name, param, format string, args ...any) *ValidationError {
	return &ValidationError{Tool: tool, Param: param, Message: fmt.Sprintf(format, args...)}
}

func failed(tool Name, err error, format string, args ...any) *ExecutionError {
	return &ExecutionError{Tool: tool, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorKind classifies err for transports: "validation", "execution",
// "busy" or "internal".
func ErrorKind(err error) string {
	var (
		v *ValidationError
		x *ExecutionError
		b *ResourceBusyError
	)
	switch {
	case errors.As(err, &v):
		return "validation"
	case errors.As(err, &b):
		return "busy"
	case errors.As(err, &x):
		return "execution"
	default:
		return "internal"
	}
}
