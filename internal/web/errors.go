// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse marks a response that arrived but could not be understood.
// Parse failures are never retried.
var ErrParse = errors.New("unparseable response")

// StrategyFailure records why one strategy gave up.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// AggregateError is returned when every strategy for an operation failed.
type AggregateError struct {
	Op       string
	Failures []StrategyFailure
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: all %d strategies failed", e.Op, len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  - %s: %v", f.Strategy, f.Err)
	}
	return b.String()
}

// Unwrap exposes every strategy error to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}
