// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// RESULT RENDERING
// =============================================================================

var (
	rendererOnce sync.Once
	renderer     *glamour.TermRenderer
)

// markdownRenderer returns the shared glamour renderer, or nil when it
// cannot be built.
func markdownRenderer() *glamour.TermRenderer {
	rendererOnce.Do(func() {
		style := "dark"
		if !HasDarkBackground() {
			style = "light"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(GetTerminalWidth()-4),
			glamour.WithPreservedNewLines(),
		)
		if err == nil {
			renderer = r
		}
	})
	return renderer
}

// renderResult renders tool output for a terminal. Results are plain text
// with fenced code blocks, which glamour highlights.
func renderResult(text string) string {
	r := markdownRenderer()
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// displayResult prints a tool result, rendered only when stdout is a TTY
// so piped output stays byte-exact.
func displayResult(w io.Writer, text string, raw bool) {
	if raw || !IsStdoutTTY() {
		fmt.Fprint(w, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
		return
	}
	fmt.Fprint(w, renderResult(text))
}
