// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigrun-gateway/internal/audit"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// DefaultAuditLines is how many events `audit` prints without -n.
const DefaultAuditLines = 20

// =============================================================================
// AUDIT COMMAND
// =============================================================================

// HandleAudit prints the most recent audit events.
//
//	audit [-n N] [--failed] [--tool NAME]
func HandleAudit(args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "failed")
	n := DefaultAuditLines
	if raw := p.Flag("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return usageErr("audit", "-n must be a non-negative integer, got %q", raw)
		}
		n = v
	}
	failedOnly := p.BoolFlag("failed")
	tool := p.Flag("tool")

	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	path, err := cfg.AuditPath()
	if err != nil {
		return &ConfigError{Err: err}
	}

	all, err := audit.ReadRecent(path, 0)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	events := filterAudit(all, failedOnly, tool, n)

	if args.JSON {
		return NewJSONResponse("audit", events).Write(w)
	}
	if len(events) == 0 {
		fmt.Fprintf(w, "%s\n", DimStyle.Render("no audit events in "+path))
		return nil
	}
	for _, ev := range events {
		fmt.Fprintln(w, formatAuditEvent(ev))
	}
	return nil
}

// filterAudit keeps tool calls matching the filters, then the last n.
func filterAudit(events []audit.Event, failedOnly bool, tool string, n int) []audit.Event {
	out := make([]audit.Event, 0, len(events))
	for _, ev := range events {
		if failedOnly && ev.Success {
			continue
		}
		if tool != "" && ev.Tool != tool {
			continue
		}
		out = append(out, ev)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func formatAuditEvent(ev audit.Event) string {
	status := "ok"
	if !ev.Success {
		status = "error"
	}
	if ev.Outcome == "invalid" || ev.Outcome == "busy" {
		status = "warning"
	}
	name := ev.Tool
	if ev.EventType != audit.EventToolCall {
		name = ev.EventType
	}
	line := fmt.Sprintf("%s %-14s %-24s", RenderStatus(status), humanize.Time(ev.Timestamp), name)
	if ev.DurationMs > 0 {
		line += " " + DimStyle.Render((time.Duration(ev.DurationMs) * time.Millisecond).String())
	}
	if ev.Error != "" {
		line += " " + ErrorStyle.Render(util.TruncateRunes(ev.Error, 80))
	}
	return line
}
