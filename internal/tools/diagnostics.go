// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"sort"
	"sync"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityHint Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a name back to a Severity. Unknown names map to
// SeverityError.
func ParseSeverity(s string) Severity {
	switch s {
	case "hint":
		return SeverityHint
	case "info", "information":
		return SeverityInfo
	case "warning", "warn":
		return SeverityWarning
	default:
		return SeverityError
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// Diagnostic is one lint marker. Lines are 1-based.
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Message   string   `json:"message"`
	Source    string   `json:"source,omitempty"`
}

// DiagnosticsStore is the lint/marker collaborator.
type DiagnosticsStore interface {
	// Diagnostics returns the markers for path at or above min severity,
	// ordered by line.
	Diagnostics(ctx context.Context, path string, min Severity) ([]Diagnostic, error)
}

// MemoryDiagnostics is a DiagnosticsStore fed by Set, typically from an
// editor pushing markers over HTTP.
type MemoryDiagnostics struct {
	mu    sync.RWMutex
	byKey map[string][]Diagnostic
}

// NewMemoryDiagnostics returns an empty store.
func NewMemoryDiagnostics() *MemoryDiagnostics {
	return &MemoryDiagnostics{byKey: make(map[string][]Diagnostic)}
}

// Set replaces the markers for path. An empty slice clears them.
func (m *MemoryDiagnostics) Set(path string, diags []Diagnostic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(diags) == 0 {
		delete(m.byKey, path)
		return
	}
	cp := append([]Diagnostic(nil), diags...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].StartLine < cp[j].StartLine })
	m.byKey[path] = cp
}

func (m *MemoryDiagnostics) Diagnostics(ctx context.Context, path string, min Severity) ([]Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Diagnostic
	for _, d := range m.byKey[path] {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out, nil
}
