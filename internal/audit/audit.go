// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit writes an append-only JSON-lines log of tool calls with
// secrets redacted from error messages and metadata.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxFileSize is the default max file size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Event types.
const (
	EventToolCall = "tool_call"
	EventStartup  = "startup"
	EventShutdown = "shutdown"
)

// Consecutive write failures before the logger stops trying, and how long
// it waits before trying again.
const (
	failureThreshold = 5
	failureReset     = time.Minute
)

// ErrUnavailable is returned while the logger is backing off after
// repeated write failures.
var ErrUnavailable = errors.New("audit log unavailable after repeated write failures")

// =============================================================================
// AUDIT EVENT
// =============================================================================

// Event is a single audit log entry.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	CallID     string            `json:"call_id,omitempty"`
	Tool       string            `json:"tool,omitempty"`
	Outcome    string            `json:"outcome,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Redactor scrubs secrets from free text. *secrets.Detector satisfies it.
type Redactor interface {
	Redact(text string) string
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

// Logger is a thread-safe audit log writer.
type Logger struct {
	path     string
	maxSize  int64
	redactor Redactor

	mu           sync.Mutex
	file         *os.File
	failureCount int
	backoffUntil time.Time
}

// New opens (or creates) the audit log at path. maxSize <= 0 disables
// rotation; a nil redactor writes messages unchanged.
func New(path string, maxSize int64, redactor Redactor) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{
		path:     path,
		maxSize:  maxSize,
		redactor: redactor,
		file:     file,
	}, nil
}

// Path returns the audit log file path.
func (l *Logger) Path() string { return l.path }

// Log writes ev as one JSON line and syncs it to disk.
func (l *Logger) Log(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Error = l.redact(ev.Error)
	if len(ev.Metadata) > 0 {
		md := make(map[string]string, len(ev.Metadata))
		for k, v := range ev.Metadata {
			md[k] = l.redact(v)
		}
		ev.Metadata = md
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("audit log is closed")
	}
	if !l.backoffUntil.IsZero() {
		if time.Now().Before(l.backoffUntil) {
			return ErrUnavailable
		}
		l.backoffUntil = time.Time{}
		l.failureCount = 0
	}

	if err := l.checkRotationLocked(); err != nil {
		return l.failLocked(err)
	}
	if _, err := l.file.Write(line); err != nil {
		return l.failLocked(fmt.Errorf("failed to write audit log: %w", err))
	}
	if err := l.file.Sync(); err != nil {
		return l.failLocked(fmt.Errorf("failed to sync audit log: %w", err))
	}
	l.failureCount = 0
	return nil
}

// RecordCall logs one finished (or rejected) tool call.
func (l *Logger) RecordCall(r tools.Record) error {
	return l.Log(Event{
		Timestamp:  r.Started.UTC(),
		EventType:  EventToolCall,
		CallID:     r.ID,
		Tool:       string(r.Tool),
		Outcome:    string(r.Outcome),
		DurationMs: r.Duration.Milliseconds(),
		Success:    r.Outcome == tools.OutcomeSuccess,
		Error:      r.Error,
	})
}

// LogEvent logs a lifecycle event such as startup or shutdown.
func (l *Logger) LogEvent(eventType string, metadata map[string]string) error {
	return l.Log(Event{EventType: eventType, Success: true, Metadata: metadata})
}

// Close flushes and closes the log. Further writes fail.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) redact(s string) string {
	if s == "" || l.redactor == nil {
		return s
	}
	return l.redactor.Redact(s)
}

// failLocked counts a write failure and starts the backoff once the
// threshold is reached (caller must hold lock).
func (l *Logger) failLocked(err error) error {
	l.failureCount++
	if l.failureCount >= failureThreshold {
		l.backoffUntil = time.Now().Add(failureReset)
	}
	return err
}

// =============================================================================
// FILE ROTATION
// =============================================================================

// Rotate moves the current log aside with a timestamp suffix and starts a
// fresh file.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *Logger) rotateLocked() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405.000000")
	ext := filepath.Ext(l.path)
	base := strings.TrimSuffix(l.path, ext)
	rotatedPath := fmt.Sprintf("%s_%s%s", base, timestamp, ext)

	if err := os.Rename(l.path, rotatedPath); err != nil {
		// Keep logging to the original file.
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.file = nil
		return fmt.Errorf("failed to create new audit log after rotation: %w", err)
	}
	l.file = file
	return nil
}

func (l *Logger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return nil
	}
	if info.Size() >= l.maxSize {
		return l.rotateLocked()
	}
	return nil
}

// =============================================================================
// READING
// =============================================================================

// ReadRecent returns the last n events of the log at path, oldest first.
// n <= 0 returns every event. Lines that do not decode are skipped.
func ReadRecent(path string, n int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
		if n > 0 && len(events) > n {
			events = events[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return events, nil
}
