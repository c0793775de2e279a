// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for --json.
//
// Every command prints one JSONResponse on stdout in JSON mode; human
// messages go to stderr.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// JSONResponse is the envelope for every command's JSON output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Kind classifies a tool error: validation, execution, busy or internal.
	Kind string `json:"kind,omitempty"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Kind:      tools.ErrorKind(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	return r.Write(os.Stdout)
}

// Write outputs the indented JSON response to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// StderrPrint prints a message to stderr (for human-readable output in JSON mode).
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// RESPONSE DATA TYPES
// =============================================================================

// CallData is the result of one tool call.
type CallData struct {
	Tool     tools.Name `json:"tool"`
	Result   string     `json:"result"`
	Duration string     `json:"duration"`
}

// ToolData describes one tool for `tools --json`.
type ToolData struct {
	Name        tools.Name     `json:"name"`
	Description string         `json:"description"`
	Risk        string         `json:"risk"`
	Parameters  map[string]any `json:"parameters"`
}

// IndexData reports an index build.
type IndexData struct {
	Database  string `json:"database"`
	Files     int    `json:"files"`
	SizeBytes int64  `json:"size_bytes"`
	Duration  string `json:"duration"`
}

// StatusData describes the gateway's configuration and collaborators.
type StatusData struct {
	Version    string          `json:"version"`
	ConfigPath string          `json:"config_path,omitempty"`
	Roots      []string        `json:"roots"`
	Network    string          `json:"network"`
	Index      StatusIndexInfo `json:"index"`
	Translator StatusCheck     `json:"translator"`
	Server     string          `json:"server"`
}

// StatusIndexInfo describes the content index.
type StatusIndexInfo struct {
	Enabled   bool   `json:"enabled"`
	Database  string `json:"database,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// StatusCheck is the outcome of probing an optional collaborator.
type StatusCheck struct {
	Enabled bool   `json:"enabled"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
}

// VersionData holds build information.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}
