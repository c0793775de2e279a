// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// isolate points HOME at a temp dir and clears environment overrides so
// the user's own configuration never leaks into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"RIGRUN_WORKSPACE", "RIGRUN_OFFLINE", "RIGRUN_NO_NETWORK", "RIGRUN_PRIVACY",
		"RIGRUN_LOG_LEVEL", "RIGRUN_SERVER_ADDR", "RIGRUN_SERVER_TOKEN",
		"OLLAMA_HOST", "RIGRUN_NL_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func newWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Workspace.Roots = []string{root}
	cfg.Index.Path = filepath.Join(t.TempDir(), "index.db")
	cfg.Index.Watch = false
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.log")
	return cfg
}

// =============================================================================
// BUILD
// =============================================================================

func TestBuild_RequiresRoots(t *testing.T) {
	_, err := Build(config.Default(), zerolog.Nop(), BuildOptions{})
	if !errors.Is(err, config.ErrNoRoots) {
		t.Fatalf("err = %v, want ErrNoRoots", err)
	}
	if ExitCode(err) != ExitConfigError {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitConfigError)
	}
}

func TestBuild_WithoutIndex(t *testing.T) {
	root := newWorkspace(t, map[string]string{"main.go": "package main\n"})
	cfg := testConfig(t, root)
	cfg.Index.Enabled = false

	app, err := Build(cfg, zerolog.Nop(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Index != nil || app.Ollama != nil {
		t.Error("index and translator should be disabled")
	}
	if len(app.HealthChecks()) != 0 {
		t.Errorf("HealthChecks = %d, want 0", len(app.HealthChecks()))
	}

	text, err := app.Gateway.Run(context.Background(), "read_file", map[string]any{"uri": "main.go"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if !strings.Contains(text, "package main") {
		t.Errorf("read_file = %q", text)
	}

	// Without a translator the NL tool fails at execution time.
	_, err = app.Gateway.Run(context.Background(), "run_nl_command", map[string]any{"nl_input": "list files"})
	if tools.ErrorKind(err) != "execution" {
		t.Errorf("run_nl_command error = %v, want an execution error", err)
	}
}

func TestBuild_IndexedSearch(t *testing.T) {
	root := newWorkspace(t, map[string]string{
		"a.go":      "func needleFinder() {}",
		"sub/b.txt": "no match here",
	})
	cfg := testConfig(t, root)

	app, err := Build(cfg, zerolog.Nop(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	if app.Index == nil {
		t.Fatal("index should be open")
	}

	ctx := context.Background()
	if err := app.Index.Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}
	for _, hc := range app.HealthChecks() {
		if err := hc.Check(ctx); err != nil {
			t.Errorf("health check %s: %v", hc.Name, err)
		}
	}

	text, err := app.Gateway.Run(ctx, "search_for_files", map[string]any{"query": "needleFinder"})
	if err != nil {
		t.Fatalf("search_for_files: %v", err)
	}
	if text != filepath.Join(root, "a.go") {
		t.Errorf("search_for_files = %q", text)
	}

	// Files written through the gateway reach the index without a watcher.
	if _, err := app.Gateway.Run(ctx, "rewrite_file", map[string]any{
		"uri":         "new.txt",
		"new_content": "needleFinder again",
	}); err != nil {
		t.Fatalf("rewrite_file: %v", err)
	}
	got, err := app.Index.SearchContent(ctx, "needleFinder")
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("indexed matches = %v, want 2", got)
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func TestHandleCall(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, map[string]string{"main.go": "package main\n"})

	var out bytes.Buffer
	err := HandleCall(context.Background(), Args{
		Workspace: []string{root},
		Raw:       []string{"read_file", "-p", "uri=main.go", "--raw"},
	}, &out)
	if err != nil {
		t.Fatalf("HandleCall: %v", err)
	}
	want := filepath.Join(root, "main.go") + "\n```go\npackage main\n```\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestHandleCall_JSON(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, map[string]string{"notes.txt": "hello"})

	var out bytes.Buffer
	err := HandleCall(context.Background(), Args{
		Workspace: []string{root},
		JSON:      true,
		Raw:       []string{"search_in_file", `{"uri": "notes.txt", "query": "hello"}`},
	}, &out)
	if err != nil {
		t.Fatalf("HandleCall: %v", err)
	}

	var resp struct {
		Success bool     `json:"success"`
		Data    CallData `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if !resp.Success || resp.Data.Tool != tools.SearchInFile || resp.Data.Result == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleCall_ValidationError(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, nil)

	var out bytes.Buffer
	err := HandleCall(context.Background(), Args{
		Workspace: []string{root},
		JSON:      true,
		Raw:       []string{"read_file", "-p", "uri=../../etc/passwd"},
	}, &out)
	if ExitCode(err) != ExitValidationError {
		t.Fatalf("err = %v, want a validation error", err)
	}

	var resp JSONResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if resp.Success || resp.Kind != "validation" || resp.Error == nil {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleCall_Usage(t *testing.T) {
	isolate(t)
	for _, raw := range [][]string{
		nil,
		{"read_file", "--timeout", "soon"},
		{"not_a_tool"},
	} {
		err := HandleCall(context.Background(), Args{Raw: raw}, &bytes.Buffer{})
		if ExitCode(err) != ExitUsageError {
			t.Errorf("HandleCall(%v) = %v, want a usage error", raw, err)
		}
	}
}

func TestHandleTools(t *testing.T) {
	var out bytes.Buffer
	if err := HandleTools(Args{JSON: true}, &out); err != nil {
		t.Fatalf("HandleTools: %v", err)
	}
	var resp struct {
		Data []ToolData `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Data) != len(tools.AllNames()) {
		t.Fatalf("tools = %d, want %d", len(resp.Data), len(tools.AllNames()))
	}
	if resp.Data[0].Name != tools.ReadFile || resp.Data[0].Risk != "Low" {
		t.Errorf("first tool = %+v", resp.Data[0])
	}

	out.Reset()
	if err := HandleTools(Args{Raw: []string{"edit_file"}}, &out); err != nil {
		t.Fatalf("HandleTools(edit_file): %v", err)
	}
	if !strings.Contains(out.String(), "search_replace_blocks") {
		t.Errorf("detail should list parameters: %q", out.String())
	}

	if err := HandleTools(Args{Raw: []string{"nope"}}, &bytes.Buffer{}); ExitCode(err) != ExitUsageError {
		t.Errorf("unknown tool err = %v", err)
	}
}

func TestHandleConfig(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, nil)
	path := filepath.Join(t.TempDir(), "gateway.toml")
	args := Args{ConfigPath: path, Workspace: []string{root}}

	var out bytes.Buffer
	if err := HandleConfig(withRaw(args, "init"), &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	if err := HandleConfig(withRaw(args, "init"), &out); ExitCode(err) != ExitUsageError {
		t.Errorf("second init = %v, want a usage error", err)
	}
	if err := HandleConfig(withRaw(args, "init", "--force"), &out); err != nil {
		t.Errorf("forced init: %v", err)
	}

	// show reads the file back; roots come from the file this time.
	out.Reset()
	if err := HandleConfig(Args{ConfigPath: path, Raw: []string{"show"}}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.String(), root) {
		t.Errorf("show should include the root %q:\n%s", root, out.String())
	}

	out.Reset()
	if err := HandleConfig(Args{ConfigPath: path, Raw: []string{"validate"}}, &out); err != nil {
		t.Errorf("validate: %v", err)
	}
	if err := HandleConfig(Args{ConfigPath: path, Raw: []string{"bogus"}}, &out); ExitCode(err) != ExitUsageError {
		t.Errorf("bogus subcommand = %v", err)
	}
}

func TestHandleConfig_ShowRedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("RIGRUN_SERVER_TOKEN", "s3cret-token")

	var out bytes.Buffer
	if err := HandleConfig(Args{Raw: []string{"show"}}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out.String(), "s3cret-token") || !strings.Contains(out.String(), "[REDACTED]") {
		t.Errorf("token not redacted:\n%s", out.String())
	}
}

func TestHandleConfig_ValidateWithoutRoots(t *testing.T) {
	isolate(t)
	err := HandleConfig(Args{Raw: []string{"validate"}}, &bytes.Buffer{})
	if !errors.Is(err, config.ErrNoRoots) {
		t.Errorf("err = %v, want ErrNoRoots", err)
	}
}

func TestHandleStatus(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, nil)

	var out bytes.Buffer
	err := HandleStatus(context.Background(), Args{Workspace: []string{root}, Offline: true, JSON: true}, &out)
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	var resp struct {
		Data StatusData `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Data.Network != "offline" {
		t.Errorf("Network = %q, want offline", resp.Data.Network)
	}
	if len(resp.Data.Roots) != 1 || resp.Data.Roots[0] != root {
		t.Errorf("Roots = %v", resp.Data.Roots)
	}
	if resp.Data.Translator.Enabled {
		t.Error("translator should be disabled by default")
	}
}

func TestHandleAudit(t *testing.T) {
	isolate(t)
	root := newWorkspace(t, map[string]string{"a.txt": "a"})
	args := Args{Workspace: []string{root}, JSON: true}

	if err := HandleCall(context.Background(), withRaw(args, "read_file", "-p", "uri=a.txt"), &bytes.Buffer{}); err != nil {
		t.Fatalf("HandleCall: %v", err)
	}
	HandleCall(context.Background(), withRaw(args, "read_file", "-p", "uri=../../etc/passwd"), &bytes.Buffer{})

	var out bytes.Buffer
	if err := HandleAudit(withRaw(args), &out); err != nil {
		t.Fatalf("HandleAudit: %v", err)
	}
	var resp struct {
		Data []struct {
			Tool    string `json:"tool"`
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Outcome != "success" || resp.Data[1].Outcome != "invalid" {
		t.Fatalf("events = %+v", resp.Data)
	}

	out.Reset()
	if err := HandleAudit(withRaw(args, "--failed", "-n", "5"), &out); err != nil {
		t.Fatalf("HandleAudit --failed: %v", err)
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Tool != "read_file" {
		t.Errorf("failed events = %+v", resp.Data)
	}

	if err := HandleAudit(withRaw(args, "-n", "lots"), &bytes.Buffer{}); ExitCode(err) != ExitUsageError {
		t.Errorf("bad -n = %v, want a usage error", err)
	}
}

func TestHandleVersion(t *testing.T) {
	var out bytes.Buffer
	if err := HandleVersion(Args{}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("version output = %q", out.String())
	}
}

func withRaw(a Args, raw ...string) Args {
	a.Raw = raw
	return a
}
