// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		boolNames []string
		validate  func(*testing.T, *ArgParser)
	}{
		{
			name: "flag with value",
			args: []string{"read_file", "--timeout", "30s"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(0) != "read_file" {
					t.Errorf("Positional(0) = %q, want read_file", p.Positional(0))
				}
				if p.Flag("timeout") != "30s" {
					t.Errorf("Flag(timeout) = %q, want 30s", p.Flag("timeout"))
				}
			},
		},
		{
			name: "flag with equals",
			args: []string{"--addr=127.0.0.1:9000"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("addr") != "127.0.0.1:9000" {
					t.Errorf("Flag(addr) = %q", p.Flag("addr"))
				}
			},
		},
		{
			name:      "declared boolean does not take a value",
			args:      []string{"--raw", "read_file"},
			boolNames: []string{"raw"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("raw") {
					t.Error("BoolFlag(raw) should be true")
				}
				if p.Positional(0) != "read_file" {
					t.Errorf("Positional(0) = %q, want read_file", p.Positional(0))
				}
			},
		},
		{
			name:      "explicit boolean value",
			args:      []string{"--force=false"},
			boolNames: []string{"force"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("force") {
					t.Error("BoolFlag(force) should be false")
				}
			},
		},
		{
			name: "repeated flags with alias",
			args: []string{"call", "--param", "a=1", "-p", "b=2", "--param=c=3"},
			validate: func(t *testing.T, p *ArgParser) {
				got := p.Flags("param", "p")
				want := []string{"a=1", "c=3", "b=2"}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("Flags = %v, want %v", got, want)
				}
				if p.Flag("param") != "c=3" {
					t.Errorf("Flag(param) = %q, want last value", p.Flag("param"))
				}
			},
		},
		{
			name: "double dash ends flags",
			args: []string{"run_command", "--", "--not-a-flag", "-x"},
			validate: func(t *testing.T, p *ArgParser) {
				want := []string{"run_command", "--not-a-flag", "-x"}
				if !reflect.DeepEqual(p.PositionalFrom(0), want) {
					t.Errorf("positional = %v, want %v", p.PositionalFrom(0), want)
				}
				if p.HasFlag("x") {
					t.Error("-x after -- must not be a flag")
				}
			},
		},
		{
			name: "negative number is a value",
			args: []string{"--offset", "-5", "-3"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.FlagIntOrDefault("offset", 0) != -5 {
					t.Errorf("FlagInt(offset) = %d, want -5", p.FlagIntOrDefault("offset", 0))
				}
				if p.Positional(0) != "-3" {
					t.Errorf("Positional(0) = %q, want -3", p.Positional(0))
				}
			},
		},
		{
			name: "trailing flag is boolean",
			args: []string{"show", "--verbose"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("verbose") {
					t.Error("trailing flag should be boolean")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewArgParser(tt.args, tt.boolNames...))
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--n", "12", "--bad", "x"})
	if got := p.FlagIntOrDefault("n", 1); got != 12 {
		t.Errorf("n = %d, want 12", got)
	}
	if got := p.FlagIntOrDefault("bad", 7); got != 7 {
		t.Errorf("bad = %d, want default 7", got)
	}
	if got := p.FlagIntOrDefault("missing", 3); got != 3 {
		t.Errorf("missing = %d, want default 3", got)
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	if p.PositionalCount() != 0 || p.Positional(0) != "" || p.PositionalFrom(1) != nil {
		t.Error("empty parser should have no positional arguments")
	}
	if p.Flag("x") != "" || p.BoolFlag("x") || p.HasFlag("x") {
		t.Error("empty parser should have no flags")
	}
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"YES", true, false},
		{"on", true, false},
		{"0", false, false},
		{" n ", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := ParseBoolString(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBoolString(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseKeyValue(t *testing.T) {
	k, v, err := ParseKeyValue("command=a=b c")
	if err != nil || k != "command" || v != "a=b c" {
		t.Errorf("got %q %q %v", k, v, err)
	}
	if _, v, err := ParseKeyValue("empty="); err != nil || v != "" {
		t.Errorf("empty value: %q %v", v, err)
	}
	for _, bad := range []string{"novalue", "=x", ""} {
		if _, _, err := ParseKeyValue(bad); err == nil {
			t.Errorf("ParseKeyValue(%q) should fail", bad)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		argv        []string
		wantCommand Command
		wantErr     bool
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no arguments shows help",
			argv:        nil,
			wantCommand: CmdHelp,
		},
		{
			name:        "serve",
			argv:        []string{"serve", "--addr", "127.0.0.1:9000"},
			wantCommand: CmdServe,
			validate: func(t *testing.T, a Args) {
				if !reflect.DeepEqual(a.Raw, []string{"--addr", "127.0.0.1:9000"}) {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{
			name:        "global flags around the command",
			argv:        []string{"-w", "/a", "call", "read_file", "--json", "--workspace=/b", "-p", "uri=x"},
			wantCommand: CmdCall,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
				if !reflect.DeepEqual(a.Workspace, []string{"/a", "/b"}) {
					t.Errorf("Workspace = %v", a.Workspace)
				}
				if !reflect.DeepEqual(a.Raw, []string{"read_file", "-p", "uri=x"}) {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{
			name:        "modes and logging",
			argv:        []string{"--offline", "--privacy", "-v", "--log-level", "TRACE", "status"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.Offline || !a.Privacy || !a.Verbose || a.LogLevel != "trace" {
					t.Errorf("flags not parsed: %+v", a)
				}
			},
		},
		{
			name:        "globals after double dash are kept",
			argv:        []string{"call", "run_command", "--", "--json"},
			wantCommand: CmdCall,
			validate: func(t *testing.T, a Args) {
				if a.JSON {
					t.Error("--json after -- must not be global")
				}
				if !reflect.DeepEqual(a.Raw, []string{"run_command", "--", "--json"}) {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{
			name:        "alias",
			argv:        []string{"s"},
			wantCommand: CmdStatus,
		},
		{
			name:        "audit",
			argv:        []string{"audit", "--failed"},
			wantCommand: CmdAudit,
		},
		{
			name:        "version flag",
			argv:        []string{"--version"},
			wantCommand: CmdVersion,
		},
		{
			name:    "unknown command",
			argv:    []string{"frobnicate"},
			wantErr: true,
		},
		{
			name:    "missing flag value",
			argv:    []string{"status", "--config"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseArgs(tt.argv)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if ExitCode(err) != ExitUsageError {
					t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitUsageError)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd != tt.wantCommand {
				t.Errorf("Command = %v, want %v", cmd, tt.wantCommand)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// EXIT CODES (errors.go)
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", usageErr("call", "bad"), ExitUsageError},
		{"config", &ConfigError{Err: errors.New("x")}, ExitConfigError},
		{"no roots", fmt.Errorf("wrapped: %w", config.ErrNoRoots), ExitConfigError},
		{"validation", &tools.ValidationError{Tool: tools.ReadFile, Message: "m"}, ExitValidationError},
		{"execution", &tools.ExecutionError{Tool: tools.ReadFile, Message: "m"}, ExitExecutionError},
		{"busy", &tools.ResourceBusyError{Tool: tools.RewriteFile}, ExitBusyError},
		{"interrupted", context.Canceled, ExitInterrupted},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

// =============================================================================
// INVOCATION BUILDING (call.go)
// =============================================================================

func TestBuildInvocation(t *testing.T) {
	inv, err := buildInvocation("read_file", []string{`{"uri": "a.go", "start_line": 3}`}, []string{"uri=b.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Name != tools.ReadFile {
		t.Errorf("Name = %q", inv.Name)
	}
	if inv.Params["uri"] != "b.go" {
		t.Errorf("pairs should override JSON, got %v", inv.Params["uri"])
	}
	if n, ok := inv.Params["start_line"].(json.Number); !ok || n.String() != "3" {
		t.Errorf("start_line = %#v, want json.Number 3", inv.Params["start_line"])
	}

	inv, err = buildInvocation("ls_dir", nil, nil)
	if err != nil || len(inv.Params) != 0 {
		t.Errorf("no parameters: %v %v", inv.Params, err)
	}

	for _, tc := range []struct {
		name  string
		pos   []string
		pairs []string
	}{
		{"no_such_tool", nil, nil},
		{"read_file", []string{"[1, 2]"}, nil},
		{"read_file", []string{"{oops"}, nil},
		{"read_file", nil, []string{"missing-equals"}},
	} {
		if _, err := buildInvocation(tc.name, tc.pos, tc.pairs); ExitCode(err) != ExitUsageError {
			t.Errorf("buildInvocation(%q, %v, %v) = %v, want a usage error", tc.name, tc.pos, tc.pairs, err)
		}
	}
}

// =============================================================================
// REPL PARSING (repl.go)
// =============================================================================

func TestParseReplLine(t *testing.T) {
	in, err := parseReplLine(`run_command command="go test ./..." cwd='sub dir'`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"command": "go test ./...", "cwd": "sub dir"}
	if in.Invocation == nil || in.Invocation.Name != tools.RunCommand || !reflect.DeepEqual(in.Invocation.Params, want) {
		t.Errorf("got %+v", in.Invocation)
	}

	in, err = parseReplLine(`  read_file {"uri": "x.go", "page_number": 2}  `)
	if err != nil || in.Invocation == nil || in.Invocation.Params["uri"] != "x.go" {
		t.Errorf("JSON form: %+v %v", in.Invocation, err)
	}

	in, err = parseReplLine(":history 5")
	if err != nil || in.Meta != "history" || !reflect.DeepEqual(in.MetaArgs, []string{"5"}) {
		t.Errorf("meta: %+v %v", in, err)
	}

	for _, quit := range []string{"quit", "exit", ":q", ":QUIT"} {
		in, _ := parseReplLine(quit)
		if in.Meta != "quit" && in.Meta != "q" {
			t.Errorf("%q should quit, got %+v", quit, in)
		}
	}

	if in, err := parseReplLine("   "); err != nil || !in.empty() {
		t.Errorf("blank line: %+v %v", in, err)
	}
	for _, bad := range []string{"nope x=1", "read_file uri", "read_file uri='x", ":"} {
		if _, err := parseReplLine(bad); err == nil {
			t.Errorf("parseReplLine(%q) should fail", bad)
		}
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`a b  c`, []string{"a", "b", "c"}},
		{`k="x y" j='p "q"'`, []string{"k=x y", `j=p "q"`}},
		{`k="a \"b\" \\c"`, []string{`k=a "b" \c`}},
		{`k=a\ b`, []string{"k=a b"}},
		{`k=""`, []string{"k="}},
	}
	for _, tt := range tests {
		got, err := splitWords(tt.in)
		if err != nil || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitWords(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := splitWords(`trailing\`); err == nil {
		t.Error("trailing backslash should fail")
	}
}

func TestCompleteLine(t *testing.T) {
	got := completeLine("search_")
	want := []string{"search_pathnames_only ", "search_for_files ", "search_in_file "}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("completeLine = %q, want %q", got, want)
	}
	if got := completeLine(":hi"); !reflect.DeepEqual(got, []string{":history"}) {
		t.Errorf("completeLine(:hi) = %q", got)
	}
	if got := completeLine("read_file uri"); got != nil {
		t.Errorf("no completion after the tool name, got %q", got)
	}
}

func TestIsLoopback(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:7878": true,
		"[::1]:80":       true,
		"localhost:1":    true,
		"0.0.0.0:7878":   false,
		"10.0.0.5:80":    false,
		"garbage":        false,
	} {
		if got := isLoopback(addr); got != want {
			t.Errorf("isLoopback(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("one two three four", 12)
	if got != "one two\nthree four" {
		t.Errorf("WrapText = %q", got)
	}
}

func TestWrapText_WideCharacters(t *testing.T) {
	// Each word is four columns wide but six bytes long.
	got := WrapText("日本 日本 日本", 12)
	if got != "日本 日本\n日本" {
		t.Errorf("WrapText = %q", got)
	}
}

func TestPrintToolList_FitsWidth(t *testing.T) {
	var narrow bytes.Buffer
	printToolList(&narrow, 60)
	lines := strings.Split(strings.TrimRight(narrow.String(), "\n"), "\n")
	if len(lines) != len(tools.Definitions()) {
		t.Fatalf("got %d rows, want %d", len(lines), len(tools.Definitions()))
	}
	cut := false
	for _, line := range lines {
		if w := util.StringWidth(strings.TrimRight(line, " ")); w > 60 {
			t.Errorf("row %q is %d columns wide", line, w)
		}
		cut = cut || strings.HasSuffix(strings.TrimRight(line, " "), "...")
	}
	if !cut {
		t.Error("expected at least one description to be shortened at 60 columns")
	}

	var wide bytes.Buffer
	printToolList(&wide, 1000)
	if strings.Contains(wide.String(), "...") {
		t.Errorf("nothing should be shortened at 1000 columns:\n%s", wide.String())
	}
}
