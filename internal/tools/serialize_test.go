// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigrun-gateway/internal/danger"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/web"
)

func TestToText_Deterministic(t *testing.T) {
	r := DirResult{Path: "/w", Entries: []DirEntry{{Name: "a", IsDir: true}, {Name: "b.txt", Size: 2048}}, Total: 2, Page: 1}
	first := ToText(LsDir, nil, r)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ToText(LsDir, nil, r))
	}
	assert.Equal(t, "Directory /w (2 entries)\na/\nb.txt (2.0 kB)", first)
}

func TestToText_Unknown(t *testing.T) {
	assert.Equal(t, CannotRender, ToText(ReadFile, nil, struct{}{}))
	assert.Equal(t, CannotRender, ToText(ReadFile, nil, nil))
}

func TestToText_Lint(t *testing.T) {
	r := LintResult{Path: "/w/x.go", Diagnostics: []Diagnostic{
		{Severity: SeverityError, StartLine: 4, EndLine: 2, Message: "bad"},
	}}
	assert.Equal(t, "Error 1:\nLines Affected: 4-4\nbad", ToText(ReadLintErrors, nil, r))
}

func TestToText_Paths(t *testing.T) {
	assert.Equal(t, `No files found for "q"`, ToText(SearchForFiles, nil, PathsResult{Query: "q"}))
	assert.Equal(t, "Page 4 is past the last result (1 file)",
		ToText(SearchForFiles, nil, PathsResult{Query: "q", Page: 4, Total: 1, Paths: []string{}}))
}

func TestToText_Write(t *testing.T) {
	assert.Equal(t, "Wrote 1,200 characters to /w/a", ToText(RewriteFile, nil, WriteResult{Path: "/w/a", Chars: 1200}))
	assert.Equal(t, "Applied 2 edits to /w/a", ToText(EditFile, nil, WriteResult{Path: "/w/a", Blocks: 2}))
	assert.Equal(t, "Applied 1 edit to /w/a\n\nLint after the change:\nNo lint errors found in /w/a",
		ToText(EditFile, nil, WriteResult{Path: "/w/a", Blocks: 1, Lint: &LintResult{Path: "/w/a"}}))
}

func TestToText_Command(t *testing.T) {
	tests := []struct {
		name string
		res  terminal.Result
		want string
	}{
		{
			name: "done",
			res:  terminal.Result{Reason: terminal.ReasonDone, Output: "ok\n\n", ExitCode: 1},
			want: "ok\n(exit code 1)",
		},
		{
			name: "no output",
			res:  terminal.Result{Reason: terminal.ReasonDone},
			want: "(no output)\n(exit code 0)",
		},
		{
			name: "temporary timeout",
			res:  terminal.Result{Kind: terminal.KindTemporary, Reason: terminal.ReasonTimeout, Window: 8 * time.Second},
			want: "(no output)\n(the command produced no output for 8s and was stopped automatically; output so far is shown above)",
		},
		{
			name: "natural language",
			res: terminal.Result{
				Reason:        terminal.ReasonDone,
				ParsedCommand: "rm -rf build",
				Explanation:   "remove the build folder",
				Danger:        danger.High,
				Output:        "",
			},
			want: "Command: rm -rf build\nExplanation: remove the build folder\nWarning: " + danger.High.String() +
				"-risk command\n\n(no output)\n(exit code 0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToText(RunCommand, nil, tt.res))
		})
	}
}

func TestToText_Web(t *testing.T) {
	assert.Equal(t, `No web results found for "x"`, ToText(WebSearch, nil, WebSearchResult{Query: "x"}))
	assert.Equal(t, "URL: https://a.example\n\nbody",
		ToText(BrowseURL, nil, BrowseResult{Page: web.Page{URL: "https://a.example", Content: "body"}}))
}

func TestToText_FileRecovered(t *testing.T) {
	got := ToText(ReadFile, nil, FileResult{Path: "/w/pkg/a.go", RecoveredFrom: "/w/a.go", Content: "package a"})
	assert.Equal(t, "Note: /w/a.go does not exist; showing /w/pkg/a.go, the only file with that name.\n/w/pkg/a.go\n```go\npackage a\n```", got)
}

func TestCodeFence(t *testing.T) {
	assert.Equal(t, "```", codeFence("plain"))
	assert.Equal(t, "````", codeFence("has ``` inside"))
	assert.Equal(t, "``````", codeFence("x `````"))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "go", language("/w/main.go"))
	assert.Equal(t, "", language("no-extension-here"))
}
