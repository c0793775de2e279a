// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-gateway/internal/search"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/web"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

type fakeWeb struct {
	mu      sync.Mutex
	results []web.SearchResult
	page    web.Page
	err     error
	panics  bool
	calls   int
}

func (f *fakeWeb) Search(ctx context.Context, query string, k int, refresh bool) ([]web.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("search backend exploded")
	}
	f.calls++
	return f.results, f.err
}

func (f *fakeWeb) Browse(ctx context.Context, rawURL string, refresh bool) (web.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p := f.page
	p.URL = rawURL
	return p, f.err
}

type fixture struct {
	gw    *Gateway
	root  string
	diags *MemoryDiagnostics
	web   *fakeWeb
}

func newFixture(t *testing.T, files map[string]string, tune ...func(*Options, *terminal.Options)) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	ws, err := workspace.NewStatic(root)
	require.NoError(t, err)
	root = ws.Roots()[0]

	log := zerolog.Nop()
	ignore := []string{"node_modules", ".git"}
	opts := DefaultOptions()
	opts.Ignore = ignore
	termOpts := terminal.Options{InactivityTimeout: 5 * time.Second, BackgroundWindow: 500 * time.Millisecond}
	for _, f := range tune {
		f(&opts, &termOpts)
	}

	coord := terminal.New(terminal.NewLocalHost("", 100_000), termOpts, log)
	t.Cleanup(coord.Close)

	fx := &fixture{root: root, diags: NewMemoryDiagnostics(), web: &fakeWeb{}}
	fx.gw, err = New(Deps{
		Resolver:    workspace.NewResolver(ws),
		Files:       NewLocalFileStore(),
		Search:      search.NewSelector(nil, search.NewLocalScanner(ws, ignore, log), ws, log),
		Terminals:   coord,
		Web:         fx.web,
		Diagnostics: fx.diags,
	}, opts, log)
	require.NoError(t, err)
	return fx
}

func (fx *fixture) run(t *testing.T, name Name, params map[string]any) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return fx.gw.Run(ctx, string(name), params)
}

func (fx *fixture) path(rel string) string {
	return filepath.Join(fx.root, filepath.FromSlash(rel))
}

func requireExecutionError(t *testing.T, err error) *ExecutionError {
	t.Helper()
	var xe *ExecutionError
	require.True(t, errors.As(err, &xe), "want *ExecutionError, got %v", err)
	return xe
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures use POSIX sh")
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RequiresResolver(t *testing.T) {
	_, err := New(Deps{}, Options{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRun_ValidationErrorIsReturnedDirectly(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.run(t, ReadFile, map[string]any{"uri": "/etc/passwd"})
	requireValidationError(t, err, "uri")
	assert.Equal(t, "validation", ErrorKind(err))

	stats := fx.gw.Stats()
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 1, stats.ByTool[ReadFile])
}

// =============================================================================
// FILE TOOLS
// =============================================================================

func TestReadFile(t *testing.T) {
	fx := newFixture(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})

	text, err := fx.run(t, ReadFile, map[string]any{"uri": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, fx.path("main.go")+"\n```go\npackage main\n\nfunc main() {}\n```", text)
}

func TestReadFile_NonLatinText(t *testing.T) {
	russian := "Привет, мир! Это обычный текстовый файл.\n"
	fx := newFixture(t, map[string]string{
		"ru.txt": russian,
		"ja.md":  "# 日本語\n\n本文です。\n",
	})

	text, err := fx.run(t, ReadFile, map[string]any{"uri": "ru.txt"})
	require.NoError(t, err)
	assert.Contains(t, text, russian)

	text, err = fx.run(t, ReadFile, map[string]any{"uri": "ja.md"})
	require.NoError(t, err)
	assert.Contains(t, text, "本文です。")

	text, err = fx.run(t, SearchForFiles, map[string]any{"query": "обычный"})
	require.NoError(t, err)
	assert.Equal(t, fx.path("ru.txt"), text)
}

func TestReadFile_LineRange(t *testing.T) {
	fx := newFixture(t, map[string]string{"f.txt": "one\ntwo\nthree\nfour\n"})

	text, err := fx.run(t, ReadFile, map[string]any{"uri": "f.txt", "start_line": 2, "end_line": "3"})
	require.NoError(t, err)
	assert.Contains(t, text, "(lines 2-3)")
	assert.Contains(t, text, "\ntwo\nthree\n```")
	assert.NotContains(t, text, "four")

	_, err = fx.run(t, ReadFile, map[string]any{"uri": "f.txt", "start_line": 10})
	xe := requireExecutionError(t, err)
	assert.Contains(t, xe.Message, "past the end")
}

func TestReadFile_Pagination(t *testing.T) {
	fx := newFixture(t, map[string]string{"big.txt": strings.Repeat("a", 25)}, func(o *Options, _ *terminal.Options) {
		o.FileCharsPerPage = 10
	})

	text, err := fx.run(t, ReadFile, map[string]any{"uri": "big.txt"})
	require.NoError(t, err)
	assert.Contains(t, text, strings.Repeat("a", 10)+"\n```")
	assert.Contains(t, text, MoreOnNextPage)
	assert.Contains(t, text, "25 characters")
	assert.Contains(t, text, "page_number 2")

	text, err = fx.run(t, ReadFile, map[string]any{"uri": "big.txt", "page_number": 3})
	require.NoError(t, err)
	assert.Contains(t, text, "\naaaaa\n```")
	assert.NotContains(t, text, MoreOnNextPage)
}

func TestReadFile_RecoversByBaseName(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"pkg/deep/config.yaml": "key: value\n",
		"a/dup.txt":            "1",
		"b/dup.txt":            "2",
	})

	text, err := fx.run(t, ReadFile, map[string]any{"uri": "config.yaml"})
	require.NoError(t, err)
	assert.Contains(t, text, "does not exist; showing "+fx.path("pkg/deep/config.yaml"))
	assert.Contains(t, text, "key: value")

	_, err = fx.run(t, ReadFile, map[string]any{"uri": "dup.txt"})
	xe := requireExecutionError(t, err)
	assert.Contains(t, xe.Message, fx.path("a/dup.txt"))
	assert.Contains(t, xe.Message, fx.path("b/dup.txt"))

	_, err = fx.run(t, ReadFile, map[string]any{"uri": "nowhere.txt"})
	xe = requireExecutionError(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, xe.Message, fx.root)
	assert.Equal(t, "execution", ErrorKind(err))
}

func TestReadFile_RejectsFolderAndBinary(t *testing.T) {
	fx := newFixture(t, map[string]string{"dir/a.txt": "a"})
	require.NoError(t, os.WriteFile(fx.path("blob.dat"), []byte{0, 1, 2, 3}, 0644))

	_, err := fx.run(t, ReadFile, map[string]any{"uri": "dir"})
	requireExecutionError(t, err)

	_, err = fx.run(t, ReadFile, map[string]any{"uri": "blob.dat"})
	assert.ErrorIs(t, err, ErrBinaryFile)
}

func TestLsDir(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"b.txt":     "bb",
		"a.txt":     "a",
		"sub/c.txt": "c",
	}, func(o *Options, _ *terminal.Options) { o.EntriesPerPage = 2 })

	text, err := fx.run(t, LsDir, nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Directory %s (3 entries)\nsub/\na.txt (1 B)\n%s", fx.root, MoreOnNextPage), text)

	text, err = fx.run(t, LsDir, map[string]any{"page_number": 2})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Directory %s (3 entries)\nb.txt (2 B)", fx.root), text)

	_, err = fx.run(t, LsDir, map[string]any{"uri": "b.txt"})
	requireExecutionError(t, err)
}

func TestGetDirTree(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"src/main.go":         "",
		"src/util/strings.go": "",
		"README.md":           "",
		"node_modules/x/y.js": "",
	})

	text, err := fx.run(t, GetDirTree, map[string]any{"uri": "."})
	require.NoError(t, err)
	want := filepath.Base(fx.root) + "/\n" +
		"├── src/\n" +
		"│   ├── util/\n" +
		"│   │   └── strings.go\n" +
		"│   └── main.go\n" +
		"└── README.md"
	assert.Equal(t, want, text)
}

func TestGetDirTree_Limits(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"a/b/c/d.txt": "",
		"e.txt":       "",
		"f.txt":       "",
	}, func(o *Options, _ *terminal.Options) {
		o.TreeMaxDepth = 2
		o.TreeMaxEntries = 3
	})

	got, err := fx.run(t, GetDirTree, map[string]any{"uri": fx.root})
	require.NoError(t, err)
	assert.Contains(t, got, "│   └── b/ ...")
	assert.Contains(t, got, "entry limit reached")
	assert.NotContains(t, got, "f.txt")
}

// =============================================================================
// SEARCH TOOLS
// =============================================================================

func TestSearchForFiles_EmptyIndexFallsBackToScan(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"a.go":   "func HandleRequest() {}",
		"b/c.go": "// handlerequest here",
		"d.txt":  "nothing",
		"e/f.go": "HandleRequest()",
	}, func(o *Options, _ *terminal.Options) { o.EntriesPerPage = 2 })

	text, err := fx.run(t, SearchForFiles, map[string]any{"query": "HandleRequest"})
	require.NoError(t, err)
	assert.Equal(t, fx.path("a.go")+"\n"+fx.path("b/c.go")+"\n"+MoreOnNextPage, text)

	text, err = fx.run(t, SearchForFiles, map[string]any{"query": "HandleRequest", "page_number": 2})
	require.NoError(t, err)
	assert.Equal(t, fx.path("e/f.go"), text)

	text, err = fx.run(t, SearchForFiles, map[string]any{"query": `Handle\w+\(\)`, "is_regex": true, "search_in_folder": "e/"})
	require.NoError(t, err)
	assert.Equal(t, fx.path("e/f.go"), text)

	text, err = fx.run(t, SearchForFiles, map[string]any{"query": "absent"})
	require.NoError(t, err)
	assert.Equal(t, `No files found for "absent"`, text)
}

func TestSearchPathnamesOnly(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"internal/server/server.go":      "",
		"internal/server/server_test.go": "",
		"cmd/server.md":                  "",
	})

	text, err := fx.run(t, SearchPathnamesOnly, map[string]any{"query": "server", "include_pattern": "**/*.go"})
	require.NoError(t, err)
	assert.Equal(t, fx.path("internal/server/server.go")+"\n"+fx.path("internal/server/server_test.go"), text)
}

func TestSearchInFile(t *testing.T) {
	fx := newFixture(t, map[string]string{"f.txt": "alpha\nbeta\nALPHA\nalpha.beta\n"})

	text, err := fx.run(t, SearchInFile, map[string]any{"uri": "f.txt", "query": "alpha"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Lines in %s matching %q: 1, 4", fx.path("f.txt"), "alpha"), text)

	text, err = fx.run(t, SearchInFile, map[string]any{"uri": "f.txt", "query": "(?i)^alpha$", "is_regex": true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(text, ": 1, 3"), text)
}

// =============================================================================
// LINT & MUTATIONS
// =============================================================================

func TestReadLintErrors(t *testing.T) {
	fx := newFixture(t, map[string]string{"main.go": "package main\n"})

	text, err := fx.run(t, ReadLintErrors, map[string]any{"uri": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "No lint errors found in "+fx.path("main.go"), text)

	fx.diags.Set(fx.path("main.go"), []Diagnostic{
		{Severity: SeverityError, StartLine: 7, EndLine: 9, Message: "undefined: foo"},
		{Severity: SeverityWarning, StartLine: 1, EndLine: 1, Message: "unused import"},
		{Severity: SeverityError, StartLine: 3, EndLine: 3, Message: "missing return"},
	})
	text, err = fx.run(t, ReadLintErrors, map[string]any{"uri": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "Error 1:\nLines Affected: 3-3\nmissing return\n\nError 2:\nLines Affected: 7-9\nundefined: foo", text)
}

func TestCreateAndDelete(t *testing.T) {
	fx := newFixture(t, nil)

	text, err := fx.run(t, CreateFileOrFolder, map[string]any{"uri": "pkg/new/"})
	require.NoError(t, err)
	assert.Equal(t, "Created folder "+fx.path("pkg/new"), text)
	assert.DirExists(t, fx.path("pkg/new"))

	_, err = fx.run(t, CreateFileOrFolder, map[string]any{"uri": "pkg/new/file.go"})
	require.NoError(t, err)
	assert.FileExists(t, fx.path("pkg/new/file.go"))

	_, err = fx.run(t, CreateFileOrFolder, map[string]any{"uri": "pkg/new/file.go"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = fx.run(t, DeleteFileOrFolder, map[string]any{"uri": "pkg"})
	assert.ErrorIs(t, err, ErrNotEmpty)

	text, err = fx.run(t, DeleteFileOrFolder, map[string]any{"uri": "pkg", "is_recursive": true})
	require.NoError(t, err)
	assert.Equal(t, "Deleted folder "+fx.path("pkg"), text)
	assert.NoDirExists(t, fx.path("pkg"))

	_, err = fx.run(t, DeleteFileOrFolder, map[string]any{"uri": "pkg"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRewriteFile_ReportsLint(t *testing.T) {
	fx := newFixture(t, nil)
	fx.diags.Set(fx.path("out/x.go"), []Diagnostic{{Severity: SeverityError, StartLine: 1, EndLine: 1, Message: "expected package"}})

	text, err := fx.run(t, RewriteFile, map[string]any{"uri": "out/x.go", "new_content": "pakage x\n"})
	require.NoError(t, err)
	assert.Equal(t, "Wrote 9 characters to "+fx.path("out/x.go")+
		"\n\nLint after the change:\nError 1:\nLines Affected: 1-1\nexpected package", text)

	data, err := os.ReadFile(fx.path("out/x.go"))
	require.NoError(t, err)
	assert.Equal(t, "pakage x\n", string(data))
}

func TestRewriteFile_Protected(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.run(t, RewriteFile, map[string]any{"uri": ".env", "new_content": "TOKEN=x"})
	assert.ErrorIs(t, err, ErrProtectedFile)
}

func TestEditFile(t *testing.T) {
	fx := newFixture(t, map[string]string{"x.go": "package x\n\nfunc A() int { return 1 }\n"})

	text, err := fx.run(t, EditFile, map[string]any{
		"uri":                   "x.go",
		"search_replace_blocks": "<<<<<<< ORIGINAL\nreturn 1\n=======\nreturn 2\n>>>>>>> UPDATED",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Applied 1 edit to "+fx.path("x.go")), text)

	data, err := os.ReadFile(fx.path("x.go"))
	require.NoError(t, err)
	assert.Equal(t, "package x\n\nfunc A() int { return 2 }\n", string(data))

	_, err = fx.run(t, EditFile, map[string]any{
		"uri":                   "x.go",
		"search_replace_blocks": "<<<<<<< ORIGINAL\nreturn 1\n=======\nreturn 3\n>>>>>>> UPDATED",
	})
	xe := requireExecutionError(t, err)
	assert.Contains(t, xe.Error(), "not found")
}

func TestWriters_SecondWriterFailsFast(t *testing.T) {
	fx := newFixture(t, map[string]string{"x.txt": "x"})

	release, err := fx.gw.writers.acquire(fx.path("x.txt"), EditFile)
	require.NoError(t, err)

	_, err = fx.run(t, RewriteFile, map[string]any{"uri": "x.txt", "new_content": "y"})
	var busy *ResourceBusyError
	require.True(t, errors.As(err, &busy), "got %v", err)
	assert.Equal(t, EditFile, busy.Holder)
	assert.Equal(t, "busy", ErrorKind(err))

	release()
	release()
	_, err = fx.run(t, RewriteFile, map[string]any{"uri": "x.txt", "new_content": "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.gw.Stats().Busy)
}

// =============================================================================
// TERMINAL TOOLS
// =============================================================================

func TestRunCommand_ExitCode(t *testing.T) {
	skipWithoutShell(t)
	fx := newFixture(t, nil)

	text, err := fx.run(t, RunCommand, map[string]any{"command": "echo hello; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n(exit code 3)", text)
}

func TestRunCommand_Cwd(t *testing.T) {
	skipWithoutShell(t)
	fx := newFixture(t, map[string]string{"sub/marker.txt": ""})

	text, err := fx.run(t, RunCommand, map[string]any{"command": "ls", "cwd": "sub"})
	require.NoError(t, err)
	assert.Equal(t, "marker.txt\n(exit code 0)", text)
}

func TestRunCommand_InactivityTimeout(t *testing.T) {
	skipWithoutShell(t)
	fx := newFixture(t, nil, func(_ *Options, to *terminal.Options) {
		to.InactivityTimeout = 300 * time.Millisecond
	})

	text, err := fx.run(t, RunCommand, map[string]any{"command": "echo started; sleep 30"})
	require.NoError(t, err)
	assert.Contains(t, text, "started\n")
	assert.Contains(t, text, "no output for 0.3s and was stopped automatically")
}

func TestRunCommand_Interrupt(t *testing.T) {
	skipWithoutShell(t)
	fx := newFixture(t, nil)

	call, err := fx.gw.Start(context.Background(), Invocation{Name: RunCommand, Params: map[string]any{"command": "sleep 30"}})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	call.Interrupt()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	text, err := call.Wait(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "(the command was interrupted)")

	// A late interrupt is a no-op.
	call.Interrupt()
	res, ok := call.Result()
	require.True(t, ok)
	assert.Equal(t, terminal.ReasonInterrupted, res.(terminal.Result).Reason)
}

func TestPersistentTerminal(t *testing.T) {
	skipWithoutShell(t)
	fx := newFixture(t, nil)

	text, err := fx.run(t, OpenPersistentTerminal, map[string]any{"persistent_terminal_id": "dev"})
	require.NoError(t, err)
	assert.Equal(t, "Opened persistent terminal dev in "+fx.root, text)

	_, err = fx.run(t, OpenPersistentTerminal, map[string]any{"persistent_terminal_id": "dev"})
	assert.ErrorIs(t, err, terminal.ErrTerminalExists)

	text, err = fx.run(t, RunPersistentCommand, map[string]any{"persistent_terminal_id": "dev", "command": "echo quick"})
	require.NoError(t, err)
	assert.Equal(t, "quick\n(exit code 0)", text)

	text, err = fx.run(t, RunPersistentCommand, map[string]any{"persistent_terminal_id": "dev", "command": "echo serving; sleep 30"})
	require.NoError(t, err)
	assert.Contains(t, text, "still running in persistent terminal dev after 0.5s")

	_, err = fx.run(t, RunPersistentCommand, map[string]any{"persistent_terminal_id": "dev", "command": "echo again"})
	assert.ErrorIs(t, err, terminal.ErrTerminalBusy)

	text, err = fx.run(t, KillPersistentTerminal, map[string]any{"persistent_terminal_id": "dev"})
	require.NoError(t, err)
	assert.Equal(t, "Killed persistent terminal dev", text)

	_, err = fx.run(t, RunPersistentCommand, map[string]any{"persistent_terminal_id": "dev", "command": "echo gone"})
	assert.ErrorIs(t, err, terminal.ErrNoSuchTerminal)
}

func TestRunNLCommand_WithoutTranslator(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.run(t, RunNLCommand, map[string]any{"nl_input": "list files"})
	assert.ErrorIs(t, err, terminal.ErrNoTranslator)
}

// =============================================================================
// NETWORK TOOLS
// =============================================================================

func TestWebSearch(t *testing.T) {
	fx := newFixture(t, nil)
	fx.web.results = []web.SearchResult{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language"},
		{Title: "Tour", URL: "https://go.dev/tour"},
	}

	text, err := fx.run(t, WebSearch, map[string]any{"query": "golang"})
	require.NoError(t, err)
	assert.Equal(t, "1. Go\n   URL: https://go.dev\n   The Go programming language\n\n2. Tour\n   URL: https://go.dev/tour", text)

	fx.web.err = &web.AggregateError{Op: "web search", Failures: []web.StrategyFailure{{Strategy: "html", Err: errors.New("timeout")}}}
	_, err = fx.run(t, WebSearch, map[string]any{"query": "golang"})
	xe := requireExecutionError(t, err)
	assert.Contains(t, xe.Error(), "html")
}

func TestBrowseURL(t *testing.T) {
	fx := newFixture(t, nil)
	fx.web.page = web.Page{Title: "Example", Content: "Hello there", Source: "fetch"}

	text, err := fx.run(t, BrowseURL, map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Title: Example\nURL: https://example.com\n\nHello there", text)
}

// =============================================================================
// FAILURE CONTAINMENT
// =============================================================================

func TestPanicBecomesExecutionError(t *testing.T) {
	fx := newFixture(t, nil)
	fx.web.panics = true

	_, err := fx.run(t, WebSearch, map[string]any{"query": "boom"})
	xe := requireExecutionError(t, err)
	assert.Contains(t, xe.Message, "internal error")
	assert.Equal(t, 1, fx.gw.Stats().Failed)
}

func TestMissingCollaborator(t *testing.T) {
	ws, err := workspace.NewStatic(t.TempDir())
	require.NoError(t, err)
	gw, err := New(Deps{Resolver: workspace.NewResolver(ws)}, Options{}, zerolog.Nop())
	require.NoError(t, err)

	for name, params := range map[Name]map[string]any{
		ReadFile:       {"uri": "x"},
		SearchForFiles: {"query": "x"},
		RunCommand:     {"command": "true"},
		WebSearch:      {"query": "x"},
		ReadLintErrors: {"uri": "x"},
	} {
		_, err := gw.Run(context.Background(), string(name), params)
		requireExecutionError(t, err)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.txt": "a"}, func(o *Options, _ *terminal.Options) { o.HistorySize = 3 })

	for i := 0; i < 5; i++ {
		_, err := fx.run(t, ReadFile, map[string]any{"uri": "a.txt"})
		require.NoError(t, err)
	}
	assert.Len(t, fx.gw.History(), 3)
	stats := fx.gw.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Successful)
}

func TestConcurrentCalls(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.txt": "a", "b.txt": "b"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := "a.txt"
			if i%2 == 1 {
				uri = "b.txt"
			}
			_, err := fx.gw.Run(context.Background(), string(ReadFile), map[string]any{"uri": uri})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, fx.gw.Stats().Successful)
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (a *recordingAuditor) RecordCall(r Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return a.err
}

func TestAuditorSeesEveryCall(t *testing.T) {
	ws, err := workspace.NewStatic(t.TempDir())
	require.NoError(t, err)
	aud := &recordingAuditor{err: errors.New("disk full")}
	gw, err := New(Deps{Resolver: workspace.NewResolver(ws), Files: NewLocalFileStore(), Audit: aud}, Options{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = gw.Run(context.Background(), string(CreateFileOrFolder), map[string]any{"uri": "a.txt"})
	require.NoError(t, err, "a failing auditor must not fail the call")
	_, err = gw.Run(context.Background(), "no_such_tool", nil)
	require.Error(t, err)

	aud.mu.Lock()
	defer aud.mu.Unlock()
	require.Len(t, aud.records, 2)
	assert.Equal(t, OutcomeSuccess, aud.records[0].Outcome)
	assert.Equal(t, CreateFileOrFolder, aud.records[0].Tool)
	assert.Equal(t, OutcomeInvalid, aud.records[1].Outcome)
}
