// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-gateway/internal/index"
	"github.com/jeranaias/rigrun-gateway/internal/util"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeIndex struct {
	content []string
	paths   []string
	err     error
	calls   int
}

func (f *fakeIndex) SearchContent(ctx context.Context, query string) ([]string, error) {
	f.calls++
	return f.content, f.err
}

func (f *fakeIndex) Paths(ctx context.Context) ([]string, error) {
	f.calls++
	return f.paths, f.err
}

func newWorkspace(t *testing.T, files map[string]string) (*workspace.Static, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	ws, err := workspace.NewStatic(root)
	require.NoError(t, err)
	return ws, ws.Roots()[0]
}

// =============================================================================
// STRATEGY LIST
// =============================================================================

func TestRun_FirstNonEmptyWins(t *testing.T) {
	second := false
	got, err := Run(context.Background(), zerolog.Nop(), []Strategy[int]{
		{Name: "a", Attempt: func(context.Context) ([]int, error) { return []int{1}, nil }},
		{Name: "b", Attempt: func(context.Context) ([]int, error) { second = true; return []int{2}, nil }},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
	assert.False(t, second)
}

func TestRun_FallsThrough(t *testing.T) {
	got, err := Run(context.Background(), zerolog.Nop(), []Strategy[int]{
		{Name: "empty", Attempt: func(context.Context) ([]int, error) { return nil, nil }},
		{Name: "skip", Attempt: func(context.Context) ([]int, error) { return nil, ErrInapplicable }},
		{Name: "broken", Attempt: func(context.Context) ([]int, error) { return nil, errors.New("boom") }},
		{Name: "last", Attempt: func(context.Context) ([]int, error) { return []int{3}, nil }},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)
}

func TestRun_LastEmptyIsAnAnswer(t *testing.T) {
	got, err := Run(context.Background(), zerolog.Nop(), []Strategy[int]{
		{Name: "broken", Attempt: func(context.Context) ([]int, error) { return nil, errors.New("boom") }},
		{Name: "last", Attempt: func(context.Context) ([]int, error) { return nil, nil }},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRun_AllFailed(t *testing.T) {
	_, err := Run(context.Background(), zerolog.Nop(), []Strategy[int]{
		{Name: "one", Attempt: func(context.Context) ([]int, error) { return nil, errors.New("first") }},
		{Name: "two", Attempt: func(context.Context) ([]int, error) { return nil, errors.New("second") }},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Contains(t, err.Error(), "one: first")
	assert.Contains(t, err.Error(), "two: second")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, zerolog.Nop(), []Strategy[int]{
		{Name: "a", Attempt: func(context.Context) ([]int, error) { return []int{1}, nil }},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// SELECTOR
// =============================================================================

func TestSelector_EmptyIndexFallsBackToScan(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"a.go":       "func Target() {}",
		"sub/b.go":   "target in lower case",
		"sub/c.txt":  "nothing",
		".git/d.txt": "Target",
	})
	idx := &fakeIndex{}
	sel := NewSelector(idx, NewLocalScanner(ws, []string{".git"}, zerolog.Nop()), ws, zerolog.Nop())

	got, err := sel.SearchFiles(context.Background(), ContentQuery{Text: "Target"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.go"), filepath.Join(root, "sub", "b.go")}, got)
	assert.Equal(t, 1, idx.calls)
}

func TestIndexAndScanAgree(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{
		"a.txt":              "bar baz",
		"b.txt":              "foobar qux",
		"c.go":               "x := a<<b",
		"ru.txt":             "Обычный текст",
		"node_modules/d.txt": "foobar",
		".venv/e.txt":        "bar",
	})
	ctx := context.Background()

	cfg := index.DefaultConfig(filepath.Join(t.TempDir(), "index.db"), ws.Roots()...)
	cfg.EnableWatch = false
	idx, err := index.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Index(ctx))

	scanner := NewLocalScanner(ws, util.IgnoreNames, zerolog.Nop())
	for _, query := range []string{"bar", "BAR", "oba", "ba", "a<<b", "обычный", "текст", "missing"} {
		fromIndex, err := idx.SearchContent(ctx, query)
		require.NoError(t, err, query)
		fromScan, err := scanner.ScanContent(ctx, ContentQuery{Text: query})
		require.NoError(t, err, query)
		assert.Equal(t, fromScan, fromIndex, "query %q", query)
	}

	got, err := idx.SearchContent(ctx, "bar")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLocalScanner_MaxFileSize(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"small.txt": "needle",
		"large.txt": "needle and then some padding",
	})
	scanner := NewLocalScanner(ws, nil, zerolog.Nop())
	scanner.SetMaxFileSize(10)

	got, err := scanner.ScanContent(context.Background(), ContentQuery{Text: "needle"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "small.txt")}, got)

	scanner.SetMaxFileSize(0)
	got, err = scanner.ScanContent(context.Background(), ContentQuery{Text: "needle"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSelector_IndexAnswerWins(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"a.go": "x"})
	idx := &fakeIndex{content: []string{"/from/index"}}
	sel := NewSelector(idx, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())

	got, err := sel.SearchFiles(context.Background(), ContentQuery{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/from/index"}, got)
}

func TestSelector_RegexAndFolderSkipIndex(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"one/a.txt": "value = 42",
		"two/b.txt": "value = 7",
	})
	idx := &fakeIndex{content: []string{"/from/index"}}
	sel := NewSelector(idx, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())

	got, err := sel.SearchFiles(context.Background(), ContentQuery{Text: `value = \d{2}`, IsRegex: true})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "one", "a.txt")}, got)

	got, err = sel.SearchFiles(context.Background(), ContentQuery{Text: "value", Folder: filepath.Join(root, "two")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "two", "b.txt")}, got)
	assert.Zero(t, idx.calls)
}

func TestSelector_InvalidRegex(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"a.txt": "x"})
	sel := NewSelector(nil, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())

	_, err := sel.SearchFiles(context.Background(), ContentQuery{Text: "(", IsRegex: true})
	assert.ErrorIs(t, err, ErrAllFailed)
}

func TestSelector_SearchPathnames(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"src/Handler.go":      "",
		"src/handler_test.go": "",
		"docs/handler.md":     "",
		"main.go":             "",
	})
	sel := NewSelector(nil, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())

	got, err := sel.SearchPathnames(context.Background(), PathQuery{Text: "handler", Include: "**/*.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "Handler.go"),
		filepath.Join(root, "src", "handler_test.go"),
	}, got)

	// The index tier filters its path list the same way.
	idx := &fakeIndex{paths: []string{filepath.Join(root, "docs", "handler.md"), filepath.Join(root, "main.go")}}
	sel = NewSelector(idx, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())
	got, err = sel.SearchPathnames(context.Background(), PathQuery{Text: "handler"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "docs", "handler.md")}, got)
}

func TestSelector_FindByBaseName(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"deep/nested/config.yaml": "",
		"other/config.yaml":       "",
		"other/config.yml":        "",
	})
	sel := NewSelector(nil, NewLocalScanner(ws, nil, zerolog.Nop()), ws, zerolog.Nop())

	got, err := sel.FindByBaseName(context.Background(), "/wrong/place/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "deep", "nested", "config.yaml"),
		filepath.Join(root, "other", "config.yaml"),
	}, got)
}

// =============================================================================
// GLOB
// =============================================================================

func TestMatchGlob(t *testing.T) {
	testCases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "pkg/deep/file.go", true},
		{"*.go", "main.rs", false},
		{"**/*.go", "a/b/c.go", true},
		{"**/*.go", "c.go", true},
		{"src/**/*.ts", "src/x/y/z.ts", true},
		{"src/**/*.ts", "lib/x.ts", false},
		{"src/*.ts", "src/x/y.ts", false},
		{"src/**", "src/anything/here", true},
		{"src/**/test/**/*.go", "src/a/test/b/c.go", true},
	}
	for _, tc := range testCases {
		t.Run(tc.pattern+"|"+tc.path, func(t *testing.T) {
			got, err := MatchGlob(tc.pattern, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
