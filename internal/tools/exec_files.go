// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-gateway/internal/paginate"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// READ-SIDE FILE TOOLS
// =============================================================================

func (g *Gateway) readFile(ctx context.Context, p ReadFileParams) (FileResult, error) {
	path, recovered, err := g.locate(ctx, ReadFile, p.Handle)
	if err != nil {
		return FileResult{}, err
	}
	content, err := g.deps.Files.ReadFile(ctx, path)
	if err != nil {
		return FileResult{}, failed(ReadFile, err, "cannot read %s", path)
	}

	res := FileResult{Path: path, RecoveredFrom: recovered}
	if p.StartLine > 0 || p.EndLine > 0 {
		lines := splitLines(content)
		start := max(p.StartLine, 1)
		end := p.EndLine
		if end == 0 || end > len(lines) {
			end = len(lines)
		}
		if start > len(lines) {
			return FileResult{}, failed(ReadFile, nil, "start_line %d is past the end of %s (%d lines)", start, path, len(lines))
		}
		content = strings.Join(lines[start-1:end], "")
		res.StartLine, res.EndLine = start, end
	}

	page, err := paginate.Text(content, g.opts.FileCharsPerPage, p.Page)
	if err != nil {
		return FileResult{}, failed(ReadFile, err, "cannot page %s", path)
	}
	res.Content = page.Text
	res.Page = page.Number
	res.HasNext = page.HasNext
	res.TotalChars = page.Total
	return res, nil
}

func (g *Gateway) lsDir(ctx context.Context, p LsDirParams) (DirResult, error) {
	if err := g.needFiles(LsDir); err != nil {
		return DirResult{}, err
	}
	if err := g.requireDir(ctx, LsDir, p.Handle); err != nil {
		return DirResult{}, err
	}
	infos, err := g.deps.Files.ReadDir(ctx, p.Handle.Path)
	if err != nil {
		return DirResult{}, failed(LsDir, err, "cannot list %s", p.Handle.Path)
	}
	entries := make([]DirEntry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, DirEntry{Name: fi.Name, IsDir: fi.IsDir, Size: fi.Size})
	}
	page, err := paginate.Slice(entries, g.opts.EntriesPerPage, p.Page)
	if err != nil {
		return DirResult{}, failed(LsDir, err, "cannot page %s", p.Handle.Path)
	}
	return DirResult{
		Path:    p.Handle.Path,
		Entries: page.Items,
		Page:    page.Number,
		HasNext: page.HasNext,
		Total:   len(entries),
	}, nil
}

func (g *Gateway) dirTree(ctx context.Context, p DirTreeParams) (TreeResult, error) {
	if err := g.needFiles(GetDirTree); err != nil {
		return TreeResult{}, err
	}
	if err := g.requireDir(ctx, GetDirTree, p.Handle); err != nil {
		return TreeResult{}, err
	}

	t := &treeWriter{files: g.deps.Files, ignore: g.opts.Ignore, maxDepth: g.opts.TreeMaxDepth, budget: g.opts.TreeMaxEntries}
	t.b.WriteString(filepath.Base(p.Handle.Path) + "/\n")
	if err := t.walk(ctx, p.Handle.Path, "", 1); err != nil {
		return TreeResult{}, failed(GetDirTree, err, "cannot walk %s", p.Handle.Path)
	}
	if t.truncated {
		t.b.WriteString("... (entry limit reached; use ls_dir on a subfolder for more)\n")
	}
	return TreeResult{Path: p.Handle.Path, Tree: strings.TrimRight(t.b.String(), "\n"), Truncated: t.truncated}, nil
}

type treeWriter struct {
	files     FileStore
	ignore    []string
	maxDepth  int
	budget    int
	truncated bool
	b         strings.Builder
}

func (t *treeWriter) walk(ctx context.Context, dir, prefix string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	infos, err := t.files.ReadDir(ctx, dir)
	if err != nil {
		return err
	}
	var kept []FileInfo
	for _, fi := range infos {
		if !t.ignored(fi.Name) {
			kept = append(kept, fi)
		}
	}

	for i, fi := range kept {
		if t.budget <= 0 {
			t.truncated = true
			return nil
		}
		t.budget--

		last := i == len(kept)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		name := fi.Name
		if fi.IsDir {
			name += "/"
		}
		t.b.WriteString(prefix + branch + name)

		if fi.IsDir && depth >= t.maxDepth {
			t.b.WriteString(" ...\n")
			continue
		}
		t.b.WriteString("\n")
		if fi.IsDir {
			if err := t.walk(ctx, fi.Path, prefix+indent, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *treeWriter) ignored(name string) bool {
	for _, pattern := range t.ignore {
		if ok, _ := filepath.Match(pattern, name); ok || pattern == name {
			return true
		}
	}
	return false
}

func (g *Gateway) searchInFile(ctx context.Context, p SearchInFileParams) (LinesResult, error) {
	path, _, err := g.locate(ctx, SearchInFile, p.Handle)
	if err != nil {
		return LinesResult{}, err
	}
	content, err := g.deps.Files.ReadFile(ctx, path)
	if err != nil {
		return LinesResult{}, failed(SearchInFile, err, "cannot read %s", path)
	}
	res := LinesResult{Path: path, Query: p.Query, Lines: []int{}}
	for i, line := range splitLines(content) {
		if p.pattern.MatchString(strings.TrimRight(line, "\r\n")) {
			res.Lines = append(res.Lines, i+1)
		}
	}
	return res, nil
}

func (g *Gateway) readLint(ctx context.Context, p LintParams) (LintResult, error) {
	if g.deps.Diagnostics == nil {
		return LintResult{}, failed(ReadLintErrors, nil, "no diagnostics store is configured")
	}
	res, err := g.lint(ctx, p.Handle.Path)
	if err != nil {
		return LintResult{}, failed(ReadLintErrors, err, "cannot read diagnostics for %s", p.Handle.Path)
	}
	return *res, nil
}

func (g *Gateway) lint(ctx context.Context, path string) (*LintResult, error) {
	if g.deps.Diagnostics == nil {
		return nil, nil
	}
	diags, err := g.deps.Diagnostics.Diagnostics(ctx, path, SeverityError)
	if err != nil {
		return nil, err
	}
	return &LintResult{Path: path, Diagnostics: diags}, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

func (g *Gateway) create(ctx context.Context, p CreateParams) (CreateResult, error) {
	if err := g.needFiles(CreateFileOrFolder); err != nil {
		return CreateResult{}, err
	}
	if err := g.deps.Files.Create(ctx, p.Handle.Path, p.Handle.IsFolder); err != nil {
		return CreateResult{}, failed(CreateFileOrFolder, err, "cannot create %s", p.Handle.Path)
	}
	if !p.Handle.IsFolder {
		g.indexUpdate(p.Handle.Path)
	}
	return CreateResult{Path: p.Handle.Path, IsFolder: p.Handle.IsFolder}, nil
}

func (g *Gateway) delete(ctx context.Context, p DeleteParams) (DeleteResult, error) {
	if err := g.needFiles(DeleteFileOrFolder); err != nil {
		return DeleteResult{}, err
	}
	info, err := g.deps.Files.Stat(ctx, p.Handle.Path)
	if err != nil {
		return DeleteResult{}, g.notFound(DeleteFileOrFolder, p.Handle, err)
	}
	release, err := g.writers.acquire(p.Handle.Path, DeleteFileOrFolder)
	if err != nil {
		return DeleteResult{}, err
	}
	defer release()

	if err := g.deps.Files.Delete(ctx, p.Handle.Path, p.Recursive); err != nil {
		return DeleteResult{}, failed(DeleteFileOrFolder, err, "cannot delete %s", p.Handle.Path)
	}
	if g.deps.Index != nil {
		if err := g.deps.Index.RemoveFile(p.Handle.Path); err != nil {
			g.log.Debug().Err(err).Str("path", p.Handle.Path).Msg("index removal failed")
		}
	}
	return DeleteResult{Path: p.Handle.Path, IsFolder: info.IsDir}, nil
}

func (g *Gateway) rewrite(ctx context.Context, p RewriteParams) (WriteResult, error) {
	if err := g.needFiles(RewriteFile); err != nil {
		return WriteResult{}, err
	}
	release, err := g.writers.acquire(p.Handle.Path, RewriteFile)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	if err := g.deps.Files.WriteFile(ctx, p.Handle.Path, p.Content); err != nil {
		return WriteResult{}, failed(RewriteFile, err, "cannot write %s", p.Handle.Path)
	}
	return g.afterWrite(ctx, p.Handle.Path, p.Content, 0), nil
}

func (g *Gateway) edit(ctx context.Context, p EditParams) (WriteResult, error) {
	if err := g.needFiles(EditFile); err != nil {
		return WriteResult{}, err
	}
	release, err := g.writers.acquire(p.Handle.Path, EditFile)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	content, err := g.deps.Files.ReadFile(ctx, p.Handle.Path)
	if err != nil {
		return WriteResult{}, g.notFound(EditFile, p.Handle, err)
	}
	updated, err := ApplyEditBlocks(content, p.Blocks)
	if err != nil {
		return WriteResult{}, failed(EditFile, err, "cannot apply edits to %s", p.Handle.Path)
	}
	if err := g.deps.Files.WriteFile(ctx, p.Handle.Path, updated); err != nil {
		return WriteResult{}, failed(EditFile, err, "cannot write %s", p.Handle.Path)
	}
	return g.afterWrite(ctx, p.Handle.Path, updated, len(p.Blocks)), nil
}

func (g *Gateway) afterWrite(ctx context.Context, path, content string, blocks int) WriteResult {
	g.indexUpdate(path)
	res := WriteResult{Path: path, Blocks: blocks, Chars: len([]rune(content))}
	lint, err := g.lint(ctx, path)
	if err != nil {
		g.log.Debug().Err(err).Str("path", path).Msg("post-write lint failed")
	}
	res.Lint = lint
	return res
}

func (g *Gateway) indexUpdate(path string) {
	if g.deps.Index == nil {
		return
	}
	if err := g.deps.Index.UpdateFile(path); err != nil {
		g.log.Debug().Err(err).Str("path", path).Msg("index update failed")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// locate returns the file to read for h. A missing file is looked up by
// base name across the workspace: a single match is used (its original
// path is returned as recovered), several matches or none are errors.
func (g *Gateway) locate(ctx context.Context, tool Name, h workspace.Handle) (path, recovered string, err error) {
	if err := g.needFiles(tool); err != nil {
		return "", "", err
	}
	info, err := g.deps.Files.Stat(ctx, h.Path)
	if err == nil {
		if info.IsDir {
			return "", "", failed(tool, nil, "%s is a folder; use ls_dir or get_dir_tree", h.Path)
		}
		return h.Path, "", nil
	}
	if !errors.Is(err, ErrNotFound) || g.deps.Search == nil {
		return "", "", g.notFound(tool, h, err)
	}

	candidates, serr := g.deps.Search.FindByBaseName(ctx, h.Path)
	switch {
	case serr != nil:
		return "", "", g.notFound(tool, h, err)
	case len(candidates) == 1:
		g.log.Debug().Str("requested", h.Path).Str("found", candidates[0]).Msg("recovered missing file by base name")
		return candidates[0], h.Path, nil
	case len(candidates) > 1:
		return "", "", failed(tool, ErrNotFound, "%s does not exist; files with the same name: %s", h.Path, strings.Join(candidates, ", "))
	}
	return "", "", g.notFound(tool, h, err)
}

func (g *Gateway) notFound(tool Name, h workspace.Handle, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &ExecutionError{
			Tool:    tool,
			Message: fmt.Sprintf("%s does not exist (workspace roots: %s)", h.Path, strings.Join(g.deps.Resolver.Oracle().Roots(), ", ")),
			Err:     ErrNotFound,
		}
	}
	return failed(tool, err, "cannot access %s", h.Path)
}

func (g *Gateway) requireDir(ctx context.Context, tool Name, h workspace.Handle) error {
	info, err := g.deps.Files.Stat(ctx, h.Path)
	if err != nil {
		return g.notFound(tool, h, err)
	}
	if !info.IsDir {
		return failed(tool, nil, "%s is a file; use read_file", h.Path)
	}
	return nil
}

func (g *Gateway) needFiles(tool Name) error {
	if g.deps.Files == nil {
		return failed(tool, nil, "no file store is configured")
	}
	return nil
}

// splitLines splits after each newline, dropping the empty tail of a
// newline-terminated text.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
