// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigrun-gateway/internal/danger"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
)

// CannotRender is returned by ToText for a result it cannot format.
const CannotRender = "cannot render result"

// MoreOnNextPage marks a paginated result with further pages.
const MoreOnNextPage = "(more on next page…)"

// =============================================================================
// RESULT SERIALIZER
// =============================================================================

// ToText renders a tool result as text for the model. It is a pure
// function of its inputs and never panics.
func ToText(name Name, params, result any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = CannotRender
		}
	}()

	switch r := result.(type) {
	case FileResult:
		return fileText(r)
	case DirResult:
		return dirText(r)
	case TreeResult:
		return r.Tree
	case PathsResult:
		return pathsText(r)
	case LinesResult:
		return linesText(r)
	case LintResult:
		return lintText(r)
	case CreateResult:
		return fmt.Sprintf("Created %s %s", kind(r.IsFolder), r.Path)
	case DeleteResult:
		return fmt.Sprintf("Deleted %s %s", kind(r.IsFolder), r.Path)
	case WriteResult:
		return writeText(name, r)
	case terminal.Result:
		return commandText(r)
	case OpenTerminalResult:
		return fmt.Sprintf("Opened persistent terminal %s in %s", r.TerminalID, r.Cwd)
	case KillTerminalResult:
		return fmt.Sprintf("Killed persistent terminal %s", r.TerminalID)
	case WebSearchResult:
		return webText(r)
	case BrowseResult:
		return browseText(r)
	}
	return CannotRender
}

func fileText(r FileResult) string {
	var b strings.Builder
	if r.RecoveredFrom != "" {
		fmt.Fprintf(&b, "Note: %s does not exist; showing %s, the only file with that name.\n", r.RecoveredFrom, r.Path)
	}
	b.WriteString(r.Path)
	if r.StartLine > 0 {
		fmt.Fprintf(&b, " (lines %d-%d)", r.StartLine, r.EndLine)
	}
	b.WriteString("\n")

	fence := codeFence(r.Content)
	b.WriteString(fence + language(r.Path) + "\n")
	b.WriteString(r.Content)
	if !strings.HasSuffix(r.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)

	if r.HasNext {
		fmt.Fprintf(&b, "\n%s Page %d shown; the file has %s characters. Request page_number %d for the rest.",
			MoreOnNextPage, r.Page, humanize.Comma(int64(r.TotalChars)), r.Page+1)
	}
	return b.String()
}

func dirText(r DirResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory %s (%d %s)\n", r.Path, r.Total, plural(r.Total, "entry", "entries"))
	if len(r.Entries) == 0 {
		b.WriteString("(empty)")
	}
	for i, e := range r.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.IsDir {
			b.WriteString(e.Name + "/")
		} else {
			fmt.Fprintf(&b, "%s (%s)", e.Name, humanize.Bytes(uint64(max(e.Size, 0))))
		}
	}
	if r.HasNext {
		b.WriteString("\n" + MoreOnNextPage)
	}
	return b.String()
}

func pathsText(r PathsResult) string {
	if r.Total == 0 {
		return fmt.Sprintf("No files found for %q", r.Query)
	}
	if len(r.Paths) == 0 {
		return fmt.Sprintf("Page %d is past the last result (%d %s)", r.Page, r.Total, plural(r.Total, "file", "files"))
	}
	text := strings.Join(r.Paths, "\n")
	if r.HasNext {
		text += "\n" + MoreOnNextPage
	}
	return text
}

func linesText(r LinesResult) string {
	if len(r.Lines) == 0 {
		return fmt.Sprintf("No lines in %s match %q", r.Path, r.Query)
	}
	nums := make([]string, len(r.Lines))
	for i, n := range r.Lines {
		nums[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("Lines in %s matching %q: %s", r.Path, r.Query, strings.Join(nums, ", "))
}

func lintText(r LintResult) string {
	if len(r.Diagnostics) == 0 {
		return fmt.Sprintf("No lint errors found in %s", r.Path)
	}
	blocks := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		end := d.EndLine
		if end < d.StartLine {
			end = d.StartLine
		}
		blocks[i] = fmt.Sprintf("Error %d:\nLines Affected: %d-%d\n%s", i+1, d.StartLine, end, d.Message)
	}
	return strings.Join(blocks, "\n\n")
}

func writeText(name Name, r WriteResult) string {
	var text string
	if name == EditFile {
		text = fmt.Sprintf("Applied %d %s to %s", r.Blocks, plural(r.Blocks, "edit", "edits"), r.Path)
	} else {
		text = fmt.Sprintf("Wrote %s characters to %s", humanize.Comma(int64(r.Chars)), r.Path)
	}
	if r.Lint != nil {
		text += "\n\nLint after the change:\n" + lintText(*r.Lint)
	}
	return text
}

func commandText(r terminal.Result) string {
	var b strings.Builder
	if r.ParsedCommand != "" {
		fmt.Fprintf(&b, "Command: %s\n", r.ParsedCommand)
		if r.Explanation != "" {
			fmt.Fprintf(&b, "Explanation: %s\n", r.Explanation)
		}
	}
	if r.Danger > danger.Low {
		fmt.Fprintf(&b, "Warning: %s-risk command\n", r.Danger)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	output := strings.TrimRight(r.Output, "\n")
	if output == "" {
		output = "(no output)"
	}
	b.WriteString(output)
	b.WriteString("\n")

	switch r.Reason {
	case terminal.ReasonDone:
		fmt.Fprintf(&b, "(exit code %d)", r.ExitCode)
	case terminal.ReasonTimeout:
		if r.Kind == terminal.KindPersistent {
			fmt.Fprintf(&b, "(the command is still running in persistent terminal %s after %s; output so far is shown above and the command keeps running in the background)",
				r.TerminalID, seconds(r.Window))
		} else {
			fmt.Fprintf(&b, "(the command produced no output for %s and was stopped automatically; output so far is shown above)", seconds(r.Window))
		}
	case terminal.ReasonInterrupted:
		b.WriteString("(the command was interrupted)")
	}
	return b.String()
}

func webText(r WebSearchResult) string {
	if len(r.Results) == 0 {
		return fmt.Sprintf("No web results found for %q", r.Query)
	}
	blocks := make([]string, len(r.Results))
	for i, res := range r.Results {
		block := fmt.Sprintf("%d. %s\n   URL: %s", i+1, res.Title, res.URL)
		if res.Snippet != "" {
			block += "\n   " + res.Snippet
		}
		blocks[i] = block
	}
	return strings.Join(blocks, "\n\n")
}

func browseText(r BrowseResult) string {
	var b strings.Builder
	if r.Page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", r.Page.Title)
	}
	fmt.Fprintf(&b, "URL: %s\n\n", r.Page.URL)
	b.WriteString(r.Page.Content)
	return b.String()
}

// language returns the code-fence tag for path, or "" when unknown.
func language(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}

// codeFence returns a backtick fence longer than any run inside content.
func codeFence(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func kind(folder bool) string {
	if folder {
		return "folder"
	}
	return "file"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
