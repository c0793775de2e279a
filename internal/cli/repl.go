// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive tool shell.
//
// Each line is one call: `<tool> {json}` or `<tool> key=value ...`.
// Lines starting with ':' are shell commands (:help lists them).

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

const replHelp = `Calls:
  <tool> {"key": "value"}     Parameters as a JSON object
  <tool> key=value key="a b"  Parameters as pairs

Commands:
  :tools            List tools
  :help [tool]      This help, or one tool's parameters
  :history [n]      Recent calls (default 10)
  :stats            Call statistics
  :terminals        Persistent terminals
  :raw              Toggle rendering of results
  :quit             Leave (also Ctrl-D)

Ctrl-C interrupts a running call.
`

// =============================================================================
// LINE EDITING
// =============================================================================

// lineEditor wraps liner with a persistent history file.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(completeLine)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "gateway_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return e
}

func (e *lineEditor) prompt(p string) (string, error) {
	input, err := e.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with 0600 permissions and restores the terminal.
func (e *lineEditor) close() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// completeLine completes tool names and shell commands at the start of a
// line.
func completeLine(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	var out []string
	for _, n := range tools.AllNames() {
		if strings.HasPrefix(string(n), line) {
			out = append(out, string(n)+" ")
		}
	}
	for _, m := range []string{":tools", ":help", ":history", ":stats", ":terminals", ":raw", ":quit"} {
		if strings.HasPrefix(m, line) {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// REPL COMMAND
// =============================================================================

// HandleRepl runs the interactive shell until EOF or :quit.
func HandleRepl(ctx context.Context, args Args, w io.Writer) error {
	app, err := setup(args, true, BuildOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.StartIndexing(ctx)

	editor := newLineEditor()
	defer editor.close()

	fmt.Fprintln(w, TitleStyle.Render("rigrun-gateway "+Version))
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Workspace", 12), joinRoots(app.Workspace.Roots()))
	if badge := app.Gate.StatusBadge(); badge != "" {
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Network", 12), WarningStyle.Render(badge))
	}
	fmt.Fprintln(w, DimStyle.Render("Type :help for help, Tab to complete tool names."))

	r := &repl{app: app, out: w, raw: args.JSON}
	prompt := "gateway> "
	for {
		line, err := editor.prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(w)
				return nil
			}
			return err
		}
		if quit := r.handle(ctx, line); quit {
			return nil
		}
	}
}

type repl struct {
	app *App
	out io.Writer
	raw bool
}

// handle executes one line and reports whether the shell should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	in, err := parseReplLine(line)
	if err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("error:"), err)
		return false
	}
	switch {
	case in.empty():
		return false
	case in.Invocation != nil:
		r.call(ctx, *in.Invocation)
		return false
	}

	switch in.Meta {
	case "quit", "q", "exit":
		return true
	case "help", "h", "?":
		if len(in.MetaArgs) > 0 {
			if err := printToolDetail(r.out, in.MetaArgs[0]); err != nil {
				fmt.Fprintln(r.out, ErrorStyle.Render("error:"), err)
			}
			return false
		}
		fmt.Fprint(r.out, replHelp)
	case "tools":
		printToolList(r.out, GetTerminalWidth())
	case "history":
		n := 10
		if len(in.MetaArgs) > 0 {
			fmt.Sscanf(in.MetaArgs[0], "%d", &n)
		}
		r.history(n)
	case "stats":
		r.stats()
	case "terminals":
		r.terminals()
	case "raw":
		r.raw = !r.raw
		fmt.Fprintf(r.out, "raw output %s\n", onOff(r.raw))
	default:
		fmt.Fprintf(r.out, "%s unknown command :%s (try :help)\n", ErrorStyle.Render("error:"), in.Meta)
	}
	return false
}

func (r *repl) call(ctx context.Context, inv tools.Invocation) {
	start := time.Now()
	text, err := runInterruptible(ctx, r.app.Gateway, inv, 0)
	if err != nil {
		fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render(tools.ErrorKind(err)+" error:"), err)
		return
	}
	displayResult(r.out, text, r.raw)
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("(%s in %s)", inv.Name, time.Since(start).Round(time.Millisecond))))
}

func (r *repl) history(n int) {
	records := r.app.Gateway.History()
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	if len(records) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("no calls yet"))
		return
	}
	for _, rec := range records {
		status := RenderStatus("ok")
		if rec.Outcome != tools.OutcomeSuccess {
			status = RenderStatus(string(rec.Outcome))
		}
		line := fmt.Sprintf("%s %-28s %8s  %s", status, rec.Tool, rec.Duration.Round(time.Millisecond), humanize.Time(rec.Started))
		if rec.Error != "" {
			line += "  " + DimStyle.Render(rec.Error)
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *repl) stats() {
	s := r.app.Gateway.Stats()
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Calls"), s.Total)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Successful"), s.Successful)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Failed"), s.Failed)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Invalid"), s.Invalid)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Busy"), s.Busy)
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Average"), s.AvgDuration.Round(time.Millisecond))

	names := make([]string, 0, len(s.ByTool))
	for n := range s.ByTool {
		names = append(names, string(n))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(r.out, "  %-28s %d\n", n, s.ByTool[tools.Name(n)])
	}
}

func (r *repl) terminals() {
	list := r.app.Terminals.Terminals()
	if len(list) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("no persistent terminals"))
		return
	}
	for _, t := range list {
		state := "idle"
		if t.Running {
			state = "running"
		}
		fmt.Fprintf(r.out, "%s  %-8s %s\n", t.ID, state, DimStyle.Render(t.Cwd))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// =============================================================================
// LINE PARSING
// =============================================================================

// replInput is one parsed line: a shell command or a tool call.
type replInput struct {
	Meta       string
	MetaArgs   []string
	Invocation *tools.Invocation
}

func (in replInput) empty() bool { return in.Meta == "" && in.Invocation == nil }

// parseReplLine parses a shell line. A bare "quit" or "exit" leaves the
// shell like ":quit".
func parseReplLine(line string) (replInput, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return replInput{}, nil
	}
	if line == "quit" || line == "exit" {
		return replInput{Meta: "quit"}, nil
	}
	if strings.HasPrefix(line, ":") {
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			return replInput{}, errors.New("empty command")
		}
		return replInput{Meta: strings.ToLower(fields[0]), MetaArgs: fields[1:]}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	tool, ok := tools.ParseName(name)
	if !ok {
		return replInput{}, fmt.Errorf("unknown tool %q (:tools lists them)", name)
	}
	rest = strings.TrimSpace(rest)

	params := map[string]any{}
	switch {
	case rest == "":
	case strings.HasPrefix(rest, "{"):
		decoded, err := decodeParams(rest)
		if err != nil {
			return replInput{}, err
		}
		params = decoded
	default:
		words, err := splitWords(rest)
		if err != nil {
			return replInput{}, err
		}
		for _, word := range words {
			k, v, err := ParseKeyValue(word)
			if err != nil {
				return replInput{}, err
			}
			params[k] = v
		}
	}
	return replInput{Invocation: &tools.Invocation{Name: tool, Params: params}}, nil
}

// splitWords splits s on unquoted whitespace. Single quotes are literal;
// double quotes allow \" and \\ escapes.
func splitWords(s string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == '\\':
			escaped = true
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
