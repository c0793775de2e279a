// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-gateway/internal/tools"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// =============================================================================
// TOOLS COMMAND
// =============================================================================

// HandleTools lists the tool catalog, or describes one tool. It needs no
// configuration.
func HandleTools(args Args, w io.Writer) error {
	p := NewArgParser(args.Raw)
	name := p.Positional(0)

	if args.JSON {
		var data []ToolData
		for _, t := range tools.Definitions() {
			if name != "" && string(t.Name) != name {
				continue
			}
			data = append(data, toolData(t))
		}
		if name != "" && len(data) == 0 {
			err := usageErr("tools", "unknown tool %q", name)
			NewJSONErrorResponse("tools", err).Write(w)
			return err
		}
		return NewJSONResponse("tools", data).Write(w)
	}

	if name != "" {
		return printToolDetail(w, name)
	}
	printToolList(w, GetTerminalWidth())
	return nil
}

func toolData(t tools.Tool) ToolData {
	return ToolData{
		Name:        t.Name,
		Description: t.Description,
		Risk:        t.Risk.String(),
		Parameters:  t.Schema.JSONSchema(),
	}
}

// printToolList prints one row per tool, cutting descriptions so each row
// fits in termWidth columns.
func printToolList(w io.Writer, termWidth int) {
	const riskWidth = 10
	defs := tools.Definitions()
	width := 0
	for _, t := range defs {
		width = max(width, util.StringWidth(string(t.Name)))
	}
	nameStyle := lipgloss.NewStyle().Width(width + 2)
	riskStyle := lipgloss.NewStyle().Width(riskWidth)
	descWidth := max(termWidth-width-2-riskWidth, 20)

	for _, t := range defs {
		fmt.Fprintf(w, "%s%s%s\n",
			nameStyle.Render(string(t.Name)),
			riskStyle.Render(RiskStyle(t.Risk).Render(t.Risk.String())),
			DimStyle.Render(util.TruncateWidth(firstSentence(t.Description), descWidth)))
	}
}

func printToolDetail(w io.Writer, name string) error {
	tool, ok := tools.Lookup(tools.Name(name))
	if !ok {
		return usageErr("tools", "unknown tool %q", name)
	}
	fmt.Fprintln(w, TitleStyle.Render(string(tool.Name)))
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Risk", 12), RiskStyle(tool.Risk).Render(tool.Risk.String()))
	fmt.Fprintln(w, WrapText(tool.Description, GetTerminalWidth()))

	if len(tool.Schema.Parameters) == 0 {
		fmt.Fprintln(w, SectionStyle.Render("No parameters"))
		return nil
	}
	fmt.Fprintln(w, SectionStyle.Render("Parameters"))
	for _, param := range tool.Schema.Parameters {
		flags := param.Type
		if param.Required {
			flags += ", required"
		}
		if param.Default != nil {
			flags += fmt.Sprintf(", default %v", param.Default)
		}
		fmt.Fprintf(w, "  %s %s\n", HighlightName(param.Name), DimStyle.Render("("+flags+")"))
		if param.Description != "" {
			fmt.Fprintf(w, "      %s\n", param.Description)
		}
	}
	return nil
}

// HighlightName renders a parameter or tool name.
func HighlightName(s string) string {
	return ValueStyle.Bold(true).Render(s)
}

func firstSentence(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

// WrapText wraps text at word boundaries to width display columns (less a
// small margin), keeping existing newlines. Wide characters count twice.
func WrapText(text string, width int) string {
	if width > 10 {
		width -= 2
	}
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		cur := words[0]
		curWidth := util.StringWidth(cur)
		for _, word := range words[1:] {
			wordWidth := util.StringWidth(word)
			if curWidth+1+wordWidth <= width {
				cur += " " + word
				curWidth += 1 + wordWidth
				continue
			}
			b.WriteString(cur)
			b.WriteByte('\n')
			cur, curWidth = word, wordWidth
		}
		b.WriteString(cur)
	}
	return b.String()
}
