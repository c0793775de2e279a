// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// HTML TO TEXT
// =============================================================================

// Document is the readable rendering of an HTML page.
type Document struct {
	Title string
	Text  string
}

// renderMode selects plain text or markdown-style output.
type renderMode int

const (
	modePlain renderMode = iota
	modeMarkdown
)

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Main: true,
	atom.Aside: true, atom.Br: true, atom.Hr: true, atom.Tr: true,
	atom.Table: true, atom.Ul: true, atom.Ol: true, atom.Pre: true,
	atom.Blockquote: true, atom.Form: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// ExtractText parses src and returns its title and plain text, with
// scripts, styles and markup removed.
func ExtractText(src []byte) (Document, error) {
	return render(src, modePlain)
}

// ToMarkdown parses src and renders links as [label](href), headings with
// # prefixes and list items with "- ".
func ToMarkdown(src []byte) (Document, error) {
	return render(src, modeMarkdown)
}

func render(src []byte, mode renderMode) (Document, error) {
	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return Document{}, ErrParse
	}
	r := &renderer{mode: mode}
	r.walk(root)
	return Document{
		Title: strings.TrimSpace(cleanWhitespace(r.title.String())),
		Text:  cleanWhitespace(r.out.String()),
	}, nil
}

type renderer struct {
	mode    renderMode
	out     strings.Builder
	title   strings.Builder
	inTitle bool
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if r.inTitle {
			r.title.WriteString(n.Data)
			return
		}
		r.out.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	if n.Type != html.ElementNode {
		r.children(n)
		return
	}

	switch n.DataAtom {
	case atom.Title:
		r.inTitle = true
		r.children(n)
		r.inTitle = false
		return
	case atom.A:
		if r.mode == modeMarkdown {
			href := attr(n, "href")
			var label strings.Builder
			inner := &renderer{mode: modePlain}
			inner.children(n)
			label.WriteString(strings.Join(strings.Fields(inner.out.String()), " "))
			if href != "" && label.Len() > 0 {
				r.out.WriteString("[" + escapeLabel(label.String()) + "](" + href + ")")
				return
			}
		}
	case atom.Li:
		r.out.WriteString("\n")
		if r.mode == modeMarkdown {
			r.out.WriteString("- ")
		}
		r.children(n)
		r.out.WriteString("\n")
		return
	case atom.Td, atom.Th:
		r.children(n)
		r.out.WriteString("\t")
		return
	}

	if level, ok := headingLevel[n.DataAtom]; ok {
		r.out.WriteString("\n\n")
		if r.mode == modeMarkdown {
			r.out.WriteString(strings.Repeat("#", level) + " ")
		}
		r.children(n)
		r.out.WriteString("\n\n")
		return
	}

	block := blockElements[n.DataAtom]
	if block {
		r.out.WriteString("\n")
	}
	r.children(n)
	if block {
		r.out.WriteString("\n")
	}
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "[", `\[`)
	return strings.ReplaceAll(s, "]", `\]`)
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// cleanWhitespace collapses runs of spaces, trims every line and keeps at
// most one blank line between paragraphs.
func cleanWhitespace(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
