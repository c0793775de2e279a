// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// DefaultSearchResults is the web_search result count when k is absent.
const DefaultSearchResults = 5

// maxSearchResults caps k.
const maxSearchResults = 20

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator turns raw parameter bags into typed parameter structs. It is a
// closed switch over Name; there is no reflection.
type Validator struct {
	resolver *workspace.Resolver
}

// NewValidator returns a validator that sandboxes paths with resolver.
func NewValidator(resolver *workspace.Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate checks raw for tool name and returns the matching *Params value
// (ReadFileParams for read_file and so on). Every failure is a
// *ValidationError.
func (v *Validator) Validate(name Name, raw map[string]any) (any, error) {
	b := bag{tool: name, raw: raw}

	switch name {
	case ReadFile:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		page, err := b.page()
		if err != nil {
			return nil, err
		}
		p := ReadFileParams{
			Handle:    h,
			StartLine: b.number("start_line", 0),
			EndLine:   b.number("end_line", 0),
			Page:      page,
		}
		p.StartLine = max(p.StartLine, 0)
		p.EndLine = max(p.EndLine, 0)
		if p.StartLine > 0 && p.EndLine > 0 && p.EndLine < p.StartLine {
			return nil, invalid(name, "end_line", "end_line %d is before start_line %d", p.EndLine, p.StartLine)
		}
		return p, nil

	case LsDir:
		var h workspace.Handle
		if _, ok := b.get("uri"); ok {
			var err error
			if h, err = v.path(b, "uri"); err != nil {
				return nil, err
			}
		} else {
			var err error
			if h, err = v.firstRoot(name); err != nil {
				return nil, err
			}
		}
		page, err := b.page()
		if err != nil {
			return nil, err
		}
		return LsDirParams{Handle: h, Page: page}, nil

	case GetDirTree:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		return DirTreeParams{Handle: h}, nil

	case SearchPathnamesOnly:
		query, err := b.requiredString("query")
		if err != nil {
			return nil, err
		}
		include, err := b.optionalString("include_pattern")
		if err != nil {
			return nil, err
		}
		page, err := b.page()
		if err != nil {
			return nil, err
		}
		return SearchPathnamesParams{Query: query, Include: include, Page: page}, nil

	case SearchForFiles:
		query, err := b.requiredString("query")
		if err != nil {
			return nil, err
		}
		isRegex, err := b.boolean("is_regex")
		if err != nil {
			return nil, err
		}
		if isRegex {
			if _, err := regexp.Compile(query); err != nil {
				return nil, &ValidationError{Tool: name, Param: "query", Message: "invalid regular expression", Err: err}
			}
		}
		p := SearchFilesParams{Query: query, IsRegex: isRegex}
		if _, ok := b.get("search_in_folder"); ok {
			h, err := v.path(b, "search_in_folder")
			if err != nil {
				return nil, err
			}
			p.Folder = &h
		}
		if p.Page, err = b.page(); err != nil {
			return nil, err
		}
		return p, nil

	case SearchInFile:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		query, err := b.requiredString("query")
		if err != nil {
			return nil, err
		}
		isRegex, err := b.boolean("is_regex")
		if err != nil {
			return nil, err
		}
		p := SearchInFileParams{Handle: h, Query: query, IsRegex: isRegex}
		expr := regexp.QuoteMeta(query)
		if isRegex {
			expr = query
		}
		if p.pattern, err = regexp.Compile(expr); err != nil {
			return nil, &ValidationError{Tool: name, Param: "query", Message: "invalid regular expression", Err: err}
		}
		return p, nil

	case ReadLintErrors:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		return LintParams{Handle: h}, nil

	case CreateFileOrFolder:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		return CreateParams{Handle: h}, nil

	case DeleteFileOrFolder:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		recursive, err := b.boolean("is_recursive")
		if err != nil {
			return nil, err
		}
		if h.Path == h.Root {
			return nil, invalid(name, "uri", "refusing to delete workspace root %s", h.Root)
		}
		return DeleteParams{Handle: h, Recursive: recursive}, nil

	case RewriteFile:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		content, err := b.stringAllowEmpty("new_content")
		if err != nil {
			return nil, err
		}
		return RewriteParams{Handle: h, Content: content}, nil

	case EditFile:
		h, err := v.path(b, "uri")
		if err != nil {
			return nil, err
		}
		text, err := b.requiredString("search_replace_blocks")
		if err != nil {
			return nil, err
		}
		blocks, err := ParseEditBlocks(text)
		if err != nil {
			return nil, &ValidationError{Tool: name, Param: "search_replace_blocks", Message: err.Error(), Err: err}
		}
		return EditParams{Handle: h, Blocks: blocks}, nil

	case RunCommand:
		command, err := b.requiredString("command")
		if err != nil {
			return nil, err
		}
		cwd, err := v.cwd(b)
		if err != nil {
			return nil, err
		}
		return RunCommandParams{Command: command, Cwd: cwd}, nil

	case RunPersistentCommand:
		command, err := b.requiredString("command")
		if err != nil {
			return nil, err
		}
		id, err := b.requiredString("persistent_terminal_id")
		if err != nil {
			return nil, err
		}
		return RunPersistentParams{Command: command, TerminalID: id}, nil

	case OpenPersistentTerminal:
		cwd, err := v.cwd(b)
		if err != nil {
			return nil, err
		}
		id, err := b.optionalString("persistent_terminal_id")
		if err != nil {
			return nil, err
		}
		return OpenTerminalParams{Cwd: cwd, TerminalID: id}, nil

	case KillPersistentTerminal:
		id, err := b.requiredString("persistent_terminal_id")
		if err != nil {
			return nil, err
		}
		return KillTerminalParams{TerminalID: id}, nil

	case RunNLCommand:
		request, err := b.requiredString("nl_input")
		if err != nil {
			return nil, err
		}
		cwd, err := v.cwd(b)
		if err != nil {
			return nil, err
		}
		return RunNLParams{Request: request, Cwd: cwd}, nil

	case WebSearch:
		query, err := b.requiredString("query")
		if err != nil {
			return nil, err
		}
		refresh, err := b.boolean("refresh")
		if err != nil {
			return nil, err
		}
		k := b.number("k", DefaultSearchResults)
		if k < 1 {
			k = DefaultSearchResults
		}
		return WebSearchParams{Query: query, K: min(k, maxSearchResults), Refresh: refresh}, nil

	case BrowseURL:
		rawURL, err := b.requiredString("url")
		if err != nil {
			return nil, err
		}
		rawURL = strings.TrimSpace(rawURL)
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			return nil, invalid(name, "url", "%q is not an absolute URL", rawURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, invalid(name, "url", "scheme %q is not supported; use http or https", u.Scheme)
		}
		refresh, err := b.boolean("refresh")
		if err != nil {
			return nil, err
		}
		return BrowseParams{URL: rawURL, Refresh: refresh}, nil
	}

	return nil, &ValidationError{Tool: name, Message: fmt.Sprintf("%q is not a known tool", name), Err: ErrUnknownTool}
}

// path resolves a required path parameter inside the workspace.
func (v *Validator) path(b bag, key string) (workspace.Handle, error) {
	raw, err := b.requiredString(key)
	if err != nil {
		return workspace.Handle{}, err
	}
	h, err := v.resolver.Resolve(raw)
	if err != nil {
		var be *workspace.BoundaryError
		if errors.As(err, &be) {
			return workspace.Handle{}, &ValidationError{Tool: b.tool, Param: key, Message: be.Error(), Err: err}
		}
		return workspace.Handle{}, &ValidationError{Tool: b.tool, Param: key, Message: err.Error(), Err: err}
	}
	return h, nil
}

// cwd resolves the optional cwd parameter; absent means the first root.
func (v *Validator) cwd(b bag) (string, error) {
	if _, ok := b.get("cwd"); !ok {
		h, err := v.firstRoot(b.tool)
		return h.Path, err
	}
	h, err := v.path(b, "cwd")
	return h.Path, err
}

func (v *Validator) firstRoot(tool Name) (workspace.Handle, error) {
	roots := v.resolver.Oracle().Roots()
	if len(roots) == 0 {
		return workspace.Handle{}, &ValidationError{Tool: tool, Message: workspace.ErrNoRoots.Error(), Err: workspace.ErrNoRoots}
	}
	return workspace.Handle{Path: roots[0], Root: roots[0], IsFolder: true}, nil
}

// =============================================================================
// RAW PARAMETER BAG
// =============================================================================

type bag struct {
	tool Name
	raw  map[string]any
}

// get returns the value for key. nil, "null" and "undefined" count as not
// provided.
func (b bag) get(key string) (any, bool) {
	v, ok := b.raw[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr {
		switch strings.TrimSpace(s) {
		case "null", "undefined":
			return nil, false
		}
	}
	return v, true
}

func (b bag) requiredString(key string) (string, error) {
	s, err := b.stringAllowEmpty(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", invalid(b.tool, key, "must not be empty")
	}
	return s, nil
}

// stringAllowEmpty requires key to be present and a string, possibly empty.
func (b bag) stringAllowEmpty(key string) (string, error) {
	v, ok := b.get(key)
	if !ok {
		return "", invalid(b.tool, key, "is required")
	}
	s, isStr := v.(string)
	if !isStr {
		return "", invalid(b.tool, key, "must be a string, got %s", typeName(v))
	}
	return s, nil
}

func (b bag) optionalString(key string) (string, error) {
	v, ok := b.get(key)
	if !ok {
		return "", nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", invalid(b.tool, key, "must be a string, got %s", typeName(v))
	}
	return strings.TrimSpace(s), nil
}

// boolean accepts true/false and their string forms. Absent is false.
func (b bag) boolean(key string) (bool, error) {
	v, ok := b.get(key)
	if !ok {
		return false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, invalid(b.tool, key, "must be a boolean, got %s", typeName(v))
}

// number returns key as an int. Anything absent or non-numeric falls back
// to def.
func (b bag) number(key string, def int) int {
	v, ok := b.get(key)
	if !ok {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		return def
	}
	return n
}

// page returns page_number, which must be a positive integer. Absent is 1.
func (b bag) page() (int, error) {
	v, ok := b.get("page_number")
	if !ok {
		return 1, nil
	}
	n, ok := toInt(v)
	if !ok || n < 1 {
		return 0, invalid(b.tool, "page_number", "must be a positive integer, got %v", v)
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		f = t
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
