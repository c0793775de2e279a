// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

// =============================================================================
// RISK LEVELS
// =============================================================================

// RiskLevel indicates how much a tool can change.
type RiskLevel int

const (
	// RiskLow - Read-only operations, no side effects
	RiskLow RiskLevel = iota

	// RiskMedium - Creates or fetches, nothing is lost
	RiskMedium

	// RiskHigh - Overwrites or deletes files
	RiskHigh

	// RiskCritical - Runs shell commands
	RiskCritical
)

// String returns the string representation of a risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Color returns the color associated with a risk level.
func (r RiskLevel) Color() string {
	switch r {
	case RiskLow:
		return "#34D399" // Emerald
	case RiskMedium:
		return "#FBBF24" // Amber
	case RiskHigh:
		return "#FB923C" // Orange
	case RiskCritical:
		return "#FB7185" // Rose
	default:
		return "#A6ADC8"
	}
}

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool describes one gateway tool for callers building a model prompt.
type Tool struct {
	Name        Name      `json:"name"`
	Description string    `json:"description"`
	Schema      Schema    `json:"schema"`
	Risk        RiskLevel `json:"-"`
}

// Schema defines a tool's parameters.
type Schema struct {
	Parameters []Parameter `json:"parameters"`
}

// Parameter defines a single tool parameter.
type Parameter struct {
	// Name is the raw parameter key.
	Name string `json:"name"`

	// Type is "string", "integer" or "boolean".
	Type string `json:"type"`

	Required    bool   `json:"required"`
	Description string `json:"description"`

	// Default applies when the parameter is absent.
	Default any `json:"default,omitempty"`
}

// JSONSchema returns the parameters as a JSON Schema object, the shape
// function-calling APIs expect.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	required := []string{}
	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type, "description": p.Description}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definitions returns the catalog in AllNames order.
func Definitions() []Tool {
	out := make([]Tool, 0, len(allNames))
	for _, n := range allNames {
		out = append(out, catalog[n])
	}
	return out
}

// Lookup returns the definition of name.
func Lookup(name Name) (Tool, bool) {
	t, ok := catalog[name]
	return t, ok
}

// =============================================================================
// BUILT-IN TOOL DEFINITIONS
// =============================================================================

var (
	uriParam = Parameter{
		Name: "uri", Type: "string", Required: true,
		Description: "File or folder path: absolute, relative to the first workspace root, or a file:// URI. Must be inside the workspace.",
	}
	pageParam = Parameter{
		Name: "page_number", Type: "integer", Default: 1,
		Description: "1-based page of the result to return.",
	}
	cwdParam = Parameter{
		Name: "cwd", Type: "string",
		Description: "Working directory inside the workspace. Defaults to the first workspace root.",
	}
	regexParam = Parameter{
		Name: "is_regex", Type: "boolean", Default: false,
		Description: "Treat query as a regular expression.",
	}
	terminalIDParam = Parameter{
		Name: "persistent_terminal_id", Type: "string", Required: true,
		Description: "Id of a terminal opened with open_persistent_terminal.",
	}
	refreshParam = Parameter{
		Name: "refresh", Type: "boolean", Default: false,
		Description: "Bypass the cache and fetch again.",
	}
)

var catalog = map[Name]Tool{
	ReadFile: {
		Name:        ReadFile,
		Description: "Read a text file. Long files are split into pages of characters; optional line bounds narrow the read first.",
		Schema: Schema{Parameters: []Parameter{
			uriParam,
			{Name: "start_line", Type: "integer", Description: "First line to read (1-based)."},
			{Name: "end_line", Type: "integer", Description: "Last line to read (inclusive)."},
			pageParam,
		}},
		Risk: RiskLow,
	},
	LsDir: {
		Name:        LsDir,
		Description: "List the entries of a folder, folders first.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "uri", Type: "string", Description: "Folder to list. Defaults to the first workspace root."},
			pageParam,
		}},
		Risk: RiskLow,
	},
	GetDirTree: {
		Name:        GetDirTree,
		Description: "Show the folder structure under a path as a tree. Dependency and build folders are skipped.",
		Schema:      Schema{Parameters: []Parameter{uriParam}},
		Risk:        RiskLow,
	},
	SearchPathnamesOnly: {
		Name:        SearchPathnamesOnly,
		Description: "Find files whose path contains the query. Only names are matched, not contents.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true, Description: "Text to look for in file paths."},
			{Name: "include_pattern", Type: "string", Description: "Glob the path must also match, e.g. **/*.go."},
			pageParam,
		}},
		Risk: RiskLow,
	},
	SearchForFiles: {
		Name:        SearchForFiles,
		Description: "Find files whose contents match the query.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true, Description: "Text or pattern to look for."},
			{Name: "search_in_folder", Type: "string", Description: "Only search under this folder."},
			regexParam,
			pageParam,
		}},
		Risk: RiskLow,
	},
	SearchInFile: {
		Name:        SearchInFile,
		Description: "Return the line numbers in one file that match the query.",
		Schema: Schema{Parameters: []Parameter{
			uriParam,
			{Name: "query", Type: "string", Required: true, Description: "Text or pattern to look for."},
			regexParam,
		}},
		Risk: RiskLow,
	},
	ReadLintErrors: {
		Name:        ReadLintErrors,
		Description: "Return the current lint and compiler errors for a file.",
		Schema:      Schema{Parameters: []Parameter{uriParam}},
		Risk:        RiskLow,
	},
	CreateFileOrFolder: {
		Name:        CreateFileOrFolder,
		Description: "Create an empty file, or a folder when the path ends with a separator.",
		Schema:      Schema{Parameters: []Parameter{uriParam}},
		Risk:        RiskMedium,
	},
	DeleteFileOrFolder: {
		Name:        DeleteFileOrFolder,
		Description: "Delete a file or folder. Folders with contents need is_recursive.",
		Schema: Schema{Parameters: []Parameter{
			uriParam,
			{Name: "is_recursive", Type: "boolean", Default: false, Description: "Delete a folder and everything in it."},
		}},
		Risk: RiskHigh,
	},
	RewriteFile: {
		Name:        RewriteFile,
		Description: "Replace the whole contents of a file, creating it if needed.",
		Schema: Schema{Parameters: []Parameter{
			uriParam,
			{Name: "new_content", Type: "string", Required: true, Description: "The complete new file contents."},
		}},
		Risk: RiskHigh,
	},
	EditFile: {
		Name: EditFile,
		Description: "Edit a file with search/replace blocks:\n" +
			markerOriginal + "\n<exact existing text>\n" + markerDivider + "\n<replacement>\n" + markerUpdated + "\n" +
			"Each ORIGINAL section must match the file exactly once.",
		Schema: Schema{Parameters: []Parameter{
			uriParam,
			{Name: "search_replace_blocks", Type: "string", Required: true, Description: "One or more search/replace blocks."},
		}},
		Risk: RiskHigh,
	},
	RunCommand: {
		Name:        RunCommand,
		Description: "Run a shell command in a fresh terminal. A command that stays silent too long is stopped and its output so far returned.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "command", Type: "string", Required: true, Description: "Shell command to run."},
			cwdParam,
		}},
		Risk: RiskCritical,
	},
	RunPersistentCommand: {
		Name:        RunPersistentCommand,
		Description: "Run a shell command in a persistent terminal. Long-running commands keep running in the background and return their output so far.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "command", Type: "string", Required: true, Description: "Shell command to run."},
			terminalIDParam,
		}},
		Risk: RiskCritical,
	},
	OpenPersistentTerminal: {
		Name:        OpenPersistentTerminal,
		Description: "Open a persistent terminal for servers, watchers and other long-running commands.",
		Schema: Schema{Parameters: []Parameter{
			cwdParam,
			{Name: "persistent_terminal_id", Type: "string", Description: "Id to give the terminal. Generated when absent."},
		}},
		Risk: RiskMedium,
	},
	KillPersistentTerminal: {
		Name:        KillPersistentTerminal,
		Description: "Stop a persistent terminal and whatever it is running.",
		Schema:      Schema{Parameters: []Parameter{terminalIDParam}},
		Risk:        RiskMedium,
	},
	RunNLCommand: {
		Name:        RunNLCommand,
		Description: "Describe a shell task in plain language; it is translated to a command, run, and secrets are masked in the output.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "nl_input", Type: "string", Required: true, Description: "What the command should do."},
			cwdParam,
		}},
		Risk: RiskCritical,
	},
	WebSearch: {
		Name:        WebSearch,
		Description: "Search the web and return titles, URLs and snippets.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true, Description: "Search query."},
			{Name: "k", Type: "integer", Default: DefaultSearchResults, Description: "Number of results (max 20)."},
			refreshParam,
		}},
		Risk: RiskMedium,
	},
	BrowseURL: {
		Name:        BrowseURL,
		Description: "Fetch a web page and return its readable text.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "url", Type: "string", Required: true, Description: "http or https URL."},
			refreshParam,
		}},
		Risk: RiskMedium,
	},
}
