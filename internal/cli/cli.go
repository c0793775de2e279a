// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and shared setup for rigrun-gateway.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdServe
	CmdCall
	CmdRepl
	CmdTools
	CmdIndex
	CmdStatus
	CmdConfig
	CmdAudit
	CmdVersion
)

var commandNames = map[string]Command{
	"serve":   CmdServe,
	"server":  CmdServe,
	"call":    CmdCall,
	"run":     CmdCall,
	"repl":    CmdRepl,
	"shell":   CmdRepl,
	"tools":   CmdTools,
	"index":   CmdIndex,
	"status":  CmdStatus,
	"s":       CmdStatus,
	"config":  CmdConfig,
	"audit":   CmdAudit,
	"version": CmdVersion,
	"help":    CmdHelp,
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Workspace  []string
	Offline    bool
	Privacy    bool
	LogLevel   string
	Verbose    bool
	Quiet      bool
	JSON       bool

	// Name is the command as typed.
	Name string

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `rigrun-gateway - sandboxed tool execution for LLM agents

Executes file, search, terminal and web tools on behalf of a language
model, confined to the configured workspace roots.

Usage:
  rigrun-gateway serve [--addr HOST:PORT] [--token T]   Serve the HTTP API
  rigrun-gateway call <tool> [JSON] [-p key=value...]   Run one tool call
  rigrun-gateway repl                                   Interactive tool shell
  rigrun-gateway tools [name]                           List tools or show one
  rigrun-gateway index [--rebuild]                      Build the content index
  rigrun-gateway status, s                              Show gateway status
  rigrun-gateway config [show|path|init|validate]       Configuration
  rigrun-gateway audit [-n N] [--failed] [--tool NAME]  Recent audited tool calls
  rigrun-gateway version                                Show version

Global Flags:
  -c, --config PATH       Config file (default ~/.rigrun/gateway.toml)
  -w, --workspace DIR     Workspace root, repeatable (overrides config)
  --offline               Block every network tool
  --privacy               Block network tools that send text off-host
  --log-level LEVEL       trace, debug, info, warn, error or disabled
  -v, --verbose           Debug logging
  -q, --quiet             Errors only
  --json                  Machine-readable output

Call Flags:
  -p, --param KEY=VALUE   Tool parameter, repeatable
  --raw                   Print the result without rendering
  --timeout DURATION      Interrupt the call after DURATION (e.g. 30s)

Examples:
  rigrun-gateway -w ~/src/app call read_file -p uri=main.go
  rigrun-gateway call search_for_files '{"query": "TODO", "is_regex": false}'
  rigrun-gateway call run_command -p command="go test ./..." --raw
  rigrun-gateway serve --addr 127.0.0.1:7878 --token "$GATEWAY_TOKEN"

Environment:
  RIGRUN_WORKSPACE        Workspace roots (path-list separated)
  RIGRUN_OFFLINE          Offline mode (1/true)
  RIGRUN_PRIVACY          Privacy mode (1/true)
  RIGRUN_SERVER_TOKEN     Bearer token for /v1
  OLLAMA_HOST             Translator base URL
  RIGRUN_NL_MODEL         Translator model (enables run_nl_command)

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs separates global flags from the command and its arguments.
// Global flags may appear before or after the command name.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdHelp, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Name = name
	args.Raw = remaining[1:]

	switch name {
	case "-h", "--help":
		return CmdHelp, args, nil
	case "--version":
		return CmdVersion, args, nil
	}
	cmd, ok := commandNames[name]
	if !ok {
		return CmdHelp, args, usageErr("", "unknown command %q (see rigrun-gateway help)", remaining[0])
	}
	return cmd, args, nil
}

// parseGlobalFlags extracts global flags and returns the rest in order.
// Arguments after "--" are never treated as global flags.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var (
		args      Args
		remaining []string
	)
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}

		name, value, inline := strings.Cut(arg, "=")
		takeValue := func() (string, error) {
			if inline {
				return value, nil
			}
			if i+1 >= len(argv) {
				return "", usageErr("", "flag %s needs a value", name)
			}
			i++
			return argv[i], nil
		}

		switch name {
		case "-c", "--config":
			v, err := takeValue()
			if err != nil {
				return nil, args, err
			}
			args.ConfigPath = v
		case "-w", "--workspace":
			v, err := takeValue()
			if err != nil {
				return nil, args, err
			}
			args.Workspace = append(args.Workspace, filepath.SplitList(v)...)
		case "--log-level":
			v, err := takeValue()
			if err != nil {
				return nil, args, err
			}
			args.LogLevel = strings.ToLower(v)
		case "--offline", "--no-network":
			args.Offline = true
		case "--privacy":
			args.Privacy = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-q", "--quiet":
			args.Quiet = true
		case "--json":
			args.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args, nil
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// LoadConfig loads the configuration and applies command-line overrides.
// It returns the path that was read, or "" when only defaults apply.
func LoadConfig(args Args) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if args.ConfigPath != "" {
		path = args.ConfigPath
		cfg, err = config.LoadFromPath(path)
		if err != nil {
			return nil, "", &ConfigError{Err: err}
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, "", &ConfigError{Err: err}
		}
		if err != nil {
			StderrPrint("%s %v (using defaults)\n", WarningStyle.Render("warning:"), err)
		}
		path = existingConfigPath()
	}

	if err := applyOverrides(cfg, args); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, &ConfigError{Err: err}
	}
	return cfg, path, nil
}

func existingConfigPath() string {
	for _, get := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		if p, err := get(); err == nil {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func applyOverrides(cfg *config.Config, args Args) error {
	if len(args.Workspace) > 0 {
		roots := make([]string, 0, len(args.Workspace))
		for _, w := range args.Workspace {
			if w = strings.TrimSpace(w); w == "" {
				continue
			}
			abs, err := filepath.Abs(expandHome(w))
			if err != nil {
				return &ConfigError{Err: fmt.Errorf("workspace %q: %w", w, err)}
			}
			roots = append(roots, abs)
		}
		cfg.Workspace.Roots = roots
	}
	if args.Offline {
		cfg.Network.Offline = true
	}
	if args.Privacy {
		cfg.Network.Privacy = true
	}
	switch {
	case args.LogLevel != "":
		cfg.Log.Level = args.LogLevel
	case args.Verbose:
		cfg.Log.Level = "debug"
	case args.Quiet:
		cfg.Log.Level = "error"
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// NewLogger builds the process logger. Interactive commands log warnings
// and above unless a level was asked for.
func NewLogger(cfg *config.Config, args Args, interactive bool) zerolog.Logger {
	level := cfg.Log.Level
	if interactive && args.LogLevel == "" && !args.Verbose && !args.Quiet {
		level = "warn"
	}
	return logging.New(logging.Options{
		Level:  level,
		Pretty: cfg.Log.Pretty || IsStderrTTY(),
		Writer: os.Stderr,
	})
}

// setup loads configuration, builds the logger and wires the gateway.
func setup(args Args, interactive bool, opts BuildOptions) (*App, error) {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	log := NewLogger(cfg, args, interactive)
	app, err := Build(cfg, log, opts)
	if err != nil {
		if errors.Is(err, config.ErrNoRoots) {
			return nil, fmt.Errorf("%w; pass --workspace DIR", err)
		}
		return nil, err
	}
	return app, nil
}

// =============================================================================
// VERSION AND HELP
// =============================================================================

// HandleVersion prints build information.
func HandleVersion(args Args, w io.Writer) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "rigrun-gateway version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
	return nil
}

// HandleHelp prints the usage text.
func HandleHelp(w io.Writer) error {
	PrintUsage(w)
	return nil
}
