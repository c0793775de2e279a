// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigrun-gateway/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig implements `config [show|path|init|validate]`.
func HandleConfig(args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "force")
	switch sub := p.Positional(0); sub {
	case "", "show":
		return configShow(args, w)
	case "path":
		return configPath(args, w)
	case "init":
		return configInit(args, w, p.BoolFlag("force"))
	case "validate", "check":
		return configValidate(args, w)
	default:
		return usageErr("config", "unknown subcommand %q (show, path, init, validate)", sub)
	}
}

// configShow prints the effective configuration with the token redacted.
func configShow(args Args, w io.Writer) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	shown := *cfg
	if shown.Server.Token != "" {
		shown.Server.Token = "[REDACTED]"
	}
	if args.JSON {
		return NewJSONResponse("config", shown).Write(w)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(shown); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprint(w, b.String())
	return nil
}

func configPath(args Args, w io.Writer) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return &ConfigError{Err: err}
		}
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Write(w)
	}
	fmt.Fprintln(w, path)
	return nil
}

// configInit writes the defaults, plus any --workspace roots, to the
// config file. An existing file is kept unless force is set.
func configInit(args Args, w io.Writer, force bool) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return &ConfigError{Err: err}
		}
	}
	if _, err := os.Stat(path); err == nil && !force {
		return usageErr("config", "%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Err: err}
	}

	cfg := config.Default()
	if err := applyOverrides(cfg, args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Write(w)
	}
	fmt.Fprintf(w, "%s wrote %s\n", RenderStatus("ok"), path)
	return nil
}

func configValidate(args Args, w io.Writer) error {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		if args.JSON {
			NewJSONErrorResponse("config", err).Write(w)
		}
		return err
	}
	if path == "" {
		path = "(defaults)"
	}
	if _, err := cfg.RequireRoots(); err != nil {
		if args.JSON {
			NewJSONErrorResponse("config", err).Write(w)
		}
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]any{"path": path, "valid": true}).Write(w)
	}
	fmt.Fprintf(w, "%s %s is valid\n", RenderStatus("ok"), path)
	return nil
}
