// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// tool gateway.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - WorkspaceConfig: roots every file-system tool is confined to
//   - TerminalConfig: inactivity and background windows, output cap
//   - NetworkConfig: offline/privacy gate, cache, search endpoints
//   - TranslatorConfig: the local model behind run_nl_command
//   - AuditConfig: the JSON-lines tool call audit log
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGRUN_*, OLLAMA_HOST)
//   - ~/.rigrun/gateway.toml
//   - ~/.rigrun/gateway.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	window := cfg.Terminal.InactivityTimeout()
package config
