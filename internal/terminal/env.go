// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"os"
	"strings"
)

// =============================================================================
// ENVIRONMENT SANITIZATION
// =============================================================================

// DangerousEnvVars are never passed to commands: they inject code into
// interpreters or redirect traffic.
var DangerousEnvVars = []string{
	// Shell startup
	"BASH_ENV", "ENV", "CDPATH", "GLOBIGNORE", "SHELLOPTS", "BASHOPTS",

	// Dynamic linker
	"LD_PRELOAD", "LD_LIBRARY_PATH", "LD_AUDIT",
	"DYLD_INSERT_LIBRARIES", "DYLD_LIBRARY_PATH",

	// IFS injection
	"IFS",

	// Proxy settings
	"http_proxy", "https_proxy", "HTTP_PROXY", "HTTPS_PROXY",
	"ALL_PROXY", "all_proxy", "ftp_proxy", "FTP_PROXY",

	// Agent hijacking
	"SSH_AUTH_SOCK", "GPG_AGENT_INFO",

	// Interpreter injection
	"PYTHONSTARTUP", "PYTHONPATH", "PYTHONHOME",
	"RUBYOPT", "RUBYLIB",
	"PERL5OPT", "PERL5LIB", "PERLLIB",
	"NODE_OPTIONS", "NODE_PATH",
	"JAVA_TOOL_OPTIONS", "_JAVA_OPTIONS", "CLASSPATH",

	// Git hooks
	"GIT_SSH", "GIT_SSH_COMMAND", "GIT_EXEC_PATH",

	// Prompt injection
	"PS1", "PS2", "PS4", "PROMPT_COMMAND",
}

// nonInteractive keeps pagers from waiting on a keypress nobody will send.
var nonInteractive = []string{
	"PAGER=cat",
	"GIT_PAGER=cat",
	"GIT_TERMINAL_PROMPT=0",
}

// getEnviron returns the current environment (abstracted for testing).
var getEnviron = os.Environ

// sanitizeEnvironment returns the process environment minus dangerous
// variables and dangerous prefixes, with non-interactive defaults.
func sanitizeEnvironment() []string {
	dangerous := make(map[string]bool, len(DangerousEnvVars))
	for _, v := range DangerousEnvVars {
		dangerous[strings.ToUpper(v)] = true
	}
	overrides := make(map[string]bool, len(nonInteractive))
	for _, kv := range nonInteractive {
		overrides[kv[:strings.Index(kv, "=")]] = true
	}

	current := getEnviron()
	result := make([]string, 0, len(current)+len(nonInteractive))
	for _, env := range current {
		i := strings.Index(env, "=")
		if i <= 0 {
			continue
		}
		key := strings.ToUpper(env[:i])
		if dangerous[key] || overrides[key] || key == "PWD" || key == "OLDPWD" ||
			strings.HasPrefix(key, "BASH_FUNC_") ||
			strings.HasPrefix(key, "LD_") ||
			strings.HasPrefix(key, "DYLD_") {
			continue
		}
		result = append(result, env)
	}
	return append(result, nonInteractive...)
}
