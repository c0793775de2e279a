// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package danger assigns a heuristic risk tier to shell commands.
//
// The tier only drives a pre-execution warning. Nothing is blocked here and
// false negatives are expected.
package danger

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Level is a command risk tier.
type Level int

const (
	Low Level = iota
	Medium
	High
)

// String returns "low", "medium" or "high".
func (l Level) String() string {
	switch l {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Rule is one named pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

func rule(name, expr string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(expr)}
}

// =============================================================================
// HIGH RISK
// =============================================================================

// HighRules are evaluated first, in order.
var HighRules = []Rule{
	// ==========================================================================
	// DESTRUCTIVE FILE OPERATIONS
	// ==========================================================================
	rule("recursive delete", `\brm\s+(-[a-z]*r[a-z]*|--recursive)\b`),
	rule("forced delete", `\brm\s+(-[a-z]*f[a-z]*|--force)\b`),
	rule("windows recursive delete", `\b(rmdir|rd)\s+/s\b`),
	rule("find delete", `\bfind\b.*\s-delete\b`),

	// ==========================================================================
	// DISK AND PARTITION OPERATIONS
	// ==========================================================================
	rule("raw disk copy", `\bdd\s+.*\b(if|of)=`),
	rule("filesystem format", `\b(mkfs(\.\w+)?|mke2fs|mkswap|wipefs|format\s+[a-z]:)`),
	rule("partition table", `\b(fdisk|gdisk|sfdisk|cfdisk|parted)\b`),
	rule("secure erase", `\bshred\b`),
	rule("device write", `>\s*/dev/(sd|nvme|hd|vd|disk)`),

	// ==========================================================================
	// PRIVILEGED DESTRUCTIVE OPERATIONS
	// ==========================================================================
	rule("privileged delete", `\bsudo\s+(rm|dd|mkfs|shred|chown|chmod)\b`),
	rule("system power", `\b(shutdown|reboot|halt|poweroff|init\s+[06])\b`),
	rule("fork bomb", `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),

	// ==========================================================================
	// PERMISSIONS
	// ==========================================================================
	rule("world writable", `\bchmod\s+(-[a-z]+\s+)*(0?777|a\+rwx|o\+w)\b`),

	// ==========================================================================
	// REMOTE CODE EXECUTION
	// ==========================================================================
	rule("fetch piped to shell", `\b(curl|wget|iwr|invoke-webrequest)\b[^|]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`),
	rule("fetch piped to interpreter", `\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(python3?|perl|ruby|node|iex)\b`),

	// ==========================================================================
	// VERSION CONTROL
	// ==========================================================================
	rule("hard reset", `\bgit\s+reset\s+.*--hard\b`),
	rule("forced push", `\bgit\s+push\b.*(\s--force(-with-lease)?\b|\s-f\b)`),
	rule("clean untracked", `\bgit\s+clean\s+-[a-z]*[fd][a-z]*`),
}

// =============================================================================
// MEDIUM RISK
// =============================================================================

// MediumRules are evaluated when no high rule matches.
var MediumRules = []Rule{
	rule("privilege escalation", `\b(sudo|su|doas|runas)\b`),
	rule("permission change", `\bchmod\b`),
	rule("ownership change", `\b(chown|chgrp)\b`),
	rule("delete", `\b(rm|rmdir|del|unlink)\b`),
	rule("move or copy outside", `\b(mv|cp)\b.*\s(/|~|\.\./)`),
	rule("global package install", `\b(npm|pnpm|yarn)\s+(i|install|add)\b.*(\s-g\b|\s--global\b)|\bpip3?\s+install\b|\bgem\s+install\b|\bcargo\s+install\b|\bgo\s+install\b|\b(apt|apt-get|yum|dnf|brew|pacman)\s+(install|remove|-s)\b`),
	rule("container deletion", `\b(docker|podman)\s+(rm|rmi|system\s+prune|volume\s+rm|network\s+rm)\b`),
	rule("orchestration deletion", `\b(kubectl|helm)\s+(delete|uninstall)\b`),
	rule("version control publish", `\bgit\s+(push|rebase|checkout\s+--|restore|stash\s+drop|branch\s+-d)\b`),
	rule("process kill", `\b(kill|pkill|killall|taskkill)\b`),
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Normalize returns the text patterns are evaluated against: NFKC
// normalized (homoglyphs folded), trimmed and lower-cased.
func Normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(command)))
}

// Classify returns the risk tier of a command. The first matching high rule
// wins, then the first matching medium rule, otherwise Low.
func Classify(command string) Level {
	level, _ := Explain(command)
	return level
}

// Explain is Classify plus the name of the rule that matched.
func Explain(command string) (Level, string) {
	cmd := Normalize(command)
	if cmd == "" {
		return Low, ""
	}
	for _, r := range HighRules {
		if r.Pattern.MatchString(cmd) {
			return High, r.Name
		}
	}
	for _, r := range MediumRules {
		if r.Pattern.MatchString(cmd) {
			return Medium, r.Name
		}
	}
	return Low, ""
}
