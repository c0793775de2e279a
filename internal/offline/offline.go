// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

// Error types for gate violations.
var (
	// ErrNetworkBlocked is returned when a network operation is attempted in offline mode.
	ErrNetworkBlocked = errors.New("network operation blocked: workspace is in offline mode")

	// ErrPrivacyBlocked is returned when a network tool is attempted in privacy mode.
	ErrPrivacyBlocked = errors.New("network operation blocked: workspace is in privacy mode")

	// ErrNonLocalhost is returned when attempting to connect to non-localhost in offline mode.
	ErrNonLocalhost = errors.New("only localhost connections are allowed in offline mode")

	// ErrInvalidURLScheme is returned when URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")
)

// =============================================================================
// GATE
// =============================================================================

// Mode is the network posture of a workspace.
type Mode int

const (
	// ModeOnline allows network tools.
	ModeOnline Mode = iota
	// ModePrivacy blocks network tools; workspace text must not leave the host.
	ModePrivacy
	// ModeOffline blocks every outbound network operation.
	ModeOffline
)

// String returns the display name of a mode.
func (m Mode) String() string {
	switch m {
	case ModePrivacy:
		return "privacy"
	case ModeOffline:
		return "offline"
	default:
		return "online"
	}
}

// Gate decides whether network tools may run. The zero value is online.
type Gate struct {
	mu      sync.RWMutex
	offline bool
	privacy bool
}

// NewGate returns a gate with the given flags.
func NewGate(offline, privacy bool) *Gate {
	return &Gate{offline: offline, privacy: privacy}
}

// SetOffline enables or disables offline mode.
func (g *Gate) SetOffline(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offline = enabled
}

// SetPrivacy enables or disables privacy mode.
func (g *Gate) SetPrivacy(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.privacy = enabled
}

// Mode returns the current mode. Offline takes precedence over privacy.
func (g *Gate) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch {
	case g.offline:
		return ModeOffline
	case g.privacy:
		return ModePrivacy
	default:
		return ModeOnline
	}
}

// CheckNetworkTool returns an error naming the blocking mode when a
// network-facing tool must not run.
func (g *Gate) CheckNetworkTool() error {
	switch g.Mode() {
	case ModeOffline:
		return ErrNetworkBlocked
	case ModePrivacy:
		return ErrPrivacyBlocked
	default:
		return nil
	}
}

// ValidateURL checks scheme and, in offline mode, that the host is local.
// Scheme validation is always performed.
func (g *Gate) ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrNetworkBlocked
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}

	if g.Mode() == ModeOffline && !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}
	return nil
}

// StatusBadge returns "[OFFLINE]" or "[PRIVACY]" for display, or "".
func (g *Gate) StatusBadge() string {
	switch g.Mode() {
	case ModeOffline:
		return "[OFFLINE]"
	case ModePrivacy:
		return "[PRIVACY]"
	default:
		return ""
	}
}

// =============================================================================
// PROCESS-WIDE GATE
// =============================================================================

var global = &Gate{}

// Global returns the process-wide gate.
func Global() *Gate {
	return global
}

// SetOfflineMode enables or disables offline mode on the process-wide gate.
func SetOfflineMode(enabled bool) {
	global.SetOffline(enabled)
}

// IsOfflineMode reports whether the process-wide gate is offline.
func IsOfflineMode() bool {
	return global.Mode() == ModeOffline
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host string refers to localhost.
// Accepts "localhost", "127.0.0.1", "::1", "[::1]" and any loopback variant.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.Trim(host, "[]")
	host = strings.ToLower(host)

	if host == "localhost" {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
