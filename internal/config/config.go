// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the gateway.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.rigrun/gateway.toml
//   - ~/.rigrun/gateway.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gateway configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Workspace  WorkspaceConfig  `toml:"workspace" json:"workspace"`
	Pagination PaginationConfig `toml:"pagination" json:"pagination"`
	Terminal   TerminalConfig   `toml:"terminal" json:"terminal"`
	Network    NetworkConfig    `toml:"network" json:"network"`
	Index      IndexConfig      `toml:"index" json:"index"`
	Translator TranslatorConfig `toml:"translator" json:"translator"`
	Server     ServerConfig     `toml:"server" json:"server"`
	Audit      AuditConfig      `toml:"audit" json:"audit"`
	Log        LogConfig        `toml:"log" json:"log"`
}

// WorkspaceConfig lists the roots every file-system tool is confined to.
type WorkspaceConfig struct {
	// Roots are absolute folder paths. The first root anchors relative paths.
	Roots []string `toml:"roots" json:"roots"`
	// Ignore holds directory names skipped by scans and the index.
	Ignore []string `toml:"ignore" json:"ignore"`
}

// PaginationConfig controls page sizes for paginated tools.
type PaginationConfig struct {
	// FileCharsPerPage is the number of characters returned per read_file page.
	FileCharsPerPage int `toml:"file_chars_per_page" json:"file_chars_per_page"`
	// EntriesPerPage is the number of listing or search entries per page.
	EntriesPerPage int `toml:"entries_per_page" json:"entries_per_page"`
}

// TerminalConfig controls shell execution.
type TerminalConfig struct {
	// InactivityTimeoutMs resolves a temporary run as timed out after this
	// long without new output.
	InactivityTimeoutMs int `toml:"inactivity_timeout_ms" json:"inactivity_timeout_ms"`
	// BackgroundWindowMs is how long a persistent run is awaited before the
	// call returns with the process still running.
	BackgroundWindowMs int `toml:"background_window_ms" json:"background_window_ms"`
	// MaxOutputChars caps captured output; the tail is kept.
	MaxOutputChars int `toml:"max_output_chars" json:"max_output_chars"`
	// Shell overrides shell discovery (bash, then sh).
	Shell string `toml:"shell" json:"shell"`
}

// NetworkConfig controls web_search and browse_url.
type NetworkConfig struct {
	// Offline blocks all network tools.
	Offline bool `toml:"offline" json:"offline"`
	// Privacy blocks network tools that send workspace-derived text off-host.
	Privacy bool `toml:"privacy" json:"privacy"`

	CacheCapacity int `toml:"cache_capacity" json:"cache_capacity"`
	CacheTTLSecs  int `toml:"cache_ttl_secs" json:"cache_ttl_secs"`

	UserAgent      string `toml:"user_agent" json:"user_agent"`
	TimeoutSecs    int    `toml:"timeout_secs" json:"timeout_secs"`
	InstantAnswer  string `toml:"instant_answer_url" json:"instant_answer_url"`
	HTMLSearch     string `toml:"html_search_url" json:"html_search_url"`
	BrowseMaxChars int    `toml:"browse_max_chars" json:"browse_max_chars"`
	// ExtractorURL is a headless content-extraction service. Empty disables it.
	ExtractorURL string `toml:"extractor_url" json:"extractor_url"`
	// RequestsPerSecond limits outbound requests (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// AllowPrivateNetworks disables the private address guard on raw fetches.
	AllowPrivateNetworks bool `toml:"allow_private_networks" json:"allow_private_networks"`
}

// IndexConfig controls the content index used by the indexed search tier.
type IndexConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the sqlite database path (empty = ~/.rigrun/index.db).
	Path       string `toml:"path" json:"path"`
	Watch      bool   `toml:"watch" json:"watch"`
	DebounceMs int    `toml:"debounce_ms" json:"debounce_ms"`
	// MaxFileBytes skips larger files when indexing and scanning.
	MaxFileBytes int64 `toml:"max_file_bytes" json:"max_file_bytes"`
}

// TranslatorConfig controls run_nl_command's local model.
type TranslatorConfig struct {
	// Enabled registers the Ollama translator. Without it run_nl_command
	// fails with an execution error.
	Enabled     bool   `toml:"enabled" json:"enabled"`
	OllamaURL   string `toml:"ollama_url" json:"ollama_url"`
	Model       string `toml:"model" json:"model"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Addr  string `toml:"addr" json:"addr"`
	Token string `toml:"token" json:"token"`
	// AllowedIPs restricts /v1 to these addresses or CIDR ranges.
	AllowedIPs        []string `toml:"allowed_ips" json:"allowed_ips"`
	RequestsPerSecond float64  `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int      `toml:"burst" json:"burst"`
}

// AuditConfig controls the tool call audit log.
type AuditConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the JSON-lines log (empty = ~/.rigrun/audit.log).
	Path string `toml:"path" json:"path"`
	// MaxSizeMB rotates the log once it grows past this size.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Pretty bool   `toml:"pretty" json:"pretty"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default values.
const (
	DefaultFileCharsPerPage    = 500_000
	DefaultEntriesPerPage      = 500
	DefaultInactivityTimeoutMs = 8_000
	DefaultBackgroundWindowMs  = 5_000
	DefaultMaxOutputChars      = 100_000
	DefaultCacheCapacity       = 100
	DefaultCacheTTLSecs        = 3600
	DefaultTimeoutSecs         = 15
	DefaultBrowseMaxChars      = 50_000
	DefaultIndexDebounceMs     = 500
	DefaultIndexMaxFileBytes   = util.MaxContentFileSize
	DefaultAuditMaxSizeMB      = 10
	DefaultServerAddr          = "127.0.0.1:7878"
	DefaultOllamaURL           = "http://127.0.0.1:11434"
	DefaultTranslatorModel     = "qwen2.5-coder:7b"
	DefaultTranslatorTimeout   = 60
	DefaultUserAgent           = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// DefaultIgnore holds directories skipped by scans and the index.
var DefaultIgnore = util.IgnoreNames

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",
		Workspace: WorkspaceConfig{
			Ignore: append([]string(nil), DefaultIgnore...),
		},
		Pagination: PaginationConfig{
			FileCharsPerPage: DefaultFileCharsPerPage,
			EntriesPerPage:   DefaultEntriesPerPage,
		},
		Terminal: TerminalConfig{
			InactivityTimeoutMs: DefaultInactivityTimeoutMs,
			BackgroundWindowMs:  DefaultBackgroundWindowMs,
			MaxOutputChars:      DefaultMaxOutputChars,
		},
		Network: NetworkConfig{
			CacheCapacity:  DefaultCacheCapacity,
			CacheTTLSecs:   DefaultCacheTTLSecs,
			UserAgent:      DefaultUserAgent,
			TimeoutSecs:    DefaultTimeoutSecs,
			InstantAnswer:  "https://api.duckduckgo.com/",
			HTMLSearch:     "https://html.duckduckgo.com/html/",
			BrowseMaxChars: DefaultBrowseMaxChars,
		},
		Index: IndexConfig{
			Enabled:      true,
			Watch:        true,
			DebounceMs:   DefaultIndexDebounceMs,
			MaxFileBytes: DefaultIndexMaxFileBytes,
		},
		Translator: TranslatorConfig{
			OllamaURL:   DefaultOllamaURL,
			Model:       DefaultTranslatorModel,
			TimeoutSecs: DefaultTranslatorTimeout,
		},
		Server: ServerConfig{
			Addr:              DefaultServerAddr,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: DefaultAuditMaxSizeMB,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// InactivityTimeout returns the temporary-terminal inactivity window.
func (t TerminalConfig) InactivityTimeout() time.Duration {
	return time.Duration(t.InactivityTimeoutMs) * time.Millisecond
}

// BackgroundWindow returns the persistent-terminal background check window.
func (t TerminalConfig) BackgroundWindow() time.Duration {
	return time.Duration(t.BackgroundWindowMs) * time.Millisecond
}

// CacheTTL returns the network cache time-to-live.
func (n NetworkConfig) CacheTTL() time.Duration {
	return time.Duration(n.CacheTTLSecs) * time.Second
}

// Timeout returns the per-request network timeout.
func (n NetworkConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSecs) * time.Second
}

// Timeout returns the translation request timeout.
func (t TranslatorConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSecs) * time.Second
}

// Debounce returns the index watcher debounce interval.
func (i IndexConfig) Debounce() time.Duration {
	return time.Duration(i.DebounceMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigrun configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gateway.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gateway.json"), nil
}

// IndexPath returns the configured index database path, falling back to
// ~/.rigrun/index.db.
func (c *Config) IndexPath() (string, error) {
	if c.Index.Path != "" {
		return c.Index.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// AuditPath returns the configured audit log path, falling back to
// ~/.rigrun/audit.log.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg := Default()
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg := Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	// Defaults are still usable; the load error is informational.
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by extension (.json, otherwise TOML).
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only),
// the server token lives here.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(b.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "config validation failed: " + strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for i, root := range c.Workspace.Roots {
		if !filepath.IsAbs(root) {
			errs = append(errs, ValidationError{
				Field:   "workspace.roots[" + strconv.Itoa(i) + "]",
				Message: "must be an absolute path, got " + root,
			})
		}
	}

	if c.Pagination.FileCharsPerPage < 1 {
		errs = append(errs, ValidationError{"pagination.file_chars_per_page", "must be at least 1"})
	}
	if c.Pagination.EntriesPerPage < 1 {
		errs = append(errs, ValidationError{"pagination.entries_per_page", "must be at least 1"})
	}

	if c.Terminal.InactivityTimeoutMs < 1 {
		errs = append(errs, ValidationError{"terminal.inactivity_timeout_ms", "must be positive"})
	}
	if c.Terminal.BackgroundWindowMs < 1 {
		errs = append(errs, ValidationError{"terminal.background_window_ms", "must be positive"})
	}
	if c.Terminal.MaxOutputChars < 0 {
		errs = append(errs, ValidationError{"terminal.max_output_chars", "must not be negative"})
	}

	// A zero-capacity cache is legal and disables caching.
	if c.Network.CacheCapacity < 0 {
		errs = append(errs, ValidationError{"network.cache_capacity", "must not be negative"})
	}
	if c.Network.CacheTTLSecs < 0 {
		errs = append(errs, ValidationError{"network.cache_ttl_secs", "must not be negative"})
	}
	if c.Network.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{"network.requests_per_second", "must not be negative"})
	}
	for field, raw := range map[string]string{
		"network.instant_answer_url": c.Network.InstantAnswer,
		"network.html_search_url":    c.Network.HTMLSearch,
		"network.extractor_url":      c.Network.ExtractorURL,
		"translator.ollama_url":      c.Translator.OllamaURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{field, "must be an http(s) URL, got " + raw})
		}
	}

	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errs = append(errs, ValidationError{"server.addr", "must be host:port, got " + c.Server.Addr})
		}
	}

	if c.Audit.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{"audit.max_size_mb", "must not be negative"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{"log.level", "unknown level " + c.Log.Level})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value
// configuration fields. Zero is a meaningful value for the cache
// capacity and is left alone.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Workspace.Ignore == nil {
		c.Workspace.Ignore = d.Workspace.Ignore
	}
	for i, root := range c.Workspace.Roots {
		c.Workspace.Roots[i] = filepath.Clean(root)
	}
	if c.Pagination.FileCharsPerPage == 0 {
		c.Pagination.FileCharsPerPage = d.Pagination.FileCharsPerPage
	}
	if c.Pagination.EntriesPerPage == 0 {
		c.Pagination.EntriesPerPage = d.Pagination.EntriesPerPage
	}
	if c.Terminal.InactivityTimeoutMs == 0 {
		c.Terminal.InactivityTimeoutMs = d.Terminal.InactivityTimeoutMs
	}
	if c.Terminal.BackgroundWindowMs == 0 {
		c.Terminal.BackgroundWindowMs = d.Terminal.BackgroundWindowMs
	}
	if c.Terminal.MaxOutputChars == 0 {
		c.Terminal.MaxOutputChars = d.Terminal.MaxOutputChars
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = d.Network.UserAgent
	}
	if c.Network.TimeoutSecs == 0 {
		c.Network.TimeoutSecs = d.Network.TimeoutSecs
	}
	if c.Network.BrowseMaxChars == 0 {
		c.Network.BrowseMaxChars = d.Network.BrowseMaxChars
	}
	if c.Index.DebounceMs == 0 {
		c.Index.DebounceMs = d.Index.DebounceMs
	}
	if c.Index.MaxFileBytes == 0 {
		c.Index.MaxFileBytes = d.Index.MaxFileBytes
	}
	if c.Translator.OllamaURL == "" {
		c.Translator.OllamaURL = d.Translator.OllamaURL
	}
	if c.Translator.Model == "" {
		c.Translator.Model = d.Translator.Model
	}
	if c.Translator.TimeoutSecs == 0 {
		c.Translator.TimeoutSecs = d.Translator.TimeoutSecs
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = d.Server.Burst
	}
	if c.Audit.MaxSizeMB == 0 {
		c.Audit.MaxSizeMB = d.Audit.MaxSizeMB
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGRUN_WORKSPACE: workspace roots (os.PathListSeparator separated)
//   - RIGRUN_OFFLINE / RIGRUN_NO_NETWORK: block all network tools
//   - RIGRUN_PRIVACY: block network tools in privacy mode
//   - RIGRUN_LOG_LEVEL: zerolog level
//   - RIGRUN_SERVER_ADDR: HTTP listen address
//   - RIGRUN_SERVER_TOKEN: bearer token for the HTTP transport
//   - OLLAMA_HOST: translator base URL (http:// is added when missing)
//   - RIGRUN_NL_MODEL: translator model
func (c *Config) ApplyEnvOverrides() {
	if ws := os.Getenv("RIGRUN_WORKSPACE"); ws != "" {
		var roots []string
		for _, p := range filepath.SplitList(ws) {
			if p = strings.TrimSpace(p); p != "" {
				roots = append(roots, p)
			}
		}
		c.Workspace.Roots = roots
	}

	if offline := os.Getenv("RIGRUN_OFFLINE"); offline != "" {
		c.Network.Offline = envBool(offline)
	}
	if noNetwork := os.Getenv("RIGRUN_NO_NETWORK"); noNetwork != "" {
		c.Network.Offline = envBool(noNetwork)
	}
	if privacy := os.Getenv("RIGRUN_PRIVACY"); privacy != "" {
		c.Network.Privacy = envBool(privacy)
	}

	if level := os.Getenv("RIGRUN_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if addr := os.Getenv("RIGRUN_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if token := os.Getenv("RIGRUN_SERVER_TOKEN"); token != "" {
		c.Server.Token = token
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
			host = "http://" + host
		}
		c.Translator.OllamaURL = host
	}
	if model := os.Getenv("RIGRUN_NL_MODEL"); model != "" {
		c.Translator.Model = model
		c.Translator.Enabled = true
	}
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the server token.
func (c *Config) String() string {
	clone := *c
	if clone.Server.Token != "" {
		clone.Server.Token = "[REDACTED]"
	}
	data, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// ErrNoRoots is returned by RequireRoots when no workspace root is configured.
var ErrNoRoots = errors.New("no workspace roots configured (set workspace.roots or RIGRUN_WORKSPACE)")

// RequireRoots returns the configured roots or ErrNoRoots.
func (c *Config) RequireRoots() ([]string, error) {
	if len(c.Workspace.Roots) == 0 {
		return nil, ErrNoRoots
	}
	return c.Workspace.Roots, nil
}

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
