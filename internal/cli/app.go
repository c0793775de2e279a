// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Assembles the gateway and its collaborators from configuration.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/audit"
	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/index"
	"github.com/jeranaias/rigrun-gateway/internal/netcache"
	"github.com/jeranaias/rigrun-gateway/internal/offline"
	"github.com/jeranaias/rigrun-gateway/internal/ollama"
	"github.com/jeranaias/rigrun-gateway/internal/search"
	"github.com/jeranaias/rigrun-gateway/internal/secrets"
	"github.com/jeranaias/rigrun-gateway/internal/server"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
	"github.com/jeranaias/rigrun-gateway/internal/web"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// APP
// =============================================================================

// App is a fully wired gateway. Index, Ollama and Audit are nil when
// disabled.
type App struct {
	Config      *config.Config
	Log         zerolog.Logger
	Workspace   *workspace.Static
	Gate        *offline.Gate
	Gateway     *tools.Gateway
	Terminals   *terminal.Coordinator
	Diagnostics *tools.MemoryDiagnostics
	Web         *web.Service
	Index       *index.ContentIndex
	Ollama      *ollama.Client
	Audit       *audit.Logger
}

// BuildOptions adjust Build for one command.
type BuildOptions struct {
	// NoWatch keeps the index from watching the disk even when configured.
	NoWatch bool
}

// Build wires every collaborator described by cfg. A content index that
// fails to open is logged and skipped; searches then scan the disk.
func Build(cfg *config.Config, log zerolog.Logger, opts BuildOptions) (*App, error) {
	roots, err := cfg.RequireRoots()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.NewStatic(roots...)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	app := &App{
		Config:      cfg,
		Log:         log,
		Workspace:   ws,
		Gate:        offline.NewGate(cfg.Network.Offline, cfg.Network.Privacy),
		Diagnostics: tools.NewMemoryDiagnostics(),
	}

	if cfg.Index.Enabled {
		idx, err := openIndex(cfg, ws.Roots(), log, !opts.NoWatch && cfg.Index.Watch)
		if err != nil {
			log.Warn().Err(err).Msg("content index unavailable, searches will scan the workspace")
		} else {
			app.Index = idx
		}
	}

	if cfg.Audit.Enabled {
		aud, err := openAudit(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("audit log unavailable")
		} else {
			app.Audit = aud
		}
	}

	// Typed nils must not reach the interfaces below.
	var (
		backend search.IndexBackend
		updater tools.IndexUpdater
		auditor tools.Auditor
	)
	if app.Index != nil {
		backend = app.Index
		updater = app.Index
	}
	if app.Audit != nil {
		auditor = app.Audit
	}
	scanner := search.NewLocalScanner(ws, cfg.Workspace.Ignore, log)
	scanner.SetMaxFileSize(cfg.Index.MaxFileBytes)
	selector := search.NewSelector(backend, scanner, ws, log)

	app.Terminals = app.buildTerminals()
	app.Web = app.buildWeb()

	gw, err := tools.New(tools.Deps{
		Resolver:    workspace.NewResolver(ws),
		Files:       tools.NewLocalFileStore(),
		Search:      selector,
		Terminals:   app.Terminals,
		Web:         app.Web,
		Diagnostics: app.Diagnostics,
		Index:       updater,
		Audit:       auditor,
	}, tools.Options{
		FileCharsPerPage: cfg.Pagination.FileCharsPerPage,
		EntriesPerPage:   cfg.Pagination.EntriesPerPage,
		Ignore:           cfg.Workspace.Ignore,
	}, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = gw

	log.Debug().
		Strs("roots", ws.Roots()).
		Bool("index", app.Index != nil).
		Bool("translator", app.Ollama != nil).
		Str("network", app.Gate.Mode().String()).
		Msg("gateway assembled")
	return app, nil
}

func openIndex(cfg *config.Config, roots []string, log zerolog.Logger, watch bool) (*index.ContentIndex, error) {
	dbPath, err := cfg.IndexPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	icfg := index.DefaultConfig(dbPath, roots...)
	if cfg.Index.MaxFileBytes > 0 {
		icfg.MaxFileSize = cfg.Index.MaxFileBytes
	}
	if len(cfg.Workspace.Ignore) > 0 {
		icfg.IgnorePatterns = cfg.Workspace.Ignore
	}
	icfg.EnableWatch = watch
	icfg.WatchDebounce = cfg.Index.Debounce()
	icfg.Logger = log
	return index.New(icfg)
}

func openAudit(cfg *config.Config) (*audit.Logger, error) {
	path, err := cfg.AuditPath()
	if err != nil {
		return nil, err
	}
	return audit.New(path, int64(cfg.Audit.MaxSizeMB)*1024*1024, secrets.New())
}

func (a *App) buildTerminals() *terminal.Coordinator {
	cfg := a.Config
	options := []terminal.Option{
		terminal.WithSecretDetector(secrets.New()),
		terminal.WithNotifier(terminal.LogNotifier{Log: a.Log}),
	}
	if cfg.Translator.Enabled {
		a.Ollama = ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Translator.OllamaURL,
			Timeout:      cfg.Translator.Timeout(),
			DefaultModel: cfg.Translator.Model,
		})
		options = append(options, terminal.WithTranslator(
			ollama.NewTranslator(a.Ollama, cfg.Translator.Model, cfg.Terminal.Shell, a.Log)))
	}
	return terminal.New(
		terminal.NewLocalHost(cfg.Terminal.Shell, cfg.Terminal.MaxOutputChars),
		terminal.Options{
			InactivityTimeout: cfg.Terminal.InactivityTimeout(),
			BackgroundWindow:  cfg.Terminal.BackgroundWindow(),
			MaxOutputChars:    cfg.Terminal.MaxOutputChars,
		},
		a.Log,
		options...,
	)
}

func (a *App) buildWeb() *web.Service {
	n := a.Config.Network
	fetcher := web.NewHTTPFetcher(web.FetcherOptions{
		Client:               web.ClientOptions{Timeout: n.Timeout()},
		UserAgent:            n.UserAgent,
		AllowPrivateNetworks: n.AllowPrivateNetworks,
	})
	var options []web.Option
	if n.ExtractorURL != "" {
		options = append(options, web.WithExtractor(web.NewRemoteExtractor(n.ExtractorURL, n.Timeout())))
	}
	return web.NewService(
		a.Gate,
		netcache.New[web.Entry](n.CacheCapacity, n.CacheTTL()),
		fetcher,
		web.Options{
			UserAgent:         n.UserAgent,
			InstantAnswerURL:  n.InstantAnswer,
			HTMLSearchURL:     n.HTMLSearch,
			BrowseMaxChars:    n.BrowseMaxChars,
			RequestsPerSecond: n.RequestsPerSecond,
			Retry:             web.DefaultRetry(),
			WorkTimeout:       4 * n.Timeout(),
		},
		a.Log,
		options...,
	)
}

// StartIndexing builds the content index in the background. Searches use
// the scan tier until the first pass completes.
func (a *App) StartIndexing(ctx context.Context) {
	if a.Index == nil {
		return
	}
	go func() {
		start := time.Now()
		if err := a.Index.Index(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				a.Log.Warn().Err(err).Msg("indexing failed")
			}
			return
		}
		a.Log.Info().
			Int("files", a.Index.Stats().FileCount).
			Dur("took", time.Since(start)).
			Msg("content index ready")
	}()
}

// HealthChecks returns the probes reported by /health.
func (a *App) HealthChecks() []server.HealthCheck {
	var checks []server.HealthCheck
	if a.Ollama != nil {
		checks = append(checks, server.HealthCheck{Name: "translator", Check: a.Ollama.CheckRunning})
	}
	if a.Index != nil {
		checks = append(checks, server.HealthCheck{Name: "index", Check: func(context.Context) error {
			if !a.Index.IsIndexed() {
				return errors.New("index not built yet")
			}
			return nil
		}})
	}
	return checks
}

// Close kills persistent terminals and closes the index and audit log.
func (a *App) Close() error {
	if a.Terminals != nil {
		a.Terminals.Close()
	}
	var err error
	if a.Index != nil {
		err = a.Index.Close()
	}
	if a.Audit != nil {
		err = errors.Join(err, a.Audit.Close())
	}
	return err
}
