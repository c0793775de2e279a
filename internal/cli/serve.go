// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/rigrun-gateway/internal/audit"
	"github.com/jeranaias/rigrun-gateway/internal/server"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// =============================================================================
// SERVE COMMAND
// =============================================================================

// HandleServe serves the HTTP API until SIGINT or SIGTERM.
func HandleServe(ctx context.Context, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "no-index")

	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if addr := p.Flag("addr"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return usageErr("serve", "invalid --addr %q: %v", addr, err)
		}
		cfg.Server.Addr = addr
	}
	if token := p.Flag("token"); token != "" {
		cfg.Server.Token = token
	}
	if p.BoolFlag("no-index") {
		cfg.Index.Enabled = false
	}

	log := NewLogger(cfg, args, false)
	app, err := Build(cfg, log, BuildOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		Token:             cfg.Server.Token,
		AllowedIPs:        cfg.Server.AllowedIPs,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	}, server.Deps{
		Gateway:     app.Gateway,
		Terminals:   app.Terminals,
		Diagnostics: app.Diagnostics,
		Cache:       app.Web,
		Roots:       app.Workspace.Roots(),
		Checks:      app.HealthChecks(),
	}, log)
	if err != nil {
		return err
	}

	if cfg.Server.Token == "" && !isLoopback(srv.Addr()) {
		log.Warn().Str("addr", srv.Addr()).Msg("serving without a bearer token on a non-loopback address")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	app.StartIndexing(ctx)

	if app.Audit != nil {
		app.Audit.LogEvent(audit.EventStartup, map[string]string{
			"addr":    srv.Addr(),
			"version": Version,
			"roots":   joinRoots(app.Workspace.Roots()),
			"network": app.Gate.Mode().String(),
		})
		defer app.Audit.LogEvent(audit.EventShutdown, nil)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	if !args.JSON {
		fmt.Fprintf(w, "%s rigrun-gateway %s listening on http://%s\n", RenderStatus("ok"), Version, srv.Addr())
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Workspace", 12), ValueStyle.Render(joinRoots(app.Workspace.Roots())))
		if badge := app.Gate.StatusBadge(); badge != "" {
			fmt.Fprintf(w, "%s %s\n", RenderLabel("Network", 12), WarningStyle.Render(badge))
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
