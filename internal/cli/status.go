// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigrun-gateway/internal/config"
	"github.com/jeranaias/rigrun-gateway/internal/offline"
	"github.com/jeranaias/rigrun-gateway/internal/ollama"
)

// statusProbeTimeout bounds the translator reachability check.
const statusProbeTimeout = 3 * time.Second

// =============================================================================
// STATUS COMMAND
// =============================================================================

// HandleStatus reports configuration and the reachability of optional
// collaborators without starting the gateway.
func HandleStatus(ctx context.Context, args Args, w io.Writer) error {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return err
	}
	data := collectStatus(ctx, cfg, path)

	if args.JSON {
		return NewJSONResponse("status", data).Write(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("rigrun-gateway "+data.Version))
	configPath := data.ConfigPath
	if configPath == "" {
		configPath = DimStyle.Render("(defaults)")
	}
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Config"), configPath)

	if len(data.Roots) == 0 {
		fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Workspace"), RenderStatus("fail"), "no roots configured")
	} else {
		fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Workspace"), RenderStatus("ok"), joinRoots(data.Roots))
	}

	network := RenderStatus("ok")
	if data.Network != offline.ModeOnline.String() {
		network = RenderStatus("warn")
	}
	fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Network"), network, data.Network)

	switch {
	case !data.Index.Enabled:
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Index"), RenderStatus("off"))
	case data.Index.SizeBytes > 0:
		fmt.Fprintf(w, "%s %s %s (%s)\n", RenderLabel("Index"), RenderStatus("ok"),
			data.Index.Database, humanize.Bytes(uint64(data.Index.SizeBytes)))
	default:
		fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Index"), RenderStatus("warn"),
			"not built yet (run rigrun-gateway index)")
	}

	switch {
	case !data.Translator.Enabled:
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Translator"), RenderStatus("off"))
	case data.Translator.OK:
		fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Translator"), RenderStatus("ok"), data.Translator.Detail)
	default:
		fmt.Fprintf(w, "%s %s %s\n", RenderLabel("Translator"), RenderStatus("fail"), data.Translator.Detail)
	}

	fmt.Fprintf(w, "%s %s\n", RenderLabel("Server"), data.Server)
	return nil
}

func collectStatus(ctx context.Context, cfg *config.Config, path string) StatusData {
	data := StatusData{
		Version:    Version,
		ConfigPath: path,
		Roots:      cfg.Workspace.Roots,
		Network:    offline.NewGate(cfg.Network.Offline, cfg.Network.Privacy).Mode().String(),
		Index:      StatusIndexInfo{Enabled: cfg.Index.Enabled},
		Translator: StatusCheck{Enabled: cfg.Translator.Enabled},
		Server:     cfg.Server.Addr,
	}
	if cfg.Server.Token != "" {
		data.Server += " (token required)"
	}

	if cfg.Index.Enabled {
		if db, err := cfg.IndexPath(); err == nil {
			data.Index.Database = db
			if info, err := os.Stat(db); err == nil {
				data.Index.SizeBytes = info.Size()
			}
		}
	}

	if cfg.Translator.Enabled {
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Translator.OllamaURL,
			Timeout:      statusProbeTimeout,
			DefaultModel: cfg.Translator.Model,
		})
		probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
		defer cancel()
		if err := client.CheckRunning(probeCtx); ollama.IsNotRunning(err) {
			data.Translator.Detail = "ollama is not running at " + cfg.Translator.OllamaURL
		} else if err != nil {
			data.Translator.Detail = err.Error()
		} else {
			data.Translator.OK = true
			data.Translator.Detail = cfg.Translator.Model + " at " + cfg.Translator.OllamaURL
		}
	}
	return data
}

func joinRoots(roots []string) string {
	return strings.Join(roots, ", ")
}
