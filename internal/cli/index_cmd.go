// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
)

// =============================================================================
// INDEX COMMAND
// =============================================================================

// HandleIndex builds (or refreshes) the content index once and reports its
// size. --rebuild deletes the database first.
func HandleIndex(ctx context.Context, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "rebuild")

	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	cfg.Index.Enabled = true
	dbPath, err := cfg.IndexPath()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if p.BoolFlag("rebuild") {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove index: %w", err)
			}
		}
	}

	log := NewLogger(cfg, args, true)
	app, err := Build(cfg, log, BuildOptions{NoWatch: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if app.Index == nil {
		return fmt.Errorf("content index could not be opened at %s", dbPath)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if !args.JSON {
		fmt.Fprintf(w, "Indexing %s ...\n", joinRoots(app.Workspace.Roots()))
	}
	start := time.Now()
	if err := app.Index.Index(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	took := time.Since(start).Round(time.Millisecond)
	stats := app.Index.Stats()

	if args.JSON {
		return NewJSONResponse("index", IndexData{
			Database:  dbPath,
			Files:     stats.FileCount,
			SizeBytes: stats.DatabaseSize,
			Duration:  took.String(),
		}).Write(w)
	}
	fmt.Fprintf(w, "%s %s files indexed in %s\n", RenderStatus("ok"), humanize.Comma(int64(stats.FileCount)), took)
	fmt.Fprintf(w, "%s %s (%s)\n", RenderLabel("Database", 12), dbPath, humanize.Bytes(uint64(stats.DatabaseSize)))
	return nil
}
