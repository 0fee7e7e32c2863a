// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ArbiterAI/ArbiterCore/cmd/arbiter/config"
	"github.com/ArbiterAI/ArbiterCore/pkg/ux"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
)

func runExport(cmd *cobra.Command, args []string) {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		if exportPath != "" {
			stats, err := c.ExportToFile(ctx, exportPath)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Exported %d analyses to %s", stats.Count, stats.Path))
			ux.KeyValue("bytes", fmt.Sprintf("%d", stats.Bytes))
			ux.KeyValue("sha256", stats.SHA256)
			return nil
		}

		doc, err := c.ExportAnalyses(ctx)
		if err != nil {
			return err
		}
		return printJSON(doc)
	})
}

func resolveImportMode() (porting.Mode, error) {
	raw := importMode
	if raw == "" {
		raw = config.Global.Import.DefaultMode
	}
	mode := porting.Mode(raw)
	if !mode.Valid() {
		return "", fmt.Errorf("invalid import mode %q (expected merge or replace)", raw)
	}
	return mode, nil
}

func runImport(cmd *cobra.Command, args []string) {
	if importWatch {
		runWatchImport()
		return
	}
	if len(args) != 1 {
		ux.Error("provide an export file to import, or --watch")
		os.Exit(1)
	}

	runOrDie(func(ctx context.Context, c *core.Core) error {
		mode, err := resolveImportMode()
		if err != nil {
			return err
		}

		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read the export file: %w", err)
		}

		result, err := c.Import(ctx, payload, mode)
		if err != nil {
			return err
		}

		if showJSON {
			return printJSON(result)
		}
		ux.Success(result.Message)
		for _, warning := range result.Warnings {
			ux.Warning(warning)
		}
		ux.Summary(result.Imported, result.Skipped, result.Imported+result.Skipped)
		return nil
	})
}

// runWatchImport keeps the store open and merge-imports every *.json
// dropped into the configured inbox directory until interrupted.
func runWatchImport() {
	runOrDie(func(ctx context.Context, c *core.Core) error {
		dir := config.Global.Import.InboxDir
		if dir == "" {
			return errors.New("no inbox directory configured (import.inbox_dir)")
		}

		inbox, err := porting.NewInbox(c, porting.InboxConfig{Dir: dir})
		if err != nil {
			return err
		}
		if err := inbox.Start(ctx); err != nil {
			return err
		}
		defer inbox.Stop()

		ux.Title("Watching for export files")
		ux.KeyValue("inbox", dir)
		ux.Muted("Drop *.json export files here; Ctrl-C to stop.")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		return nil
	})
}
