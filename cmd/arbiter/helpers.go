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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ArbiterAI/ArbiterCore/cmd/arbiter/config"
	"github.com/ArbiterAI/ArbiterCore/pkg/logging"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/engine"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
)

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// newLogger builds the CLI logger from config. stderr stays quiet below
// warn so styled output is not interleaved with log noise.
func newLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:   parseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: "cli",
		Quiet:   config.Global.Logging.Dir != "",
	})
}

// buildStrategy resolves the configured scoring strategy. A nil return
// selects the core's heuristic default.
func buildStrategy(logger *logging.Logger) (engine.ScoringStrategy, error) {
	switch config.Global.Engine.Strategy {
	case "", "heuristic":
		return nil, nil
	case "openai":
		return engine.NewOpenAIStrategy(engine.OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   config.Global.Engine.OpenAIModel,
			BaseURL: config.Global.Engine.OpenAIBaseURL,
			Logger:  logger.Slog(),
		})
	default:
		return nil, fmt.Errorf("unknown engine strategy %q (expected heuristic or openai)", config.Global.Engine.Strategy)
	}
}

// withCore opens the local store, builds the core, runs fn, and tears
// everything down. The store is single-writer, so this fails when the
// gateway (or another arbiter invocation) holds the data directory.
func withCore(fn func(ctx context.Context, c *core.Core) error) error {
	logger := newLogger()
	defer logger.Close()

	strategy, err := buildStrategy(logger)
	if err != nil {
		return err
	}

	storeCfg := badgerstore.DefaultConfig()
	storeCfg.Path = config.Global.Storage.DataDir
	storeCfg.Logger = logger.Slog()
	db, err := badgerstore.OpenDB(storeCfg)
	if err != nil {
		return fmt.Errorf("open the verdict store (is the gateway running against it?): %w", err)
	}
	defer db.Close()

	c, err := core.New(db, core.Config{
		Strategy: strategy,
		Logger:   logger.Slog(),
	})
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(context.Background(), c)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatWhen renders an epoch-ms timestamp for listings.
func formatWhen(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

// verdictLine summarizes the verdict for one-line listings.
func verdictLine(a *datatypes.AnalysisResult) string {
	if a.WinAnalysis.Clear() {
		return fmt.Sprintf("%s wins (%d%%)", *a.WinAnalysis.WinnerLabel, a.WinAnalysis.Confidence)
	}
	if a.WinAnalysis != nil {
		return fmt.Sprintf("no clear winner (%d%%)", a.WinAnalysis.Confidence)
	}
	return "no verdict"
}
