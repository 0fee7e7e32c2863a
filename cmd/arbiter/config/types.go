// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
)

// ArbiterConfig is the CLI's persisted configuration.
type ArbiterConfig struct {
	// Storage: where the verdict store lives
	Storage StorageConfig `yaml:"storage"`

	// Engine: scoring strategy selection
	Engine EngineConfig `yaml:"engine"`

	// Logging: CLI log destinations
	Logging LoggingConfig `yaml:"logging"`

	// Import: drop-folder and default mode for imports
	Import ImportConfig `yaml:"import"`
}

type StorageConfig struct {
	// DataDir is the BadgerDB directory. Exactly one process may hold
	// it open at a time.
	DataDir string `yaml:"data_dir"`
}

type EngineConfig struct {
	// Strategy is "heuristic" (default) or "openai".
	Strategy string `yaml:"strategy"`

	// OpenAIModel overrides the model for the openai strategy.
	// The API key itself comes from OPENAI_API_KEY, never from this file.
	OpenAIModel string `yaml:"openai_model,omitempty"`

	// OpenAIBaseURL points the openai strategy at a compatible server.
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
}

type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir,omitempty"`
}

type ImportConfig struct {
	// DefaultMode is "merge" or "replace".
	DefaultMode string `yaml:"default_mode"`

	// InboxDir, when set, is watched by `arbiter import --watch`.
	InboxDir string `yaml:"inbox_dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ArbiterConfig {
	dataDir := "~/.arbiter/data"
	inboxDir := "~/.arbiter/inbox"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".arbiter", "data")
		inboxDir = filepath.Join(home, ".arbiter", "inbox")
	}
	return ArbiterConfig{
		Storage: StorageConfig{DataDir: dataDir},
		Engine:  EngineConfig{Strategy: "heuristic"},
		Logging: LoggingConfig{Level: "info"},
		Import: ImportConfig{
			DefaultMode: "merge",
			InboxDir:    inboxDir,
		},
	}
}
