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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "heuristic", cfg.Engine.Strategy)
	assert.Equal(t, "merge", cfg.Import.DefaultMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestConfigRoundTripsThroughYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Strategy = "openai"
	cfg.Engine.OpenAIModel = "gpt-4o-mini"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var decoded ArbiterConfig
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestApplyFallbacksFillsBlankedFields(t *testing.T) {
	var cfg ArbiterConfig
	cfg.Engine.Strategy = "openai"

	applyFallbacks(&cfg)
	assert.Equal(t, "openai", cfg.Engine.Strategy)
	assert.Equal(t, "merge", cfg.Import.DefaultMode)
	assert.NotEmpty(t, cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Logging.Level)
}
