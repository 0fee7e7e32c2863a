// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIStrategyRequiresKey(t *testing.T) {
	_, err := NewOpenAIStrategy(OpenAIConfig{})
	require.ErrorIs(t, err, ErrComputation)

	s, err := NewOpenAIStrategy(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Name())
	assert.Equal(t, defaultOpenAIModel, s.model)
}

func TestStripFences(t *testing.T) {
	const body = `{"clarity": 7.5}`
	cases := map[string]string{
		"bare":          body,
		"fenced":        "```\n" + body + "\n```",
		"fenced json":   "```json\n" + body + "\n```",
		"padded":        "  " + body + "  ",
		"fenced padded": " ```json\n" + body + "\n``` ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, body, stripFences(in))
		})
	}
}

func TestMemoKey(t *testing.T) {
	assert.Equal(t, memoKey("content", "light"), memoKey("content", "light"))
	assert.NotEqual(t, memoKey("content", "light"), memoKey("content", "strict"))
	assert.NotEqual(t, memoKey("content a", "light"), memoKey("content b", "light"))
}
