// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() AnalysisInput {
	return AnalysisInput{
		Sides: []Side{
			{ID: NewSideID(), Label: "Alex", Content: "I paid the deposit and have the receipt."},
			{ID: NewSideID(), Label: "Jordan", Content: "The deposit was never received on my end."},
		},
		CommentatorStyle: StyleMediator,
		EvidenceMode:     EvidenceLight,
	}
}

func TestAnalysisInputValidate(t *testing.T) {
	t.Run("valid input passes", func(t *testing.T) {
		in := validInput()
		require.NoError(t, in.Validate())
	})

	t.Run("too few sides", func(t *testing.T) {
		in := validInput()
		in.Sides = in.Sides[:1]
		err := in.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("too many sides", func(t *testing.T) {
		in := validInput()
		for len(in.Sides) <= MaxSides {
			in.Sides = append(in.Sides, Side{ID: NewSideID(), Label: "X", Content: "position"})
		}
		assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
	})

	t.Run("unknown commentator style", func(t *testing.T) {
		in := validInput()
		in.CommentatorStyle = "sarcastic"
		assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
	})

	t.Run("unknown evidence mode", func(t *testing.T) {
		in := validInput()
		in.EvidenceMode = "forensic"
		assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
	})

	t.Run("empty side content", func(t *testing.T) {
		in := validInput()
		in.Sides[1].Content = ""
		assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
	})

	t.Run("oversized side content", func(t *testing.T) {
		in := validInput()
		in.Sides[0].Content = strings.Repeat("a", MaxSideContentBytes+1)
		assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
	})
}

func TestEnsureSideIDs(t *testing.T) {
	in := validInput()
	in.Sides[0].ID = ""
	existing := in.Sides[1].ID

	in.EnsureSideIDs()

	assert.True(t, strings.HasPrefix(in.Sides[0].ID, SideIDPrefix))
	assert.Equal(t, existing, in.Sides[1].ID, "existing ids must not be rewritten")
}

func TestSideScoresComposite(t *testing.T) {
	s := SideScores{
		Clarity:             8,
		EvidenceQuality:     7,
		LogicalConsistency:  6,
		EmotionalEscalation: 4,
		Fairness:            5,
	}
	// 8 + 7 + 6 + 5 - 0.5*4 = 24
	assert.InDelta(t, 24.0, s.Composite(), 1e-9)
}

func TestAnalysisResultValidate(t *testing.T) {
	in := validInput()
	result := AnalysisResult{
		ID:        NewAnalysisID(),
		CreatedAt: 1700000000000,
		Input:     in,
		SideAnalyses: []SideAnalysis{
			{SideID: in.Sides[0].ID, Label: in.Sides[0].Label},
			{SideID: in.Sides[1].ID, Label: in.Sides[1].Label},
		},
	}

	t.Run("aligned result passes", func(t *testing.T) {
		require.NoError(t, result.Validate())
	})

	t.Run("length mismatch fails", func(t *testing.T) {
		bad := result
		bad.SideAnalyses = bad.SideAnalyses[:1]
		assert.ErrorIs(t, bad.Validate(), ErrResultShape)
	})

	t.Run("id mismatch fails", func(t *testing.T) {
		bad := result
		bad.SideAnalyses = []SideAnalysis{
			{SideID: in.Sides[1].ID},
			{SideID: in.Sides[0].ID},
		}
		assert.ErrorIs(t, bad.Validate(), ErrResultShape)
	})
}

func TestTakeawayMarshalsAsExplicitNull(t *testing.T) {
	// The v1→v2 migration materializes takeaway as a null key; the current
	// schema must keep that key present on the wire or the structural
	// version fingerprints would misclassify a round-tripped v2+ record.
	raw, err := json.Marshal(AnalysisResult{ID: "analysis_x"})
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	_, present := m["takeaway"]
	assert.True(t, present, "takeaway key must survive marshalling")
}

func TestDisplayTitle(t *testing.T) {
	in := validInput()
	a := AnalysisResult{Input: in}
	assert.Equal(t, "Alex vs Jordan", a.DisplayTitle())

	a.Title = "Deposit dispute"
	assert.Equal(t, "Deposit dispute", a.DisplayTitle())
}

func TestTemplateSkeleton(t *testing.T) {
	tpl := AnalysisTemplate{
		ID:               NewTemplateID(),
		Name:             "Roommate rent split",
		SideLabels:       []string{"Roommate A", "Roommate B"},
		CommentatorStyle: StyleDirect,
		EvidenceMode:     EvidenceStrict,
	}

	in := tpl.Skeleton()
	require.Len(t, in.Sides, 2)
	assert.True(t, strings.HasPrefix(in.Sides[0].ID, SideIDPrefix))
	assert.Equal(t, "Roommate A", in.Sides[0].Label)
	assert.Empty(t, in.Sides[0].Content)
	assert.Equal(t, StyleDirect, in.CommentatorStyle)
}
