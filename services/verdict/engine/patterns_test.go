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

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

func TestDetectPatternsEmotionalEscalation(t *testing.T) {
	input := datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{ID: "side_a", Label: "Alex", Content: "I am furious about the whole thing. It still stands."},
			{ID: "side_b", Label: "Jordan", Content: "The receipts are attached."},
		},
		CommentatorStyle: datatypes.StyleNeutral,
		EvidenceMode:     datatypes.EvidenceLight,
	}
	analyses := []datatypes.SideAnalysis{
		{SideID: "side_a", Scores: datatypes.SideScores{EmotionalEscalation: 7.5, EvidenceQuality: 6}},
		{SideID: "side_b", Scores: datatypes.SideScores{EmotionalEscalation: 3.0, EvidenceQuality: 6}},
	}

	detected := detectPatterns(input, analyses)
	require.Len(t, detected, 1)

	p := detected[0]
	assert.Equal(t, PatternEmotionalEscalation, p.Name)
	require.Len(t, p.Occurrences, 1)
	assert.Equal(t, "side_a", p.Occurrences[0].SideID)
	assert.Contains(t, p.Occurrences[0].Quote, "furious")
}

func TestDetectPatternsEvidenceThresholdIsStrict(t *testing.T) {
	input := datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{ID: "side_a", Label: "Alex", Content: "statement"},
			{ID: "side_b", Label: "Jordan", Content: "statement"},
		},
	}
	analyses := []datatypes.SideAnalysis{
		{SideID: "side_a", Scores: datatypes.SideScores{EvidenceQuality: 4.9}},
		{SideID: "side_b", Scores: datatypes.SideScores{EvidenceQuality: 5.0}},
	}

	detected := detectPatterns(input, analyses)
	require.True(t, hasPattern(detected, PatternAppealWithoutEvidence))
	for _, p := range detected {
		if p.Name != PatternAppealWithoutEvidence {
			continue
		}
		// 5.0 sits on the boundary and does not fire the < 5 rule.
		require.Len(t, p.Occurrences, 1)
		assert.Equal(t, "side_a", p.Occurrences[0].SideID)
		assert.Empty(t, p.Occurrences[0].Quote)
	}
}

func TestDetectPatternsAbsolutistFraming(t *testing.T) {
	input := datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{ID: "side_a", Label: "Alex", Content: "He always does this. Every single time."},
			{ID: "side_b", Label: "Jordan", Content: "It happened twice this month."},
		},
	}
	okScores := datatypes.SideScores{EvidenceQuality: 6, EmotionalEscalation: 2}
	analyses := []datatypes.SideAnalysis{
		{SideID: "side_a", Scores: okScores},
		{SideID: "side_b", Scores: okScores},
	}

	detected := detectPatterns(input, analyses)
	require.Len(t, detected, 1)
	assert.Equal(t, PatternAbsolutistFraming, detected[0].Name)
	require.Len(t, detected[0].Occurrences, 1)
	assert.Contains(t, detected[0].Occurrences[0].Quote, "always")
}

func TestDetectPatternsSharedAcrossSides(t *testing.T) {
	input := datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{ID: "side_a", Label: "Alex", Content: "statement"},
			{ID: "side_b", Label: "Jordan", Content: "statement"},
		},
	}
	thin := datatypes.SideScores{EvidenceQuality: 2}
	detected := detectPatterns(input, []datatypes.SideAnalysis{
		{SideID: "side_a", Scores: thin},
		{SideID: "side_b", Scores: thin},
	})

	require.Len(t, detected, 1)
	assert.Len(t, detected[0].Occurrences, 2)
}

func TestDetectPatternsNoneIsEmptyNotNil(t *testing.T) {
	input := datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{ID: "side_a", Label: "Alex", Content: "The contract covers this."},
			{ID: "side_b", Label: "Jordan", Content: "The contract reads otherwise."},
		},
	}
	solid := datatypes.SideScores{EvidenceQuality: 8, EmotionalEscalation: 1}
	detected := detectPatterns(input, []datatypes.SideAnalysis{
		{SideID: "side_a", Scores: solid},
		{SideID: "side_b", Scores: solid},
	})

	// Empty but non-nil, so the persisted field marshals as [].
	require.NotNil(t, detected)
	assert.Empty(t, detected)
}

func TestDeriveTags(t *testing.T) {
	twoParty := []datatypes.Side{{ID: "side_a"}, {ID: "side_b"}}
	threeParty := append(twoParty, datatypes.Side{ID: "side_c"})
	emotional := []datatypes.PatternDetected{{Name: PatternEmotionalEscalation}}

	cases := []struct {
		name  string
		input datatypes.AnalysisInput
		found []datatypes.PatternDetected
		want  []string
	}{
		{
			name:  "style only",
			input: datatypes.AnalysisInput{Sides: twoParty, CommentatorStyle: datatypes.StyleNeutral, EvidenceMode: datatypes.EvidenceLight},
			want:  []string{"neutral"},
		},
		{
			name:  "everything fires in fixed order",
			input: datatypes.AnalysisInput{Sides: threeParty, CommentatorStyle: datatypes.StyleMediator, EvidenceMode: datatypes.EvidenceStrict},
			found: emotional,
			want:  []string{"emotional", "multi-party", "strict-mode", "mediator"},
		},
		{
			name:  "strict twoparty",
			input: datatypes.AnalysisInput{Sides: twoParty, CommentatorStyle: datatypes.StyleBrutal, EvidenceMode: datatypes.EvidenceStrict},
			want:  []string{"strict-mode", "brutal"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveTags(tc.input, tc.found))
		})
	}
}
