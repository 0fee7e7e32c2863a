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
	"context"
	"fmt"
	"math"
	"unicode"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// HeuristicStrategy is the default scorer: a deterministic lexical read of
// each side's content. It weighs marker-word densities against sentence
// statistics, so the same content always yields the same scores. It is a
// stand-in for a real rubric model, which is exactly why it sits behind
// ScoringStrategy.
//
// Dimension recipes (each clamped to [0,10], one decimal):
//
//	clarity   5.0 + 0.5/structure marker, penalized for run-on sentences
//	          and for content too thin to carry an account
//	evidence  3.5 + 0.8/evidence marker, +0.5 when figures or dates appear
//	logic     4.5 + 0.6/connective, −0.6/absolutist claim
//	emotion   2.0 + 0.9/emotional marker, +0.5/exclamation, +0.7/shouted word
//	fairness  5.0 + 0.8/acknowledgment, −0.7/blame marker
type HeuristicStrategy struct{}

// NewHeuristicStrategy returns the default deterministic scorer.
func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{}
}

// Name identifies the strategy in logs and config.
func (h *HeuristicStrategy) Name() string { return "heuristic" }

// Score computes the five dimensions for one side. The evidence mode does
// not change the numbers, only what Annotate flags.
func (h *HeuristicStrategy) Score(_ context.Context, side datatypes.Side, _ datatypes.EvidenceMode) (datatypes.SideScores, error) {
	content := side.Content
	stats := analyzeText(content)

	clarity := 5.0 + capped(float64(countMarkers(content, structureMarkers))*0.5, 2.0)
	switch {
	case stats.avgSentence > 30:
		clarity -= 1.5
	case stats.avgSentence > 20:
		clarity -= 0.5
	}
	if stats.words < 8 {
		clarity -= 1.0
	}

	evidence := 3.5 + capped(float64(countMarkers(content, evidenceMarkers))*0.8, 4.5)
	if containsDigit(content) {
		evidence += 0.5
	}

	logic := 4.5 +
		capped(float64(countMarkers(content, logicalConnectives))*0.6, 3.0) -
		capped(float64(countMarkers(content, absolutistMarkers))*0.6, 2.4)

	emotion := 2.0 +
		capped(float64(countMarkers(content, emotionalMarkers))*0.9, 5.4) +
		capped(float64(stats.exclamations)*0.5, 1.5) +
		capped(float64(stats.allCaps)*0.7, 2.1)

	fairness := 5.0 +
		capped(float64(countMarkers(content, acknowledgmentMarkers))*0.8, 3.2) -
		capped(float64(countMarkers(content, blameMarkers))*0.7, 2.8)

	return datatypes.SideScores{
		Clarity:             clampScore(clarity),
		EvidenceQuality:     clampScore(evidence),
		LogicalConsistency:  clampScore(logic),
		EmotionalEscalation: clampScore(emotion),
		Fairness:            clampScore(fairness),
	}, nil
}

// Annotate derives the textual layer from the same lexical read: the
// sentences that assert positions, and those that read as evidence, emotion,
// or reasoning. Strict mode flags assumption language; light mode tolerates
// it.
func (h *HeuristicStrategy) Annotate(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (SideAnnotations, error) {
	scores, err := h.Score(ctx, side, mode)
	if err != nil {
		return SideAnnotations{}, err
	}

	ann := SideAnnotations{
		Summary:             summarize(scores),
		Claims:              claimSentences(side.Content, 5),
		EvidenceProvided:    sentencesWith(side.Content, evidenceMarkers, 3),
		EmotionalStatements: sentencesWith(side.Content, emotionalMarkers, 3),
		LogicalStatements:   sentencesWith(side.Content, logicalConnectives, 3),
	}

	if mode == datatypes.EvidenceStrict {
		for _, m := range foundMarkers(side.Content, assumptionMarkers) {
			ann.FlaggedAssumptions = append(ann.FlaggedAssumptions,
				fmt.Sprintf("Treats %q as settled without offering support", m))
			if len(ann.FlaggedAssumptions) == 3 {
				break
			}
		}
		if abs := foundMarkers(side.Content, absolutistMarkers); len(abs) > 0 {
			ann.FlaggedAssumptions = append(ann.FlaggedAssumptions,
				fmt.Sprintf("Absolute claim %q stated as fact", abs[0]))
		}
	}

	return ann, nil
}

func summarize(s datatypes.SideScores) string {
	switch {
	case s.EvidenceQuality >= 6.5 && s.EmotionalEscalation <= 4.0:
		return "Backs the account with concrete evidence and keeps a level tone."
	case s.EvidenceQuality >= 6.5:
		return "Brings real evidence, though the delivery runs hot."
	case s.EmotionalEscalation > 6.0:
		return "Leans on emotional force more than documented substance."
	case s.Clarity >= 6.5:
		return "Lays out a clear account, though light on hard support."
	default:
		return "Presents a straightforward account of the dispute."
	}
}

// capped limits a marker contribution to its maximum.
func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

// clampScore pins a value to [0,10] at one decimal place.
func clampScore(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return math.Round(v*10) / 10
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
