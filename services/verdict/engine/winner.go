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
	"fmt"
	"math"
	"sort"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// Tuning holds the winner-determination constants. The values have no
// documented derivation; they are configuration precisely so nobody inlines
// them as magic numbers.
type Tuning struct {
	// ClearMargin is the composite gap above which the verdict is clear.
	ClearMargin float64 `yaml:"clear_margin"`

	// ConfidenceBase and ConfidenceSlope map a clear margin to confidence:
	// round(base + margin*slope), capped at 99.
	ConfidenceBase  float64 `yaml:"confidence_base"`
	ConfidenceSlope float64 `yaml:"confidence_slope"`

	// TieBandLow and TieBandHigh bound the confidence reported for unclear
	// verdicts; the margin interpolates between them.
	TieBandLow  float64 `yaml:"tie_band_low"`
	TieBandHigh float64 `yaml:"tie_band_high"`
}

// DefaultTuning returns the shipped constants.
func DefaultTuning() Tuning {
	return Tuning{
		ClearMargin:     3.0,
		ConfidenceBase:  60,
		ConfidenceSlope: 5,
		TieBandLow:      45,
		TieBandHigh:     55,
	}
}

// Validate rejects tunings that would make confidence non-monotonic.
func (t *Tuning) Validate() error {
	if t.ClearMargin <= 0 {
		return fmt.Errorf("%w: clear margin must be positive, got %v", ErrComputation, t.ClearMargin)
	}
	if t.ConfidenceSlope < 0 {
		return fmt.Errorf("%w: confidence slope must not be negative", ErrComputation)
	}
	if t.TieBandHigh < t.TieBandLow {
		return fmt.Errorf("%w: tie band inverted (%v > %v)", ErrComputation, t.TieBandLow, t.TieBandHigh)
	}
	return nil
}

// rankedSide pairs a side with its composite for sorting.
type rankedSide struct {
	side      datatypes.Side
	scores    datatypes.SideScores
	composite float64
}

// rankSides orders sides by composite, best first. The sort is stable so an
// exact tie keeps input order, which only matters for reporting: a tie
// never produces a winner.
func rankSides(input datatypes.AnalysisInput, analyses []datatypes.SideAnalysis) []rankedSide {
	ranked := make([]rankedSide, len(analyses))
	for i := range analyses {
		ranked[i] = rankedSide{
			side:      input.Sides[i],
			scores:    analyses[i].Scores,
			composite: analyses[i].Scores.Composite(),
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].composite > ranked[b].composite
	})
	return ranked
}

// determineWinner produces the win analysis. The result is always non-nil;
// an unclear verdict carries nil winner pointers and a tie-band confidence.
func determineWinner(input datatypes.AnalysisInput, analyses []datatypes.SideAnalysis, tuning Tuning) *datatypes.WinAnalysis {
	ranked := rankSides(input, analyses)

	margin := 0.0
	if len(ranked) > 1 {
		margin = ranked[0].composite - ranked[1].composite
	}

	if margin > tuning.ClearMargin {
		confidence := int(math.Round(tuning.ConfidenceBase + margin*tuning.ConfidenceSlope))
		if confidence > 99 {
			confidence = 99
		}
		id := ranked[0].side.ID
		label := ranked[0].side.Label
		return &datatypes.WinAnalysis{
			WinnerID:    &id,
			WinnerLabel: &label,
			Confidence:  confidence,
			Margin:      round1(margin),
			Reasoning: fmt.Sprintf("%s leads by %.1f composite points over %s.",
				label, margin, ranked[1].side.Label),
			KeyFactors: decisiveFactors(ranked[0].scores, ranked[1].scores),
		}
	}

	confidence := int(math.Round(tuning.TieBandLow +
		(margin/tuning.ClearMargin)*(tuning.TieBandHigh-tuning.TieBandLow)))

	reasoning := "The sides are evenly matched on composite scoring."
	if len(ranked) > 1 && margin > 0 {
		reasoning = fmt.Sprintf("%s edges ahead by %.1f points, inside the %.1f-point band that counts as too close to call.",
			ranked[0].side.Label, margin, tuning.ClearMargin)
	}

	return &datatypes.WinAnalysis{
		Confidence: confidence,
		Margin:     round1(margin),
		Reasoning:  reasoning,
		KeyFactors: contestedFactors(ranked),
	}
}

// scoreDimension is one named score axis, with emotional escalation
// inverted into "composure" so a bigger value is always better.
type scoreDimension struct {
	name  string
	value func(datatypes.SideScores) float64
}

var scoreDimensions = []scoreDimension{
	{"clarity", func(s datatypes.SideScores) float64 { return s.Clarity }},
	{"evidence quality", func(s datatypes.SideScores) float64 { return s.EvidenceQuality }},
	{"logical consistency", func(s datatypes.SideScores) float64 { return s.LogicalConsistency }},
	{"fairness", func(s datatypes.SideScores) float64 { return s.Fairness }},
	{"composure", func(s datatypes.SideScores) float64 { return 10 - s.EmotionalEscalation }},
}

// decisiveFactors names the dimensions where the winner beat the runner-up
// by at least a full point.
func decisiveFactors(top, second datatypes.SideScores) []string {
	var out []string
	for _, d := range scoreDimensions {
		if d.value(top)-d.value(second) >= 1.0 {
			out = append(out, "stronger "+d.name)
		}
	}
	if len(out) == 0 {
		out = append(out, "a broad edge across all dimensions")
	}
	return out
}

// contestedFactors names the dimensions where the top two sides are within
// half a point, the ground on which the dispute stays open.
func contestedFactors(ranked []rankedSide) []string {
	if len(ranked) < 2 {
		return nil
	}
	var out []string
	for _, d := range scoreDimensions {
		if math.Abs(d.value(ranked[0].scores)-d.value(ranked[1].scores)) <= 0.5 {
			out = append(out, "evenly matched on "+d.name)
		}
	}
	return out
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
