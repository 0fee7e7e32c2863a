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

import "github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"

// Pattern names are part of the persisted record shape; tag derivation
// keys on PatternEmotionalEscalation.
const (
	PatternEmotionalEscalation   = "Emotional Escalation"
	PatternAppealWithoutEvidence = "Appeal Without Evidence"
	PatternAbsolutistFraming     = "Absolutist Framing"
)

// PatternRule is one independent, threshold-driven observation over a
// scored side. Rules are evaluated separately and are not mutually
// exclusive; new rules are added to the slice, never wedged into existing
// conditionals.
type PatternRule struct {
	Name        string
	Description string

	// Match reports whether the rule fires for this side, and optionally a
	// representative quote from its content.
	Match func(side datatypes.Side, analysis datatypes.SideAnalysis) (bool, string)
}

var patternRules = []PatternRule{
	{
		Name:        PatternEmotionalEscalation,
		Description: "Argument intensity rises past the point where it helps the case.",
		Match: func(side datatypes.Side, analysis datatypes.SideAnalysis) (bool, string) {
			if analysis.Scores.EmotionalEscalation <= 6 {
				return false, ""
			}
			return true, firstSentenceWith(side.Content, emotionalMarkers)
		},
	},
	{
		Name:        PatternAppealWithoutEvidence,
		Description: "Claims are asserted without concrete support to back them.",
		Match: func(_ datatypes.Side, analysis datatypes.SideAnalysis) (bool, string) {
			return analysis.Scores.EvidenceQuality < 5, ""
		},
	},
	{
		Name:        PatternAbsolutistFraming,
		Description: "Positions are framed in absolutes that leave no middle ground.",
		Match: func(side datatypes.Side, _ datatypes.SideAnalysis) (bool, string) {
			if !hasMarker(side.Content, absolutistMarkers) {
				return false, ""
			}
			return true, firstSentenceWith(side.Content, absolutistMarkers)
		},
	},
}

// detectPatterns evaluates every rule against every side. A rule appears in
// the output only when at least one side trips it.
func detectPatterns(input datatypes.AnalysisInput, analyses []datatypes.SideAnalysis) []datatypes.PatternDetected {
	detected := make([]datatypes.PatternDetected, 0, len(patternRules))

	for _, rule := range patternRules {
		var occurrences []datatypes.PatternOccurrence
		for i := range analyses {
			hit, quote := rule.Match(input.Sides[i], analyses[i])
			if !hit {
				continue
			}
			occurrences = append(occurrences, datatypes.PatternOccurrence{
				SideID: input.Sides[i].ID,
				Quote:  quote,
			})
		}
		if len(occurrences) > 0 {
			detected = append(detected, datatypes.PatternDetected{
				Name:        rule.Name,
				Description: rule.Description,
				Occurrences: occurrences,
			})
		}
	}
	return detected
}

// hasPattern reports whether a named pattern was detected.
func hasPattern(patterns []datatypes.PatternDetected, name string) bool {
	for _, p := range patterns {
		if p.Name == name {
			return true
		}
	}
	return false
}
