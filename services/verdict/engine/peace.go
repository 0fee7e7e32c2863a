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
	"strings"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// stopwords excluded from common-ground extraction. Short function words
// are already excluded by the length cutoff.
var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "because": true,
	"before": true, "being": true, "could": true, "didn't": true,
	"doesn't": true, "every": true, "going": true, "really": true,
	"should": true, "their": true, "there": true, "these": true,
	"thing": true, "things": true, "think": true, "those": true,
	"wasn't": true, "where": true, "which": true, "while": true,
	"would": true, "never": true, "always": true,
}

// buildPeace produces the de-escalation output. It is independent of the
// win/lose computation and always present.
func buildPeace(input datatypes.AnalysisInput, patterns []datatypes.PatternDetected) *datatypes.PeaceAnalysis {
	parties := "Both sides"
	if len(input.Sides) > 2 {
		parties = "All sides"
	}

	var common []string
	for _, w := range sharedSalientWords(input.Sides, 3) {
		common = append(common, fmt.Sprintf("%s keep coming back to %q, which is the real subject here.", parties, w))
	}
	if len(common) == 0 {
		common = append(common, parties+" clearly want this resolved rather than escalated.")
	}

	first, second := input.Sides[0].Label, input.Sides[1].Label
	compromise := fmt.Sprintf("%s and %s each accept the strongest point the other raised, and split the difference on the rest.", first, second)

	steps := []string{
		"Write down what an acceptable outcome looks like before talking again.",
		"Agree on the facts neither side disputes, then isolate the genuinely contested ones.",
		"Set a deadline for settling this before it costs more than it is worth.",
	}
	if hasPattern(patterns, PatternEmotionalEscalation) {
		steps[0] = "Take a day before responding; the heat in this one is working against everyone."
	}

	return &datatypes.PeaceAnalysis{
		CommonGround: common,
		Compromise:   compromise,
		StepsForward: steps,
	}
}

// sharedSalientWords returns up to limit words that every side uses, in
// first-appearance order of the first side. Words shorter than five
// characters and stopwords are ignored.
func sharedSalientWords(sides []datatypes.Side, limit int) []string {
	salient := func(content string) []string {
		var words []string
		for _, f := range strings.Fields(strings.ToLower(content)) {
			w := strings.Trim(f, ".,;:!?\"'()[]")
			if len(w) >= 5 && !stopwords[w] {
				words = append(words, w)
			}
		}
		return words
	}

	inAll := func(w string) bool {
		for _, side := range sides[1:] {
			if !strings.Contains(strings.ToLower(side.Content), w) {
				return false
			}
		}
		return true
	}

	var shared []string
	seen := map[string]bool{}
	for _, w := range salient(sides[0].Content) {
		if seen[w] || !inAll(w) {
			continue
		}
		seen[w] = true
		shared = append(shared, w)
		if len(shared) == limit {
			break
		}
	}
	return shared
}

// changerTemplates maps a side's weakest dimension to the suggestion that
// would most change its outcome.
var changerTemplates = map[string]string{
	"clarity":             "A tighter timeline of events would sharpen %s's case.",
	"evidence quality":    "Documented evidence (messages, receipts, records) would strengthen %s's case.",
	"logical consistency": "Connecting each claim to its consequence would firm up %s's argument.",
	"fairness":            "Acknowledging the other side's strongest point would make %s more persuasive.",
	"composure":           "A cooler retelling of the same facts would make %s easier to side with.",
}

// buildOutcomeChangers suggests, for each non-winning side, the change most
// likely to flip the outcome, keyed on that side's weakest dimension. With
// no clear winner every side gets a suggestion.
func buildOutcomeChangers(input datatypes.AnalysisInput, analyses []datatypes.SideAnalysis, win *datatypes.WinAnalysis) []string {
	changers := make([]string, 0, len(analyses))
	for i := range analyses {
		if win.Clear() && input.Sides[i].ID == *win.WinnerID {
			continue
		}
		dim := weakestDimension(analyses[i].Scores)
		changers = append(changers, fmt.Sprintf(changerTemplates[dim], input.Sides[i].Label))
	}
	return changers
}

// weakestDimension names the lowest-valued dimension for a side.
func weakestDimension(s datatypes.SideScores) string {
	name := scoreDimensions[0].name
	low := scoreDimensions[0].value(s)
	for _, d := range scoreDimensions[1:] {
		if v := d.value(s); v < low {
			low = v
			name = d.name
		}
	}
	return name
}
