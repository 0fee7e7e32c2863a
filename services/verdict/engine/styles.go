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

// stylePrefixes tones the verdict headline. Neutral deliberately maps to
// the empty string rather than being special-cased.
var stylePrefixes = map[datatypes.CommentatorStyle]string{
	datatypes.StyleNeutral:    "",
	datatypes.StyleDirect:     "Bottom line: ",
	datatypes.StyleMediator:   "Looking at both perspectives: ",
	datatypes.StyleAnalytical: "On the evidence: ",
	datatypes.StyleEmpathetic: "With care for everyone involved: ",
	datatypes.StyleHumorous:   "Grab the popcorn: ",
	datatypes.StyleBrutal:     "No sugarcoating it: ",
}

// renderHeadline builds the style-prefixed verdict headline from the fixed
// base sentence for clear and unclear outcomes.
func renderHeadline(win *datatypes.WinAnalysis, style datatypes.CommentatorStyle) string {
	base := "No clear winner — both sides hold ground."
	if win.Clear() {
		base = fmt.Sprintf("%s has the stronger position.", *win.WinnerLabel)
	}
	return stylePrefixes[style] + base
}

// renderExplanation narrates the margin and the dimensions that decided,
// or failed to decide, the outcome.
func renderExplanation(win *datatypes.WinAnalysis, tuning Tuning) string {
	if win.Clear() {
		return fmt.Sprintf("%s The gap of %.1f points clears the %.1f-point bar for a decisive call, driven by %s.",
			win.Reasoning, win.Margin, tuning.ClearMargin, joinFactors(win.KeyFactors))
	}
	if len(win.KeyFactors) > 0 {
		return fmt.Sprintf("%s Both arguments are %s, which keeps the verdict open.",
			win.Reasoning, joinFactors(win.KeyFactors))
	}
	return win.Reasoning + " Neither side separates itself enough for a decisive call."
}

// joinFactors renders a factor list as prose: "a", "a and b", "a, b and c".
func joinFactors(factors []string) string {
	switch len(factors) {
	case 0:
		return "the overall balance"
	case 1:
		return factors[0]
	default:
		return strings.Join(factors[:len(factors)-1], ", ") + " and " + factors[len(factors)-1]
	}
}
