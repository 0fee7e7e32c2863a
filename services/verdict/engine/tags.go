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

// Tags derived from analysis features. The commentator style itself is
// always appended as a tag, so styles double as filterable categories.
const (
	TagEmotional  = "emotional"
	TagMultiParty = "multi-party"
	TagStrictMode = "strict-mode"
)

// deriveTags is deterministic given the input and detected patterns.
func deriveTags(input datatypes.AnalysisInput, patterns []datatypes.PatternDetected) []string {
	tags := make([]string, 0, 4)
	if hasPattern(patterns, PatternEmotionalEscalation) {
		tags = append(tags, TagEmotional)
	}
	if len(input.Sides) > 2 {
		tags = append(tags, TagMultiParty)
	}
	if input.EvidenceMode == datatypes.EvidenceStrict {
		tags = append(tags, TagStrictMode)
	}
	return append(tags, string(input.CommentatorStyle))
}
