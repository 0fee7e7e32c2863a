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

// TagCount pairs a tag with how often it appears across the history.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// InsightsSnapshot is the derived aggregate view over the analyses
// collection. It is recomputable from scratch and never migrated: a cached
// snapshot that fails to decode is simply discarded and rebuilt.
type InsightsSnapshot struct {
	// GeneratedAt is when this snapshot was computed, epoch ms.
	GeneratedAt int64 `json:"generatedAt"`

	// SourceCount and SourceHash identify the collection state the
	// snapshot was derived from; a mismatch on either marks it stale.
	SourceCount int    `json:"sourceCount"`
	SourceHash  string `json:"sourceHash"`

	TotalAnalyses int `json:"totalAnalyses"`

	// ClearVerdictRate is the fraction of analyses with a named winner,
	// in [0,1].
	ClearVerdictRate float64 `json:"clearVerdictRate"`

	// AverageConfidence averages the verdict confidence across all
	// analyses that carry a win analysis.
	AverageConfidence float64 `json:"averageConfidence"`

	// TopTags lists the most frequent tags, most common first.
	TopTags []TagCount `json:"topTags"`

	// PatternCounts maps detected pattern names to occurrence totals.
	PatternCounts map[string]int `json:"patternCounts"`

	// StyleCounts maps commentator styles to how often they were used.
	StyleCounts map[string]int `json:"styleCounts"`
}
