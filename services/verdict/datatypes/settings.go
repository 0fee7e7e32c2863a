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

// DefaultDesignPreset is the preset written on first run and backfilled
// into settings records that predate the field.
const DefaultDesignPreset = "classic"

// AppSettings is the persisted settings singleton. It carries the quota
// tracker's state (AnalysesThisWeek, WeekStartTimestamp) plus the feature
// flags written by earlier app versions. The haptics/motion/preset flags are
// not interpreted by this core; they are carried so the schema fingerprints
// in the migration engine stay meaningful and round-trips stay lossless.
type AppSettings struct {
	// AnalysesThisWeek counts analyses performed in the current window.
	AnalysesThisWeek int `json:"analysesThisWeek"`

	// WeekStartTimestamp is the epoch-ms start of the current ISO week
	// (Monday 00:00:00 local time).
	WeekStartTimestamp int64 `json:"weekStartTimestamp"`

	// Pro unconditionally bypasses the weekly quota cap.
	Pro bool `json:"pro"`

	// Presentation flags, opaque to this core.
	HapticsEnabled bool   `json:"hapticsEnabled"`
	ReduceMotion   bool   `json:"reduceMotion"`
	DesignPreset   string `json:"designPreset"`

	// Defaults applied by surfaces when the user has not chosen.
	DefaultCommentatorStyle CommentatorStyle `json:"defaultCommentatorStyle"`
	DefaultEvidenceMode     EvidenceMode     `json:"defaultEvidenceMode"`
}

// DefaultSettings returns the settings written on first run. The quota
// window fields are zero so the first settings read initializes them.
func DefaultSettings() AppSettings {
	return AppSettings{
		HapticsEnabled:          true,
		DesignPreset:            DefaultDesignPreset,
		DefaultCommentatorStyle: StyleNeutral,
		DefaultEvidenceMode:     EvidenceLight,
	}
}
