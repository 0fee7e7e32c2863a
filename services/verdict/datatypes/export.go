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

// ExportTimeLayout is the exportedAt timestamp format: UTC RFC3339 with
// millisecond precision, matching what every prior app version emitted.
const ExportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportDocument is the portable backup format. Analyses are emitted at the
// current schema version — the resident collection is already migrated, so
// export never re-runs the migration engine.
type ExportDocument struct {
	ExportedAt    string           `json:"exportedAt"`
	AppVersion    string           `json:"appVersion"`
	TotalAnalyses int              `json:"totalAnalyses"`
	Analyses      []AnalysisResult `json:"analyses"`
}
