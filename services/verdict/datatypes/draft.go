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

// DraftData is the single-slot, not-yet-submitted input. Saves overwrite
// wholesale; there is no field-level merge. A draft expires 24 hours after
// SavedAt, enforced at read time by the draft manager.
type DraftData struct {
	Sides            []Side           `json:"sides"`
	CommentatorStyle CommentatorStyle `json:"commentatorStyle"`
	EvidenceMode     EvidenceMode     `json:"evidenceMode"`
	Context          string           `json:"context,omitempty"`
	SavedAt          int64            `json:"savedAt"` // epoch ms
}
