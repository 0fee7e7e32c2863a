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

import "github.com/google/uuid"

// TemplateIDPrefix is the canonical template identifier prefix.
const TemplateIDPrefix = "template_"

// AnalysisTemplate is a reusable input skeleton: side labels and mode
// presets without content. Templates live in a capacity-bounded,
// newest-first collection (cap 20) with popularity tracking.
type AnalysisTemplate struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	SideLabels       []string         `json:"sideLabels"`
	CommentatorStyle CommentatorStyle `json:"commentatorStyle"`
	EvidenceMode     EvidenceMode     `json:"evidenceMode"`
	Context          string           `json:"context,omitempty"`
	UseCount         int              `json:"useCount"`
	LastUsedAt       *int64           `json:"lastUsedAt,omitempty"` // epoch ms
	CreatedAt        int64            `json:"createdAt"`            // epoch ms
}

// Skeleton expands the template into a fresh AnalysisInput with minted side
// ids and empty contents for the user to fill.
func (t *AnalysisTemplate) Skeleton() AnalysisInput {
	sides := make([]Side, 0, len(t.SideLabels))
	for _, label := range t.SideLabels {
		sides = append(sides, Side{ID: NewSideID(), Label: label})
	}
	return AnalysisInput{
		Sides:            sides,
		CommentatorStyle: t.CommentatorStyle,
		EvidenceMode:     t.EvidenceMode,
		Context:          t.Context,
	}
}

// NewTemplateID mints a canonical template identifier.
func NewTemplateID() string {
	return TemplateIDPrefix + uuid.NewString()
}
