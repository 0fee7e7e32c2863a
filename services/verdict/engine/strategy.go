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
	"context"
	"errors"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// ErrComputation marks a verdict computation that could not complete. The
// caller must not persist anything and must not consume quota.
var ErrComputation = errors.New("verdict computation failed")

// SideAnnotations is the textual layer a strategy produces alongside the
// scores: a one-sentence summary, the claims the side asserts, and the
// statements that read as evidence, emotion, or reasoning. FlaggedAssumptions
// is populated in strict evidence mode only.
type SideAnnotations struct {
	Summary             string
	Claims              []string
	EvidenceProvided    []string
	EmotionalStatements []string
	LogicalStatements   []string
	FlaggedAssumptions  []string
}

// orEmpty keeps annotation lists non-nil so persisted results marshal the
// field as [] rather than null, matching every prior export.
func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// ScoringStrategy scores and annotates one side of a dispute. Everything
// downstream of the strategy (winner determination, pattern detection,
// tagging, headline rendering) is deterministic; swapping the strategy must
// never require touching that logic.
//
// Score returns five independent dimensions in [0,10], one decimal place.
// Annotate may be called after Score for the same side; implementations
// are expected to be deterministic per (side content, mode) so the two
// calls describe the same reading of the side.
type ScoringStrategy interface {
	Name() string
	Score(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (datatypes.SideScores, error)
	Annotate(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (SideAnnotations, error)
}
