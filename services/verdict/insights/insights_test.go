// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insights

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/migrate"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

func newService(t *testing.T) (*Service, *store.Collection[datatypes.AnalysisResult], *clock.Manual) {
	t.Helper()
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	analyses, err := store.NewCollection(db, store.CollectionConfig[datatypes.AnalysisResult]{
		Name:        "analyses",
		Cap:         100,
		DataVersion: migrate.CurrentDataVersion,
		Migrate:     migrate.UpgradeAnalyses,
		IDOf:        func(a datatypes.AnalysisResult) string { return a.ID },
	})
	require.NoError(t, err)

	cache, err := store.NewSlot(db, store.SlotConfig[datatypes.InsightsSnapshot]{
		Name:        "insights",
		DataVersion: 1,
	})
	require.NoError(t, err)

	manual := clock.NewManual(time.Unix(1756400000, 0))
	svc, err := New(analyses, cache, Config{Clock: manual})
	require.NoError(t, err)
	return svc, analyses, manual
}

func resultWith(n int, winner bool, confidence int, tags []string, style datatypes.CommentatorStyle, patterns ...string) datatypes.AnalysisResult {
	a := datatypes.AnalysisResult{
		ID:        fmt.Sprintf("analysis_%03d", n),
		CreatedAt: int64(n * 1000),
		Input: datatypes.AnalysisInput{
			Sides: []datatypes.Side{
				{ID: "side_a", Label: "A", Content: "a"},
				{ID: "side_b", Label: "B", Content: "b"},
			},
			CommentatorStyle: style,
			EvidenceMode:     datatypes.EvidenceLight,
		},
		Tags: tags,
	}
	win := &datatypes.WinAnalysis{Confidence: confidence}
	if winner {
		id, label := "side_a", "A"
		win.WinnerID, win.WinnerLabel = &id, &label
	}
	a.WinAnalysis = win
	for _, p := range patterns {
		a.PatternsDetected = append(a.PatternsDetected, datatypes.PatternDetected{Name: p})
	}
	return a
}

func TestSnapshotEmptyHistory(t *testing.T) {
	svc, _, _ := newService(t)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.TotalAnalyses)
	assert.Zero(t, snap.ClearVerdictRate)
	assert.Zero(t, snap.AverageConfidence)
	assert.Empty(t, snap.TopTags)
}

func TestSnapshotAggregates(t *testing.T) {
	ctx := context.Background()
	svc, analyses, _ := newService(t)

	require.NoError(t, analyses.Insert(ctx,
		resultWith(1, true, 85, []string{"emotional", "direct"}, datatypes.StyleDirect, "Emotional Escalation")))
	require.NoError(t, analyses.Insert(ctx,
		resultWith(2, false, 50, []string{"mediator"}, datatypes.StyleMediator)))
	require.NoError(t, analyses.Insert(ctx,
		resultWith(3, true, 75, []string{"emotional", "mediator"}, datatypes.StyleMediator, "Emotional Escalation", "Appeal Without Evidence")))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TotalAnalyses)
	assert.InDelta(t, 2.0/3.0, snap.ClearVerdictRate, 1e-9)
	assert.InDelta(t, 70.0, snap.AverageConfidence, 1e-9)
	assert.Equal(t, 2, snap.PatternCounts["Emotional Escalation"])
	assert.Equal(t, 1, snap.PatternCounts["Appeal Without Evidence"])
	assert.Equal(t, 2, snap.StyleCounts["mediator"])
	assert.Equal(t, 1, snap.StyleCounts["direct"])

	require.NotEmpty(t, snap.TopTags)
	assert.Equal(t, "emotional", snap.TopTags[0].Tag)
	assert.Equal(t, 2, snap.TopTags[0].Count)
}

func TestSnapshotCachedUntilCollectionChanges(t *testing.T) {
	ctx := context.Background()
	svc, analyses, manual := newService(t)

	require.NoError(t, analyses.Insert(ctx, resultWith(1, true, 80, []string{"x"}, datatypes.StyleNeutral)))

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	// Same collection, later clock: the cached snapshot is served, so
	// GeneratedAt does not move.
	manual.Advance(time.Hour)
	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt, "fresh cache must be served")

	// A mutation makes the cache stale.
	require.NoError(t, analyses.Insert(ctx, resultWith(2, false, 50, []string{"y"}, datatypes.StyleNeutral)))
	third, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.TotalAnalyses)
	assert.Greater(t, third.GeneratedAt, first.GeneratedAt)
}

func TestSnapshotHashCatchesSameSizeChange(t *testing.T) {
	ctx := context.Background()
	svc, analyses, manual := newService(t)

	a, b := resultWith(1, true, 80, nil, datatypes.StyleNeutral), resultWith(2, false, 50, nil, datatypes.StyleNeutral)
	require.NoError(t, analyses.Replace(ctx, []datatypes.AnalysisResult{a, b}))

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	// Delete one and add another: size stays 2, id set changes.
	c := resultWith(3, true, 90, nil, datatypes.StyleNeutral)
	require.NoError(t, analyses.Replace(ctx, []datatypes.AnalysisResult{a, c}))

	manual.Advance(time.Minute)
	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.SourceHash, second.SourceHash)
	assert.Greater(t, second.GeneratedAt, first.GeneratedAt, "hash mismatch must trigger recompute")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	svc, analyses, manual := newService(t)

	require.NoError(t, analyses.Insert(ctx, resultWith(1, true, 80, nil, datatypes.StyleNeutral)))
	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx))
	manual.Advance(time.Minute)

	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, second.GeneratedAt, first.GeneratedAt, "invalidate must force a rebuild")
}
