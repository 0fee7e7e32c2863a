// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package insights derives an aggregate snapshot over the verdict history
// and caches it in its own slot. The cache is purely derived data: a
// snapshot whose source count or source hash no longer matches the live
// collection is stale and recomputed; one that fails to decode is
// discarded without ceremony.
//
// Concurrent snapshot requests collapse into one recompute through
// singleflight, so a burst of readers after a mutation costs one pass over
// the collection, not one per reader.
package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

// StalenessReason explains why a cached snapshot was not served.
type StalenessReason string

const (
	// StalenessFresh means the cache was valid and served as-is.
	StalenessFresh StalenessReason = "fresh"

	// StalenessMissing means no cached snapshot existed.
	StalenessMissing StalenessReason = "missing"

	// StalenessCountMismatch means the collection size changed.
	StalenessCountMismatch StalenessReason = "count_mismatch"

	// StalenessHashMismatch means the collection's id set or order
	// changed while its size did not.
	StalenessHashMismatch StalenessReason = "hash_mismatch"
)

// TopTagLimit caps how many tags a snapshot reports.
const TopTagLimit = 8

// ErrNilDeps indicates the service was built without its collection or
// cache slot.
var ErrNilDeps = errors.New("insights requires the analyses collection and a cache slot")

var (
	snapshotChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_insights_checks_total",
		Help: "Snapshot requests by staleness reason",
	}, []string{"reason"})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verdict_insights_recompute_duration_seconds",
		Help:    "Time to rebuild the insights snapshot",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

var insightsTracer = otel.Tracer("verdict.insights")

// Service computes and caches the insights snapshot.
type Service struct {
	analyses *store.Collection[datatypes.AnalysisResult]
	cache    *store.Slot[datatypes.InsightsSnapshot]
	clock    clock.Clock
	log      *slog.Logger
	group    singleflight.Group
}

// Config assembles a Service.
type Config struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// New builds the insights service over the analyses collection and its
// cache slot.
func New(analyses *store.Collection[datatypes.AnalysisResult], cache *store.Slot[datatypes.InsightsSnapshot], cfg Config) (*Service, error) {
	if analyses == nil || cache == nil {
		return nil, ErrNilDeps
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		analyses: analyses,
		cache:    cache,
		clock:    cfg.Clock,
		log:      cfg.Logger.With(slog.String("component", "insights")),
	}, nil
}

// Snapshot returns the current insights, serving the cached snapshot when
// it still describes the live collection and rebuilding it otherwise.
func (s *Service) Snapshot(ctx context.Context) (datatypes.InsightsSnapshot, error) {
	ctx, span := insightsTracer.Start(ctx, "insights.snapshot")
	defer span.End()

	items, err := s.analyses.All(ctx)
	if err != nil {
		return datatypes.InsightsSnapshot{}, fmt.Errorf("loading analyses for insights: %w", err)
	}
	count, hash := sourceIdentity(items)

	cached, found, err := s.cache.Get(ctx)
	if err != nil {
		return datatypes.InsightsSnapshot{}, fmt.Errorf("reading insights cache: %w", err)
	}
	reason := staleness(cached, found, count, hash)
	snapshotChecks.WithLabelValues(string(reason)).Inc()
	span.SetAttributes(attribute.String("staleness", string(reason)))
	if reason == StalenessFresh {
		return cached, nil
	}

	// Collapse concurrent recomputes. The hash keys the flight so a
	// mutation mid-burst starts a fresh computation instead of joining
	// the stale one.
	v, err, _ := s.group.Do(hash, func() (interface{}, error) {
		snap := s.compute(items, count, hash)
		if perr := s.cache.Put(ctx, snap); perr != nil {
			// Serving the fresh snapshot matters more than caching it.
			s.log.Warn("insights cache write failed", slog.Any("error", perr))
		}
		return snap, nil
	})
	if err != nil {
		return datatypes.InsightsSnapshot{}, err
	}

	s.log.Debug("insights recomputed",
		slog.String("reason", string(reason)),
		slog.Int("analyses", count))
	return v.(datatypes.InsightsSnapshot), nil
}

// Invalidate drops the cached snapshot. Called by the Core after import,
// where the whole collection may have changed shape at once.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// staleness classifies a cached snapshot against the live collection.
func staleness(cached datatypes.InsightsSnapshot, found bool, count int, hash string) StalenessReason {
	switch {
	case !found:
		return StalenessMissing
	case cached.SourceCount != count:
		return StalenessCountMismatch
	case cached.SourceHash != hash:
		return StalenessHashMismatch
	default:
		return StalenessFresh
	}
}

// sourceIdentity fingerprints the collection state a snapshot derives
// from: the item count plus a hash over the ordered analysis ids.
func sourceIdentity(items []datatypes.AnalysisResult) (int, string) {
	h := sha256.New()
	for _, a := range items {
		h.Write([]byte(a.ID))
		h.Write([]byte{0})
	}
	return len(items), hex.EncodeToString(h.Sum(nil))
}

// compute rebuilds the snapshot from the loaded collection.
func (s *Service) compute(items []datatypes.AnalysisResult, count int, hash string) datatypes.InsightsSnapshot {
	timer := prometheus.NewTimer(recomputeDuration)
	defer timer.ObserveDuration()

	snap := datatypes.InsightsSnapshot{
		GeneratedAt:   s.clock.NowMs(),
		SourceCount:   count,
		SourceHash:    hash,
		TotalAnalyses: len(items),
		TopTags:       []datatypes.TagCount{},
		PatternCounts: map[string]int{},
		StyleCounts:   map[string]int{},
	}

	tagCounts := map[string]int{}
	clearWins, scored := 0, 0
	confidenceSum := 0
	for _, a := range items {
		if a.WinAnalysis != nil {
			scored++
			confidenceSum += a.WinAnalysis.Confidence
			if a.WinAnalysis.Clear() {
				clearWins++
			}
		}
		for _, tag := range a.Tags {
			tagCounts[tag]++
		}
		for _, p := range a.PatternsDetected {
			snap.PatternCounts[p.Name]++
		}
		snap.StyleCounts[string(a.Input.CommentatorStyle)]++
	}

	if len(items) > 0 {
		snap.ClearVerdictRate = float64(clearWins) / float64(len(items))
	}
	if scored > 0 {
		snap.AverageConfidence = float64(confidenceSum) / float64(scored)
	}

	for tag, n := range tagCounts {
		snap.TopTags = append(snap.TopTags, datatypes.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(snap.TopTags, func(i, j int) bool {
		if snap.TopTags[i].Count != snap.TopTags[j].Count {
			return snap.TopTags[i].Count > snap.TopTags[j].Count
		}
		return snap.TopTags[i].Tag < snap.TopTags[j].Tag
	})
	if len(snap.TopTags) > TopTagLimit {
		snap.TopTags = snap.TopTags[:TopTagLimit]
	}
	return snap
}
