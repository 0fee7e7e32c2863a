// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine computes a verdict from a dispute submission. The
// computation either fully succeeds, producing one complete AnalysisResult,
// or returns an error; there is no partial result and the engine persists
// nothing itself.
//
// Everything except the pluggable ScoringStrategy is deterministic: winner
// determination, pattern detection, tag derivation and headline rendering
// are pure functions of the scores.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_engine_analyses_total",
		Help: "Verdict computations by strategy and outcome",
	}, []string{"strategy", "outcome"})

	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verdict_engine_analyze_duration_seconds",
		Help:    "Time to compute one verdict",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
	})
)

var engineTracer = otel.Tracer("verdict.engine")

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Config assembles an Engine. Zero values select the deterministic
// heuristic strategy with the shipped tuning.
type Config struct {
	Strategy ScoringStrategy
	Tuning   Tuning
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Engine turns an AnalysisInput into an AnalysisResult.
type Engine struct {
	strategy ScoringStrategy
	tuning   Tuning
	clock    clock.Clock
	log      *slog.Logger
}

// New builds an engine, applying defaults for unset config fields.
func New(cfg Config) (*Engine, error) {
	if cfg.Strategy == nil {
		cfg.Strategy = NewHeuristicStrategy()
	}
	if (cfg.Tuning == Tuning{}) {
		cfg.Tuning = DefaultTuning()
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		strategy: cfg.Strategy,
		tuning:   cfg.Tuning,
		clock:    cfg.Clock,
		log:      cfg.Logger.With(slog.String("component", "engine")),
	}, nil
}

// Strategy returns the active scoring strategy's name.
func (e *Engine) Strategy() string { return e.strategy.Name() }

// Tuning returns the active winner-determination constants.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Analyze computes a verdict. Side ids are minted in place when absent,
// then the input is validated; sides are scored concurrently and assigned
// by index so sideAnalyses[i] always describes input.Sides[i].
func (e *Engine) Analyze(ctx context.Context, input datatypes.AnalysisInput) (*datatypes.AnalysisResult, error) {
	start := time.Now()
	ctx, span := engineTracer.Start(ctx, "engine.analyze", trace.WithAttributes(
		attribute.Int("sides", len(input.Sides)),
		attribute.String("style", string(input.CommentatorStyle)),
		attribute.String("mode", string(input.EvidenceMode)),
		attribute.String("strategy", e.strategy.Name()),
	))
	defer span.End()

	input.EnsureSideIDs()
	if err := input.Validate(); err != nil {
		analysesTotal.WithLabelValues(e.strategy.Name(), "invalid").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	analyses := make([]datatypes.SideAnalysis, len(input.Sides))
	g, gCtx := errgroup.WithContext(ctx)
	for i := range input.Sides {
		g.Go(func() error {
			side := input.Sides[i]
			scores, err := e.strategy.Score(gCtx, side, input.EvidenceMode)
			if err != nil {
				return fmt.Errorf("scoring %s: %w", side.Label, err)
			}
			ann, err := e.strategy.Annotate(gCtx, side, input.EvidenceMode)
			if err != nil {
				return fmt.Errorf("annotating %s: %w", side.Label, err)
			}
			analyses[i] = datatypes.SideAnalysis{
				SideID:              side.ID,
				Label:               side.Label,
				Summary:             ann.Summary,
				Claims:              orEmpty(ann.Claims),
				EvidenceProvided:    orEmpty(ann.EvidenceProvided),
				EmotionalStatements: orEmpty(ann.EmotionalStatements),
				LogicalStatements:   orEmpty(ann.LogicalStatements),
				Scores:              scores,
				FlaggedAssumptions:  ann.FlaggedAssumptions,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		analysesTotal.WithLabelValues(e.strategy.Name(), "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return nil, fmt.Errorf("%w: %v", ErrComputation, err)
	}

	win := determineWinner(input, analyses, e.tuning)
	patterns := detectPatterns(input, analyses)

	result := &datatypes.AnalysisResult{
		ID:                 datatypes.NewAnalysisID(),
		CreatedAt:          e.clock.NowMs(),
		Input:              input,
		SideAnalyses:       analyses,
		VerdictHeadline:    renderHeadline(win, input.CommentatorStyle),
		VerdictExplanation: renderExplanation(win, e.tuning),
		WinAnalysis:        win,
		PeaceAnalysis:      buildPeace(input, patterns),
		OutcomeChangers:    buildOutcomeChangers(input, analyses, win),
		PatternsDetected:   patterns,
		Tags:               deriveTags(input, patterns),
	}
	if err := result.Validate(); err != nil {
		analysesTotal.WithLabelValues(e.strategy.Name(), "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "result invariant violated")
		return nil, fmt.Errorf("%w: %v", ErrComputation, err)
	}

	analysesTotal.WithLabelValues(e.strategy.Name(), "ok").Inc()
	analyzeDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Bool("clear_winner", win.Clear()),
		attribute.Int("confidence", win.Confidence),
		attribute.Int("patterns", len(patterns)),
	)

	e.log.Debug("verdict computed",
		slog.String("id", result.ID),
		slog.Bool("clear", win.Clear()),
		slog.Int("confidence", win.Confidence),
		slog.Float64("margin", win.Margin))
	return result, nil
}
