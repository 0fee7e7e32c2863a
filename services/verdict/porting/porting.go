// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package porting moves the verdict history across devices: it assembles
// the portable export document and re-ingests one, either replacing the
// resident collection or merging into it with duplicate detection.
//
// Imports validate the whole payload before touching the store — a
// rejected document causes zero mutation. Foreign records are run through
// the migration engine before deduplication, because the id normalization
// step changes which records count as duplicates of resident ones.
package porting

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

// Mode selects how an imported document is reconciled with the resident
// collection.
type Mode string

const (
	// ModeReplace overwrites the collection wholesale with the imported
	// records, truncated to the capacity cap.
	ModeReplace Mode = "replace"

	// ModeMerge appends imported records whose ids are not already
	// resident, then re-sorts by recency and truncates to the cap.
	ModeMerge Mode = "merge"
)

// Valid reports whether m is a known reconciliation mode.
func (m Mode) Valid() bool {
	return m == ModeReplace || m == ModeMerge
}

var (
	// ErrInvalidImport marks a payload that failed structural validation.
	// Nothing was mutated.
	ErrInvalidImport = errors.New("invalid import payload")

	// ErrEmptyImport marks a structurally valid document with nothing to
	// import.
	ErrEmptyImport = errors.New("import contains no analyses")

	// ErrBadMode marks an unknown reconciliation mode.
	ErrBadMode = errors.New("unknown import mode")

	// ErrNilCollection indicates the porter was built without a
	// collection.
	ErrNilCollection = errors.New("porter requires an analyses collection")
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_imports_total",
		Help: "Import attempts by mode and outcome",
	}, []string{"mode", "outcome"})

	importedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_imported_records_total",
		Help: "Records accepted and skipped across all imports",
	}, []string{"disposition"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_exports_total",
		Help: "Export attempts by outcome",
	}, []string{"outcome"})
)

var portingTracer = otel.Tracer("verdict.porting")

// Porter builds exports and reconciles imports against the analyses
// collection. It performs no serialization of its own; the Core façade
// funnels all mutating calls through one mutex.
type Porter struct {
	analyses *store.Collection[datatypes.AnalysisResult]
	clock    clock.Clock
	log      *slog.Logger
}

// Config assembles a Porter. Zero values select the system clock and the
// default logger.
type Config struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// New builds a porter over the analyses collection.
func New(analyses *store.Collection[datatypes.AnalysisResult], cfg Config) (*Porter, error) {
	if analyses == nil {
		return nil, ErrNilCollection
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Porter{
		analyses: analyses,
		clock:    cfg.Clock,
		log:      cfg.Logger.With(slog.String("component", "porting")),
	}, nil
}
