// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package migrate brings persisted records up to the current schema
// version. Stored values arrive either wrapped in a version envelope or
// bare (written before envelopes existed); bare values have their version
// detected structurally via an enumerated fingerprint list. Records whose
// version cannot be established are never guessed at — detection failure
// is a hard error and the caller decides whether to quarantine.
//
// Thread Safety: all functions are stateless and safe for concurrent use.
package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CurrentDataVersion is the schema version this build reads and writes.
	CurrentDataVersion = 3

	// MinSupportedVersion is the oldest schema version with an upgrade
	// chain. Anything older predates the first public release and is
	// rejected rather than guessed at.
	MinSupportedVersion = 1
)

var (
	// ErrUnsupportedVersion marks a record whose version is outside the
	// supported range (below MinSupportedVersion or newer than this build).
	ErrUnsupportedVersion = errors.New("unsupported data version")

	// ErrUndetectableVersion marks a well-formed record matching none of
	// the known structural fingerprints.
	ErrUndetectableVersion = errors.New("undetectable data version")

	// ErrMalformedRecord marks a value that is not valid JSON of the
	// expected shape at all.
	ErrMalformedRecord = errors.New("malformed record")
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	migrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_migrations_total",
		Help: "Records processed by the migration engine",
	}, []string{"kind", "outcome"})

	migrationsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_migrations_dropped_total",
		Help: "Records dropped during batch migration",
	}, []string{"kind"})
)

var migrateTracer = otel.Tracer("verdict.migrate")

// -----------------------------------------------------------------------------
// Version detection
// -----------------------------------------------------------------------------

// DetectVersion establishes the schema version of a stored record. An
// explicit numeric "version" field always wins; otherwise the enumerated
// fingerprints are tried in order. Returns ErrUndetectableVersion when the
// record matches nothing, ErrMalformedRecord when it is not a JSON object.
func DetectVersion(raw json.RawMessage) (int, error) {
	fields, err := topLevelFields(raw)
	if err != nil {
		return 0, err
	}
	if v, ok := explicitVersion(fields); ok {
		return v, nil
	}
	for _, fp := range fingerprints {
		if fp.Match(fields) {
			return fp.Version, nil
		}
	}
	return 0, ErrUndetectableVersion
}

// UnwrapEnvelope splits a stored value into its declared version and inner
// payload. A value counts as an envelope only when it is an object carrying
// both a numeric "version" and a "data" key; anything else is reported as
// bare with the original bytes returned untouched.
func UnwrapEnvelope(raw json.RawMessage) (version int, payload json.RawMessage, isEnvelope bool) {
	fields, err := topLevelFields(raw)
	if err != nil {
		return 0, raw, false
	}
	data, hasData := fields["data"]
	v, hasVersion := explicitVersion(fields)
	if !hasData || !hasVersion {
		return 0, raw, false
	}
	return v, data, true
}

// topLevelFields decodes just the first layer of a JSON object.
func topLevelFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: value is not a JSON object", ErrMalformedRecord)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return fields, nil
}

// explicitVersion extracts a numeric top-level "version" field if present.
func explicitVersion(fields map[string]json.RawMessage) (int, bool) {
	raw, ok := fields["version"]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// -----------------------------------------------------------------------------
// Single-record migration
// -----------------------------------------------------------------------------

// Result reports one record's trip through the upgrade chain.
type Result struct {
	// FromVersion is the version the record was found at.
	FromVersion int

	// ToVersion is always CurrentDataVersion on success.
	ToVersion int

	// Raw is the upgraded record. For a NoOp it aliases the input bytes so
	// already-current records round-trip without a decode/encode cycle.
	Raw json.RawMessage

	// Warnings carries non-fatal repairs the chain performed.
	Warnings []string

	// NoOp reports that the record was already at the current version.
	NoOp bool
}

// MigrateValue brings one stored value up to CurrentDataVersion. The value
// may be a version envelope or a bare record; envelopes are unwrapped and
// their declared version trusted, bare records are fingerprinted. An
// envelope explicitly declaring version zero (or less) is rejected rather
// than falling back to sniffing — an explicit version is always used.
func MigrateValue(raw json.RawMessage, kind Kind) (Result, error) {
	declared, payload, isEnvelope := UnwrapEnvelope(raw)
	if !isEnvelope {
		declared = 0
	} else if declared <= 0 {
		migrationsTotal.WithLabelValues(string(kind), "unsupported").Inc()
		return Result{}, fmt.Errorf("%w: envelope declares version %d",
			ErrUnsupportedVersion, declared)
	}
	return migrateRecord(payload, kind, declared)
}

// migrateRecord runs the upgrade chain for kind. declared is the version
// asserted by an enclosing envelope; zero means detect structurally.
func migrateRecord(payload json.RawMessage, kind Kind, declared int) (Result, error) {
	version := declared
	if version == 0 {
		detected, err := DetectVersion(payload)
		if err != nil {
			migrationsTotal.WithLabelValues(string(kind), "undetectable").Inc()
			return Result{}, err
		}
		version = detected
	}

	switch {
	case version < MinSupportedVersion:
		migrationsTotal.WithLabelValues(string(kind), "unsupported").Inc()
		return Result{}, fmt.Errorf("%w: version %d is below minimum supported %d",
			ErrUnsupportedVersion, version, MinSupportedVersion)
	case version > CurrentDataVersion:
		migrationsTotal.WithLabelValues(string(kind), "unsupported").Inc()
		return Result{}, fmt.Errorf("%w: version %d is newer than this build's %d",
			ErrUnsupportedVersion, version, CurrentDataVersion)
	case version == CurrentDataVersion:
		migrationsTotal.WithLabelValues(string(kind), "noop").Inc()
		return Result{FromVersion: version, ToVersion: version, Raw: payload, NoOp: true}, nil
	}

	var record map[string]any
	if err := json.Unmarshal(payload, &record); err != nil {
		migrationsTotal.WithLabelValues(string(kind), "malformed").Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	var warnings []string
	for _, step := range stepsFor(kind, version) {
		upgraded, w, err := step.Apply(record)
		if err != nil {
			migrationsTotal.WithLabelValues(string(kind), "failed").Inc()
			return Result{}, fmt.Errorf("step %q (v%d): %w", step.Note, step.From, err)
		}
		record = upgraded
		warnings = append(warnings, fmt.Sprintf("upgraded %s v%d to v%d: %s", kind, step.From, step.From+1, step.Note))
		warnings = append(warnings, w...)
	}

	out, err := json.Marshal(record)
	if err != nil {
		migrationsTotal.WithLabelValues(string(kind), "failed").Inc()
		return Result{}, fmt.Errorf("re-encoding migrated record: %w", err)
	}

	migrationsTotal.WithLabelValues(string(kind), "migrated").Inc()
	return Result{
		FromVersion: version,
		ToVersion:   CurrentDataVersion,
		Raw:         out,
		Warnings:    warnings,
	}, nil
}

// -----------------------------------------------------------------------------
// Batch migration
// -----------------------------------------------------------------------------

// BatchResult reports a whole collection's trip through the engine. One bad
// record never fails the batch: failures are dropped, counted, and turned
// into warnings so the surviving records stay readable.
type BatchResult struct {
	Elements       []json.RawMessage
	MinFromVersion int
	Warnings       []string
	Dropped        int
}

// MigrateBatch migrates each element independently. Elements are bare
// records (collection envelopes wrap the array, not its members), so each
// one is fingerprinted on its own — imported data can legitimately mix
// versions within a single array.
func MigrateBatch(ctx context.Context, elements []json.RawMessage, kind Kind) BatchResult {
	_, span := migrateTracer.Start(ctx, "migrate.batch", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Int("elements", len(elements)),
	))
	defer span.End()

	out := BatchResult{
		Elements:       make([]json.RawMessage, 0, len(elements)),
		MinFromVersion: CurrentDataVersion,
	}

	for i, el := range elements {
		res, err := MigrateValue(el, kind)
		if err != nil {
			out.Dropped++
			out.Warnings = append(out.Warnings, fmt.Sprintf("record %d dropped: %v", i, err))
			migrationsDroppedTotal.WithLabelValues(string(kind)).Inc()
			continue
		}
		if res.FromVersion < out.MinFromVersion {
			out.MinFromVersion = res.FromVersion
		}
		for _, w := range res.Warnings {
			out.Warnings = append(out.Warnings, fmt.Sprintf("record %d: %s", i, w))
		}
		out.Elements = append(out.Elements, res.Raw)
	}

	span.SetAttributes(
		attribute.Int("dropped", out.Dropped),
		attribute.Int("min_from_version", out.MinFromVersion),
	)
	if out.Dropped > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d records dropped", out.Dropped))
	}
	return out
}

// -----------------------------------------------------------------------------
// Store hooks
// -----------------------------------------------------------------------------

// UpgradeAnalyses is the store hook for the analyses collection. payload is
// the JSON array from inside the collection envelope (or the bare legacy
// array); declared is the envelope's version, zero for bare values. The
// declared version is deliberately ignored in favor of per-element
// detection — see MigrateBatch.
func UpgradeAnalyses(ctx context.Context, declared int, payload json.RawMessage) (json.RawMessage, []string, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil, nil, fmt.Errorf("%w: analyses payload is not an array: %v", ErrMalformedRecord, err)
	}

	batch := MigrateBatch(ctx, elements, KindAnalysis)
	out, err := json.Marshal(batch.Elements)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encoding analyses payload: %w", err)
	}
	return out, batch.Warnings, nil
}

// UpgradeSettings is the store hook for the settings slot. payload is a
// single settings object; declared is the envelope version when known.
func UpgradeSettings(ctx context.Context, declared int, payload json.RawMessage) (json.RawMessage, []string, error) {
	res, err := migrateRecord(payload, KindSettings, declared)
	if err != nil {
		return nil, nil, err
	}
	return res.Raw, res.Warnings, nil
}
