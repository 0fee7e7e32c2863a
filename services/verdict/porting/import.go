// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package porting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/mod/semver"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/migrate"
)

// ImportResult reports one import's outcome to the caller.
type ImportResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// rawDocument is the untyped view of an export used for validation. The
// analyses stay raw so each record can be fingerprinted and migrated
// individually before it is decoded into the current-schema type.
type rawDocument struct {
	ExportedAt    json.RawMessage   `json:"exportedAt"`
	AppVersion    json.RawMessage   `json:"appVersion"`
	TotalAnalyses json.RawMessage   `json:"totalAnalyses"`
	Analyses      []json.RawMessage `json:"analyses"`
}

// Import validates and reconciles one export document. Every structural
// check passes before the store is touched: a rejected payload causes zero
// mutation. On success the returned result carries the imported/skipped
// counts and any per-record migration warnings.
func (p *Porter) Import(ctx context.Context, payload []byte, mode Mode) (ImportResult, error) {
	ctx, span := portingTracer.Start(ctx, "porting.import", trace.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.Int("payload_bytes", len(payload)),
	))
	defer span.End()

	fail := func(err error) (ImportResult, error) {
		importsTotal.WithLabelValues(string(mode), "rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "import rejected")
		return ImportResult{Success: false, Message: err.Error()}, err
	}

	if !mode.Valid() {
		return fail(fmt.Errorf("%w: %q", ErrBadMode, mode))
	}

	doc, warnings, err := validateDocument(payload)
	if err != nil {
		return fail(err)
	}

	// Upgrade foreign records before deduplication: the v2→v3 id
	// normalization changes which records count as duplicates of resident
	// ones. Records the chain cannot salvage are skipped, not fatal.
	batch := migrate.MigrateBatch(ctx, doc.Analyses, migrate.KindAnalysis)
	warnings = append(warnings, batch.Warnings...)
	skipped := batch.Dropped

	records := make([]datatypes.AnalysisResult, 0, len(batch.Elements))
	for i, el := range batch.Elements {
		var rec datatypes.AnalysisResult
		if derr := json.Unmarshal(el, &rec); derr != nil {
			skipped++
			warnings = append(warnings, fmt.Sprintf("record %d skipped: %v", i, derr))
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return fail(fmt.Errorf("%w: no record survived migration", ErrInvalidImport))
	}

	var result ImportResult
	switch mode {
	case ModeReplace:
		result, err = p.replace(ctx, records)
	case ModeMerge:
		result, err = p.merge(ctx, records)
	}
	if err != nil {
		importsTotal.WithLabelValues(string(mode), "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return ImportResult{Success: false, Message: err.Error()}, err
	}

	result.Skipped += skipped
	result.Warnings = warnings
	importsTotal.WithLabelValues(string(mode), "ok").Inc()
	importedRecords.WithLabelValues("imported").Add(float64(result.Imported))
	importedRecords.WithLabelValues("skipped").Add(float64(result.Skipped))
	span.SetAttributes(
		attribute.Int("imported", result.Imported),
		attribute.Int("skipped", result.Skipped),
	)
	p.log.Info("import completed",
		slog.String("mode", string(mode)),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("warnings", len(result.Warnings)))
	return result, nil
}

// replace overwrites the collection wholesale, truncated to the cap.
func (p *Porter) replace(ctx context.Context, records []datatypes.AnalysisResult) (ImportResult, error) {
	cap := p.analyses.Cap()
	kept := records
	if len(kept) > cap {
		kept = kept[:cap]
	}
	if err := p.analyses.Replace(ctx, kept); err != nil {
		return ImportResult{}, fmt.Errorf("replacing analyses: %w", err)
	}
	return ImportResult{
		Success:  true,
		Message:  fmt.Sprintf("replaced history with %d analyses", len(kept)),
		Imported: len(kept),
		Skipped:  len(records) - len(kept),
	}, nil
}

// merge appends records whose ids are not already resident, re-sorts the
// union by createdAt descending, and truncates to the cap. A merge can
// therefore evict old resident records when the union exceeds capacity.
func (p *Porter) merge(ctx context.Context, records []datatypes.AnalysisResult) (ImportResult, error) {
	existing, err := p.analyses.All(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("loading analyses for merge: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a.ID] = struct{}{}
	}

	merged := existing
	imported, skipped := 0, 0
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			skipped++
			continue
		}
		seen[rec.ID] = struct{}{}
		merged = append(merged, rec)
		imported++
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})
	if cap := p.analyses.Cap(); len(merged) > cap {
		merged = merged[:cap]
	}
	if err := p.analyses.Replace(ctx, merged); err != nil {
		return ImportResult{}, fmt.Errorf("writing merged analyses: %w", err)
	}
	return ImportResult{
		Success:  true,
		Message:  fmt.Sprintf("merged %d analyses, skipped %d duplicates", imported, skipped),
		Imported: imported,
		Skipped:  skipped,
	}, nil
}

// validateDocument performs every structural check the import contract
// requires, before any mutation. It returns the raw document and any
// non-fatal warnings (currently only a version-newer-than-build notice).
func validateDocument(payload []byte) (rawDocument, []string, error) {
	var doc rawDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return rawDocument{}, nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidImport, err)
	}

	var exportedAt, appVersion string
	if err := json.Unmarshal(doc.ExportedAt, &exportedAt); err != nil || doc.ExportedAt == nil {
		return rawDocument{}, nil, fmt.Errorf("%w: exportedAt must be a string", ErrInvalidImport)
	}
	if err := json.Unmarshal(doc.AppVersion, &appVersion); err != nil || doc.AppVersion == nil {
		return rawDocument{}, nil, fmt.Errorf("%w: appVersion must be a string", ErrInvalidImport)
	}
	var total float64
	if err := json.Unmarshal(doc.TotalAnalyses, &total); err != nil || doc.TotalAnalyses == nil {
		return rawDocument{}, nil, fmt.Errorf("%w: totalAnalyses must be a number", ErrInvalidImport)
	}
	if doc.Analyses == nil {
		return rawDocument{}, nil, fmt.Errorf("%w: analyses must be an array", ErrInvalidImport)
	}
	if len(doc.Analyses) == 0 {
		return rawDocument{}, nil, ErrEmptyImport
	}

	for i, el := range doc.Analyses {
		if err := validateRecordShape(el); err != nil {
			return rawDocument{}, nil, fmt.Errorf("%w: analyses[%d] %v", ErrInvalidImport, i, err)
		}
	}

	var warnings []string
	if w := versionWarning(appVersion); w != "" {
		warnings = append(warnings, w)
	}
	return doc, warnings, nil
}

// validateRecordShape checks the minimal per-record contract: a string id,
// a numeric createdAt, and an object input. The record may still be at an
// older schema version; migration handles the rest.
func validateRecordShape(el json.RawMessage) error {
	var rec struct {
		ID        json.RawMessage `json:"id"`
		CreatedAt json.RawMessage `json:"createdAt"`
		Input     json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(el, &rec); err != nil {
		return fmt.Errorf("is not an object: %v", err)
	}
	var id string
	if err := json.Unmarshal(rec.ID, &id); err != nil || id == "" {
		return fmt.Errorf("needs a non-empty string id")
	}
	var createdAt float64
	if err := json.Unmarshal(rec.CreatedAt, &createdAt); err != nil {
		return fmt.Errorf("needs a numeric createdAt")
	}
	trimmed := strings.TrimSpace(string(rec.Input))
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("needs an object input")
	}
	return nil
}

// versionWarning notes a document written by a newer app version than this
// build. Newer exports still import — the schema is additive — but the
// user deserves the breadcrumb.
func versionWarning(appVersion string) string {
	theirs, ours := "v"+appVersion, "v"+datatypes.AppVersion
	if !semver.IsValid(theirs) {
		return fmt.Sprintf("export appVersion %q is not a semantic version", appVersion)
	}
	if semver.Compare(theirs, ours) > 0 {
		return fmt.Sprintf("export was written by app %s, newer than this build (%s)",
			appVersion, datatypes.AppVersion)
	}
	return ""
}
