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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// ExportStats describes one export written to disk.
type ExportStats struct {
	// Path is the final file location.
	Path string

	// Bytes is the written document size.
	Bytes int

	// SHA256 is the hex digest of the written bytes, for callers that
	// verify transfers out of band.
	SHA256 string

	// Count is the number of analyses in the document.
	Count int
}

// BuildExport assembles the portable document from the full resident
// collection. The collection is already at the current schema version, so
// export never re-runs the migration engine.
func (p *Porter) BuildExport(ctx context.Context) (datatypes.ExportDocument, error) {
	ctx, span := portingTracer.Start(ctx, "porting.export")
	defer span.End()

	items, err := p.analyses.All(ctx)
	if err != nil {
		exportsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading analyses")
		return datatypes.ExportDocument{}, fmt.Errorf("loading analyses for export: %w", err)
	}

	doc := datatypes.ExportDocument{
		ExportedAt:    p.clock.Now().UTC().Format(datatypes.ExportTimeLayout),
		AppVersion:    datatypes.AppVersion,
		TotalAnalyses: len(items),
		Analyses:      items,
	}
	exportsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("analyses", len(items)))
	return doc, nil
}

// WriteFile exports to path atomically: the document is written to a
// temporary file in the target directory, synced, then renamed into place,
// so a crash mid-write never leaves a truncated export behind.
func (p *Porter) WriteFile(ctx context.Context, path string) (ExportStats, error) {
	doc, err := p.BuildExport(ctx)
	if err != nil {
		return ExportStats{}, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ExportStats{}, fmt.Errorf("encoding export: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".arbiter-export-*.tmp")
	if err != nil {
		return ExportStats{}, fmt.Errorf("creating temp export: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ExportStats{}, fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ExportStats{}, fmt.Errorf("syncing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ExportStats{}, fmt.Errorf("closing export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ExportStats{}, fmt.Errorf("publishing export: %w", err)
	}

	digest := sha256.Sum256(data)
	stats := ExportStats{
		Path:   path,
		Bytes:  len(data),
		SHA256: hex.EncodeToString(digest[:]),
		Count:  doc.TotalAnalyses,
	}
	p.log.Info("export written",
		slog.String("path", stats.Path),
		slog.Int("analyses", stats.Count),
		slog.Int("bytes", stats.Bytes))
	return stats, nil
}
