// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
)

// maxImportBytes caps the accepted import payload. Exports of a full
// 100-analysis history sit well under 1 MiB.
const maxImportBytes = 8 << 20

// HandleExport returns the full history as a portable export document.
func HandleExport(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleExport")
		defer span.End()

		doc, err := core.ExportAnalyses(ctx)
		if err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		span.SetAttributes(attribute.Int("export.count", doc.TotalAnalyses))
		c.Header("Content-Disposition", `attachment; filename="arbiter-export.json"`)
		c.JSON(http.StatusOK, doc)
	}
}

// HandleImport ingests an export document. Mode comes from the ?mode
// query parameter and defaults to merge. A rejected payload leaves the
// store untouched and reports 400 with the validation message.
func HandleImport(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleImport")
		defer span.End()

		mode := porting.Mode(c.DefaultQuery("mode", string(porting.ModeMerge)))

		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}

		result, err := core.Import(ctx, payload, mode)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			writeError(c, err)
			return
		}
		span.SetAttributes(
			attribute.Int("import.imported", result.Imported),
			attribute.Int("import.skipped", result.Skipped),
		)
		c.JSON(http.StatusOK, result)
	}
}
