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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// HandleListTemplates returns all saved templates, most recent first.
func HandleListTemplates(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleListTemplates")
		defer span.End()

		templates, err := core.LoadTemplates(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
	}
}

// HandleSaveTemplate stores a template. Missing id and createdAt are
// filled in server-side; the stored template is returned.
func HandleSaveTemplate(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleSaveTemplate")
		defer span.End()

		var tmpl datatypes.AnalysisTemplate
		if err := c.BindJSON(&tmpl); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		saved, err := core.SaveTemplate(ctx, tmpl)
		if err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, saved)
	}
}

// HandleDeleteTemplate removes a template by id.
func HandleDeleteTemplate(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleDeleteTemplate")
		defer span.End()

		if err := core.DeleteTemplate(ctx, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

// HandleUseTemplate marks a template used and returns its input skeleton
// for a new analysis.
func HandleUseTemplate(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleUseTemplate")
		defer span.End()

		tmpl, err := core.UseTemplate(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"template": tmpl, "skeleton": tmpl.Skeleton()})
	}
}

// HandleInsights returns the aggregate snapshot over the history,
// recomputed only when the underlying collection has changed.
func HandleInsights(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleInsights")
		defer span.End()

		snapshot, err := core.Insights(ctx)
		if err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}
