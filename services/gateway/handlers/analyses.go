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
	"go.opentelemetry.io/otel/codes"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// HandleAnalyze runs the verdict engine on the posted input and persists
// the result. Quota is checked before any computation happens.
func HandleAnalyze(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleAnalyze")
		defer span.End()

		var input datatypes.AnalysisInput
		if err := c.BindJSON(&input); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := core.Analyze(ctx, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// HandleListAnalyses returns the full history, newest first.
func HandleListAnalyses(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleListAnalyses")
		defer span.End()

		analyses, err := core.LoadAnalyses(ctx)
		if err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"analyses": analyses, "count": len(analyses)})
	}
}

// HandleGetAnalysis returns one analysis by id.
func HandleGetAnalysis(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleGetAnalysis")
		defer span.End()

		result, err := core.GetAnalysis(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleDeleteAnalysis removes one analysis by id.
func HandleDeleteAnalysis(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleDeleteAnalysis")
		defer span.End()

		if err := core.DeleteAnalysis(ctx, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// HandleRenameAnalysis replaces the analysis title.
func HandleRenameAnalysis(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleRenameAnalysis")
		defer span.End()

		var req renameRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := core.RenameAnalysis(ctx, c.Param("id"), req.Title); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"renamed": c.Param("id")})
	}
}

// HandleDuplicateAnalysis copies an analysis under a fresh id and
// current timestamp. The copy is returned.
func HandleDuplicateAnalysis(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleDuplicateAnalysis")
		defer span.End()

		copied, err := core.DuplicateAnalysis(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, copied)
	}
}

type takeawayRequest struct {
	Takeaway string `json:"takeaway"`
}

// HandleSetTakeaway stores the user's personal takeaway for an analysis.
// An empty takeaway clears it.
func HandleSetTakeaway(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleSetTakeaway")
		defer span.End()

		var req takeawayRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := core.SetTakeaway(ctx, c.Param("id"), req.Takeaway); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": c.Param("id")})
	}
}
