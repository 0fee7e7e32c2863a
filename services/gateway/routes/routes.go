// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ArbiterAI/ArbiterCore/services/gateway/handlers"
	"github.com/ArbiterAI/ArbiterCore/services/gateway/middleware"
	"github.com/ArbiterAI/ArbiterCore/services/gateway/telemetry"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
)

// Options configures the route surface.
type Options struct {
	// APIToken guards /v1 when non-empty.
	APIToken string

	// RatePerSecond and Burst tune the per-client limiter; zero values
	// select the middleware defaults.
	RatePerSecond float64
	Burst         int
}

// SetupRoutes registers the full gateway surface on the router.
func SetupRoutes(router *gin.Engine, c *core.Core, opts Options) {
	router.GET("/health", handlers.HealthCheck)

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	limiter := middleware.NewRateLimiter(opts.RatePerSecond, opts.Burst)

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.APIToken), limiter.Middleware())
	{
		analyses := v1.Group("/analyses")
		{
			analyses.POST("", handlers.HandleAnalyze(c))
			analyses.GET("", handlers.HandleListAnalyses(c))
			analyses.GET("/:id", handlers.HandleGetAnalysis(c))
			analyses.DELETE("/:id", handlers.HandleDeleteAnalysis(c))
			analyses.POST("/:id/rename", handlers.HandleRenameAnalysis(c))
			analyses.POST("/:id/duplicate", handlers.HandleDuplicateAnalysis(c))
			analyses.POST("/:id/takeaway", handlers.HandleSetTakeaway(c))
		}

		v1.GET("/export", handlers.HandleExport(c))
		v1.POST("/import", handlers.HandleImport(c))

		v1.GET("/settings", handlers.HandleGetSettings(c))
		v1.PATCH("/settings", handlers.HandlePatchSettings(c))

		v1.GET("/draft", handlers.HandleGetDraft(c))
		v1.PUT("/draft", handlers.HandlePutDraft(c))
		v1.DELETE("/draft", handlers.HandleDeleteDraft(c))

		templates := v1.Group("/templates")
		{
			templates.GET("", handlers.HandleListTemplates(c))
			templates.POST("", handlers.HandleSaveTemplate(c))
			templates.DELETE("/:id", handlers.HandleDeleteTemplate(c))
			templates.POST("/:id/use", handlers.HandleUseTemplate(c))
		}

		v1.GET("/insights", handlers.HandleInsights(c))
		v1.GET("/events/ws", handlers.HandleEventsWebSocket(c))
	}
}
