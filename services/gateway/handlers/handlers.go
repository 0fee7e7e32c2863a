// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the Arbiter gateway.
//
// Every handler is a closure over *core.Core so the router wires the
// whole surface from a single constructor call. Domain errors map to
// HTTP status codes in one place (writeError); handlers never invent
// their own status for a core sentinel.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/migrate"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
)

var gatewayTracer = otel.Tracer("arbiter.gateway.handlers")

// writeError maps a core error to an HTTP response.
//
// 404 ErrNotFound, 429 ErrQuotaExceeded, 400 validation and import
// shape failures, 500 everything else.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, datatypes.ErrInvalidInput),
		errors.Is(err, datatypes.ErrResultShape),
		errors.Is(err, porting.ErrInvalidImport),
		errors.Is(err, porting.ErrEmptyImport),
		errors.Is(err, porting.ErrBadMode),
		errors.Is(err, migrate.ErrUnsupportedVersion),
		errors.Is(err, migrate.ErrUndetectableVersion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": datatypes.AppVersion,
	})
}
