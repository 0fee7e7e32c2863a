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

// HandleGetSettings returns the settings singleton. Reading settings
// lazily rolls the quota window when a new ISO week has started.
func HandleGetSettings(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleGetSettings")
		defer span.End()

		settings, err := core.LoadSettings(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// settingsPatch carries the user-editable subset of AppSettings. Pointer
// fields distinguish "leave alone" from "set to zero value". The quota
// counters are never writable over the wire.
type settingsPatch struct {
	Pro                     *bool                       `json:"pro"`
	HapticsEnabled          *bool                       `json:"hapticsEnabled"`
	ReduceMotion            *bool                       `json:"reduceMotion"`
	DesignPreset            *string                     `json:"designPreset"`
	DefaultCommentatorStyle *datatypes.CommentatorStyle `json:"defaultCommentatorStyle"`
	DefaultEvidenceMode     *datatypes.EvidenceMode     `json:"defaultEvidenceMode"`
}

func (p settingsPatch) apply(s *datatypes.AppSettings) {
	if p.Pro != nil {
		s.Pro = *p.Pro
	}
	if p.HapticsEnabled != nil {
		s.HapticsEnabled = *p.HapticsEnabled
	}
	if p.ReduceMotion != nil {
		s.ReduceMotion = *p.ReduceMotion
	}
	if p.DesignPreset != nil {
		s.DesignPreset = *p.DesignPreset
	}
	if p.DefaultCommentatorStyle != nil {
		s.DefaultCommentatorStyle = *p.DefaultCommentatorStyle
	}
	if p.DefaultEvidenceMode != nil {
		s.DefaultEvidenceMode = *p.DefaultEvidenceMode
	}
}

// HandlePatchSettings applies a partial settings update and returns the
// resulting settings.
func HandlePatchSettings(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandlePatchSettings")
		defer span.End()

		var patch settingsPatch
		if err := c.BindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		settings, err := core.UpdateSettings(ctx, patch.apply)
		if err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// HandleGetDraft returns the saved draft, or 404 when none exists or the
// resident draft has aged past its TTL.
func HandleGetDraft(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleGetDraft")
		defer span.End()

		draft, err := core.LoadDraft(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		if draft == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no draft"})
			return
		}
		c.JSON(http.StatusOK, draft)
	}
}

// HandlePutDraft overwrites the draft slot wholesale. SavedAt is stamped
// server-side.
func HandlePutDraft(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandlePutDraft")
		defer span.End()

		var draft datatypes.DraftData
		if err := c.BindJSON(&draft); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := core.SaveDraft(ctx, draft); err != nil {
			span.RecordError(err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"saved": true})
	}
}

// HandleDeleteDraft discards the draft. Deleting an absent draft is fine.
func HandleDeleteDraft(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := gatewayTracer.Start(c.Request.Context(), "HandleDeleteDraft")
		defer span.End()

		if err := core.ClearDraft(ctx); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}
