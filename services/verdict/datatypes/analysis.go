// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the wire-level data structures for the verdict
// core: dispute inputs, per-side analyses, persisted results, templates,
// settings, drafts, and the versioned storage envelope.
//
// All types marshal to the camelCase JSON field names used by every app
// version to date, so exports produced by older builds round-trip unchanged.
package datatypes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MinSides and MaxSides bound how many parties a dispute may have.
	MinSides = 2
	MaxSides = 5

	// MaxSideContentBytes is the maximum size of one side's position text.
	// Checked in bytes, not runes, to bound memory for pathological input.
	MaxSideContentBytes = 16 * 1024 // 16KB

	// MaxContextBytes bounds the optional shared-context field.
	MaxContextBytes = 8 * 1024 // 8KB

	// AnalysisIDPrefix and SideIDPrefix are the canonical identifier
	// prefixes at the current schema version. Prefix-less ids written by
	// legacy versions are rewritten by the v2→v3 migration.
	AnalysisIDPrefix = "analysis_"
	SideIDPrefix     = "side_"
)

// CommentatorStyle is one of the seven enumerated verdict tones.
type CommentatorStyle string

const (
	StyleNeutral    CommentatorStyle = "neutral"
	StyleDirect     CommentatorStyle = "direct"
	StyleMediator   CommentatorStyle = "mediator"
	StyleAnalytical CommentatorStyle = "analytical"
	StyleEmpathetic CommentatorStyle = "empathetic"
	StyleHumorous   CommentatorStyle = "humorous"
	StyleBrutal     CommentatorStyle = "brutal"
)

// AllCommentatorStyles lists every valid style, in display order.
var AllCommentatorStyles = []CommentatorStyle{
	StyleNeutral,
	StyleDirect,
	StyleMediator,
	StyleAnalytical,
	StyleEmpathetic,
	StyleHumorous,
	StyleBrutal,
}

// Valid reports whether s is one of the seven enumerated styles.
func (s CommentatorStyle) Valid() bool {
	for _, known := range AllCommentatorStyles {
		if s == known {
			return true
		}
	}
	return false
}

// EvidenceMode selects how tolerant the analysis is of unsupported claims.
type EvidenceMode string

const (
	// EvidenceLight tolerates assumptions without flagging them.
	EvidenceLight EvidenceMode = "light"

	// EvidenceStrict additionally yields flaggedAssumptions per side.
	EvidenceStrict EvidenceMode = "strict"
)

// Valid reports whether m is a known evidence mode.
func (m EvidenceMode) Valid() bool {
	return m == EvidenceLight || m == EvidenceStrict
}

// =============================================================================
// Validation Errors
// =============================================================================

var (
	// ErrInvalidInput is returned when an AnalysisInput fails validation.
	ErrInvalidInput = errors.New("invalid analysis input")

	// ErrResultShape is returned when an AnalysisResult violates the
	// side-alignment invariant.
	ErrResultShape = errors.New("analysis result shape invariant violated")
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// inputValidate is the validator instance for verdict datatypes.
// Initialized in init() with custom size validators.
var inputValidate *validator.Validate

func init() {
	inputValidate = validator.New()

	_ = inputValidate.RegisterValidation("sidebytes", validateSideBytes)
	_ = inputValidate.RegisterValidation("contextbytes", validateContextBytes)
}

// validateSideBytes enforces MaxSideContentBytes on a string field.
func validateSideBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxSideContentBytes
}

// validateContextBytes enforces MaxContextBytes on a string field.
func validateContextBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContextBytes
}

// =============================================================================
// Input Types
// =============================================================================

// Side is one party's position in a dispute.
type Side struct {
	// ID carries the canonical "side_" prefix at the current schema.
	ID string `json:"id" validate:"required"`

	// Label is a short display name ("Alex", "Landlord").
	Label string `json:"label" validate:"required,max=80"`

	// Content is the party's free-text position statement.
	Content string `json:"content" validate:"required,sidebytes"`
}

// AnalysisInput is the full dispute submission handed to the engine.
type AnalysisInput struct {
	Sides            []Side           `json:"sides" validate:"required,min=2,max=5,dive"`
	CommentatorStyle CommentatorStyle `json:"commentatorStyle" validate:"required,oneof=neutral direct mediator analytical empathetic humorous brutal"`
	EvidenceMode     EvidenceMode     `json:"evidenceMode" validate:"required,oneof=light strict"`
	Context          string           `json:"context,omitempty" validate:"contextbytes"`
}

// Validate checks the input against the documented constraints: 2–5 sides,
// each with a label and bounded content, a known commentator style, and a
// known evidence mode. Side ids are minted by the caller when absent, so an
// empty id here is rejected.
func (in *AnalysisInput) Validate() error {
	if err := inputValidate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	return nil
}

// EnsureSideIDs mints a canonical id for every side that lacks one.
// Existing ids are left untouched.
func (in *AnalysisInput) EnsureSideIDs() {
	for i := range in.Sides {
		if in.Sides[i].ID == "" {
			in.Sides[i].ID = NewSideID()
		}
	}
}

// describeValidation flattens a validator error into one readable sentence.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("field %q fails %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// Output Types
// =============================================================================

// SideScores holds the five scoring dimensions, each a real in [0,10]
// rounded to one decimal place.
type SideScores struct {
	Clarity             float64 `json:"clarity"`
	EvidenceQuality     float64 `json:"evidenceQuality"`
	LogicalConsistency  float64 `json:"logicalConsistency"`
	EmotionalEscalation float64 `json:"emotionalEscalation"`
	Fairness            float64 `json:"fairness"`
}

// Composite is the winner-determination scalar: the four positive
// dimensions minus a half-weighted emotional-escalation penalty.
func (s SideScores) Composite() float64 {
	return s.Clarity + s.EvidenceQuality + s.LogicalConsistency + s.Fairness - 0.5*s.EmotionalEscalation
}

// SideAnalysis is the engine's per-side output.
//
// FlaggedAssumptions is populated only in strict evidence mode; in light
// mode the field is absent from the JSON form.
type SideAnalysis struct {
	SideID              string     `json:"sideId"`
	Label               string     `json:"label"`
	Summary             string     `json:"summary"`
	Claims              []string   `json:"claims"`
	EvidenceProvided    []string   `json:"evidenceProvided"`
	EmotionalStatements []string   `json:"emotionalStatements"`
	LogicalStatements   []string   `json:"logicalStatements"`
	Scores              SideScores `json:"scores"`
	FlaggedAssumptions  []string   `json:"flaggedAssumptions,omitempty"`
}

// PatternOccurrence ties a detected pattern to one side, optionally with a
// representative quote from that side's content.
type PatternOccurrence struct {
	SideID string `json:"sideId"`
	Quote  string `json:"quote,omitempty"`
}

// PatternDetected is a rhetorical or structural observation referencing one
// or more sides.
type PatternDetected struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Occurrences []PatternOccurrence `json:"occurrences"`
}

// WinAnalysis is the win/lose half of the verdict. Nil winner pointers
// encode "no clear winner" (near-tie under the margin threshold).
type WinAnalysis struct {
	WinnerID    *string  `json:"winnerId"`
	WinnerLabel *string  `json:"winnerLabel"`
	Confidence  int      `json:"confidence"`
	Margin      float64  `json:"margin"`
	Reasoning   string   `json:"reasoning"`
	KeyFactors  []string `json:"keyFactors"`
}

// Clear reports whether the verdict named a winner.
func (w *WinAnalysis) Clear() bool {
	return w != nil && w.WinnerID != nil
}

// PeaceAnalysis is the reconciliation half of the verdict: always produced,
// independent of the win/lose computation, never scored.
type PeaceAnalysis struct {
	CommonGround []string `json:"commonGround"`
	Compromise   string   `json:"compromise"`
	StepsForward []string `json:"stepsForward"`
}

// AnalysisResult is the persisted unit of the verdict history.
//
// Invariant: len(SideAnalyses) == len(Input.Sides) and
// SideAnalyses[i].SideID == Input.Sides[i].ID. Validate enforces it.
type AnalysisResult struct {
	ID                 string            `json:"id"`
	CreatedAt          int64             `json:"createdAt"` // epoch ms
	Title              string            `json:"title,omitempty"`
	Input              AnalysisInput     `json:"input"`
	SideAnalyses       []SideAnalysis    `json:"sideAnalyses"`
	VerdictHeadline    string            `json:"verdictHeadline"`
	VerdictExplanation string            `json:"verdictExplanation"`
	WinAnalysis        *WinAnalysis      `json:"winAnalysis,omitempty"`
	PeaceAnalysis      *PeaceAnalysis    `json:"peaceAnalysis,omitempty"`
	OutcomeChangers    []string          `json:"outcomeChangers"`
	PatternsDetected   []PatternDetected `json:"patternsDetected"`
	Tags               []string          `json:"tags"`
	Takeaway           *string           `json:"takeaway"`
}

// Validate enforces the side-alignment invariant.
func (a *AnalysisResult) Validate() error {
	if len(a.SideAnalyses) != len(a.Input.Sides) {
		return fmt.Errorf("%w: %d side analyses for %d sides",
			ErrResultShape, len(a.SideAnalyses), len(a.Input.Sides))
	}
	for i, sa := range a.SideAnalyses {
		if sa.SideID != a.Input.Sides[i].ID {
			return fmt.Errorf("%w: sideAnalyses[%d].sideId %q != sides[%d].id %q",
				ErrResultShape, i, sa.SideID, i, a.Input.Sides[i].ID)
		}
	}
	return nil
}

// DisplayTitle returns the user-visible title: the explicit title when set,
// otherwise a "A vs B" composition of side labels.
func (a *AnalysisResult) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	labels := make([]string, 0, len(a.Input.Sides))
	for _, s := range a.Input.Sides {
		labels = append(labels, s.Label)
	}
	return strings.Join(labels, " vs ")
}

// =============================================================================
// Identifier Minting
// =============================================================================

// NewAnalysisID mints a canonical analysis identifier.
func NewAnalysisID() string {
	return AnalysisIDPrefix + uuid.NewString()
}

// NewSideID mints a canonical side identifier.
func NewSideID() string {
	return SideIDPrefix + uuid.NewString()
}
