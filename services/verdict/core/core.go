// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core is the application surface over the verdict subsystem. It
// owns the collections and slots, the computation engine, the quota
// tracker, the draft manager, the import/export porter, the insights
// service, and the events hub — and funnels every mutation through one
// mutex, the single serialization point the storage layer's
// read-modify-write discipline requires.
//
// Surfaces (HTTP gateway, CLI) consume only this package.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/draft"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/engine"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/events"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/insights"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/migrate"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/quota"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

const (
	// AnalysesCap bounds the verdict history.
	AnalysesCap = 100

	// TemplatesCap bounds the reusable input skeletons.
	TemplatesCap = 20
)

var (
	// ErrNotFound marks an id-addressed operation on an absent record.
	ErrNotFound = errors.New("record not found")

	// ErrQuotaExceeded re-exports the quota gate result so surfaces need
	// only this package for error mapping.
	ErrQuotaExceeded = quota.ErrQuotaExceeded
)

var coreTracer = otel.Tracer("verdict.core")

// Config assembles a Core. Zero values select the shipped defaults: the
// deterministic heuristic strategy, a 5-per-week free tier, and a 24h
// draft TTL.
type Config struct {
	// Strategy overrides the engine's scoring strategy.
	Strategy engine.ScoringStrategy

	// Tuning overrides the winner-determination constants.
	Tuning engine.Tuning

	// QuotaCap overrides the free-tier weekly allowance.
	QuotaCap int

	// DraftTTL overrides the draft lifetime.
	DraftTTL time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Core wires the verdict subsystem together behind the §6 surface.
type Core struct {
	mu sync.Mutex

	analyses  *store.Collection[datatypes.AnalysisResult]
	templates *store.Collection[datatypes.AnalysisTemplate]
	settings  *store.Slot[datatypes.AppSettings]

	engine   *engine.Engine
	tracker  *quota.Tracker
	drafts   *draft.Manager
	porter   *porting.Porter
	insights *insights.Service
	hub      *events.Hub

	clock clock.Clock
	log   *slog.Logger
}

// New builds a Core over an open database. The database stays owned by
// the caller; Close releases only what the Core created itself.
func New(db *badgerstore.DB, cfg Config) (*Core, error) {
	if db == nil {
		return nil, store.ErrNilDB
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger.With(slog.String("component", "core"))

	analyses, err := store.NewCollection(db, store.CollectionConfig[datatypes.AnalysisResult]{
		Name:        "analyses",
		Cap:         AnalysesCap,
		DataVersion: migrate.CurrentDataVersion,
		Migrate:     migrate.UpgradeAnalyses,
		IDOf:        func(a datatypes.AnalysisResult) string { return a.ID },
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	templates, err := store.NewCollection(db, store.CollectionConfig[datatypes.AnalysisTemplate]{
		Name:        "templates",
		Cap:         TemplatesCap,
		DataVersion: 1,
		IDOf:        func(t datatypes.AnalysisTemplate) string { return t.ID },
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	settings, err := store.NewSlot(db, store.SlotConfig[datatypes.AppSettings]{
		Name:        "settings",
		DataVersion: migrate.CurrentDataVersion,
		Migrate:     migrate.UpgradeSettings,
		Default:     datatypes.DefaultSettings,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	draftSlot, err := store.NewSlot(db, store.SlotConfig[datatypes.DraftData]{
		Name:        "draft",
		DataVersion: 1,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	insightsSlot, err := store.NewSlot(db, store.SlotConfig[datatypes.InsightsSnapshot]{
		Name:        "insights",
		DataVersion: 1,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Strategy: cfg.Strategy,
		Tuning:   cfg.Tuning,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	tracker, err := quota.New(quota.Config{
		Cap:    cfg.QuotaCap,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	drafts, err := draft.New(draftSlot, draft.Config{
		TTL:    cfg.DraftTTL,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	porter, err := porting.New(analyses, porting.Config{
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	insightsSvc, err := insights.New(analyses, insightsSlot, insights.Config{
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Core{
		analyses:  analyses,
		templates: templates,
		settings:  settings,
		engine:    eng,
		tracker:   tracker,
		drafts:    drafts,
		porter:    porter,
		insights:  insightsSvc,
		hub:       events.NewHub(cfg.Logger),
		clock:     cfg.Clock,
		log:       log,
	}, nil
}

// Close releases the events hub. The database is closed by its owner.
func (c *Core) Close() {
	c.hub.Close()
}

// Subscribe registers an event listener. See events.Hub.Subscribe.
func (c *Core) Subscribe(buffer int) (<-chan events.Event, func()) {
	return c.hub.Subscribe(buffer)
}

// RecentEvents returns the hub's replay ring, oldest first.
func (c *Core) RecentEvents() []events.Event {
	return c.hub.Recent()
}

// Quota returns the tracker for surfaces that render allowance state.
func (c *Core) Quota() *quota.Tracker { return c.tracker }

// Engine exposes the engine's identity for health/version endpoints.
func (c *Core) Engine() *engine.Engine { return c.engine }

// publish stamps and emits one event.
func (c *Core) publish(t events.Type, id string) {
	c.hub.Publish(events.Event{Type: t, ID: id, At: c.clock.NowMs()})
}

// -----------------------------------------------------------------------------
// Analyze
// -----------------------------------------------------------------------------

// Analyze runs the full submission sequence: quota gate, verdict
// computation, persistence, quota consumption, event. The quota is checked
// before the compute step and consumed only after the result is persisted,
// so a failed computation never costs an analysis.
func (c *Core) Analyze(ctx context.Context, input datatypes.AnalysisInput) (*datatypes.AnalysisResult, error) {
	ctx, span := coreTracer.Start(ctx, "core.analyze")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	settings, err := c.loadSettingsLocked(ctx)
	if err != nil {
		return nil, err
	}
	if !c.tracker.CanStart(settings) {
		span.SetStatus(codes.Error, "quota exceeded")
		return nil, fmt.Errorf("%w: %d of %d used this week",
			ErrQuotaExceeded, settings.AnalysesThisWeek, c.tracker.Cap())
	}

	result, err := c.engine.Analyze(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, err
	}

	if err := c.analyses.Insert(ctx, *result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	c.tracker.Consume(&settings)
	if err := c.settings.Put(ctx, settings); err != nil {
		// The analysis is persisted; a failed consume write-through only
		// under-counts this week's usage.
		c.log.Error("quota consume write failed", slog.Any("error", err))
	}

	c.publish(events.AnalysisSaved, result.ID)
	span.SetAttributes(attribute.String("id", result.ID))
	return result, nil
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

// LoadAnalyses returns the history, most recent first.
func (c *Core) LoadAnalyses(ctx context.Context) ([]datatypes.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyses.All(ctx)
}

// GetAnalysis returns one record by id.
func (c *Core) GetAnalysis(ctx context.Context, id string) (*datatypes.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, found, err := c.analyses.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: analysis %s", ErrNotFound, id)
	}
	return &a, nil
}

// SaveAnalysis prepends a result to the history. Used by surfaces that
// computed elsewhere; Analyze persists its own result.
func (c *Core) SaveAnalysis(ctx context.Context, a datatypes.AnalysisResult) error {
	if err := a.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.analyses.Insert(ctx, a); err != nil {
		return err
	}
	c.publish(events.AnalysisSaved, a.ID)
	return nil
}

// DeleteAnalysis removes one record by id.
func (c *Core) DeleteAnalysis(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found, err := c.analyses.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: analysis %s", ErrNotFound, id)
	}
	c.publish(events.AnalysisDeleted, id)
	return nil
}

// RenameAnalysis sets a record's display title.
func (c *Core) RenameAnalysis(ctx context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found, err := c.analyses.Update(ctx, id, func(a *datatypes.AnalysisResult) {
		a.Title = title
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: analysis %s", ErrNotFound, id)
	}
	c.publish(events.AnalysisRenamed, id)
	return nil
}

// SetTakeaway attaches the user's takeaway note to a record.
func (c *Core) SetTakeaway(ctx context.Context, id, takeaway string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found, err := c.analyses.Update(ctx, id, func(a *datatypes.AnalysisResult) {
		a.Takeaway = &takeaway
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: analysis %s", ErrNotFound, id)
	}
	c.publish(events.AnalysisTakeaway, id)
	return nil
}

// DuplicateAnalysis copies a record under a fresh id and the current
// timestamp. The copy becomes the most recent entry; the original is
// untouched.
func (c *Core) DuplicateAnalysis(ctx context.Context, id string) (*datatypes.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orig, found, err := c.analyses.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: analysis %s", ErrNotFound, id)
	}

	dup := orig
	dup.ID = datatypes.NewAnalysisID()
	dup.CreatedAt = c.clock.NowMs()
	dup.Title = orig.DisplayTitle() + " (copy)"
	if err := c.analyses.Insert(ctx, dup); err != nil {
		return nil, err
	}
	c.publish(events.AnalysisDuplicated, dup.ID)
	return &dup, nil
}

// -----------------------------------------------------------------------------
// Import / Export
// -----------------------------------------------------------------------------

// ExportAnalyses assembles the portable export document.
func (c *Core) ExportAnalyses(ctx context.Context) (datatypes.ExportDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.porter.BuildExport(ctx)
}

// ExportToFile writes the export document to path atomically.
func (c *Core) ExportToFile(ctx context.Context, path string) (porting.ExportStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.porter.WriteFile(ctx, path)
}

// Import validates and reconciles one export document. Implements
// porting.Importer so the inbox watcher can feed through the same mutex.
func (c *Core) Import(ctx context.Context, payload []byte, mode porting.Mode) (porting.ImportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.porter.Import(ctx, payload, mode)
	if err != nil {
		return result, err
	}
	if ierr := c.insights.Invalidate(ctx); ierr != nil {
		c.log.Warn("insights invalidation failed after import", slog.Any("error", ierr))
	}
	c.publish(events.ImportCompleted, "")
	return result, nil
}

// -----------------------------------------------------------------------------
// Settings / Quota
// -----------------------------------------------------------------------------

// LoadSettings returns the settings, lazily rolling the quota window. A
// stale window is reset and persisted before the settings are returned.
func (c *Core) LoadSettings(ctx context.Context) (datatypes.AppSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadSettingsLocked(ctx)
}

func (c *Core) loadSettingsLocked(ctx context.Context) (datatypes.AppSettings, error) {
	s, _, err := c.settings.Get(ctx)
	if err != nil {
		return datatypes.AppSettings{}, fmt.Errorf("loading settings: %w", err)
	}
	if c.tracker.EnsureCurrentWindow(&s) {
		if err := c.settings.Put(ctx, s); err != nil {
			return datatypes.AppSettings{}, fmt.Errorf("persisting quota window reset: %w", err)
		}
	}
	return s, nil
}

// UpdateSettings applies fn to the current settings and persists the
// result. The quota window is normalized before fn runs, so fn observes
// current-window state.
func (c *Core) UpdateSettings(ctx context.Context, fn func(*datatypes.AppSettings)) (datatypes.AppSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.loadSettingsLocked(ctx)
	if err != nil {
		return datatypes.AppSettings{}, err
	}
	fn(&s)
	if err := c.settings.Put(ctx, s); err != nil {
		return datatypes.AppSettings{}, fmt.Errorf("saving settings: %w", err)
	}
	c.publish(events.SettingsUpdated, "")
	return s, nil
}

// -----------------------------------------------------------------------------
// Draft
// -----------------------------------------------------------------------------

// SaveDraft overwrites the autosaved draft wholesale.
func (c *Core) SaveDraft(ctx context.Context, d datatypes.DraftData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.drafts.Save(ctx, d); err != nil {
		return err
	}
	c.publish(events.DraftSaved, "")
	return nil
}

// LoadDraft returns the autosaved draft, nil when absent or expired.
// Expiry is enforced here, at read time.
func (c *Core) LoadDraft(ctx context.Context) (*datatypes.DraftData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts.Load(ctx)
}

// ClearDraft discards the autosaved draft. Idempotent.
func (c *Core) ClearDraft(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.drafts.Clear(ctx); err != nil {
		return err
	}
	c.publish(events.DraftCleared, "")
	return nil
}

// -----------------------------------------------------------------------------
// Templates
// -----------------------------------------------------------------------------

// LoadTemplates returns the template collection, newest first.
func (c *Core) LoadTemplates(ctx context.Context) ([]datatypes.AnalysisTemplate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.templates.All(ctx)
}

// SaveTemplate prepends a template, minting its id and creation time when
// absent.
func (c *Core) SaveTemplate(ctx context.Context, t datatypes.AnalysisTemplate) (datatypes.AnalysisTemplate, error) {
	if t.ID == "" {
		t.ID = datatypes.NewTemplateID()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = c.clock.NowMs()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.templates.Insert(ctx, t); err != nil {
		return datatypes.AnalysisTemplate{}, err
	}
	c.publish(events.TemplateSaved, t.ID)
	return t, nil
}

// DeleteTemplate removes one template by id.
func (c *Core) DeleteTemplate(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found, err := c.templates.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: template %s", ErrNotFound, id)
	}
	c.publish(events.TemplateDeleted, id)
	return nil
}

// UseTemplate records one use (count and timestamp) and returns the
// updated template for the caller to expand into an input skeleton.
func (c *Core) UseTemplate(ctx context.Context, id string) (*datatypes.AnalysisTemplate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.NowMs()
	found, err := c.templates.Update(ctx, id, func(t *datatypes.AnalysisTemplate) {
		t.UseCount++
		t.LastUsedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: template %s", ErrNotFound, id)
	}
	t, _, err := c.templates.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	c.publish(events.TemplateSaved, id)
	return &t, nil
}

// -----------------------------------------------------------------------------
// Insights
// -----------------------------------------------------------------------------

// Insights returns the aggregate snapshot, cached when fresh.
func (c *Core) Insights(ctx context.Context) (datatypes.InsightsSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insights.Snapshot(ctx)
}
