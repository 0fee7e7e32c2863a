// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package draft autosaves the in-progress, not-yet-submitted dispute input.
//
// One slot, overwritten wholesale on every save. Expiry is enforced at read
// time: a load that finds a draft older than the TTL deletes it and reports
// no draft. There is no background sweep.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

// DefaultTTL is how long a saved draft stays loadable.
const DefaultTTL = 24 * time.Hour

// ErrNilSlot indicates the manager was built without a storage slot.
var ErrNilSlot = errors.New("draft manager requires a slot")

var expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "verdict_draft_expired_total",
	Help: "Drafts evicted at read time after exceeding their TTL.",
})

// Config assembles a Manager. Zero values select the shipped defaults.
type Config struct {
	// TTL is the draft lifetime measured from SavedAt. 0 selects DefaultTTL.
	TTL time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Manager owns the draft slot and its read-time expiry.
type Manager struct {
	slot  *store.Slot[datatypes.DraftData]
	ttl   time.Duration
	clock clock.Clock
	log   *slog.Logger
}

// New builds a manager over an existing slot.
func New(slot *store.Slot[datatypes.DraftData], cfg Config) (*Manager, error) {
	if slot == nil {
		return nil, ErrNilSlot
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		slot:  slot,
		ttl:   cfg.TTL,
		clock: cfg.Clock,
		log:   cfg.Logger.With(slog.String("component", "draft")),
	}, nil
}

// TTL returns the configured draft lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Save overwrites any prior draft wholesale and stamps SavedAt. There is
// no field-level merge: what is saved is exactly what loads back.
func (m *Manager) Save(ctx context.Context, d datatypes.DraftData) error {
	d.SavedAt = m.clock.NowMs()
	if err := m.slot.Put(ctx, d); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Load returns the current draft, or nil when none exists. A draft past
// its TTL is deleted as a side effect of the read and nil is returned.
func (m *Manager) Load(ctx context.Context) (*datatypes.DraftData, error) {
	d, found, err := m.slot.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	if !found {
		return nil, nil
	}

	if age := m.clock.NowMs() - d.SavedAt; age > m.ttl.Milliseconds() {
		expiredTotal.Inc()
		m.log.Debug("expired draft evicted",
			slog.Int64("saved_at_ms", d.SavedAt),
			slog.Duration("age", time.Duration(age)*time.Millisecond))
		if err := m.slot.Clear(ctx); err != nil {
			return nil, fmt.Errorf("evicting expired draft: %w", err)
		}
		return nil, nil
	}
	return &d, nil
}

// Clear removes the draft unconditionally. Clearing an empty slot is not
// an error.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.slot.Clear(ctx); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}
