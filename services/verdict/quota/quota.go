// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quota tracks the rolling 7-day free-tier analysis allowance.
//
// The window state lives inside the persisted AppSettings value
// (analysesThisWeek, weekStartTimestamp); the tracker normalizes and gates
// against that value without owning its storage. Resets are lazy: the next
// settings read after a week boundary rolls the window, there is no
// scheduled job.
package quota

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

const (
	// DefaultWeeklyCap is the free-tier allowance per ISO week.
	DefaultWeeklyCap = 5

	// DefaultSkewTolerance is how far in the future a persisted window
	// start may sit before it is treated as clock skew and reset.
	DefaultSkewTolerance = time.Hour

	// Unlimited is returned by Remaining for pro-tier settings.
	Unlimited = -1
)

var (
	// ErrQuotaExceeded is the gate result when the free tier is exhausted.
	// It is checked before the compute step, never raised by it.
	ErrQuotaExceeded = errors.New("weekly analysis quota exceeded")

	// ErrBadConfig indicates an invalid tracker configuration.
	ErrBadConfig = errors.New("invalid quota config")
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	windowResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_quota_window_resets_total",
		Help: "Quota window resets by reason (init, stale, skew).",
	}, []string{"reason"})

	denialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_quota_denials_total",
		Help: "Analysis starts denied by the weekly quota gate.",
	})
)

// WeekStart returns the most recent Monday 00:00:00 in now's location, at
// or before now. Sunday maps to the Monday six days prior (ISO weeks, not
// calendar weeks starting Sunday).
func WeekStart(now time.Time) time.Time {
	daysBack := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -daysBack)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
}

// Config assembles a Tracker. Zero values select the shipped defaults.
type Config struct {
	// Cap is the free-tier weekly allowance. 0 selects DefaultWeeklyCap.
	Cap int

	// SkewTolerance bounds how far in the future a persisted window start
	// may sit before the window is reset as clock skew.
	SkewTolerance time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Tracker normalizes and gates the quota window carried in AppSettings.
type Tracker struct {
	cap   int
	skew  time.Duration
	clock clock.Clock
	log   *slog.Logger
}

// New builds a tracker, applying defaults for unset config fields.
func New(cfg Config) (*Tracker, error) {
	if cfg.Cap < 0 {
		return nil, fmt.Errorf("%w: cap must not be negative, got %d", ErrBadConfig, cfg.Cap)
	}
	if cfg.Cap == 0 {
		cfg.Cap = DefaultWeeklyCap
	}
	if cfg.SkewTolerance <= 0 {
		cfg.SkewTolerance = DefaultSkewTolerance
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tracker{
		cap:   cfg.Cap,
		skew:  cfg.SkewTolerance,
		clock: cfg.Clock,
		log:   cfg.Logger.With(slog.String("component", "quota")),
	}, nil
}

// Cap returns the configured free-tier allowance.
func (t *Tracker) Cap() int { return t.cap }

// EnsureCurrentWindow normalizes the quota window in place and reports
// whether s changed. The caller persists any change before handing the
// settings out, so a reset is never observed un-persisted.
func (t *Tracker) EnsureCurrentWindow(s *datatypes.AppSettings) bool {
	now := t.clock.Now()
	current := WeekStart(now).UnixMilli()

	if s.WeekStartTimestamp > now.Add(t.skew).UnixMilli() {
		t.log.Warn("quota window starts in the future, resetting",
			slog.Int64("week_start_ms", s.WeekStartTimestamp),
			slog.Int64("now_ms", now.UnixMilli()))
		t.reset(s, current, "skew")
		return true
	}
	if s.WeekStartTimestamp < current {
		reason := "stale"
		if s.WeekStartTimestamp == 0 {
			reason = "init"
		}
		t.reset(s, current, reason)
		return true
	}
	return false
}

func (t *Tracker) reset(s *datatypes.AppSettings, windowStart int64, reason string) {
	s.AnalysesThisWeek = 0
	s.WeekStartTimestamp = windowStart
	windowResets.WithLabelValues(reason).Inc()
	t.log.Debug("quota window reset",
		slog.String("reason", reason),
		slog.Int64("week_start_ms", windowStart))
}

// CanStart reports whether a new analysis may begin under the current
// window. Pro settings bypass the cap unconditionally.
func (t *Tracker) CanStart(s datatypes.AppSettings) bool {
	if s.Pro {
		return true
	}
	if s.AnalysesThisWeek >= t.cap {
		denialsTotal.Inc()
		return false
	}
	return true
}

// Remaining returns how many analyses are left in this window, or
// Unlimited for pro settings. Never negative.
func (t *Tracker) Remaining(s datatypes.AppSettings) int {
	if s.Pro {
		return Unlimited
	}
	if left := t.cap - s.AnalysesThisWeek; left > 0 {
		return left
	}
	return 0
}

// Consume records one completed analysis. Usage is counted for pro
// settings too; pro only bypasses the gate, not the bookkeeping.
func (t *Tracker) Consume(s *datatypes.AppSettings) {
	s.AnalysesThisWeek++
}
