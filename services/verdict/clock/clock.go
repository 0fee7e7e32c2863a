// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clock abstracts wall-clock access for the time-window components
// (quota tracker, draft TTL) so tests can steer time deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time to window/TTL logic.
//
// Thread Safety: implementations must be safe for concurrent use.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// NowMs returns the current time as epoch milliseconds, the unit all
	// persisted timestamps use.
	NowMs() int64
}

// systemClock reads the real wall clock.
type systemClock struct{}

// System returns the real wall clock.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }

// Manual is a hand-steered clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock frozen at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NowMs() int64 {
	return m.Now().UnixMilli()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set jumps the clock to t. Backward jumps are allowed; the consumers are
// expected to treat them as clock skew.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// ToTime converts persisted epoch milliseconds back to a time.Time in the
// local zone, the zone all week-window math is defined in.
func ToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
