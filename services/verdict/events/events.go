// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events is the in-process change feed over the verdict store. The
// Core publishes one event after each successful mutation; surfaces
// subscribe to react without polling — the gateway relays the feed over a
// WebSocket.
//
// Publishing never blocks: a subscriber that stops draining its channel
// loses events (counted per subscriber), not the publisher. A ring of
// recent events is replayed to new subscribers so a reconnecting UI can
// catch up on what it missed.
package events

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Type names what changed.
type Type string

const (
	AnalysisSaved      Type = "analysis.saved"
	AnalysisDeleted    Type = "analysis.deleted"
	AnalysisRenamed    Type = "analysis.renamed"
	AnalysisDuplicated Type = "analysis.duplicated"
	AnalysisTakeaway   Type = "analysis.takeaway"
	SettingsUpdated    Type = "settings.updated"
	DraftSaved         Type = "draft.saved"
	DraftCleared       Type = "draft.cleared"
	TemplateSaved      Type = "template.saved"
	TemplateDeleted    Type = "template.deleted"
	ImportCompleted    Type = "import.completed"
)

// Event is one store change.
type Event struct {
	// Type names the change.
	Type Type `json:"type"`

	// ID is the affected record's id, empty for singleton slots and
	// whole-collection changes.
	ID string `json:"id,omitempty"`

	// At is when the change was published, epoch ms.
	At int64 `json:"at"`
}

// DefaultRingCapacity is how many recent events a hub replays to new
// subscribers.
const DefaultRingCapacity = 64

// DefaultSubscriberBuffer is the channel depth handed out when a
// subscriber asks for zero.
const DefaultSubscriberBuffer = 16

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_events_published_total",
		Help: "Events published by type",
	}, []string{"type"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_events_dropped_total",
		Help: "Events dropped because a subscriber's buffer was full",
	})

	subscriberGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verdict_events_subscribers",
		Help: "Active event subscribers",
	})
)

// Hub fans events out to subscribers.
//
// Thread Safety: safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	recent *Ring[Event]
	log    *slog.Logger
	closed bool
}

// NewHub builds a hub with the default replay ring.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[int]chan Event),
		recent: NewRing[Event](DefaultRingCapacity),
		log:    logger.With(slog.String("component", "events")),
	}
}

// Publish delivers ev to every subscriber without blocking. A subscriber
// whose buffer is full misses this event; the hub does not wait for it.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	h.recent.Push(ev)
	publishedTotal.WithLabelValues(string(ev.Type)).Inc()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			droppedTotal.Inc()
			h.log.Debug("event dropped, slow subscriber",
				slog.Int("subscriber", id),
				slog.String("type", string(ev.Type)))
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel func. buffer <= 0 selects DefaultSubscriberBuffer. The cancel
// func is idempotent and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		closed := make(chan Event)
		close(closed)
		return closed, func() {}
	}
	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	h.subs[id] = ch
	h.mu.Unlock()
	subscriberGauge.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
				subscriberGauge.Dec()
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Recent returns the replay ring's contents, oldest first. New WebSocket
// connections send this before streaming live events.
func (h *Hub) Recent() []Event {
	return h.recent.Snapshot()
}

// Close drops every subscriber and stops accepting publishes. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
		subscriberGauge.Dec()
	}
}
