// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists the app's bounded collections and singleton slots
// on Badger. Each collection lives under a single key as a version
// envelope wrapping a JSON array; every mutation is a full
// read-modify-write of that one value inside one transaction, which is
// what makes the capacity cap hold after every operation rather than
// eventually.
//
// Reads are corruption-tolerant: a value that cannot be decoded (or
// migrated) is moved aside under a quarantine key and the caller receives
// the declared default. Infrastructure failures (a closed or failing DB)
// are still returned as errors — only data-shape problems are absorbed.
//
// Thread Safety: collections and slots are safe for concurrent use, but
// concurrent writers race at the value level (last write wins). Callers
// are expected to serialize mutations; the Core façade does.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// MigrateHook brings a stored payload up to the collection's current data
// version. declared is the version asserted by the stored envelope, zero
// when the value was bare. Returning an error marks the payload
// unrecoverable; the store quarantines it.
type MigrateHook func(ctx context.Context, declared int, payload json.RawMessage) (json.RawMessage, []string, error)

var (
	// ErrNilDB is returned when a collection or slot is built without a
	// database handle.
	ErrNilDB = errors.New("store: nil database handle")

	// ErrBadConfig wraps collection and slot configuration failures.
	ErrBadConfig = errors.New("store: invalid configuration")
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_store_reads_total",
		Help: "Collection and slot reads by outcome",
	}, []string{"collection", "outcome"})

	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_store_writes_total",
		Help: "Collection and slot writes by operation",
	}, []string{"collection", "op"})

	quarantinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_store_quarantined_total",
		Help: "Values moved aside because they could not be decoded",
	}, []string{"collection"})

	collectionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "verdict_store_collection_size",
		Help: "Items currently held per collection",
	}, []string{"collection"})
)

var storeTracer = otel.Tracer("verdict.store")

// -----------------------------------------------------------------------------
// Keys
// -----------------------------------------------------------------------------

// collectionKey is the single key a collection or slot lives under.
func collectionKey(name string) []byte {
	return []byte("collection:" + name)
}

// quarantineKey is where an undecodable value is moved. The timestamp
// suffix keeps successive quarantines of the same collection distinct.
func quarantineKey(name string, unixMs int64) []byte {
	return fmt.Appendf(nil, "quarantine:%s:%d", name, unixMs)
}

// -----------------------------------------------------------------------------
// Envelope handling
// -----------------------------------------------------------------------------

// decodeOutcome classifies what a raw stored value turned out to be.
type decodeOutcome int

const (
	outcomeCurrent  decodeOutcome = iota // envelope at the expected version
	outcomeMigrated                      // hook ran; payload was upgraded
	outcomeCorrupt                       // unrecoverable; quarantine it
)

// decodePayload unwraps a stored value down to its current-version payload.
// It accepts three shapes: an envelope at the expected version (fast path),
// an envelope at an older version, and a bare legacy value; the latter two
// go through the migration hook. A nil hook means the schema never changed,
// so anything but an exact-version envelope is corrupt.
func decodePayload(ctx context.Context, raw []byte, version int, hook MigrateHook) (payload json.RawMessage, warnings []string, outcome decodeOutcome, reason error) {
	var vd datatypes.VersionedData
	if err := json.Unmarshal(raw, &vd); err == nil && vd.Version > 0 && len(vd.Data) > 0 {
		if vd.Version == version {
			return vd.Data, nil, outcomeCurrent, nil
		}
		if hook == nil {
			return nil, nil, outcomeCorrupt, fmt.Errorf("envelope version %d with no migration hook", vd.Version)
		}
		upgraded, w, err := hook(ctx, vd.Version, vd.Data)
		if err != nil {
			return nil, nil, outcomeCorrupt, err
		}
		return upgraded, w, outcomeMigrated, nil
	}

	// Bare legacy value written before envelopes existed.
	if hook == nil {
		return nil, nil, outcomeCorrupt, errors.New("value is not a version envelope")
	}
	upgraded, w, err := hook(ctx, 0, raw)
	if err != nil {
		return nil, nil, outcomeCorrupt, err
	}
	return upgraded, w, outcomeMigrated, nil
}

// encodeEnvelope wraps a payload for writing. migratedAt is non-nil only on
// migration write-backs.
func encodeEnvelope(version int, payload json.RawMessage, migratedAt *int64) ([]byte, error) {
	return json.Marshal(datatypes.VersionedData{
		Version:    version,
		Data:       payload,
		MigratedAt: migratedAt,
	})
}

// quarantine moves an undecodable value aside inside txn. The primary key
// is deleted so the next read starts clean. log is expected to be scoped
// to the collection already.
func quarantine(txn *badger.Txn, name string, key []byte, raw []byte, unixMs int64, log *slog.Logger, reason error) error {
	if err := txn.Set(quarantineKey(name, unixMs), raw); err != nil {
		return fmt.Errorf("quarantining %s: %w", name, err)
	}
	if err := txn.Delete(key); err != nil {
		return fmt.Errorf("clearing quarantined %s: %w", name, err)
	}
	quarantinedTotal.WithLabelValues(name).Inc()
	log.Warn("quarantined undecodable value",
		slog.Int("bytes", len(raw)),
		slog.String("reason", reason.Error()))
	return nil
}

// logWarnings surfaces migration breadcrumbs without alarming anyone.
func logWarnings(log *slog.Logger, warnings []string) {
	for _, w := range warnings {
		log.Debug("migration note", slog.String("note", w))
	}
}
