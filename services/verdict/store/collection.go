// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
)

// errNoChange aborts a mutation without writing the collection back.
// Quarantine writes performed earlier in the transaction still commit.
var errNoChange = errors.New("no change")

// CollectionConfig configures one bounded collection.
type CollectionConfig[T any] struct {
	// Name is the logical key, e.g. "analyses".
	Name string

	// Cap is the maximum number of retained items. Enforced on every
	// write: inserts prepend then truncate the tail.
	Cap int

	// DataVersion is stamped on every written envelope and is the version
	// reads accept without migration.
	DataVersion int

	// Migrate upgrades older or bare stored payloads. Nil means the schema
	// never changed, so only exact-version envelopes are accepted.
	Migrate MigrateHook

	// IDOf extracts the stable identity used by Update/Delete/Find.
	IDOf func(T) string

	// Clock defaults to the system clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks the required fields.
func (c *CollectionConfig[T]) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: collection name required", ErrBadConfig)
	}
	if c.Cap <= 0 {
		return fmt.Errorf("%w: collection %q needs a positive cap, got %d", ErrBadConfig, c.Name, c.Cap)
	}
	if c.DataVersion <= 0 {
		return fmt.Errorf("%w: collection %q needs a positive data version", ErrBadConfig, c.Name)
	}
	if c.IDOf == nil {
		return fmt.Errorf("%w: collection %q needs an IDOf function", ErrBadConfig, c.Name)
	}
	return nil
}

// Collection is an insertion-ordered, capacity-bounded log persisted under
// a single key. Index 0 is always the most recent item.
type Collection[T any] struct {
	db      *badgerstore.DB
	name    string
	key     []byte
	cap     int
	version int
	hook    MigrateHook
	idOf    func(T) string
	clock   clock.Clock
	log     *slog.Logger
}

// NewCollection builds a collection over an open database.
func NewCollection[T any](db *badgerstore.DB, cfg CollectionConfig[T]) (*Collection[T], error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Collection[T]{
		db:      db,
		name:    cfg.Name,
		key:     collectionKey(cfg.Name),
		cap:     cfg.Cap,
		version: cfg.DataVersion,
		hook:    cfg.Migrate,
		idOf:    cfg.IDOf,
		clock:   cfg.Clock,
		log:     cfg.Logger.With(slog.String("collection", cfg.Name)),
	}, nil
}

// Name returns the collection's logical key.
func (c *Collection[T]) Name() string { return c.name }

// Cap returns the capacity limit.
func (c *Collection[T]) Cap() int { return c.cap }

// readResult is what came out of reading the collection's key. An
// infrastructure error is returned separately; corrupt captures data-shape
// failures the caller resolves by quarantining raw.
type readResult[T any] struct {
	items    []T
	missing  bool
	corrupt  error
	raw      []byte
	upgraded json.RawMessage
	warnings []string
}

// read fetches and decodes the stored value inside txn.
func (c *Collection[T]) read(ctx context.Context, txn *badger.Txn) (readResult[T], error) {
	item, err := txn.Get(c.key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return readResult[T]{missing: true}, nil
	}
	if err != nil {
		return readResult[T]{}, fmt.Errorf("reading %s: %w", c.name, err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return readResult[T]{}, fmt.Errorf("copying %s value: %w", c.name, err)
	}

	payload, warnings, outcome, reason := decodePayload(ctx, raw, c.version, c.hook)
	if outcome == outcomeCorrupt {
		return readResult[T]{corrupt: reason, raw: raw}, nil
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return readResult[T]{corrupt: fmt.Errorf("decoding %s items: %w", c.name, err), raw: raw}, nil
	}

	res := readResult[T]{items: items, warnings: warnings}
	if outcome == outcomeMigrated {
		res.upgraded = payload
	}
	return res, nil
}

// All returns every item, most recent first. A missing key yields an empty
// slice; an undecodable value is quarantined and also yields an empty
// slice. Migrated payloads are written back so the upgrade happens once.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	ctx, span := storeTracer.Start(ctx, "store.all", trace.WithAttributes(
		attribute.String("collection", c.name)))
	defer span.End()

	var res readResult[T]
	err := c.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		res, err = c.read(ctx, txn)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	switch {
	case res.missing:
		readsTotal.WithLabelValues(c.name, "empty").Inc()
		return []T{}, nil

	case res.corrupt != nil:
		readsTotal.WithLabelValues(c.name, "corrupt").Inc()
		span.SetAttributes(attribute.Bool("quarantined", true))
		if qerr := c.quarantineNow(ctx, res.raw, res.corrupt); qerr != nil {
			c.log.Error("quarantine failed", slog.Any("error", qerr))
		}
		return []T{}, nil

	default:
		logWarnings(c.log, res.warnings)
		if res.upgraded != nil {
			readsTotal.WithLabelValues(c.name, "migrated").Inc()
			if werr := c.writeBack(ctx, res.upgraded); werr != nil {
				// The read itself succeeded; the upgrade will re-run next time.
				c.log.Error("migration write-back failed", slog.Any("error", werr))
			}
		} else {
			readsTotal.WithLabelValues(c.name, "ok").Inc()
		}
		collectionSize.WithLabelValues(c.name).Set(float64(len(res.items)))
		return res.items, nil
	}
}

// Find returns the item with the given id.
func (c *Collection[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	items, err := c.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if c.idOf(item) == id {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// Insert prepends an item and truncates the tail beyond the cap, all in
// one transaction, so the capacity invariant holds after every operation.
func (c *Collection[T]) Insert(ctx context.Context, item T) error {
	return c.mutate(ctx, "insert", func(items []T) ([]T, error) {
		return append([]T{item}, items...), nil
	})
}

// Update applies fn to the item with the given id. Returns false without
// writing when the id is absent.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T)) (bool, error) {
	var found bool
	err := c.mutate(ctx, "update", func(items []T) ([]T, error) {
		for i := range items {
			if c.idOf(items[i]) == id {
				fn(&items[i])
				found = true
				return items, nil
			}
		}
		return nil, errNoChange
	})
	return found, err
}

// Delete removes the item with the given id. Returns false when absent.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := c.mutate(ctx, "delete", func(items []T) ([]T, error) {
		for i := range items {
			if c.idOf(items[i]) == id {
				found = true
				return append(items[:i:i], items[i+1:]...), nil
			}
		}
		return nil, errNoChange
	})
	return found, err
}

// Replace overwrites the whole collection, truncating to the cap.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	return c.mutate(ctx, "replace", func([]T) ([]T, error) {
		return items, nil
	})
}

// Clear removes the collection key. Idempotent.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(c.key); err != nil {
			return fmt.Errorf("clearing %s: %w", c.name, err)
		}
		writesTotal.WithLabelValues(c.name, "clear").Inc()
		collectionSize.WithLabelValues(c.name).Set(0)
		return nil
	})
}

// mutate runs one full read-modify-write cycle in a single transaction.
// A corrupt stored value is quarantined inside the same transaction and fn
// starts from an empty collection.
func (c *Collection[T]) mutate(ctx context.Context, op string, fn func(items []T) ([]T, error)) error {
	ctx, span := storeTracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("collection", c.name)))
	defer span.End()

	err := c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		res, err := c.read(ctx, txn)
		if err != nil {
			return err
		}
		items := res.items
		if res.corrupt != nil {
			if qerr := quarantine(txn, c.name, c.key, res.raw, c.clock.NowMs(), c.log, res.corrupt); qerr != nil {
				return qerr
			}
			items = nil
		}
		logWarnings(c.log, res.warnings)

		next, err := fn(items)
		if errors.Is(err, errNoChange) {
			// Commit anyway: a quarantine performed above must stick.
			return nil
		}
		if err != nil {
			return err
		}
		if len(next) > c.cap {
			next = next[:c.cap]
		}
		if next == nil {
			next = []T{}
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", c.name, err)
		}
		value, err := encodeEnvelope(c.version, payload, nil)
		if err != nil {
			return fmt.Errorf("enveloping %s: %w", c.name, err)
		}
		if err := txn.Set(c.key, value); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}

		writesTotal.WithLabelValues(c.name, op).Inc()
		collectionSize.WithLabelValues(c.name).Set(float64(len(next)))
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}
	return nil
}

// quarantineNow moves a corrupt value aside in its own transaction, for
// read paths that hold only a view transaction.
func (c *Collection[T]) quarantineNow(ctx context.Context, raw []byte, reason error) error {
	return c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return quarantine(txn, c.name, c.key, raw, c.clock.NowMs(), c.log, reason)
	})
}

// writeBack persists a migrated payload stamped with MigratedAt.
func (c *Collection[T]) writeBack(ctx context.Context, payload json.RawMessage) error {
	now := c.clock.NowMs()
	value, err := encodeEnvelope(c.version, payload, &now)
	if err != nil {
		return fmt.Errorf("enveloping %s: %w", c.name, err)
	}
	return c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(c.key, value); err != nil {
			return fmt.Errorf("writing back %s: %w", c.name, err)
		}
		writesTotal.WithLabelValues(c.name, "writeback").Inc()
		return nil
	})
}
