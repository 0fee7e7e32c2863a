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

// SlotConfig configures one singleton slot (settings, draft, insights).
type SlotConfig[T any] struct {
	Name        string
	DataVersion int

	// Migrate upgrades older or bare stored payloads; nil accepts only
	// exact-version envelopes.
	Migrate MigrateHook

	// Default produces the value returned when the slot is missing or
	// quarantined. Nil means the zero value.
	Default func() T

	Clock  clock.Clock
	Logger *slog.Logger
}

// Validate checks the required fields.
func (c *SlotConfig[T]) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: slot name required", ErrBadConfig)
	}
	if c.DataVersion <= 0 {
		return fmt.Errorf("%w: slot %q needs a positive data version", ErrBadConfig, c.Name)
	}
	return nil
}

// Slot is a single persisted value under one key.
type Slot[T any] struct {
	db      *badgerstore.DB
	name    string
	key     []byte
	version int
	hook    MigrateHook
	def     func() T
	clock   clock.Clock
	log     *slog.Logger
}

// NewSlot builds a slot over an open database.
func NewSlot[T any](db *badgerstore.DB, cfg SlotConfig[T]) (*Slot[T], error) {
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
	if cfg.Default == nil {
		cfg.Default = func() T { var zero T; return zero }
	}
	return &Slot[T]{
		db:      db,
		name:    cfg.Name,
		key:     collectionKey(cfg.Name),
		version: cfg.DataVersion,
		hook:    cfg.Migrate,
		def:     cfg.Default,
		clock:   cfg.Clock,
		log:     cfg.Logger.With(slog.String("collection", cfg.Name)),
	}, nil
}

// Name returns the slot's logical key.
func (s *Slot[T]) Name() string { return s.name }

// Get returns the stored value. found is false when the slot is missing or
// its value had to be quarantined; the default is returned in both cases.
// Migrated values are written back so the upgrade happens once.
func (s *Slot[T]) Get(ctx context.Context) (value T, found bool, err error) {
	ctx, span := storeTracer.Start(ctx, "store.get", trace.WithAttributes(
		attribute.String("collection", s.name)))
	defer span.End()

	var raw []byte
	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.name, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return s.def(), false, err
	}
	if raw == nil {
		readsTotal.WithLabelValues(s.name, "empty").Inc()
		return s.def(), false, nil
	}

	payload, warnings, outcome, reason := decodePayload(ctx, raw, s.version, s.hook)
	if outcome != outcomeCorrupt {
		var v T
		if derr := json.Unmarshal(payload, &v); derr != nil {
			outcome = outcomeCorrupt
			reason = fmt.Errorf("decoding %s value: %w", s.name, derr)
		} else {
			logWarnings(s.log, warnings)
			if outcome == outcomeMigrated {
				readsTotal.WithLabelValues(s.name, "migrated").Inc()
				if werr := s.writeBack(ctx, payload); werr != nil {
					s.log.Error("migration write-back failed", slog.Any("error", werr))
				}
			} else {
				readsTotal.WithLabelValues(s.name, "ok").Inc()
			}
			return v, true, nil
		}
	}

	readsTotal.WithLabelValues(s.name, "corrupt").Inc()
	span.SetAttributes(attribute.Bool("quarantined", true))
	qerr := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return quarantine(txn, s.name, s.key, raw, s.clock.NowMs(), s.log, reason)
	})
	if qerr != nil {
		s.log.Error("quarantine failed", slog.Any("error", qerr))
	}
	return s.def(), false, nil
}

// Put overwrites the slot wholesale.
func (s *Slot[T]) Put(ctx context.Context, value T) error {
	ctx, span := storeTracer.Start(ctx, "store.put", trace.WithAttributes(
		attribute.String("collection", s.name)))
	defer span.End()

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.name, err)
	}
	enveloped, err := encodeEnvelope(s.version, payload, nil)
	if err != nil {
		return fmt.Errorf("enveloping %s: %w", s.name, err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(s.key, enveloped); err != nil {
			return fmt.Errorf("writing %s: %w", s.name, err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return err
	}
	writesTotal.WithLabelValues(s.name, "put").Inc()
	return nil
}

// Clear removes the slot. Idempotent on an already-empty slot.
func (s *Slot[T]) Clear(ctx context.Context) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(s.key); err != nil {
			return fmt.Errorf("clearing %s: %w", s.name, err)
		}
		writesTotal.WithLabelValues(s.name, "clear").Inc()
		return nil
	})
}

// writeBack persists a migrated payload stamped with MigratedAt.
func (s *Slot[T]) writeBack(ctx context.Context, payload json.RawMessage) error {
	now := s.clock.NowMs()
	value, err := encodeEnvelope(s.version, payload, &now)
	if err != nil {
		return fmt.Errorf("enveloping %s: %w", s.name, err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(s.key, value); err != nil {
			return fmt.Errorf("writing back %s: %w", s.name, err)
		}
		writesTotal.WithLabelValues(s.name, "writeback").Inc()
		return nil
	})
}
