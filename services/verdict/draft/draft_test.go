// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/store"
)

func newManager(t *testing.T, ttl time.Duration) (*Manager, *store.Slot[datatypes.DraftData], *clock.Manual) {
	t.Helper()
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	manual := clock.NewManual(time.Unix(1756400000, 0))
	slot, err := store.NewSlot(db, store.SlotConfig[datatypes.DraftData]{
		Name:        "draft",
		DataVersion: 1,
		Clock:       manual,
	})
	require.NoError(t, err)

	m, err := New(slot, Config{TTL: ttl, Clock: manual})
	require.NoError(t, err)
	return m, slot, manual
}

func sampleDraft() datatypes.DraftData {
	return datatypes.DraftData{
		Sides: []datatypes.Side{
			{ID: "side_1", Label: "A", Content: "half-typed position"},
		},
		CommentatorStyle: datatypes.StyleDirect,
		EvidenceMode:     datatypes.EvidenceLight,
		Context:          "work dispute",
	}
}

func TestSaveStampsAndLoadReturns(t *testing.T) {
	ctx := context.Background()
	m, _, manual := newManager(t, 0)
	assert.Equal(t, DefaultTTL, m.TTL())

	require.NoError(t, m.Save(ctx, sampleDraft()))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, manual.NowMs(), got.SavedAt)
	assert.Equal(t, "work dispute", got.Context)
}

func TestSaveOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, 0)

	require.NoError(t, m.Save(ctx, sampleDraft()))

	second := datatypes.DraftData{
		Sides:            []datatypes.Side{{ID: "side_9", Label: "Z", Content: "new"}},
		CommentatorStyle: datatypes.StyleBrutal,
		EvidenceMode:     datatypes.EvidenceStrict,
	}
	require.NoError(t, m.Save(ctx, second))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Context, "no field-level merge: the old context is gone")
	assert.Equal(t, datatypes.StyleBrutal, got.CommentatorStyle)
	require.Len(t, got.Sides, 1)
	assert.Equal(t, "side_9", got.Sides[0].ID)
}

func TestExpiryAtReadTime(t *testing.T) {
	ctx := context.Background()
	m, slot, manual := newManager(t, 0)

	require.NoError(t, m.Save(ctx, sampleDraft()))

	t.Run("23h old survives", func(t *testing.T) {
		manual.Advance(23 * time.Hour)
		got, err := m.Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("25h old expires and is deleted", func(t *testing.T) {
		manual.Advance(2 * time.Hour)
		got, err := m.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		// The eviction is a side effect of the read, not a lazy view.
		_, found, err := slot.Get(ctx)
		require.NoError(t, err)
		assert.False(t, found, "expired draft must be gone from the slot")
	})
}

func TestLoadEmpty(t *testing.T) {
	m, _, _ := newManager(t, 0)
	got, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, 0)

	require.NoError(t, m.Clear(ctx), "clearing an empty slot succeeds")
	require.NoError(t, m.Save(ctx, sampleDraft()))
	require.NoError(t, m.Clear(ctx))
	require.NoError(t, m.Clear(ctx))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCustomTTL(t *testing.T) {
	ctx := context.Background()
	m, _, manual := newManager(t, time.Minute)

	require.NoError(t, m.Save(ctx, sampleDraft()))
	manual.Advance(2 * time.Minute)

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
