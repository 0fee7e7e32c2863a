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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/clock"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/migrate"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
)

func newSettingsSlot(t *testing.T, db *badgerstore.DB) *Slot[datatypes.AppSettings] {
	t.Helper()
	s, err := NewSlot(db, SlotConfig[datatypes.AppSettings]{
		Name:        "settings",
		DataVersion: migrate.CurrentDataVersion,
		Migrate:     migrate.UpgradeSettings,
		Default:     datatypes.DefaultSettings,
		Clock:       clock.NewManual(time.Unix(1700000000, 0)),
	})
	require.NoError(t, err)
	return s
}

func TestSlotMissingReturnsDefault(t *testing.T) {
	s := newSettingsSlot(t, openStore(t))

	got, found, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, datatypes.DefaultSettings(), got)
}

func TestSlotPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSettingsSlot(t, openStore(t))

	want := datatypes.DefaultSettings()
	want.AnalysesThisWeek = 4
	want.Pro = true
	require.NoError(t, s.Put(ctx, want))

	got, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestSlotClearIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSettingsSlot(t, openStore(t))

	require.NoError(t, s.Put(ctx, datatypes.DefaultSettings()))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	_, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSlotQuarantinesCorruptValue(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	s := newSettingsSlot(t, db)

	setRaw(t, db, "settings", []byte("~~garbage~~"))

	got, found, err := s.Get(ctx)
	require.NoError(t, err, "corruption must never surface as a read error")
	assert.False(t, found)
	assert.Equal(t, datatypes.DefaultSettings(), got)
	assert.Equal(t, 1, quarantineCount(t, db, "settings"))

	// Primary key cleared; second read is a plain miss.
	_, found, err = s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, quarantineCount(t, db, "settings"))
}

func TestSlotMigratesBareLegacySettings(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	s := newSettingsSlot(t, db)

	// Bare v1 settings with stringly-typed fields from an old build.
	setRaw(t, db, "settings", []byte(`{
		"analysesThisWeek": "3",
		"weekStartTimestamp": 1690000000000,
		"pro": 0,
		"hapticsEnabled": true,
		"reduceMotion": false
	}`))

	got, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got.AnalysesThisWeek)
	assert.False(t, got.Pro)
	assert.Equal(t, datatypes.DefaultDesignPreset, got.DesignPreset)

	var vd datatypes.VersionedData
	require.NoError(t, json.Unmarshal(getRaw(t, db, "settings"), &vd))
	assert.Equal(t, migrate.CurrentDataVersion, vd.Version)
	assert.NotNil(t, vd.MigratedAt)
}

func TestSlotRejectsEnvelopeWithoutHook(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)

	s, err := NewSlot(db, SlotConfig[entry]{
		Name:        "plain",
		DataVersion: 2,
	})
	require.NoError(t, err)

	// An old-version envelope with no hook to upgrade it is unrecoverable.
	setRaw(t, db, "plain", []byte(`{"version": 1, "data": {"id": "x"}}`))

	got, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, entry{}, got)
	assert.Equal(t, 1, quarantineCount(t, db, "plain"))
}
