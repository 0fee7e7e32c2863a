// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// End-to-end flow over a persistent store: analyze, reopen the store,
// export to a file, and import the file into a fresh store.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
)

// openCore opens a persistent store. The returned close func must run
// before the same directory is opened again (Badger is single-writer).
func openCore(t *testing.T, dir string) (*core.Core, func()) {
	t.Helper()
	cfg := badgerstore.DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = 0
	db, err := badgerstore.OpenDB(cfg)
	require.NoError(t, err)

	c, err := core.New(db, core.Config{})
	require.NoError(t, err)
	return c, func() {
		c.Close()
		_ = db.Close()
	}
}

func sampleInput() datatypes.AnalysisInput {
	return datatypes.AnalysisInput{
		Sides: []datatypes.Side{
			{Label: "Jordan", Content: "The invoice I attached shows the agreed rate. The data supports my hours."},
			{Label: "Casey", Content: "You NEVER finish on time!! Everyone knows this is obviously your fault!!!"},
		},
		CommentatorStyle: datatypes.StyleMediator,
		EvidenceMode:     datatypes.EvidenceStrict,
	}
}

func TestAnalyzeSurvivesReopenThenRoundTrips(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Set RUN_INTEGRATION_TESTS=1 to run this test")
	}

	ctx := context.Background()
	dataDir := filepath.Join(t.TempDir(), "data")
	exportPath := filepath.Join(t.TempDir(), "export.json")

	// Analyze against a persistent store.
	c, closeStore := openCore(t, dataDir)
	result, err := c.Analyze(ctx, sampleInput())
	require.NoError(t, err)
	analysisID := result.ID
	require.NoError(t, c.RenameAnalysis(ctx, analysisID, "Invoice dispute"))
	closeStore()

	// Reopen: the record and its title survived the restart.
	c, closeStore = openCore(t, dataDir)
	got, err := c.GetAnalysis(ctx, analysisID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice dispute", got.Title)

	stats, err := c.ExportToFile(ctx, exportPath)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.FileExists(t, exportPath)
	closeStore()

	// Import the file into a fresh store.
	fresh, closeFresh := openCore(t, filepath.Join(t.TempDir(), "fresh"))
	defer closeFresh()

	payload, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	imported, err := fresh.Import(ctx, payload, porting.ModeReplace)
	require.NoError(t, err)
	assert.True(t, imported.Success)
	assert.Equal(t, 1, imported.Imported)

	roundTripped, err := fresh.GetAnalysis(ctx, analysisID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice dispute", roundTripped.Title)
	assert.Len(t, roundTripped.SideAnalyses, 2)
}
