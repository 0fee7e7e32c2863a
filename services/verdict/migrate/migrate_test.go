// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package migrate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisV1 = `{
	"id": "7f3a",
	"createdAt": 1700000000000,
	"input": {
		"sides": [
			{"id": "a1", "label": "Alex", "content": "He never returned the deposit."},
			{"id": "b2", "label": "Jordan", "content": "The apartment was damaged."}
		],
		"commentatorStyle": "neutral",
		"evidenceMode": "light"
	},
	"sideAnalyses": [
		{"sideId": "a1", "summary": "Clear claim.", "strengths": [], "weaknesses": [], "scores": {}},
		{"sideId": "b2", "summary": "Counter claim.", "strengths": [], "weaknesses": [], "scores": {}}
	],
	"verdictHeadline": "Too close to call",
	"verdictExplanation": "Both sides raise fair points.",
	"outcomeChangers": [],
	"patternsDetected": [
		{"name": "Appeal Without Evidence", "description": "Claims lack support.", "occurrences": [{"sideId": "a1"}]}
	],
	"tags": []
}`

const analysisV2 = `{
	"id": "analysis_9c1b",
	"createdAt": 1710000000000,
	"input": {"sides": [
		{"id": "side_x", "label": "Sam", "content": "It was my turn."},
		{"id": "side_y", "label": "Riley", "content": "We agreed to alternate."}
	], "commentatorStyle": "direct", "evidenceMode": "strict"},
	"sideAnalyses": [
		{"sideId": "side_x", "summary": "s", "strengths": [], "weaknesses": [], "scores": {}},
		{"sideId": "side_y", "summary": "s", "strengths": [], "weaknesses": [], "scores": {}}
	],
	"verdictHeadline": "h",
	"verdictExplanation": "e",
	"outcomeChangers": [],
	"patternsDetected": [],
	"tags": [],
	"takeaway": null
}`

const settingsV1 = `{
	"analysesThisWeek": "3",
	"weekStartTimestamp": 1700000000000,
	"pro": 1,
	"hapticsEnabled": true,
	"reduceMotion": "false"
}`

func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"analysis without takeaway is v1", analysisV1, 1, nil},
		{"analysis with null takeaway is v2", analysisV2, 2, nil},
		{"analysis with populated takeaway is v2",
			`{"id":"x","createdAt":1,"sideAnalyses":[],"takeaway":"done"}`, 2, nil},
		{"settings without designPreset is v1", settingsV1, 1, nil},
		{"settings with designPreset is v2",
			`{"hapticsEnabled":true,"designPreset":"classic"}`, 2, nil},
		{"explicit version field wins",
			`{"version": 3, "hapticsEnabled": true}`, 3, nil},
		{"unknown shape is undetectable", `{"foo": 1}`, 0, ErrUndetectableVersion},
		{"array is malformed", `[1, 2]`, 0, ErrMalformedRecord},
		{"garbage is malformed", `{not json`, 0, ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectVersion(json.RawMessage(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFingerprintsAreIndependentlyMatchable(t *testing.T) {
	byName := make(map[string]Fingerprint)
	for _, fp := range Fingerprints() {
		byName[fp.Name] = fp
	}

	fields := func(raw string) map[string]json.RawMessage {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		return m
	}

	v1 := byName["analysis v1 (no takeaway key)"]
	require.NotNil(t, v1.Match)
	assert.True(t, v1.Match(fields(`{"id":"a","createdAt":1,"sideAnalyses":[]}`)))
	assert.False(t, v1.Match(fields(`{"id":"a","createdAt":1,"sideAnalyses":[],"takeaway":null}`)))

	v2 := byName["analysis v2 (takeaway key present)"]
	require.NotNil(t, v2.Match)
	assert.True(t, v2.Match(fields(`{"id":"a","createdAt":1,"sideAnalyses":[],"takeaway":null}`)))
	assert.False(t, v2.Match(fields(`{"id":"a","createdAt":1,"sideAnalyses":[]}`)))
}

func TestMigrateValueAnalysisV1(t *testing.T) {
	res, err := MigrateValue(json.RawMessage(analysisV1), KindAnalysis)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FromVersion)
	assert.Equal(t, CurrentDataVersion, res.ToVersion)
	assert.False(t, res.NoOp)

	m := decodeMap(t, res.Raw)

	// Takeaway must be materialized as an explicit null key.
	takeaway, ok := m["takeaway"]
	require.True(t, ok, "takeaway key must exist after migration")
	assert.Nil(t, takeaway)

	assert.Equal(t, "analysis_7f3a", m["id"])

	input := m["input"].(map[string]any)
	sides := input["sides"].([]any)
	assert.Equal(t, "side_a1", sides[0].(map[string]any)["id"])
	assert.Equal(t, "side_b2", sides[1].(map[string]any)["id"])

	analyses := m["sideAnalyses"].([]any)
	assert.Equal(t, "side_a1", analyses[0].(map[string]any)["sideId"])

	patterns := m["patternsDetected"].([]any)
	occ := patterns[0].(map[string]any)["occurrences"].([]any)
	assert.Equal(t, "side_a1", occ[0].(map[string]any)["sideId"])

	// One breadcrumb per step applied.
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "v1 to v2")
	assert.Contains(t, res.Warnings[1], "v2 to v3")
}

func TestMigrateValueIdempotent(t *testing.T) {
	first, err := MigrateValue(json.RawMessage(analysisV1), KindAnalysis)
	require.NoError(t, err)

	// A bare migrated record re-fingerprints as v2 (shape did not change in
	// v3), so the id-normalization step runs again. It must be a no-op on
	// already-prefixed ids.
	second, err := MigrateValue(first.Raw, KindAnalysis)
	require.NoError(t, err)

	assert.Equal(t, decodeMap(t, first.Raw), decodeMap(t, second.Raw))
}

func TestMigrateValueEnvelope(t *testing.T) {
	t.Run("current version envelope is a no-op", func(t *testing.T) {
		inner := json.RawMessage(`{"id":"analysis_1","createdAt":1,"sideAnalyses":[],"takeaway":null}`)
		envelope, err := json.Marshal(map[string]any{"version": CurrentDataVersion, "data": json.RawMessage(inner)})
		require.NoError(t, err)

		res, err := MigrateValue(envelope, KindAnalysis)
		require.NoError(t, err)
		assert.True(t, res.NoOp)
		assert.Equal(t, res.FromVersion, res.ToVersion)
		assert.JSONEq(t, string(inner), string(res.Raw))
	})

	t.Run("envelope version drives the chain", func(t *testing.T) {
		envelope := `{"version": 2, "data": ` + settingsV1 + `}`
		res, err := MigrateValue(json.RawMessage(envelope), KindSettings)
		require.NoError(t, err)

		assert.Equal(t, 2, res.FromVersion)
		m := decodeMap(t, res.Raw)
		// Declared v2, so the v1 step (designPreset) must not run.
		_, hasPreset := m["designPreset"]
		assert.False(t, hasPreset)
		// But the v2 coercion step must.
		assert.Equal(t, float64(3), m["analysesThisWeek"])
	})

	t.Run("envelope declaring version zero is rejected", func(t *testing.T) {
		envelope := `{"version": 0, "data": {"hapticsEnabled": true}}`
		_, err := MigrateValue(json.RawMessage(envelope), KindSettings)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("version newer than build is rejected", func(t *testing.T) {
		envelope := `{"version": 99, "data": {}}`
		_, err := MigrateValue(json.RawMessage(envelope), KindSettings)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestMigrateValueSettingsChain(t *testing.T) {
	res, err := MigrateValue(json.RawMessage(settingsV1), KindSettings)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FromVersion)
	assert.Equal(t, CurrentDataVersion, res.ToVersion)

	m := decodeMap(t, res.Raw)
	assert.Equal(t, "classic", m["designPreset"])
	assert.Equal(t, float64(3), m["analysesThisWeek"], "string counter must be coerced")
	assert.Equal(t, true, m["pro"], "0/1 boolean must be coerced")
	assert.Equal(t, false, m["reduceMotion"], "string boolean must be coerced")
}

func TestMigrateValueFailures(t *testing.T) {
	t.Run("undetectable shape never migrates", func(t *testing.T) {
		_, err := MigrateValue(json.RawMessage(`{"foo": 1}`), KindAnalysis)
		require.ErrorIs(t, err, ErrUndetectableVersion)
	})

	t.Run("invalid json is malformed", func(t *testing.T) {
		_, err := MigrateValue(json.RawMessage(`{broken`), KindAnalysis)
		require.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestMigrateBatch(t *testing.T) {
	elements := []json.RawMessage{
		json.RawMessage(analysisV1),
		json.RawMessage(analysisV2),
		json.RawMessage(`{"not": "an analysis"}`),
	}

	res := MigrateBatch(context.Background(), elements, KindAnalysis)

	assert.Len(t, res.Elements, 2, "bad element is dropped, not fatal")
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.MinFromVersion)

	var dropWarning bool
	for _, w := range res.Warnings {
		if w == "record 2 dropped: undetectable data version" {
			dropWarning = true
		}
	}
	assert.True(t, dropWarning, "drop must be recorded as a warning, got %v", res.Warnings)
}

func TestMigrateBatchEmpty(t *testing.T) {
	res := MigrateBatch(context.Background(), nil, KindAnalysis)
	assert.Empty(t, res.Elements)
	assert.Zero(t, res.Dropped)
	assert.Equal(t, CurrentDataVersion, res.MinFromVersion)
}

func TestUpgradeAnalysesHook(t *testing.T) {
	payload := `[` + analysisV1 + `,` + analysisV2 + `]`

	out, warnings, err := UpgradeAnalyses(context.Background(), 0, json.RawMessage(payload))
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	var elements []map[string]any
	require.NoError(t, json.Unmarshal(out, &elements))
	require.Len(t, elements, 2)
	assert.Equal(t, "analysis_7f3a", elements[0]["id"])
	assert.Equal(t, "analysis_9c1b", elements[1]["id"])

	t.Run("non-array payload fails", func(t *testing.T) {
		_, _, err := UpgradeAnalyses(context.Background(), 0, json.RawMessage(`{"a":1}`))
		require.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestUpgradeSettingsHook(t *testing.T) {
	out, warnings, err := UpgradeSettings(context.Background(), 0, json.RawMessage(settingsV1))
	require.NoError(t, err)
	require.Len(t, warnings, 2)

	m := decodeMap(t, out)
	assert.Equal(t, "classic", m["designPreset"])
}

func TestStepIdempotence(t *testing.T) {
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(analysisV1), &record))

	once, _, err := analysisNormalizeIDs(record)
	require.NoError(t, err)
	onceJSON, err := json.Marshal(once)
	require.NoError(t, err)

	twice, _, err := analysisNormalizeIDs(once)
	require.NoError(t, err)
	twiceJSON, err := json.Marshal(twice)
	require.NoError(t, err)

	assert.JSONEq(t, string(onceJSON), string(twiceJSON))
}
