// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArbiterAI/ArbiterCore/services/gateway/routes"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
)

func newTestRouter(t *testing.T, opts routes.Options) (*gin.Engine, *core.Core) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c, err := core.New(db, core.Config{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	router := gin.New()
	routes.SetupRoutes(router, c, opts)
	return router, c
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func analyzeBody() map[string]any {
	return map[string]any{
		"sides": []map[string]any{
			{"label": "Alex", "content": "I paid the deposit on March 3rd, here is the receipt. The data backs this up."},
			{"label": "Sam", "content": "You ALWAYS do this!! Everyone knows you never pay for anything!!!"},
		},
		"commentatorStyle": "mediator",
		"evidenceMode":     "light",
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), datatypes.AppVersion)
}

func TestAnalyzeEndpointPersists(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	w := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var result datatypes.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ID)
	assert.Len(t, result.SideAnalyses, 2)

	list := doJSON(t, router, http.MethodGet, "/v1/analyses", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listed struct {
		Count    int                        `json:"count"`
		Analyses []datatypes.AnalysisResult `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Count)
	assert.Equal(t, result.ID, listed.Analyses[0].ID)
}

func TestAnalyzeEndpointRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	w := doJSON(t, router, http.MethodPost, "/v1/analyses", map[string]any{
		"sides": []map[string]any{{"label": "only one", "content": "just me"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeEndpointQuotaMapsTo429(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	for i := 0; i < 5; i++ {
		w := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
		require.Equal(t, http.StatusCreated, w.Code, "analysis %d should be within quota", i+1)
	}

	w := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetAnalysisNotFound(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	w := doJSON(t, router, http.MethodGet, "/v1/analyses/analysis_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenameAndDeleteAnalysis(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	created := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var result datatypes.AnalysisResult
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &result))

	rename := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/v1/analyses/%s/rename", result.ID),
		map[string]any{"title": "Deposit dispute"})
	require.Equal(t, http.StatusOK, rename.Code)

	got := doJSON(t, router, http.MethodGet, "/v1/analyses/"+result.ID, nil)
	require.Equal(t, http.StatusOK, got.Code)
	var fetched datatypes.AnalysisResult
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &fetched))
	assert.Equal(t, "Deposit dispute", fetched.Title)

	del := doJSON(t, router, http.MethodDelete, "/v1/analyses/"+result.ID, nil)
	require.Equal(t, http.StatusOK, del.Code)

	gone := doJSON(t, router, http.MethodGet, "/v1/analyses/"+result.ID, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestExportImportRoundTripOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	created := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
	require.Equal(t, http.StatusCreated, created.Code)

	export := doJSON(t, router, http.MethodGet, "/v1/export", nil)
	require.Equal(t, http.StatusOK, export.Code)

	var doc datatypes.ExportDocument
	require.NoError(t, json.Unmarshal(export.Body.Bytes(), &doc))
	require.Equal(t, 1, doc.TotalAnalyses)

	req := httptest.NewRequest(http.MethodPost, "/v1/import?mode=merge", bytes.NewReader(export.Body.Bytes()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Success  bool `json:"success"`
		Imported int  `json:"imported"`
		Skipped  int  `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportRejectsGarbage(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/import", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsPatchRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	w := doJSON(t, router, http.MethodPatch, "/v1/settings", map[string]any{
		"pro":          true,
		"designPreset": "midnight",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := doJSON(t, router, http.MethodGet, "/v1/settings", nil)
	require.Equal(t, http.StatusOK, got.Code)
	var settings datatypes.AppSettings
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &settings))
	assert.True(t, settings.Pro)
	assert.Equal(t, "midnight", settings.DesignPreset)
	// Defaults survive a partial patch.
	assert.True(t, settings.HapticsEnabled)
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	missing := doJSON(t, router, http.MethodGet, "/v1/draft", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	put := doJSON(t, router, http.MethodPut, "/v1/draft", map[string]any{
		"sides":            []map[string]any{{"label": "Alex", "content": "half-written argument"}},
		"commentatorStyle": "neutral",
		"evidenceMode":     "light",
	})
	require.Equal(t, http.StatusOK, put.Code)

	got := doJSON(t, router, http.MethodGet, "/v1/draft", nil)
	require.Equal(t, http.StatusOK, got.Code)
	var draft datatypes.DraftData
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &draft))
	require.Len(t, draft.Sides, 1)
	assert.NotZero(t, draft.SavedAt)

	del := doJSON(t, router, http.MethodDelete, "/v1/draft", nil)
	require.Equal(t, http.StatusOK, del.Code)

	gone := doJSON(t, router, http.MethodGet, "/v1/draft", nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestTemplateUseReturnsSkeleton(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	created := doJSON(t, router, http.MethodPost, "/v1/templates", map[string]any{
		"name":             "Roommate rent split",
		"sideLabels":       []string{"Me", "Roommate"},
		"commentatorStyle": "mediator",
		"evidenceMode":     "strict",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var tmpl datatypes.AnalysisTemplate
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &tmpl))
	require.NotEmpty(t, tmpl.ID)

	used := doJSON(t, router, http.MethodPost, "/v1/templates/"+tmpl.ID+"/use", nil)
	require.Equal(t, http.StatusOK, used.Code)
	var usedResp struct {
		Template datatypes.AnalysisTemplate `json:"template"`
		Skeleton datatypes.AnalysisInput    `json:"skeleton"`
	}
	require.NoError(t, json.Unmarshal(used.Body.Bytes(), &usedResp))
	assert.Equal(t, 1, usedResp.Template.UseCount)
	assert.Len(t, usedResp.Skeleton.Sides, 2)

	del := doJSON(t, router, http.MethodDelete, "/v1/templates/"+tmpl.ID, nil)
	require.Equal(t, http.StatusOK, del.Code)

	missing := doJSON(t, router, http.MethodPost, "/v1/templates/"+tmpl.ID+"/use", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestInsightsOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{})

	created := doJSON(t, router, http.MethodPost, "/v1/analyses", analyzeBody())
	require.Equal(t, http.StatusCreated, created.Code)

	w := doJSON(t, router, http.MethodGet, "/v1/insights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap datatypes.InsightsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.TotalAnalyses)
}

func TestAuthTokenGuardsV1(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{APIToken: "sekrit"})

	// Health stays open.
	open := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, open.Code)

	denied := doJSON(t, router, http.MethodGet, "/v1/analyses", nil)
	assert.Equal(t, http.StatusUnauthorized, denied.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitKicksIn(t *testing.T) {
	router, _ := newTestRouter(t, routes.Options{RatePerSecond: 1, Burst: 2})

	codes := make(map[int]int)
	for i := 0; i < 6; i++ {
		w := doJSON(t, router, http.MethodGet, "/v1/analyses", nil)
		codes[w.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 4, codes[http.StatusTooManyRequests])
}
