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

import "encoding/json"

// Kind identifies which record family a fingerprint or migration chain
// belongs to.
type Kind string

const (
	// KindAnalysis covers persisted AnalysisResult records.
	KindAnalysis Kind = "analysis"

	// KindSettings covers the persisted AppSettings singleton.
	KindSettings Kind = "settings"
)

// Fingerprint is one structural version predicate. Structural sniffing is
// fragile by construction, so the predicates are an enumerated list — each
// one independently testable — rather than inline conditionals. Order
// matters: the first match wins, so more specific fingerprints (the ones
// requiring an extra field) come before their older siblings.
type Fingerprint struct {
	// Name describes the shape for warnings and tests.
	Name string

	// Kind is the record family this fingerprint identifies.
	Kind Kind

	// Version is the schema version a matching record is at.
	Version int

	// Match reports whether the record's top-level fields fit this shape.
	Match func(fields map[string]json.RawMessage) bool
}

// fingerprints is the complete ordered set of known legacy shapes. A record
// matching none of these is undetectable (version 0) and is never guessed
// at. New schema versions add entries here without touching old predicates.
var fingerprints = []Fingerprint{
	{
		Name:    "analysis v2 (takeaway key present)",
		Kind:    KindAnalysis,
		Version: 2,
		Match: func(f map[string]json.RawMessage) bool {
			return hasKeys(f, "id", "createdAt", "sideAnalyses") && hasKeys(f, "takeaway")
		},
	},
	{
		Name:    "analysis v1 (no takeaway key)",
		Kind:    KindAnalysis,
		Version: 1,
		Match: func(f map[string]json.RawMessage) bool {
			return hasKeys(f, "id", "createdAt", "sideAnalyses") && !hasKeys(f, "takeaway")
		},
	},
	{
		Name:    "settings v2 (designPreset present)",
		Kind:    KindSettings,
		Version: 2,
		Match: func(f map[string]json.RawMessage) bool {
			return hasAnyKey(f, "hapticsEnabled", "reduceMotion") && hasKeys(f, "designPreset")
		},
	},
	{
		Name:    "settings v1 (no designPreset)",
		Kind:    KindSettings,
		Version: 1,
		Match: func(f map[string]json.RawMessage) bool {
			return hasAnyKey(f, "hapticsEnabled", "reduceMotion") && !hasKeys(f, "designPreset")
		},
	},
}

// Fingerprints returns a copy of the enumerated predicate set, mainly so
// tests can exercise each predicate in isolation.
func Fingerprints() []Fingerprint {
	out := make([]Fingerprint, len(fingerprints))
	copy(out, fingerprints)
	return out
}

// hasKeys reports whether every named key is present. A key holding an
// explicit JSON null still counts as present — that is what lets the
// materialized "takeaway": null survive as a v2 marker.
func hasKeys(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return true
}

// hasAnyKey reports whether at least one named key is present.
func hasAnyKey(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}
