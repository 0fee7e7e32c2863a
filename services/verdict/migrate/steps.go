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
	"fmt"
	"strconv"
	"strings"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

// Step upgrades a decoded record from one schema version to the next.
// Transforms mutate and return the supplied map; every transform is
// idempotent so a record that was already partially upgraded passes
// through unchanged.
type Step struct {
	Kind Kind
	From int
	Note string

	Apply func(record map[string]any) (map[string]any, []string, error)
}

// steps holds the full upgrade chain for each record family. The chain for
// version N is the sequence of steps with From >= N, applied in order.
var steps = []Step{
	{
		Kind:  KindAnalysis,
		From:  1,
		Note:  "materialize explicit takeaway null",
		Apply: analysisAddTakeaway,
	},
	{
		Kind:  KindAnalysis,
		From:  2,
		Note:  "normalize id prefixes",
		Apply: analysisNormalizeIDs,
	},
	{
		Kind:  KindSettings,
		From:  1,
		Note:  "add designPreset default",
		Apply: settingsAddDesignPreset,
	},
	{
		Kind:  KindSettings,
		From:  2,
		Note:  "coerce field types",
		Apply: settingsCoerceTypes,
	},
}

// stepsFor returns the ordered upgrade chain for kind starting at from.
func stepsFor(kind Kind, from int) []Step {
	var chain []Step
	for _, s := range steps {
		if s.Kind == kind && s.From >= from {
			chain = append(chain, s)
		}
	}
	return chain
}

// analysisAddTakeaway brings a v1 analysis to v2 by materializing the
// takeaway field as an explicit null. Records that already carry the key
// (null or populated) are left alone.
func analysisAddTakeaway(record map[string]any) (map[string]any, []string, error) {
	if _, ok := record["takeaway"]; !ok {
		record["takeaway"] = nil
	}
	return record, nil, nil
}

// analysisNormalizeIDs brings a v2 analysis to v3 by prefixing the record
// id and every nested side id reference with their canonical prefixes.
// Already-prefixed ids pass through untouched, which is what makes the
// transform idempotent.
func analysisNormalizeIDs(record map[string]any) (map[string]any, []string, error) {
	var warnings []string

	if id, ok := record["id"].(string); ok {
		record["id"] = ensurePrefix(id, datatypes.AnalysisIDPrefix)
	} else {
		warnings = append(warnings, "analysis id missing or not a string; left as-is")
	}

	if input, ok := record["input"].(map[string]any); ok {
		if sides, ok := input["sides"].([]any); ok {
			for _, s := range sides {
				side, ok := s.(map[string]any)
				if !ok {
					continue
				}
				if id, ok := side["id"].(string); ok {
					side["id"] = ensurePrefix(id, datatypes.SideIDPrefix)
				}
			}
		}
	}

	if analyses, ok := record["sideAnalyses"].([]any); ok {
		for _, a := range analyses {
			sa, ok := a.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := sa["sideId"].(string); ok {
				sa["sideId"] = ensurePrefix(id, datatypes.SideIDPrefix)
			}
		}
	}

	if patterns, ok := record["patternsDetected"].([]any); ok {
		for _, p := range patterns {
			pat, ok := p.(map[string]any)
			if !ok {
				continue
			}
			occs, ok := pat["occurrences"].([]any)
			if !ok {
				continue
			}
			for _, o := range occs {
				occ, ok := o.(map[string]any)
				if !ok {
					continue
				}
				if id, ok := occ["sideId"].(string); ok {
					occ["sideId"] = ensurePrefix(id, datatypes.SideIDPrefix)
				}
			}
		}
	}

	if win, ok := record["winAnalysis"].(map[string]any); ok {
		if id, ok := win["winnerId"].(string); ok {
			win["winnerId"] = ensurePrefix(id, datatypes.SideIDPrefix)
		}
	}

	return record, warnings, nil
}

// settingsAddDesignPreset brings v1 settings to v2 by adding the
// designPreset field with its fixed default.
func settingsAddDesignPreset(record map[string]any) (map[string]any, []string, error) {
	if _, ok := record["designPreset"]; !ok {
		record["designPreset"] = datatypes.DefaultDesignPreset
	}
	return record, nil, nil
}

// settingsCoerceTypes brings v2 settings to v3. The schema did not change
// shape between those versions; the step exists to repair records written
// by builds that serialized counters as strings and booleans as 0/1.
func settingsCoerceTypes(record map[string]any) (map[string]any, []string, error) {
	var warnings []string

	for _, key := range []string{"analysesThisWeek", "weekStartTimestamp"} {
		w := coerceNumber(record, key)
		warnings = append(warnings, w...)
	}
	for _, key := range []string{"pro", "hapticsEnabled", "reduceMotion"} {
		w := coerceBool(record, key)
		warnings = append(warnings, w...)
	}
	return record, warnings, nil
}

// ensurePrefix prepends prefix unless the id already carries it.
func ensurePrefix(id, prefix string) string {
	if id == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// coerceNumber rewrites a string-encoded numeric field as a JSON number.
// Unparseable values are dropped so the decoder's zero value applies.
func coerceNumber(record map[string]any, key string) []string {
	raw, ok := record[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		delete(record, key)
		return []string{fmt.Sprintf("settings field %q held unparseable number %q; reset to default", key, s)}
	}
	record[key] = n
	return nil
}

// coerceBool rewrites 0/1 or "true"/"false" encodings of a boolean field.
func coerceBool(record map[string]any, key string) []string {
	raw, ok := record[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		return nil
	case float64:
		record[key] = v != 0
		return nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			delete(record, key)
			return []string{fmt.Sprintf("settings field %q held unparseable boolean %q; reset to default", key, v)}
		}
		record[key] = b
		return nil
	default:
		delete(record, key)
		return []string{fmt.Sprintf("settings field %q held unexpected type %T; reset to default", key, raw)}
	}
}
