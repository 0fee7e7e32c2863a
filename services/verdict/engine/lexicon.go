// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"strings"
	"unicode"
)

// Marker lexicons for the heuristic scorer. Matching is lowercase substring
// matching, deliberately loose: a dispute writeup mentioning "receipts"
// should trip the "receipt" marker. Each list is independently tunable.
var (
	evidenceMarkers = []string{
		"evidence", "receipt", "contract", "agreed", "document", "photo",
		"screenshot", "record", "witness", "wrote", "email", "text message",
		"invoice", "proof", "statement", "timestamp", "in writing",
	}

	emotionalMarkers = []string{
		"furious", "hate", "angry", "upset", "hurt", "betrayed", "disgusted",
		"unbelievable", "ridiculous", "absurd", "insane", "liar", "sick of",
		"fed up", "can't believe", "cannot believe", "devastated", "outraged",
	}

	logicalConnectives = []string{
		"because", "therefore", "which means", "as a result", "so that",
		"given that", "it follows", "consequently", "since",
	}

	structureMarkers = []string{
		"first", "second", "third", "finally", "in short", "to summarize",
		"the key point", "to be clear",
	}

	acknowledgmentMarkers = []string{
		"i understand", "to be fair", "i admit", "they have a point",
		"we both", "i could have", "my part in", "i see why", "fair enough",
		"i get that",
	}

	blameMarkers = []string{
		"their fault", "they always", "they never", "typical of", "as usual",
		"of course they", "like they always do",
	}

	absolutistMarkers = []string{
		"always", "never", "everyone", "no one", "nobody", "everything",
		"nothing", "every time", "all the time", "every single",
	}

	assumptionMarkers = []string{
		"obviously", "clearly", "everyone knows", "of course", "must have",
		"no doubt", "i assume", "surely", "probably",
	}
)

// textStats summarizes the surface features of one side's content.
type textStats struct {
	words        int
	sentences    int
	avgSentence  float64
	exclamations int
	allCaps      int
}

// analyzeText computes surface statistics for content.
func analyzeText(content string) textStats {
	stats := textStats{
		exclamations: strings.Count(content, "!"),
	}

	fields := strings.Fields(content)
	stats.words = len(fields)
	for _, f := range fields {
		if isShouted(f) {
			stats.allCaps++
		}
	}

	for _, r := range content {
		if r == '.' || r == '!' || r == '?' {
			stats.sentences++
		}
	}
	if stats.sentences == 0 && stats.words > 0 {
		stats.sentences = 1
	}
	if stats.sentences > 0 {
		stats.avgSentence = float64(stats.words) / float64(stats.sentences)
	}
	return stats
}

// isShouted reports whether a token is an all-caps word of three or more
// letters. Short tokens ("I", "TV", "OK") don't count as shouting.
func isShouted(token string) bool {
	letters := 0
	for _, r := range token {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 3
}

// countMarkers sums occurrences of every marker in the lowercased content.
func countMarkers(content string, markers []string) int {
	lowered := strings.ToLower(content)
	n := 0
	for _, m := range markers {
		n += strings.Count(lowered, m)
	}
	return n
}

// hasMarker reports whether any marker occurs at all.
func hasMarker(content string, markers []string) bool {
	lowered := strings.ToLower(content)
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// foundMarkers returns the distinct markers present, in lexicon order.
func foundMarkers(content string, markers []string) []string {
	lowered := strings.ToLower(content)
	var found []string
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			found = append(found, m)
		}
	}
	return found
}

// firstSentenceWith returns the first sentence containing any marker,
// trimmed and truncated, for use as a pattern-occurrence quote.
func firstSentenceWith(content string, markers []string) string {
	for _, sentence := range splitSentences(content) {
		if hasMarker(sentence, markers) {
			return truncateQuote(sentence, 120)
		}
	}
	return ""
}

// sentencesWith returns up to limit sentences containing any marker, each
// truncated to quote length. The result is never nil.
func sentencesWith(content string, markers []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, sentence := range splitSentences(content) {
		if !hasMarker(sentence, markers) {
			continue
		}
		out = append(out, truncateQuote(sentence, 120))
		if len(out) == limit {
			break
		}
	}
	return out
}

// claimSentences returns up to limit declarative sentences, the side's
// asserted positions. Questions are not claims.
func claimSentences(content string, limit int) []string {
	out := make([]string, 0, limit)
	for _, sentence := range splitSentences(content) {
		if strings.HasSuffix(sentence, "?") {
			continue
		}
		out = append(out, truncateQuote(sentence, 120))
		if len(out) == limit {
			break
		}
	}
	return out
}

// splitSentences performs a rough sentence split on terminal punctuation.
func splitSentences(content string) []string {
	var out []string
	var b strings.Builder
	for _, r := range content {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// truncateQuote shortens a quote on a rune boundary with an ellipsis.
func truncateQuote(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
