// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package fuzzy ranks qualnames against a query by normalized edit-distance
// similarity, used as suggest_qualnames' and find_symbol's bottom ranking
// tier once exact/prefix/substring matching has been exhausted.
package fuzzy

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// DefaultThreshold is the minimum normalized similarity (0..1) a candidate
// must clear to be suggested at all.
const DefaultThreshold = 0.7

// Match pairs a candidate qualname with its similarity score.
type Match struct {
	Qualname   string
	Similarity float64
}

// Rank scores every candidate against query using Levenshtein distance
// normalized to [0, 1], keeps only candidates at or above threshold, and
// returns them sorted by similarity descending, ties broken by qualname
// ascending so results are deterministic across runs (go-edlib's algorithm
// has no random component, but equal scores need a stable order).
func Rank(query string, candidates []string, threshold float64) []Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		sim, err := edlib.StringsSimilarity(query, c, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if float64(sim) < threshold {
			continue
		}
		matches = append(matches, Match{Qualname: c, Similarity: float64(sim)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Qualname < matches[j].Qualname
	})
	return matches
}
