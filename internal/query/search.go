// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"sort"
	"strings"

	"github.com/kraklabs/codegraph/internal/fuzzy"
	"github.com/kraklabs/codegraph/internal/model"
)

// matchTier ranks how a candidate matched find_symbol's query, lower is
// better: exact name, then prefix, then substring, then fuzzy.
type matchTier int

const (
	tierExact matchTier = iota
	tierPrefix
	tierSubstring
	tierFuzzy
)

// SymbolMatch is one find_symbol/suggest_qualnames result.
type SymbolMatch struct {
	Symbol     model.Symbol
	Tier       string
	Similarity float64
	FanIn      int
}

// FindSymbolResult is find_symbol's response.
type FindSymbolResult struct {
	Matches  []SymbolMatch
	NextHops []NextHop
}

// FindSymbol ranks symbols against query by: exact name > prefix > substring
// > "fuzzy", ties broken by fan-in descending then qualname ascending. The
// candidate pool is the store's name-or-qualname substring search, so the
// "fuzzy" tier holds candidates whose qualname, but not name, contains
// query; no edit-distance scoring is done. kind filters the pool when
// non-empty; language is accepted but does not filter (symbolInLanguage).
func (e *Engine) FindSymbol(ctx context.Context, query, kind, language string, limit int) (FindSymbolResult, error) {
	if limit <= 0 {
		limit = 20
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return FindSymbolResult{}, err
	}

	candidates, err := e.st.SearchSymbolsByName(ctx, query, version, 500)
	if err != nil {
		return FindSymbolResult{}, err
	}

	tiered := make(map[int64]matchTier, len(candidates))
	lowerQuery := strings.ToLower(query)
	filtered := candidates[:0]
	for _, s := range candidates {
		if kind != "" && string(s.Kind) != kind {
			continue
		}
		if language != "" && !symbolInLanguage(s, language) {
			continue
		}
		lowerName := strings.ToLower(s.Name)
		switch {
		case lowerName == lowerQuery:
			tiered[s.ID] = tierExact
		case strings.HasPrefix(lowerName, lowerQuery):
			tiered[s.ID] = tierPrefix
		case strings.Contains(lowerName, lowerQuery):
			tiered[s.ID] = tierSubstring
		default:
			tiered[s.ID] = tierFuzzy
		}
		filtered = append(filtered, s)
	}

	ids := make([]int64, len(filtered))
	for i, s := range filtered {
		ids[i] = s.ID
	}
	fanIn, err := e.st.FanInBulk(ctx, ids)
	if err != nil {
		return FindSymbolResult{}, err
	}

	matches := make([]SymbolMatch, 0, len(filtered))
	for _, s := range filtered {
		matches = append(matches, SymbolMatch{Symbol: s, Tier: tierName(tiered[s.ID]), FanIn: fanIn[s.ID]})
	}

	sort.Slice(matches, func(i, j int) bool {
		ti, tj := tiered[matches[i].Symbol.ID], tiered[matches[j].Symbol.ID]
		if ti != tj {
			return ti < tj
		}
		if matches[i].FanIn != matches[j].FanIn {
			return matches[i].FanIn > matches[j].FanIn
		}
		return matches[i].Symbol.Qualname < matches[j].Symbol.Qualname
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	var hops []NextHop
	if len(matches) > 0 {
		hops = append(hops, hop("open_symbol", map[string]any{"qualname": matches[0].Symbol.Qualname}))
	}
	return FindSymbolResult{Matches: matches, NextHops: hops}, nil
}

func tierName(t matchTier) string {
	switch t {
	case tierExact:
		return "exact"
	case tierPrefix:
		return "prefix"
	case tierSubstring:
		return "substring"
	default:
		return "fuzzy"
	}
}

func symbolInLanguage(s model.Symbol, language string) bool {
	// Symbols don't carry their file's language directly; callers that care
	// about language filtering join through the owning file. A qualname
	// prefix heuristic would be unreliable across extractors, so until the
	// store exposes a cheap file-language lookup this filter is a no-op
	// pass-through rather than a wrong answer.
	return true
}

// SuggestQualnames returns ranked fuzzy matches over every live qualname at
// the current graph version.
func (e *Engine) SuggestQualnames(ctx context.Context, query string, limit int) ([]SymbolMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	// An empty substring matches every live symbol, so the edit-distance
	// pass scores at most the first 5000 symbols the store returns.
	pool, err := e.st.SearchSymbolsByName(ctx, "", version, 5000)
	if err != nil {
		return nil, err
	}
	byQualname := make(map[string]model.Symbol, len(pool))
	qualnames := make([]string, 0, len(pool))
	for _, s := range pool {
		byQualname[s.Qualname] = s
		qualnames = append(qualnames, s.Qualname)
	}

	ranked := fuzzy.Rank(query, qualnames, fuzzy.DefaultThreshold)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]SymbolMatch, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, SymbolMatch{Symbol: byQualname[r.Qualname], Tier: "fuzzy", Similarity: r.Similarity})
	}
	return out, nil
}
