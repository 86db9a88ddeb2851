// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package semantic defines an optional ranking hook the query engine can
// call to reorder candidates by meaning rather than lexical distance.
// Nothing in this repository requires it: find_symbol and suggest_qualnames
// work fully on exact/prefix/substring/edit-distance tiers without a
// Ranker, and the default implementation is a no-op. Shaped like a
// pluggable LLM backend interface, generalized from "generate text for a
// prompt" to "rank candidates against a query".
package semantic

import "context"

// Candidate is one item a Ranker can reorder: a qualname plus whatever
// lexical score the caller already computed for it.
type Candidate struct {
	Qualname string
	Score    float64
}

// Ranker reorders candidates by semantic similarity to query. Implementations
// may call out to an embedding model; the interface carries no assumption
// about where that model runs.
type Ranker interface {
	// Name identifies the ranker for logging and diagnostics.
	Name() string

	// Rank returns candidates reordered (and optionally rescored) by
	// similarity to query. Implementations should return the input
	// unchanged, in order, if they cannot produce a meaningful ranking.
	Rank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error)
}

// NoopRanker returns candidates in the order given, making semantic ranking
// a true opt-in: the query engine always has a Ranker to call, but the
// default one changes nothing.
type NoopRanker struct{}

// Name implements Ranker.
func (NoopRanker) Name() string { return "noop" }

// Rank implements Ranker by returning candidates unchanged.
func (NoopRanker) Rank(_ context.Context, _ string, candidates []Candidate) ([]Candidate, error) {
	return candidates, nil
}

var _ Ranker = NoopRanker{}
