// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"sort"

	"github.com/kraklabs/codegraph/internal/model"
)

// Diff computes added/deleted/modified/unchanged sets between the symbols
// currently stored for a file and a fresh extraction of that file.
//
// "Modified" means the same stable_id but a different span or docstring.
// Signature is part of stable_id, so a signature change shows up as a
// delete plus an add; metrics are not compared, so a body edit that leaves
// span and docstring as they were counts as unchanged. This follows a
// delta-detector discipline
// of producing deterministic, sorted, disjoint buckets, applied here at symbol
// granularity within one file instead of file granularity across a repo.
func Diff(stored, fresh []model.Symbol) model.SymbolDelta {
	storedByID := make(map[uint64]model.Symbol, len(stored))
	for _, s := range stored {
		storedByID[s.StableID] = s
	}
	freshByID := make(map[uint64]model.Symbol, len(fresh))
	for _, s := range fresh {
		freshByID[s.StableID] = s
	}

	var delta model.SymbolDelta
	for id, f := range freshByID {
		old, existed := storedByID[id]
		if !existed {
			delta.Added = append(delta.Added, f)
			continue
		}
		if symbolChanged(old, f) {
			delta.Modified = append(delta.Modified, model.ModifiedSymbol{Old: old, New: f})
		} else {
			delta.Unchanged = append(delta.Unchanged, f)
		}
	}
	for id, s := range storedByID {
		if _, stillPresent := freshByID[id]; !stillPresent {
			delta.Deleted = append(delta.Deleted, s)
		}
	}

	sortSymbols(delta.Added)
	sortSymbols(delta.Deleted)
	sortSymbols(delta.Unchanged)
	sort.Slice(delta.Modified, func(i, j int) bool {
		return delta.Modified[i].New.Qualname < delta.Modified[j].New.Qualname
	})

	return delta
}

// symbolChanged reports whether two symbols sharing a stable_id differ in
// span or docstring. stable_id already guarantees qualname/signature/kind
// are identical; body content and metrics are not compared.
func symbolChanged(old, fresh model.Symbol) bool {
	if old.Span != fresh.Span {
		return true
	}
	if old.Docstring != fresh.Docstring {
		return true
	}
	return false
}

func sortSymbols(s []model.Symbol) {
	sort.Slice(s, func(i, j int) bool { return s[i].Qualname < s[j].Qualname })
}
