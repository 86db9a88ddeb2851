// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/codegraph/internal/model"
)

// ContextSeed is one gather_context seed: exactly one of Symbol, FileRange,
// or SearchQuery is set.
type ContextSeed struct {
	Symbol      string
	FileRange   *FileRange
	SearchQuery string
}

// FileRange is a file_range seed: a verbatim line span of one file.
type FileRange struct {
	Path      string
	StartLine int
	EndLine   int
}

// ContextEntry is one assembled piece of gather_context's output.
type ContextEntry struct {
	Qualname string
	Path     string
	Tier     int // 0 = full body, 1 = signature+evidence, 2 = signature only
	Text     string
}

// ContextResult is gather_context's response.
type ContextResult struct {
	Entries     []ContextEntry
	BudgetBytes int
	UsedBytes   int
	NextHops    []NextHop
}

// GatherContext assembles a budgeted, deterministic context bundle from
// seeds. Strategy "symbol" expands the seed's full body (tier 0), direct
// callers/callees as signature + evidence line (tier 1), and transitive
// neighbors as signature-only (tier 2). Strategy "file" includes the seed's
// file ranges verbatim. Entries are deduplicated by content hash, an entry
// that would push the total past budgetBytes is skipped, and the assembly
// stops once the budget is used up.
func (e *Engine) GatherContext(ctx context.Context, seeds []ContextSeed, budgetBytes int, strategy string) (ContextResult, error) {
	if budgetBytes <= 0 {
		budgetBytes = 4000
	}

	var candidates []ContextEntry
	var err error
	switch strategy {
	case "file":
		candidates, err = e.gatherFileRangeCandidates(ctx, seeds)
	default:
		candidates, err = e.gatherSymbolCandidates(ctx, seeds)
	}
	if err != nil {
		return ContextResult{}, err
	}

	seen := make(map[uint64]bool)
	entries := make([]ContextEntry, 0, len(candidates))
	used := 0
	for _, c := range candidates {
		h := xxhash.Sum64String(c.Text)
		if seen[h] {
			continue
		}
		size := len(c.Text)
		if used+size > budgetBytes {
			continue
		}
		seen[h] = true
		entries = append(entries, c)
		used += size
		if used >= budgetBytes {
			break
		}
	}

	return ContextResult{Entries: entries, BudgetBytes: budgetBytes, UsedBytes: used}, nil
}

func (e *Engine) gatherSymbolCandidates(ctx context.Context, seeds []ContextSeed) ([]ContextEntry, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var tier0, tier1, tier2 []ContextEntry
	for _, seed := range seeds {
		qualname := seed.Symbol
		if qualname == "" && seed.SearchQuery != "" {
			matched, err := e.FindSymbol(ctx, seed.SearchQuery, "", "", 1)
			if err != nil {
				return nil, err
			}
			if len(matched.Matches) == 0 {
				continue
			}
			qualname = matched.Matches[0].Symbol.Qualname
		}
		if qualname == "" {
			continue
		}

		sym, err := e.resolveOneSymbol(ctx, qualname, version)
		if err != nil {
			return nil, err
		}
		file, err := e.st.FileByID(ctx, sym.FileID)
		if err != nil {
			return nil, err
		}
		body, err := e.readSpan(file.Path, sym.Span)
		if err != nil {
			return nil, err
		}
		tier0 = append(tier0, ContextEntry{Qualname: sym.Qualname, Path: file.Path, Tier: 0, Text: body})

		neighborEntries, transitive, err := e.gatherNeighborTiers(ctx, sym)
		if err != nil {
			return nil, err
		}
		tier1 = append(tier1, neighborEntries...)
		tier2 = append(tier2, transitive...)
	}

	sortContextEntries(tier0)
	sortContextEntries(tier1)
	sortContextEntries(tier2)

	out := append([]ContextEntry{}, tier0...)
	out = append(out, tier1...)
	out = append(out, tier2...)
	return out, nil
}

// gatherNeighborTiers returns tier-1 (direct callers/callees, signature plus
// evidence line) and tier-2 (transitive neighbors, signature only) entries
// for sym.
func (e *Engine) gatherNeighborTiers(ctx context.Context, sym model.Symbol) (tier1, tier2 []ContextEntry, err error) {
	out, err := e.st.EdgesFrom(ctx, sym.ID, nil)
	if err != nil {
		return nil, nil, err
	}
	in, err := e.st.EdgesTo(ctx, sym.ID, nil)
	if err != nil {
		return nil, nil, err
	}

	direct := make(map[int64]model.Symbol)
	for _, edge := range append(append([]model.Edge{}, out...), in...) {
		var id *int64
		if edge.TargetSymbolID != nil {
			id = edge.TargetSymbolID
		} else if edge.SourceSymbolID != nil {
			id = edge.SourceSymbolID
		}
		if id == nil || *id == sym.ID {
			continue
		}
		neighbor, nerr := e.st.SymbolByID(ctx, *id)
		if nerr != nil {
			continue
		}
		direct[neighbor.ID] = neighbor
		file, ferr := e.st.FileByID(ctx, neighbor.FileID)
		if ferr != nil {
			continue
		}
		evidence := edge.Evidence
		if evidence == "" {
			evidence = neighbor.Signature
		}
		tier1 = append(tier1, ContextEntry{
			Qualname: neighbor.Qualname,
			Path:     file.Path,
			Tier:     1,
			Text:     fmt.Sprintf("%s\n%s", neighbor.Signature, evidence),
		})
	}

	transitiveSeen := make(map[int64]bool)
	for _, neighbor := range direct {
		out, err := e.st.EdgesFrom(ctx, neighbor.ID, nil)
		if err != nil {
			return nil, nil, err
		}
		for _, edge := range out {
			if edge.TargetSymbolID == nil {
				continue
			}
			id := *edge.TargetSymbolID
			if id == sym.ID || direct[id].ID == id || transitiveSeen[id] {
				continue
			}
			transitiveSeen[id] = true
			t, terr := e.st.SymbolByID(ctx, id)
			if terr != nil {
				continue
			}
			tier2 = append(tier2, ContextEntry{Qualname: t.Qualname, Tier: 2, Text: t.Signature})
		}
	}

	return tier1, tier2, nil
}

func (e *Engine) gatherFileRangeCandidates(ctx context.Context, seeds []ContextSeed) ([]ContextEntry, error) {
	var out []ContextEntry
	for _, seed := range seeds {
		if seed.FileRange == nil {
			continue
		}
		full, err := e.resolvePath(seed.FileRange.Path)
		if err != nil {
			return nil, err
		}
		text, err := readLineRange(full, seed.FileRange.StartLine, seed.FileRange.EndLine)
		if err != nil {
			return nil, err
		}
		out = append(out, ContextEntry{Path: seed.FileRange.Path, Tier: 0, Text: text})
	}
	sortContextEntries(out)
	return out, nil
}

func (e *Engine) readSpan(relPath string, span model.Span) (string, error) {
	full, err := e.resolvePath(relPath)
	if err != nil {
		return "", err
	}
	contents, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if int(span.StartByte) > len(contents) || int(span.EndByte) > len(contents) || span.StartByte > span.EndByte {
		return "", nil
	}
	return string(contents[span.StartByte:span.EndByte]), nil
}

func readLineRange(fullPath string, start, end int) (string, error) {
	contents, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	lines := splitLines(string(contents))
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", nil
	}
	selected := lines[start-1 : end]
	out := ""
	for i, l := range selected {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func sortContextEntries(entries []ContextEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Qualname < entries[j].Qualname
	})
}
