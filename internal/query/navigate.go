// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/kraklabs/codegraph/internal/model"
)

// OpenSymbolResult is open_symbol's response: the symbol, its owning file,
// and its source snippet.
type OpenSymbolResult struct {
	Symbol   model.Symbol
	File     model.File
	Source   string
	NextHops []NextHop
}

// OpenSymbol resolves qualname to its symbol row, owning file, and source
// text. Exact qualname match first, then unique suffix match.
func (e *Engine) OpenSymbol(ctx context.Context, qualname string) (OpenSymbolResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return OpenSymbolResult{}, err
	}
	sym, err := e.resolveOneSymbol(ctx, qualname, version)
	if err != nil {
		return OpenSymbolResult{}, err
	}

	file, err := e.st.FileByID(ctx, sym.FileID)
	if err != nil {
		return OpenSymbolResult{}, fmt.Errorf("lookup owning file: %w", err)
	}

	full, err := e.resolvePath(file.Path)
	if err != nil {
		return OpenSymbolResult{}, err
	}
	contents, err := os.ReadFile(full)
	if err != nil {
		return OpenSymbolResult{}, fmt.Errorf("read source: %w", err)
	}
	snippet := ""
	if int(sym.Span.StartByte) <= len(contents) && int(sym.Span.EndByte) <= len(contents) && sym.Span.StartByte <= sym.Span.EndByte {
		snippet = string(contents[sym.Span.StartByte:sym.Span.EndByte])
	}

	hops := []NextHop{
		hop("neighbors", map[string]any{"qualname": sym.Qualname}),
		hop("references", map[string]any{"qualname": sym.Qualname}),
	}
	return OpenSymbolResult{Symbol: sym, File: file, Source: snippet, NextHops: hops}, nil
}

// resolveOneSymbol implements the exact-qualname-then-unique-suffix
// resolution rule shared by open_symbol and edge resolution.
func (e *Engine) resolveOneSymbol(ctx context.Context, qualname string, version int64) (model.Symbol, error) {
	exact, err := e.st.FindSymbolsByQualname(ctx, qualname, version)
	if err != nil {
		return model.Symbol{}, err
	}
	if len(exact) > 0 {
		return exact[0], nil
	}
	bySuffix, err := e.st.FindSymbolsBySuffix(ctx, qualname, version)
	if err != nil {
		return model.Symbol{}, err
	}
	if len(bySuffix) == 1 {
		return bySuffix[0], nil
	}
	if len(bySuffix) > 1 {
		return model.Symbol{}, fmt.Errorf("qualname %q is ambiguous: %d suffix matches", qualname, len(bySuffix))
	}
	return model.Symbol{}, fmt.Errorf("symbol %q not found", qualname)
}

// NeighborEdge pairs an edge with the symbol it connects to, resolved
// relative to the symbol neighbors was called on.
type NeighborEdge struct {
	Edge   model.Edge
	Symbol model.Symbol
}

// NeighborsResult is neighbors' response.
type NeighborsResult struct {
	Outgoing []NeighborEdge
	Incoming []NeighborEdge
	NextHops []NextHop
}

// Neighbors returns a symbol's direct outgoing and incoming edges,
// optionally filtered by kind.
func (e *Engine) Neighbors(ctx context.Context, qualname string, kinds []model.EdgeKind) (NeighborsResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return NeighborsResult{}, err
	}
	sym, err := e.resolveOneSymbol(ctx, qualname, version)
	if err != nil {
		return NeighborsResult{}, err
	}

	out, err := e.st.EdgesFrom(ctx, sym.ID, kinds)
	if err != nil {
		return NeighborsResult{}, err
	}
	in, err := e.st.EdgesTo(ctx, sym.ID, kinds)
	if err != nil {
		return NeighborsResult{}, err
	}

	outgoing, err := e.pairEdgesWithTargets(ctx, out)
	if err != nil {
		return NeighborsResult{}, err
	}
	incoming, err := e.pairEdgesWithSources(ctx, in)
	if err != nil {
		return NeighborsResult{}, err
	}

	var hops []NextHop
	if len(outgoing)+len(incoming) > 0 {
		hops = append(hops, hop("subgraph", map[string]any{"roots": []string{sym.Qualname}, "depth": 2}))
	}
	return NeighborsResult{Outgoing: outgoing, Incoming: incoming, NextHops: hops}, nil
}

func (e *Engine) pairEdgesWithTargets(ctx context.Context, edges []model.Edge) ([]NeighborEdge, error) {
	out := make([]NeighborEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.TargetSymbolID == nil {
			out = append(out, NeighborEdge{Edge: edge})
			continue
		}
		sym, err := e.st.SymbolByID(ctx, *edge.TargetSymbolID)
		if err != nil {
			return nil, fmt.Errorf("lookup edge target: %w", err)
		}
		out = append(out, NeighborEdge{Edge: edge, Symbol: sym})
	}
	sortNeighborEdges(out)
	return out, nil
}

func (e *Engine) pairEdgesWithSources(ctx context.Context, edges []model.Edge) ([]NeighborEdge, error) {
	out := make([]NeighborEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.SourceSymbolID == nil {
			out = append(out, NeighborEdge{Edge: edge})
			continue
		}
		sym, err := e.st.SymbolByID(ctx, *edge.SourceSymbolID)
		if err != nil {
			return nil, fmt.Errorf("lookup edge source: %w", err)
		}
		out = append(out, NeighborEdge{Edge: edge, Symbol: sym})
	}
	sortNeighborEdges(out)
	return out, nil
}

func sortNeighborEdges(edges []NeighborEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Symbol.Qualname != edges[j].Symbol.Qualname {
			return edges[i].Symbol.Qualname < edges[j].Symbol.Qualname
		}
		return edges[i].Edge.ID < edges[j].Edge.ID
	})
}

// SubgraphResult is subgraph's response: the set of symbols reached from
// roots within depth hops, plus the edges connecting them.
type SubgraphResult struct {
	Symbols  []model.Symbol
	Edges    []model.Edge
	NextHops []NextHop
}

// Subgraph runs a bounded breadth-first walk from one or more root
// qualnames, following edges of the given kinds (nil means all kinds) out to
// depth hops, and returns the induced subgraph.
func (e *Engine) Subgraph(ctx context.Context, roots []string, kinds []model.EdgeKind, depth int) (SubgraphResult, error) {
	if depth <= 0 {
		depth = 1
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return SubgraphResult{}, err
	}

	visited := make(map[int64]model.Symbol)
	edgeSeen := make(map[int64]model.Edge)
	frontier := make([]model.Symbol, 0, len(roots))
	for _, q := range roots {
		sym, err := e.resolveOneSymbol(ctx, q, version)
		if err != nil {
			return SubgraphResult{}, err
		}
		if _, ok := visited[sym.ID]; !ok {
			visited[sym.ID] = sym
			frontier = append(frontier, sym)
		}
	}

	for step := 0; step < depth && len(frontier) > 0; step++ {
		var next []model.Symbol
		for _, sym := range frontier {
			out, err := e.st.EdgesFrom(ctx, sym.ID, kinds)
			if err != nil {
				return SubgraphResult{}, err
			}
			for _, edge := range out {
				edgeSeen[edge.ID] = edge
				if edge.TargetSymbolID == nil {
					continue
				}
				if _, ok := visited[*edge.TargetSymbolID]; ok {
					continue
				}
				target, err := e.st.SymbolByID(ctx, *edge.TargetSymbolID)
				if err != nil {
					return SubgraphResult{}, fmt.Errorf("lookup edge target: %w", err)
				}
				visited[target.ID] = target
				next = append(next, target)
			}
		}
		frontier = next
	}

	symbols := make([]model.Symbol, 0, len(visited))
	for _, s := range visited {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Qualname < symbols[j].Qualname })

	edges := make([]model.Edge, 0, len(edgeSeen))
	for _, edge := range edgeSeen {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	return SubgraphResult{Symbols: symbols, Edges: edges}, nil
}

// ReferencesResult is references' response: every edge already resolved to
// the symbol's id, in one list. Edges whose target never resolved to a
// symbol (known only by a textual target_qualname) are not included, and
// there is no separate suffix-match section.
type ReferencesResult struct {
	References []NeighborEdge
	NextHops   []NextHop
}

// References returns every incoming edge on qualname, ordered by source
// qualname ascending then edge id ascending.
func (e *Engine) References(ctx context.Context, qualname string) (ReferencesResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return ReferencesResult{}, err
	}
	sym, err := e.resolveOneSymbol(ctx, qualname, version)
	if err != nil {
		return ReferencesResult{}, err
	}
	in, err := e.st.EdgesTo(ctx, sym.ID, nil)
	if err != nil {
		return ReferencesResult{}, err
	}
	refs, err := e.pairEdgesWithSources(ctx, in)
	if err != nil {
		return ReferencesResult{}, err
	}
	return ReferencesResult{References: refs}, nil
}
