// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"sort"

	"github.com/kraklabs/codegraph/internal/model"
)

// boundaryEdgeKinds are the edge kinds a flow trace additionally follows
// once it crosses a language boundary (source file language != target file
// language): RPC, HTTP routing, pub/sub channels, and textual cross-refs.
var boundaryEdgeKinds = []model.EdgeKind{
	model.EdgeRPCImpl, model.EdgeRPCCall,
	model.EdgeHTTPRoute, model.EdgeHTTPCall,
	model.EdgeChannelPublish, model.EdgeChannelSubscribe,
	model.EdgeXRef,
}

// FlowHop is one step in a trace_flow path.
type FlowHop struct {
	Symbol     model.Symbol
	Edge       model.Edge
	Boundary   string // "", "rpc", "http", "channel", "xref", or "sql"
	ProtoCtx   []model.Symbol
	Depth      int
}

// FlowResult is trace_flow's response.
type FlowResult struct {
	Hops     []FlowHop
	NextHops []NextHop
}

// TraceFlow runs a breadth-first trace from seed over edges of every kind.
// A hop into a file of another language is tagged with the kind of boundary
// crossed ("sql" whenever the target file is SQL) and, for RPC hops,
// carries the request/response proto message symbols as protocol context.
func (e *Engine) TraceFlow(ctx context.Context, seed, direction string, maxDepth int) (FlowResult, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return FlowResult{}, err
	}
	seedSym, err := e.resolveOneSymbol(ctx, seed, version)
	if err != nil {
		return FlowResult{}, err
	}
	seedFile, err := e.st.FileByID(ctx, seedSym.FileID)
	if err != nil {
		return FlowResult{}, err
	}

	visited := map[int64]bool{seedSym.ID: true}
	var hops []FlowHop
	frontier := []struct {
		sym  model.Symbol
		lang string
	}{{seedSym, seedFile.Language}}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []struct {
			sym  model.Symbol
			lang string
		}
		for _, cur := range frontier {
			edges, err := e.edgesForDirection(ctx, cur.sym.ID, direction, nil)
			if err != nil {
				return FlowResult{}, err
			}
			for _, edge := range edges {
				otherID := otherEndpoint(edge, direction)
				if otherID == nil || visited[*otherID] {
					continue
				}
				target, err := e.st.SymbolByID(ctx, *otherID)
				if err != nil {
					continue
				}
				targetFile, err := e.st.FileByID(ctx, target.FileID)
				if err != nil {
					continue
				}
				visited[target.ID] = true

				boundary := ""
				var protoCtx []model.Symbol
				if targetFile.Language != cur.lang {
					boundary = boundaryKind(edge.Kind)
					if targetFile.Language == "sql" {
						boundary = "sql"
					}
					if boundary == "rpc" {
						protoCtx = e.rpcProtocolContext(ctx, cur.sym, version)
					}
				}

				hops = append(hops, FlowHop{Symbol: target, Edge: edge, Boundary: boundary, ProtoCtx: protoCtx, Depth: depth + 1})
				next = append(next, struct {
					sym  model.Symbol
					lang string
				}{target, targetFile.Language})
			}

			if cur.lang != seedFile.Language || depth > 0 {
				boundaryEdges, err := e.edgesForDirection(ctx, cur.sym.ID, direction, boundaryEdgeKinds)
				if err != nil {
					return FlowResult{}, err
				}
				for _, edge := range boundaryEdges {
					otherID := otherEndpoint(edge, direction)
					if otherID == nil || visited[*otherID] {
						continue
					}
					target, err := e.st.SymbolByID(ctx, *otherID)
					if err != nil {
						continue
					}
					targetFile, err := e.st.FileByID(ctx, target.FileID)
					if err != nil {
						continue
					}
					visited[target.ID] = true
					boundary := boundaryKind(edge.Kind)
					if targetFile.Language == "sql" {
						boundary = "sql"
					}
					var protoCtx []model.Symbol
					if boundary == "rpc" {
						protoCtx = e.rpcProtocolContext(ctx, cur.sym, version)
					}
					hops = append(hops, FlowHop{Symbol: target, Edge: edge, Boundary: boundary, ProtoCtx: protoCtx, Depth: depth + 1})
					next = append(next, struct {
						sym  model.Symbol
						lang string
					}{target, targetFile.Language})
				}
			}
		}
		frontier = next
	}

	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Depth != hops[j].Depth {
			return hops[i].Depth < hops[j].Depth
		}
		return hops[i].Symbol.Qualname < hops[j].Symbol.Qualname
	})

	return FlowResult{Hops: hops}, nil
}

func (e *Engine) edgesForDirection(ctx context.Context, symbolID int64, direction string, kinds []model.EdgeKind) ([]model.Edge, error) {
	if direction == "upstream" {
		return e.st.EdgesTo(ctx, symbolID, kinds)
	}
	return e.st.EdgesFrom(ctx, symbolID, kinds)
}

func otherEndpoint(edge model.Edge, direction string) *int64 {
	if direction == "upstream" {
		return edge.SourceSymbolID
	}
	return edge.TargetSymbolID
}

func boundaryKind(kind model.EdgeKind) string {
	switch kind {
	case model.EdgeRPCImpl, model.EdgeRPCCall:
		return "rpc"
	case model.EdgeHTTPRoute, model.EdgeHTTPCall:
		return "http"
	case model.EdgeChannelPublish, model.EdgeChannelSubscribe:
		return "channel"
	default:
		return "xref"
	}
}

// rpcProtocolContext attaches the proto message symbols declared in the
// same file as sym, used as request/response context at an RPC boundary.
func (e *Engine) rpcProtocolContext(ctx context.Context, sym model.Symbol, version int64) []model.Symbol {
	siblings, err := e.st.SymbolsForFile(ctx, sym.FileID, version)
	if err != nil {
		return nil
	}
	var out []model.Symbol
	for _, s := range siblings {
		if s.Kind == model.KindProtoMsg {
			out = append(out, s)
		}
	}
	return out
}
