// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package dispatch

import (
	"context"
	"fmt"

	"github.com/kraklabs/codegraph/internal/query"
)

// registerAll wires every dispatcher-callable method to its
// internal/query.Engine handler.
func (d *Dispatcher) registerAll() error {
	registrations := []struct {
		name    string
		schema  *jsonschemaShorthand
		handler handlerFunc
	}{
		{"find_symbol",
			params().str("query", "symbol name or qualname fragment").str("kind", "optional symbol kind filter").
				str("language", "optional language filter").integer("limit", "max results, default 20").require("query"),
			handleFindSymbol},
		{"suggest_qualnames",
			params().str("query", "qualname fragment to fuzzy-match").integer("limit", "max results, default 10").require("query"),
			handleSuggestQualnames},
		{"search_text",
			params().str("pattern", "regex pattern").str("path", "optional path scope, must lie under the repo root").
				integer("limit", "max matches").require("pattern"),
			handleSearchText},
		{"grep", // alias of search_text, same regex handler
			params().str("pattern", "regex pattern").str("path", "optional path scope").
				integer("limit", "max matches").require("pattern"),
			handleSearchText},
		{"open_symbol",
			params().str("qualname", "fully qualified symbol name").require("qualname"),
			handleOpenSymbol},
		{"open_file",
			params().str("path", "repo-relative file path").require("path"),
			handleOpenFile},
		{"neighbors",
			params().str("qualname", "fully qualified symbol name").strArray("kinds", "optional edge kind filter").require("qualname"),
			handleNeighbors},
		{"subgraph",
			params().strArray("roots", "one or more root qualnames").strArray("kinds", "optional edge kind filter").
				integer("depth", "BFS depth, default 1").require("roots"),
			handleSubgraph},
		{"references",
			params().str("qualname", "fully qualified symbol name").require("qualname"),
			handleReferences},
		{"gather_context",
			params().strArray("seeds", "seed symbol qualnames").integer("budget_bytes", "byte budget, default 4000").
				str("strategy", "\"symbol\" or \"file\"").require("seeds"),
			handleGatherContext},
		{"analyze_impact",
			params().str("seed", "seed symbol qualname").str("direction", "\"upstream\" or \"downstream\"").
				integer("depth", "BFS depth, default from config").require("seed"),
			handleAnalyzeImpact},
		{"analyze_diff",
			params().str("diff_text", "unified diff text").require("diff_text"),
			handleAnalyzeDiff},
		{"trace_flow",
			params().str("seed", "seed symbol qualname").str("direction", "\"upstream\" or \"downstream\"").
				integer("max_depth", "max BFS depth, default 3").require("seed"),
			handleTraceFlow},
		{"repo_map",
			params().integer("budget_bytes", "byte budget, default 8000"),
			handleRepoMap},
		{"find_tests_for",
			params().str("qualname", "fully qualified symbol name").require("qualname"),
			handleFindTestsFor},
		{"co_changes",
			params().str("path", "repo-relative file path").integer("limit", "max partners").require("path"),
			handleCoChanges},
		{"changed_files",
			params(),
			handleChangedFiles},
		{"list_methods",
			params(),
			func(_ context.Context, _ *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
				return d.ListMethods(), nil, nil
			}},
		{"help",
			params().str("method", "optional method name to describe"),
			handleHelp},
		{"list_languages",
			params(),
			handleListLanguages},
		{"repo_overview",
			params(),
			handleRepoOverview},
		{"repo_insights",
			params(),
			handleRepoInsights},
		{"top_complexity",
			params().integer("limit", "max symbols, default 20"),
			handleTopComplexity},
		{"duplicate_groups",
			params().integer("min_size", "minimum symbols per group, default 2"),
			handleDuplicateGroups},
		{"dead_symbols",
			params(),
			handleDeadSymbols},
		{"unused_imports",
			params(),
			handleUnusedImports},
		{"orphan_tests",
			params(),
			handleOrphanTests},
		{"route_refs",
			params(),
			handleRouteRefs},
		{"flow_status",
			params(),
			handleFlowStatus},
		{"diagnostics",
			params(),
			handleDiagnostics},
		{"search_rg",
			params().str("pattern", "regex pattern").str("path", "optional path scope").
				integer("limit", "max matches").require("pattern"),
			handleSearchText},
		{"index_status",
			params(),
			handleIndexStatus},
		{"reindex",
			params(),
			handleReindex},
	}

	for _, r := range registrations {
		if err := d.register(r.name, r.schema, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func handleFindSymbol(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.FindSymbol(ctx, str(p, "query"), str(p, "kind"), str(p, "language"), intParam(p, "limit", 20))
	return res, res.NextHops, err
}

func handleSuggestQualnames(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.SuggestQualnames(ctx, str(p, "query"), intParam(p, "limit", 10))
	return res, nil, err
}

func handleSearchText(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.SearchText(ctx, str(p, "pattern"), str(p, "path"), intParam(p, "limit", 0))
	return res, res.NextHops, err
}

func handleOpenSymbol(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.OpenSymbol(ctx, str(p, "qualname"))
	return res, res.NextHops, err
}

func handleOpenFile(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.OpenFile(ctx, str(p, "path"))
	return res, res.NextHops, err
}

func handleNeighbors(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.Neighbors(ctx, str(p, "qualname"), edgeKinds(p, "kinds"))
	return res, res.NextHops, err
}

func handleSubgraph(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.Subgraph(ctx, strSlice(p, "roots"), edgeKinds(p, "kinds"), intParam(p, "depth", 1))
	return res, res.NextHops, err
}

func handleReferences(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.References(ctx, str(p, "qualname"))
	return res, res.NextHops, err
}

func handleGatherContext(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	var seeds []query.ContextSeed
	for _, s := range strSlice(p, "seeds") {
		seeds = append(seeds, query.ContextSeed{Symbol: s})
	}
	res, err := e.GatherContext(ctx, seeds, intParam(p, "budget_bytes", 4000), str(p, "strategy"))
	return res, res.NextHops, err
}

func handleAnalyzeImpact(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	direction := str(p, "direction")
	if direction == "" {
		direction = "downstream"
	}
	res, err := e.AnalyzeImpact(ctx, str(p, "seed"), direction, intParam(p, "depth", 0))
	return res, res.NextHops, err
}

func handleAnalyzeDiff(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.AnalyzeDiff(ctx, str(p, "diff_text"))
	return res, res.NextHops, err
}

func handleTraceFlow(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	direction := str(p, "direction")
	if direction == "" {
		direction = "downstream"
	}
	res, err := e.TraceFlow(ctx, str(p, "seed"), direction, intParam(p, "max_depth", 3))
	return res, res.NextHops, err
}

func handleRepoMap(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.RepoMap(ctx, intParam(p, "budget_bytes", 8000))
	return res, res.NextHops, err
}

func handleFindTestsFor(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.FindTestsFor(ctx, str(p, "qualname"))
	return res, res.NextHops, err
}

func handleCoChanges(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.CoChanges(ctx, str(p, "path"), intParam(p, "limit", 20))
	return res, nil, err
}

func handleChangedFiles(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.ChangedFiles(ctx)
	return res, nil, err
}

func handleHelp(_ context.Context, _ *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	method := str(p, "method")
	if method == "" {
		return "call list_methods for the full method list, or help with a method name for its schema", nil, nil
	}
	return fmt.Sprintf("see the %s method's registered JSON Schema for its parameters", method), nil, nil
}

func handleListLanguages(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.ListLanguages(ctx)
	return res, nil, err
}

func handleRepoOverview(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.RepoOverview(ctx)
	return res, res.NextHops, err
}

func handleRepoInsights(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.RepoInsights(ctx)
	return res, res.NextHops, err
}

func handleTopComplexity(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.TopComplexity(ctx, intParam(p, "limit", 20))
	return res, res.NextHops, err
}

func handleDuplicateGroups(ctx context.Context, e *query.Engine, p map[string]any) (any, []query.NextHop, error) {
	res, err := e.DuplicateGroups(ctx, intParam(p, "min_size", 2))
	return res, res.NextHops, err
}

func handleDeadSymbols(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.DeadSymbols(ctx)
	return res, res.NextHops, err
}

func handleUnusedImports(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.UnusedImports(ctx)
	return res, res.NextHops, err
}

func handleOrphanTests(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.OrphanTests(ctx)
	return res, res.NextHops, err
}

func handleRouteRefs(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.RouteRefs(ctx)
	return res, res.NextHops, err
}

func handleFlowStatus(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.FlowStatus(ctx)
	return res, res.NextHops, err
}

func handleDiagnostics(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.Diagnostics(ctx)
	return res, res.NextHops, err
}

func handleIndexStatus(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.IndexStatus(ctx)
	return res, nil, err
}

func handleReindex(ctx context.Context, e *query.Engine, _ map[string]any) (any, []query.NextHop, error) {
	res, err := e.Reindex(ctx)
	return res, nil, err
}
