// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"sort"

	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/store"
)

// LanguageCount is one language's share of the indexed file set.
type LanguageCount struct {
	Language string
	Files    int
}

// ListLanguages returns every language with indexed files, file counts
// descending then language ascending.
func (e *Engine) ListLanguages(ctx context.Context) ([]LanguageCount, error) {
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, f := range files {
		counts[f.Language]++
	}
	out := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, LanguageCount{Language: lang, Files: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Files != out[j].Files {
			return out[i].Files > out[j].Files
		}
		return out[i].Language < out[j].Language
	})
	return out, nil
}

// RepoOverviewResult is repo_overview's response: the cheap, whole-repo
// headline numbers, as opposed to repo_map's per-module breakdown.
type RepoOverviewResult struct {
	GraphVersion int64
	FileCount    int
	SymbolCount  int
	ByLanguage   []LanguageCount
	ByKind       map[model.SymbolKind]int
	NextHops     []NextHop
}

// RepoOverview gives a one-shot headline summary of the indexed repository,
// the first call a caller unfamiliar with the repo would make.
func (e *Engine) RepoOverview(ctx context.Context) (RepoOverviewResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return RepoOverviewResult{}, err
	}
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return RepoOverviewResult{}, err
	}
	byLang, err := e.ListLanguages(ctx)
	if err != nil {
		return RepoOverviewResult{}, err
	}

	byKind := map[model.SymbolKind]int{}
	total := 0
	for _, f := range files {
		syms, err := e.st.SymbolsForFile(ctx, f.ID, version)
		if err != nil {
			return RepoOverviewResult{}, err
		}
		for _, s := range syms {
			byKind[s.Kind]++
			total++
		}
	}

	return RepoOverviewResult{
		GraphVersion: version,
		FileCount:    len(files),
		SymbolCount:  total,
		ByLanguage:   byLang,
		ByKind:       byKind,
		NextHops:     []NextHop{hop("repo_map", map[string]any{}), hop("repo_insights", map[string]any{})},
	}, nil
}

// RepoInsightsResult is repo_insights' response: a digest of the handful of
// things worth a maintainer's attention, each already available from a more
// targeted call but worth surfacing up front.
type RepoInsightsResult struct {
	MostComplex     []ComplexitySummary
	DuplicateGroups int
	DeadSymbols     int
	UnresolvedEdges int
	NextHops        []NextHop
}

// ComplexitySummary is one symbol's complexity, trimmed of the full Symbol
// struct for a compact insights listing.
type ComplexitySummary struct {
	Qualname   string
	Cyclomatic int
}

// RepoInsights combines top_complexity, duplicate_groups, dead_symbols, and
// the unresolved-edge count into one digest, capped to the top few of each.
func (e *Engine) RepoInsights(ctx context.Context) (RepoInsightsResult, error) {
	top, err := e.TopComplexity(ctx, 5)
	if err != nil {
		return RepoInsightsResult{}, err
	}
	summaries := make([]ComplexitySummary, 0, len(top.Symbols))
	for _, r := range top.Symbols {
		summaries = append(summaries, ComplexitySummary{Qualname: r.Symbol.Qualname, Cyclomatic: r.Cyclomatic})
	}

	dupes, err := e.DuplicateGroups(ctx, 2)
	if err != nil {
		return RepoInsightsResult{}, err
	}
	dead, err := e.DeadSymbols(ctx)
	if err != nil {
		return RepoInsightsResult{}, err
	}
	diag, err := e.Diagnostics(ctx)
	if err != nil {
		return RepoInsightsResult{}, err
	}

	return RepoInsightsResult{
		MostComplex:     summaries,
		DuplicateGroups: len(dupes.Groups),
		DeadSymbols:     len(dead.Symbols),
		UnresolvedEdges: diag.TotalUnresolved,
		NextHops: []NextHop{
			hop("top_complexity", map[string]any{}),
			hop("duplicate_groups", map[string]any{}),
			hop("dead_symbols", map[string]any{}),
		},
	}, nil
}

// TopComplexityResult is top_complexity's response.
type TopComplexityResult struct {
	Symbols  []store.ComplexityRank
	NextHops []NextHop
}

// TopComplexity returns the limit live symbols with the highest recorded
// cyclomatic complexity, descending.
func (e *Engine) TopComplexity(ctx context.Context, limit int) (TopComplexityResult, error) {
	if limit <= 0 {
		limit = 20
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return TopComplexityResult{}, err
	}
	ranks, err := e.st.TopComplexity(ctx, version, limit)
	if err != nil {
		return TopComplexityResult{}, err
	}
	return TopComplexityResult{Symbols: ranks, NextHops: []NextHop{hop("repo_insights", map[string]any{})}}, nil
}

// DuplicateGroup is one set of symbols sharing a token shingle.
type DuplicateGroup struct {
	Shingle string
	Symbols []model.Symbol
}

// DuplicateGroupsResult is duplicate_groups' response.
type DuplicateGroupsResult struct {
	Groups   []DuplicateGroup
	NextHops []NextHop
}

// DuplicateGroups returns every group of minSize or more live symbols whose
// bodies reduced to the same token shingle, sorted by group size descending.
func (e *Engine) DuplicateGroups(ctx context.Context, minSize int) (DuplicateGroupsResult, error) {
	if minSize < 2 {
		minSize = 2
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return DuplicateGroupsResult{}, err
	}
	byShingle, err := e.st.DuplicateGroups(ctx, version, minSize)
	if err != nil {
		return DuplicateGroupsResult{}, err
	}
	groups := make([]DuplicateGroup, 0, len(byShingle))
	for shingle, syms := range byShingle {
		groups = append(groups, DuplicateGroup{Shingle: shingle, Symbols: syms})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Symbols) != len(groups[j].Symbols) {
			return len(groups[i].Symbols) > len(groups[j].Symbols)
		}
		return groups[i].Shingle < groups[j].Shingle
	})
	return DuplicateGroupsResult{Groups: groups}, nil
}

// DeadSymbolsResult is dead_symbols' response.
type DeadSymbolsResult struct {
	Symbols  []model.Symbol
	NextHops []NextHop
}

// deadSymbolCandidateKinds are the kinds CALLS/IMPLEMENTS/EXTENDS edges
// actually reference. Routes, RPC services/methods, and proto messages are
// deliberately excluded: those are reached by a router or RPC framework
// outside the graph, not by an in-graph edge, so fan_in == 0 is normal for
// them rather than evidence of dead code.
var deadSymbolCandidateKinds = []model.SymbolKind{
	model.KindFunction, model.KindMethod,
	model.KindClass, model.KindStruct, model.KindInterface, model.KindTrait, model.KindEnum,
}

// DeadSymbols returns live function/method/type symbols with zero recorded
// fan-in: never called, never extended, never implemented, never
// referenced by anything else the graph tracks.
func (e *Engine) DeadSymbols(ctx context.Context) (DeadSymbolsResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return DeadSymbolsResult{}, err
	}
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return DeadSymbolsResult{}, err
	}
	wanted := make(map[model.SymbolKind]bool, len(deadSymbolCandidateKinds))
	for _, k := range deadSymbolCandidateKinds {
		wanted[k] = true
	}

	var candidates []model.Symbol
	for _, f := range files {
		syms, err := e.st.SymbolsForFile(ctx, f.ID, version)
		if err != nil {
			return DeadSymbolsResult{}, err
		}
		for _, s := range syms {
			if wanted[s.Kind] {
				candidates = append(candidates, s)
			}
		}
	}

	ids := make([]int64, len(candidates))
	for i, s := range candidates {
		ids[i] = s.ID
	}
	fanIn, err := e.st.FanInBulk(ctx, ids)
	if err != nil {
		return DeadSymbolsResult{}, err
	}

	var dead []model.Symbol
	for _, s := range candidates {
		if fanIn[s.ID] == 0 {
			dead = append(dead, s)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].Qualname < dead[j].Qualname })
	return DeadSymbolsResult{Symbols: dead}, nil
}

// UnusedImportsResult is unused_imports' response.
type UnusedImportsResult struct {
	Edges    []model.Edge
	NextHops []NextHop
}

// UnusedImports returns IMPORTS edges that never resolved to a target
// symbol: a module path that doesn't exist in the graph, as good a proxy
// for an unused/stale import as the graph can give without re-parsing each
// importing file's usage sites.
func (e *Engine) UnusedImports(ctx context.Context) (UnusedImportsResult, error) {
	edges, err := e.st.UnresolvedEdgesByKind(ctx, model.EdgeImports)
	if err != nil {
		return UnusedImportsResult{}, err
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].TargetQualname < edges[j].TargetQualname })
	return UnusedImportsResult{Edges: edges}, nil
}

// OrphanTestsResult is orphan_tests' response.
type OrphanTestsResult struct {
	Edges    []model.Edge
	NextHops []NextHop
}

// OrphanTests returns TESTS edges whose subject symbol no longer resolves:
// a test that once targeted a real function, which has since been renamed
// or deleted out from under it.
func (e *Engine) OrphanTests(ctx context.Context) (OrphanTestsResult, error) {
	edges, err := e.st.UnresolvedEdgesByKind(ctx, model.EdgeTests)
	if err != nil {
		return OrphanTestsResult{}, err
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].TargetQualname < edges[j].TargetQualname })
	return OrphanTestsResult{Edges: edges}, nil
}

// RouteRef pairs an HTTP route with the call sites that target it.
type RouteRef struct {
	Route    model.Symbol
	CalledBy []model.Edge
}

// RouteRefsResult is route_refs' response.
type RouteRefsResult struct {
	Routes   []RouteRef
	NextHops []NextHop
}

// RouteRefs returns every live HTTP route symbol together with the
// HTTP_CALL edges resolved against it, so a caller can see which client
// code actually exercises a given endpoint.
func (e *Engine) RouteRefs(ctx context.Context) (RouteRefsResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return RouteRefsResult{}, err
	}
	routes, err := e.st.SymbolsByKind(ctx, model.KindRoute, version)
	if err != nil {
		return RouteRefsResult{}, err
	}
	out := make([]RouteRef, 0, len(routes))
	for _, r := range routes {
		callers, err := e.st.EdgesTo(ctx, r.ID, []model.EdgeKind{model.EdgeHTTPCall})
		if err != nil {
			return RouteRefsResult{}, err
		}
		out = append(out, RouteRef{Route: r, CalledBy: callers})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route.Qualname < out[j].Route.Qualname })
	return RouteRefsResult{Routes: out}, nil
}

// EdgeKindStatus is one edge kind's resolved/unresolved split.
type EdgeKindStatus struct {
	Kind       model.EdgeKind
	Resolved   int
	Unresolved int
}

// FlowStatusResult is flow_status' response.
type FlowStatusResult struct {
	Boundaries []EdgeKindStatus
	NextHops   []NextHop
}

// flowBoundaryKinds are the edge kinds trace_flow treats as crossing a
// language/protocol boundary; flow_status reports how well each is
// resolving against the current graph.
var flowBoundaryKinds = []model.EdgeKind{
	model.EdgeHTTPRoute, model.EdgeHTTPCall,
	model.EdgeRPCImpl, model.EdgeRPCCall,
	model.EdgeChannelPublish, model.EdgeChannelSubscribe,
}

// FlowStatus reports, per boundary-crossing edge kind, how many live edges
// of that kind have resolved to a target symbol versus not: a health check
// for trace_flow before relying on it for a specific boundary kind.
func (e *Engine) FlowStatus(ctx context.Context) (FlowStatusResult, error) {
	var out []EdgeKindStatus
	for _, kind := range flowBoundaryKinds {
		unresolved, err := e.st.UnresolvedEdgesByKind(ctx, kind)
		if err != nil {
			return FlowStatusResult{}, err
		}
		resolvedCount, err := e.countResolvedEdges(ctx, kind)
		if err != nil {
			return FlowStatusResult{}, err
		}
		out = append(out, EdgeKindStatus{Kind: kind, Resolved: resolvedCount, Unresolved: len(unresolved)})
	}
	return FlowStatusResult{Boundaries: out}, nil
}

func (e *Engine) countResolvedEdges(ctx context.Context, kind model.EdgeKind) (int, error) {
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		syms, err := e.st.SymbolsForFile(ctx, f.ID, version)
		if err != nil {
			return 0, err
		}
		for _, s := range syms {
			edges, err := e.st.EdgesFrom(ctx, s.ID, []model.EdgeKind{kind})
			if err != nil {
				return 0, err
			}
			for _, edge := range edges {
				if edge.TargetSymbolID != nil {
					count++
				}
			}
		}
	}
	return count, nil
}

// DiagnosticsResult is diagnostics' response: a whole-repo roll-up of every
// edge-resolution and parse-health signal the indexer tracks.
type DiagnosticsResult struct {
	UnresolvedByKind map[model.EdgeKind]int
	TotalUnresolved  int
	ParseErrors      int
	NextHops         []NextHop
}

// diagnosticEdgeKinds are the edge kinds worth reporting unresolved counts
// for; structural edges like CONTAINS are always resolved by construction
// and omitted.
var diagnosticEdgeKinds = []model.EdgeKind{
	model.EdgeCalls, model.EdgeImports, model.EdgeExtends, model.EdgeImplements,
	model.EdgeInherits, model.EdgeTypeRef, model.EdgeHTTPRoute, model.EdgeHTTPCall,
	model.EdgeRPCImpl, model.EdgeRPCCall, model.EdgeChannelPublish, model.EdgeChannelSubscribe,
	model.EdgeXRef, model.EdgeTests,
}

// Diagnostics reports, per edge kind, how many live edges never resolved
// to a target symbol, plus the count of PARSE_ERROR edges the extractors
// emitted for files their grammar couldn't parse.
func (e *Engine) Diagnostics(ctx context.Context) (DiagnosticsResult, error) {
	byKind := map[model.EdgeKind]int{}
	total := 0
	for _, kind := range diagnosticEdgeKinds {
		edges, err := e.st.UnresolvedEdgesByKind(ctx, kind)
		if err != nil {
			return DiagnosticsResult{}, err
		}
		byKind[kind] = len(edges)
		total += len(edges)
	}
	parseErrors, err := e.st.UnresolvedEdgesByKind(ctx, model.EdgeParseError)
	if err != nil {
		return DiagnosticsResult{}, err
	}
	return DiagnosticsResult{UnresolvedByKind: byKind, TotalUnresolved: total, ParseErrors: len(parseErrors)}, nil
}
