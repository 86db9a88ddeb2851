// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/kraklabs/codegraph/internal/model"
)

// ModuleSummary is one directory-leaf module in repo_map's output.
type ModuleSummary struct {
	Path            string
	FileCount       int
	DominantLang    string
	SymbolCount     int
	TopSymbols      []ModuleSymbolRank
	InterModuleEdge int
}

// ModuleSymbolRank is one symbol ranked by fan-in within its module.
type ModuleSymbolRank struct {
	Qualname string
	FanIn    int
}

// RepoMapResult is repo_map's response: a compact, deterministically
// ordered digest of the indexed repository.
type RepoMapResult struct {
	Modules           []ModuleSummary
	ArchitecturePattern map[string]int
	BudgetBytes       int
	NextHops          []NextHop
}

// RepoMap assembles modules (leaf = directory) with file counts and
// dominant language, inter-module edge counts, top-N symbols per module by
// fan-in, and architectural pattern counts, trimming modules once the
// budget is exhausted. Output ordering is stable: module symbol count desc,
// symbol fan-in desc, qualname asc.
func (e *Engine) RepoMap(ctx context.Context, budgetBytes int) (RepoMapResult, error) {
	if budgetBytes <= 0 {
		budgetBytes = 8000
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return RepoMapResult{}, err
	}
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return RepoMapResult{}, err
	}

	type modAccum struct {
		files     int
		langCount map[string]int
		symbols   []model.Symbol
	}
	accum := make(map[string]*modAccum)
	fileModule := make(map[int64]string)

	for _, f := range files {
		mod := filepath.Dir(f.Path)
		if accum[mod] == nil {
			accum[mod] = &modAccum{langCount: map[string]int{}}
		}
		accum[mod].files++
		accum[mod].langCount[f.Language]++
		fileModule[f.ID] = mod

		symbols, err := e.st.SymbolsForFile(ctx, f.ID, version)
		if err != nil {
			return RepoMapResult{}, err
		}
		accum[mod].symbols = append(accum[mod].symbols, symbols...)
	}

	patterns := map[string]int{}
	interModuleEdges := make(map[string]int)

	var modules []ModuleSummary
	for mod, a := range accum {
		ids := make([]int64, len(a.symbols))
		for i, s := range a.symbols {
			ids[i] = s.ID
		}
		fanIn, ferr := e.st.FanInBulk(ctx, ids)
		if ferr != nil {
			return RepoMapResult{}, ferr
		}

		ranks := make([]ModuleSymbolRank, 0, len(a.symbols))
		for _, s := range a.symbols {
			ranks = append(ranks, ModuleSymbolRank{Qualname: s.Qualname, FanIn: fanIn[s.ID]})
			if s.Kind == model.KindRPCService {
				patterns["rpc_service"]++
			}
			if s.Kind == model.KindRoute {
				patterns["http_route"]++
			}

			edges, eerr := e.st.EdgesFrom(ctx, s.ID, nil)
			if eerr != nil {
				return RepoMapResult{}, eerr
			}
			for _, edge := range edges {
				if edge.TargetSymbolID == nil {
					continue
				}
				target, terr := e.st.SymbolByID(ctx, *edge.TargetSymbolID)
				if terr != nil {
					continue
				}
				if targetMod, ok := fileModule[target.FileID]; ok && targetMod != mod {
					interModuleEdges[mod]++
				}
			}
		}
		sort.Slice(ranks, func(i, j int) bool {
			if ranks[i].FanIn != ranks[j].FanIn {
				return ranks[i].FanIn > ranks[j].FanIn
			}
			return ranks[i].Qualname < ranks[j].Qualname
		})
		if len(ranks) > 10 {
			ranks = ranks[:10]
		}

		dominant := ""
		best := -1
		for lang, count := range a.langCount {
			if count > best {
				best = count
				dominant = lang
			}
		}

		modules = append(modules, ModuleSummary{
			Path:            mod,
			FileCount:       a.files,
			DominantLang:    dominant,
			SymbolCount:     len(a.symbols),
			TopSymbols:      ranks,
			InterModuleEdge: interModuleEdges[mod],
		})
	}

	sort.Slice(modules, func(i, j int) bool {
		if modules[i].SymbolCount != modules[j].SymbolCount {
			return modules[i].SymbolCount > modules[j].SymbolCount
		}
		return modules[i].Path < modules[j].Path
	})

	used := 0
	trimmed := modules[:0]
	for _, m := range modules {
		size := len(m.Path) + 32 + len(m.TopSymbols)*24
		if used+size > budgetBytes && len(trimmed) > 0 {
			break
		}
		trimmed = append(trimmed, m)
		used += size
	}

	return RepoMapResult{Modules: trimmed, ArchitecturePattern: patterns, BudgetBytes: budgetBytes}, nil
}
