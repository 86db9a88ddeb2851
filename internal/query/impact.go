// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/semantic"
)

// ImpactHit is one symbol reached by analyze_impact, with per-layer evidence
// and a noisy-OR fused confidence.
type ImpactHit struct {
	Symbol     model.Symbol
	Evidence   map[string]float64 // layer name -> confidence
	Confidence float64
}

// ImpactResult is analyze_impact's response. LayerErrors records which
// layers failed (by name) without aborting the others.
type ImpactResult struct {
	Hits        []ImpactHit
	LayerErrors map[string]string
	NextHops    []NextHop
}

// AnalyzeImpact runs three independent layers (direct, test, historical)
// concurrently from seed, plus a semantic layer when the engine's ranker is
// not semantic.NoopRanker, and fuses their confidences with noisy-OR: 1 - prod(1 - c_i). direction is
// "upstream" (who calls seed, via incoming edges) or "downstream" (what seed
// calls, via outgoing edges).
func (e *Engine) AnalyzeImpact(ctx context.Context, seed, direction string, depth int) (ImpactResult, error) {
	if depth <= 0 {
		depth = e.cfg.Impact.BFSMaxDepth
	}
	if depth <= 0 {
		depth = 3
	}
	decay := e.cfg.Impact.PerHopDecay
	if decay <= 0 {
		decay = 0.7
	}
	maxNodes := e.cfg.Impact.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 500
	}

	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return ImpactResult{}, err
	}
	seedSym, err := e.resolveOneSymbol(ctx, seed, version)
	if err != nil {
		return ImpactResult{}, err
	}

	type layerOutcome struct {
		name string
		hits map[int64]float64
		err  error
	}
	layers := []func(context.Context) layerOutcome{
		func(ctx context.Context) layerOutcome {
			hits, err := e.directLayer(ctx, seedSym, direction, depth, decay, maxNodes)
			return layerOutcome{"direct", hits, err}
		},
		func(ctx context.Context) layerOutcome {
			hits, err := e.testLayer(ctx, seedSym)
			return layerOutcome{"test", hits, err}
		},
		func(ctx context.Context) layerOutcome {
			hits, err := e.historicalLayer(ctx, seedSym)
			return layerOutcome{"historical", hits, err}
		},
	}
	if _, ok := e.ranker.(semantic.NoopRanker); !ok {
		layers = append(layers, func(ctx context.Context) layerOutcome {
			hits, err := e.semanticLayer(ctx, seedSym, version)
			return layerOutcome{"semantic", hits, err}
		})
	}

	outcomes := make([]layerOutcome, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, layerFn := range layers {
		i, layerFn := i, layerFn
		g.Go(func() error {
			outcomes[i] = layerFn(gctx)
			return nil
		})
	}
	_ = g.Wait()

	evidence := make(map[int64]map[string]float64)
	layerErrors := make(map[string]string)
	for _, o := range outcomes {
		if o.err != nil {
			layerErrors[o.name] = o.err.Error()
			continue
		}
		for id, conf := range o.hits {
			if evidence[id] == nil {
				evidence[id] = make(map[string]float64)
			}
			evidence[id][o.name] = conf
		}
	}

	hits := make([]ImpactHit, 0, len(evidence))
	for id, ev := range evidence {
		sym, err := e.st.SymbolByID(ctx, id)
		if err != nil {
			continue
		}
		hits = append(hits, ImpactHit{Symbol: sym, Evidence: ev, Confidence: fuseNoisyOR(ev)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Confidence != hits[j].Confidence {
			return hits[i].Confidence > hits[j].Confidence
		}
		return hits[i].Symbol.Qualname < hits[j].Symbol.Qualname
	})

	var hops []NextHop
	for _, h := range hits {
		if h.Symbol.Qualname != seedSym.Qualname {
			hops = append(hops, hop("analyze_diff", map[string]any{"paths": []string{}}))
			break
		}
	}
	return ImpactResult{Hits: hits, LayerErrors: layerErrors, NextHops: hops}, nil
}

// fuseNoisyOR combines independent per-layer confidences into one: a symbol
// reached by several layers is more likely truly affected than one reached
// by a single weak signal.
func fuseNoisyOR(evidence map[string]float64) float64 {
	product := 1.0
	for _, c := range evidence {
		product *= 1 - c
	}
	return 1 - product
}

func (e *Engine) directLayer(ctx context.Context, seed model.Symbol, direction string, depth int, decay float64, maxNodes int) (map[int64]float64, error) {
	hits := map[int64]float64{}
	frontier := map[int64]float64{seed.ID: 1.0}
	visited := map[int64]bool{seed.ID: true}

	for d := 0; d < depth && len(frontier) > 0 && len(hits) < maxNodes; d++ {
		next := map[int64]float64{}
		for id, conf := range frontier {
			var edges []model.Edge
			var err error
			if direction == "upstream" {
				edges, err = e.st.EdgesTo(ctx, id, nil)
			} else {
				edges, err = e.st.EdgesFrom(ctx, id, nil)
			}
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				var otherID *int64
				if direction == "upstream" {
					otherID = edge.SourceSymbolID
				} else {
					otherID = edge.TargetSymbolID
				}
				if otherID == nil || visited[*otherID] {
					continue
				}
				visited[*otherID] = true
				propagated := conf * edge.Confidence * decay
				next[*otherID] = propagated
				hits[*otherID] = propagated
			}
		}
		frontier = next
	}
	return hits, nil
}

// testLayer attaches tests that call the seed directly or call one of its
// direct callers (indirect coverage), at confidence 1.0 for direct and 0.6
// for indirect.
func (e *Engine) testLayer(ctx context.Context, seed model.Symbol) (map[int64]float64, error) {
	hits := map[int64]float64{}
	direct, err := e.st.EdgesTo(ctx, seed.ID, []model.EdgeKind{model.EdgeTests})
	if err != nil {
		return nil, err
	}
	for _, edge := range direct {
		if edge.SourceSymbolID != nil {
			hits[*edge.SourceSymbolID] = 1.0
		}
	}

	callers, err := e.st.EdgesTo(ctx, seed.ID, []model.EdgeKind{model.EdgeCalls})
	if err != nil {
		return nil, err
	}
	for _, callerEdge := range callers {
		if callerEdge.SourceSymbolID == nil {
			continue
		}
		indirect, err := e.st.EdgesTo(ctx, *callerEdge.SourceSymbolID, []model.EdgeKind{model.EdgeTests})
		if err != nil {
			return nil, err
		}
		for _, edge := range indirect {
			if edge.SourceSymbolID == nil {
				continue
			}
			if _, already := hits[*edge.SourceSymbolID]; !already {
				hits[*edge.SourceSymbolID] = 0.6
			}
		}
	}
	return hits, nil
}

// historicalLayer boosts symbols whose file is a historical co-change
// partner of the seed's file.
func (e *Engine) historicalLayer(ctx context.Context, seed model.Symbol) (map[int64]float64, error) {
	file, err := e.st.FileByID(ctx, seed.FileID)
	if err != nil {
		return nil, err
	}
	partners, err := e.st.CoChangesFor(ctx, file.Path, 20)
	if err != nil {
		return nil, err
	}

	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	hits := map[int64]float64{}
	for _, partner := range partners {
		partnerPath := partner.FileB
		if partnerPath == file.Path {
			partnerPath = partner.FileA
		}
		pf, err := e.st.FindFileByPath(ctx, partnerPath)
		if err != nil {
			continue
		}
		syms, err := e.st.SymbolsForFile(ctx, pf.ID, version)
		if err != nil {
			continue
		}
		conf := partnerConfidence(partner)
		for _, s := range syms {
			hits[s.ID] = conf
		}
	}
	return hits, nil
}

func partnerConfidence(c model.CoChange) float64 {
	minCommits := c.CommitsA
	if c.CommitsB < minCommits {
		minCommits = c.CommitsB
	}
	if minCommits <= 0 {
		return 0
	}
	conf := float64(c.Count) / float64(minCommits)
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// semanticLayer retrieves symbols similar to the seed via the configured
// ranker, when one beyond the no-op default is wired in.
func (e *Engine) semanticLayer(ctx context.Context, seed model.Symbol, version int64) (map[int64]float64, error) {
	pool, err := e.st.SearchSymbolsByName(ctx, "", version, 2000)
	if err != nil {
		return nil, err
	}
	candidates := make([]semantic.Candidate, 0, len(pool))
	byQualname := make(map[string]model.Symbol, len(pool))
	for _, s := range pool {
		if s.ID == seed.ID {
			continue
		}
		byQualname[s.Qualname] = s
		candidates = append(candidates, semantic.Candidate{Qualname: s.Qualname})
	}

	ranked, err := e.ranker.Rank(ctx, seed.Qualname, candidates)
	if err != nil {
		return nil, err
	}
	hits := map[int64]float64{}
	for _, r := range ranked {
		if s, ok := byQualname[r.Qualname]; ok {
			hits[s.ID] = r.Score
		}
	}
	return hits, nil
}
