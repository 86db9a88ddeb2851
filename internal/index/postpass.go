// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package index

import (
	"context"
	"database/sql"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/store"
)

// RunPostPass links symbols across files and across languages that the
// per-file extractors could only leave as bare evidence: HTTP_CALL literals
// against HTTP_ROUTE patterns, matching channel names between publish and
// subscribe sites, RPC_IMPL edges against implementing-language symbols
// named after the proto method, naming-convention TESTS edges between test
// functions and the code they exercise, and textual XREF edges from a
// docstring mentioning another symbol's qualname. Every edge this pass
// creates is textual, never an AST-resolved reference, so it carries
// confidence < 1.0.
func RunPostPass(ctx context.Context, st *store.Store, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	version, err := st.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	return st.Write(ctx, func(tx *sql.Tx) error {
		linked := 0

		n, err := linkRoutes(ctx, tx, version)
		if err != nil {
			return err
		}
		linked += n

		n, err = linkChannels(ctx, tx, version)
		if err != nil {
			return err
		}
		linked += n

		n, err = linkRPCImpl(ctx, tx, version)
		if err != nil {
			return err
		}
		linked += n

		n, err = linkTests(ctx, tx, version)
		if err != nil {
			return err
		}
		linked += n

		n, err = linkXRef(ctx, tx, version)
		if err != nil {
			return err
		}
		linked += n

		if err := store.RecomputeFanInFanOutTx(ctx, tx, version); err != nil {
			return err
		}

		log.Info("index.postpass.done", "edges_linked", linked)
		return nil
	})
}

// linkRoutes matches every unresolved HTTP_CALL edge's evidence (the called
// URL literal) against every HTTP_ROUTE symbol's signature (the route
// pattern, e.g. "GET /users/:id"), resolving on a literal-path match after
// stripping path parameters from the pattern side.
func linkRoutes(ctx context.Context, tx *sql.Tx, version int64) (int, error) {
	calls, err := store.UnresolvedEdgesByKindTx(ctx, tx, model.EdgeHTTPCall)
	if err != nil {
		return 0, err
	}
	if len(calls) == 0 {
		return 0, nil
	}
	routes, err := store.SymbolsByKindTx(ctx, tx, model.KindRoute, version)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, call := range calls {
		for _, route := range routes {
			if routeMatches(route.Signature, call.Evidence) {
				if err := store.ResolveEdgeTarget(ctx, tx, call.ID, route.ID, 0.7); err != nil {
					return linked, err
				}
				linked++
				break
			}
		}
	}
	return linked, nil
}

// routeMatches compares an HTTP_ROUTE signature like "GET /users/:id" or
// "GET /users/{id}" against a called path, treating ":name"/"{name}"
// segments as wildcards.
func routeMatches(routeSig, calledPath string) bool {
	parts := strings.Fields(routeSig)
	pattern := routeSig
	if len(parts) == 2 {
		pattern = parts[1]
	}
	calledPath = strings.TrimSpace(calledPath)
	if idx := strings.IndexAny(calledPath, "?#"); idx >= 0 {
		calledPath = calledPath[:idx]
	}

	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	callSegs := strings.Split(strings.Trim(calledPath, "/"), "/")
	if len(patSegs) != len(callSegs) {
		return false
	}
	for i, seg := range patSegs {
		if strings.HasPrefix(seg, ":") || (strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")) {
			continue
		}
		if seg != callSegs[i] {
			return false
		}
	}
	return true
}

// linkChannels pairs every CHANNEL_PUBLISH edge with every CHANNEL_SUBSCRIBE
// edge naming the same channel, resolving the subscribe edge's target to
// the publishing symbol (direction chosen so "who reacts to this publish"
// is a single incoming-edge walk into the publisher).
func linkChannels(ctx context.Context, tx *sql.Tx, version int64) (int, error) {
	publishes, err := store.UnresolvedEdgesByKindTx(ctx, tx, model.EdgeChannelPublish)
	if err != nil {
		return 0, err
	}
	subscribes, err := store.UnresolvedEdgesByKindTx(ctx, tx, model.EdgeChannelSubscribe)
	if err != nil {
		return 0, err
	}
	if len(publishes) == 0 || len(subscribes) == 0 {
		return 0, nil
	}

	linked := 0
	for _, pub := range publishes {
		if pub.SourceSymbolID == nil {
			continue
		}
		channel := strings.TrimSpace(pub.TargetQualname)
		for _, sub := range subscribes {
			if strings.TrimSpace(sub.TargetQualname) != channel {
				continue
			}
			if err := store.ResolveEdgeTarget(ctx, tx, sub.ID, *pub.SourceSymbolID, 0.6); err != nil {
				return linked, err
			}
			linked++
		}
	}
	return linked, nil
}

// linkRPCImpl resolves every unresolved RPC_IMPL edge (emitted by protoext
// with the bare rpc method name in Evidence, no target known) against the
// implementing function or method carrying that same name by convention,
// in whichever language declared it. The edge's source, also left unset at
// extraction time, is resolved to the proto rpc_method symbol declared in
// the same file as the edge so a flow trace can walk outward from it.
func linkRPCImpl(ctx context.Context, tx *sql.Tx, version int64) (int, error) {
	pending, err := store.UnresolvedEdgesByKindTx(ctx, tx, model.EdgeRPCImpl)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	rpcMethods, err := store.SymbolsByKindTx(ctx, tx, model.KindRPCMethod, version)
	if err != nil {
		return 0, err
	}
	candidates, err := implementationCandidates(ctx, tx, version)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, edge := range pending {
		method := strings.TrimSpace(edge.Evidence)
		if method == "" {
			continue
		}
		var protoSym *model.Symbol
		for i := range rpcMethods {
			if rpcMethods[i].FileID == edge.SourceFileID && strings.HasSuffix(rpcMethods[i].Name, "."+method) {
				protoSym = &rpcMethods[i]
				break
			}
		}
		if protoSym == nil {
			continue
		}

		var match *model.Symbol
		ambiguous := false
		for i := range candidates {
			if normalizeIdent(candidates[i].Name) == normalizeIdent(method) {
				if match != nil {
					ambiguous = true
					break
				}
				match = &candidates[i]
			}
		}
		if match == nil || ambiguous {
			continue
		}

		if err := store.ResolveEdgeEndpoints(ctx, tx, edge.ID, protoSym.ID, match.ID, 0.5); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// implementationCandidates returns every live function/method symbol,
// the pool linkRPCImpl and linkTests both match rpc methods and test names
// against.
func implementationCandidates(ctx context.Context, tx *sql.Tx, version int64) ([]model.Symbol, error) {
	funcs, err := store.SymbolsByKindTx(ctx, tx, model.KindFunction, version)
	if err != nil {
		return nil, err
	}
	methods, err := store.SymbolsByKindTx(ctx, tx, model.KindMethod, version)
	if err != nil {
		return nil, err
	}
	return append(funcs, methods...), nil
}

// testNamePrefixes are the per-language conventions a test symbol's name is
// expected to carry: Go/JS PascalCase "Test", Python/JS snake_case "test_".
var testNamePrefixes = []string{"test_", "Test", "test"}

// linkTests matches every function/method symbol named by a test-naming
// convention against the symbol it exercises, stripping the convention's
// prefix and comparing case/underscore-insensitively (TestCharge ~ Charge,
// test_charge ~ charge). A test name with no live match at all still gets
// an edge, left unresolved with the expected name in target_qualname, so
// orphan_tests can surface a test whose subject was renamed or deleted out
// from under it — an ambiguous match (more than one same-named candidate)
// is left alone, since nothing here can tell which one is right. TESTS is
// fully owned by this detector, so it's recomputed from scratch every run
// rather than resolving pre-existing rows: a renamed or deleted test must
// not leave a stale edge behind.
func linkTests(ctx context.Context, tx *sql.Tx, version int64) (int, error) {
	if err := store.DeleteEdgesByKindTx(ctx, tx, model.EdgeTests); err != nil {
		return 0, err
	}
	candidates, err := implementationCandidates(ctx, tx, version)
	if err != nil {
		return 0, err
	}

	byNormalized := make(map[string][]model.Symbol, len(candidates))
	for _, sym := range candidates {
		key := normalizeIdent(sym.Name)
		byNormalized[key] = append(byNormalized[key], sym)
	}

	linked := 0
	for _, test := range candidates {
		stripped, ok := stripTestPrefix(test.Name)
		if !ok {
			continue
		}
		targets := byNormalized[normalizeIdent(stripped)]
		switch {
		case len(targets) == 1 && targets[0].ID != test.ID:
			target := targets[0]
			if err := store.InsertResolvedEdgeTx(ctx, tx, test.FileID, model.Edge{
				Kind:           model.EdgeTests,
				SourceSymbolID: &test.ID,
				TargetSymbolID: &target.ID,
				Evidence:       test.Name,
				Confidence:     0.75,
				GraphVersion:   version,
			}); err != nil {
				return linked, err
			}
			linked++
		case len(targets) == 0:
			if err := store.InsertResolvedEdgeTx(ctx, tx, test.FileID, model.Edge{
				Kind:           model.EdgeTests,
				SourceSymbolID: &test.ID,
				TargetQualname: stripped,
				Evidence:       test.Name,
				Confidence:     0.75,
				GraphVersion:   version,
			}); err != nil {
				return linked, err
			}
			linked++
		}
	}
	return linked, nil
}

// stripTestPrefix reports whether name follows a recognized test-naming
// convention and, if so, returns the name of the symbol it's expected to
// exercise.
func stripTestPrefix(name string) (string, bool) {
	for _, prefix := range testNamePrefixes {
		if len(name) <= len(prefix) || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if rest == "" {
			continue
		}
		return rest, true
	}
	return "", false
}

// normalizeIdent folds a symbol name to a case/underscore-insensitive key
// so CamelCase and snake_case spellings of the same concept compare equal.
func normalizeIdent(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// qualnameMentionRe matches a dotted identifier chain in free text, the
// shape a docstring uses to reference another symbol by qualname or by a
// unique trailing suffix of one (e.g. "see also billing.Charge").
var qualnameMentionRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+\b`)

// linkXRef scans every live symbol's docstring for a dotted-identifier
// mention of another symbol and, when that mention resolves unambiguously
// by qualname or suffix to a symbol in a different file's language, records
// a cross-language XREF edge. Like TESTS, XREF has no other producer, so
// it's recomputed from scratch every run.
func linkXRef(ctx context.Context, tx *sql.Tx, version int64) (int, error) {
	if err := store.DeleteEdgesByKindTx(ctx, tx, model.EdgeXRef); err != nil {
		return 0, err
	}
	documented, err := store.SymbolsWithDocstringsTx(ctx, tx, version)
	if err != nil {
		return 0, err
	}
	if len(documented) == 0 {
		return 0, nil
	}

	fileIDs := make([]int64, 0, len(documented))
	for _, sym := range documented {
		fileIDs = append(fileIDs, sym.FileID)
	}
	languages, err := store.FileLanguagesTx(ctx, tx, fileIDs)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, sym := range documented {
		srcLang := languages[sym.FileID]
		for _, mention := range qualnameMentionRe.FindAllString(sym.Docstring, -1) {
			target, ok, err := resolveXRefMention(ctx, tx, mention, version)
			if err != nil {
				return linked, err
			}
			if !ok || target.ID == sym.ID {
				continue
			}
			if languages[target.FileID] == "" {
				languages[target.FileID], _ = singleFileLanguageTx(ctx, tx, target.FileID)
			}
			if languages[target.FileID] == srcLang {
				continue
			}

			targetID := target.ID
			if err := store.InsertResolvedEdgeTx(ctx, tx, sym.FileID, model.Edge{
				Kind:           model.EdgeXRef,
				SourceSymbolID: &sym.ID,
				TargetSymbolID: &targetID,
				Evidence:       mention,
				Confidence:     0.4,
				GraphVersion:   version,
			}); err != nil {
				return linked, err
			}
			linked++
		}
	}
	return linked, nil
}

// resolveXRefMention looks a docstring's dotted-identifier mention up as an
// exact qualname first, falling back to a unique suffix match, exactly like
// the batch writer's own edge resolution does for code-level references.
func resolveXRefMention(ctx context.Context, tx *sql.Tx, mention string, version int64) (model.Symbol, bool, error) {
	exact, err := store.FindSymbolsByQualnameTx(ctx, tx, mention, version)
	if err != nil {
		return model.Symbol{}, false, err
	}
	if len(exact) == 1 {
		return exact[0], true, nil
	}
	suffix, err := store.FindSymbolsBySuffixTx(ctx, tx, mention, version)
	if err != nil {
		return model.Symbol{}, false, err
	}
	if len(suffix) == 1 {
		return suffix[0], true, nil
	}
	return model.Symbol{}, false, nil
}

func singleFileLanguageTx(ctx context.Context, tx *sql.Tx, fileID int64) (string, error) {
	langs, err := store.FileLanguagesTx(ctx, tx, []int64{fileID})
	if err != nil {
		return "", err
	}
	return langs[fileID], nil
}
