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

// OpenFileResult is open_file's response: the tracked file row, its full
// source text, and the live symbols it declares.
type OpenFileResult struct {
	File     model.File
	Source   string
	Symbols  []model.Symbol
	NextHops []NextHop
}

// OpenFile resolves path to its tracked file row, reads its current
// contents, and lists the symbols it declares at the current graph
// version.
func (e *Engine) OpenFile(ctx context.Context, path string) (OpenFileResult, error) {
	full, err := e.resolvePath(path)
	if err != nil {
		return OpenFileResult{}, err
	}
	file, err := e.st.FindFileByPath(ctx, path)
	if err != nil {
		return OpenFileResult{}, fmt.Errorf("lookup file %q: %w", path, err)
	}
	contents, err := os.ReadFile(full)
	if err != nil {
		return OpenFileResult{}, fmt.Errorf("read source: %w", err)
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return OpenFileResult{}, err
	}
	symbols, err := e.st.SymbolsForFile(ctx, file.ID, version)
	if err != nil {
		return OpenFileResult{}, fmt.Errorf("list symbols: %w", err)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Span.StartByte < symbols[j].Span.StartByte })

	var hops []NextHop
	for _, sym := range symbols {
		hops = append(hops, hop("open_symbol", map[string]any{"qualname": sym.Qualname}))
	}
	return OpenFileResult{File: file, Source: string(contents), Symbols: symbols, NextHops: hops}, nil
}

// TestMatch is one test symbol found to cover a target symbol, either
// directly (a TESTS edge lands on it) or transitively (it calls a direct
// coverer).
type TestMatch struct {
	Test   model.Symbol
	Direct bool
}

// FindTestsForResult is find_tests_for's response.
type FindTestsForResult struct {
	Tests    []TestMatch
	NextHops []NextHop
}

// FindTestsFor resolves qualname and returns the test symbols exercising
// it: symbols with a direct TESTS edge onto it, plus symbols that call one
// of those direct testers (one hop of transitive coverage, the same
// "does a caller of a known test path exist" signal analyze_impact's test
// layer uses).
func (e *Engine) FindTestsFor(ctx context.Context, qualname string) (FindTestsForResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return FindTestsForResult{}, err
	}
	sym, err := e.resolveOneSymbol(ctx, qualname, version)
	if err != nil {
		return FindTestsForResult{}, err
	}

	direct, err := e.st.EdgesTo(ctx, sym.ID, []model.EdgeKind{model.EdgeTests})
	if err != nil {
		return FindTestsForResult{}, fmt.Errorf("direct test edges: %w", err)
	}

	seen := make(map[int64]bool)
	var matches []TestMatch
	for _, edge := range direct {
		if edge.SourceSymbolID == nil || seen[*edge.SourceSymbolID] {
			continue
		}
		tester, err := e.st.SymbolByID(ctx, *edge.SourceSymbolID)
		if err != nil {
			continue
		}
		seen[tester.ID] = true
		matches = append(matches, TestMatch{Test: tester, Direct: true})
	}

	for id := range seen {
		callers, err := e.st.EdgesTo(ctx, id, []model.EdgeKind{model.EdgeCalls})
		if err != nil {
			continue
		}
		for _, edge := range callers {
			if edge.SourceSymbolID == nil || seen[*edge.SourceSymbolID] {
				continue
			}
			caller, err := e.st.SymbolByID(ctx, *edge.SourceSymbolID)
			if err != nil {
				continue
			}
			seen[caller.ID] = true
			matches = append(matches, TestMatch{Test: caller, Direct: false})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Direct != matches[j].Direct {
			return matches[i].Direct
		}
		return matches[i].Test.Qualname < matches[j].Test.Qualname
	})

	hops := []NextHop{hop("open_symbol", map[string]any{"qualname": sym.Qualname})}
	return FindTestsForResult{Tests: matches, NextHops: hops}, nil
}

// CoChangesResult is co_changes's response: files that historically
// changed alongside path, ranked by confidence.
type CoChangesResult struct {
	Partners []model.CoChange
}

// CoChanges returns path's historical co-change partners, most confident
// first, ties broken by the partner path.
func (e *Engine) CoChanges(ctx context.Context, path string, limit int) (CoChangesResult, error) {
	if limit <= 0 {
		limit = 20
	}
	partners, err := e.st.CoChangesFor(ctx, path, limit)
	if err != nil {
		return CoChangesResult{}, fmt.Errorf("co-changes for %q: %w", path, err)
	}
	sort.Slice(partners, func(i, j int) bool {
		if partners[i].Confidence != partners[j].Confidence {
			return partners[i].Confidence > partners[j].Confidence
		}
		return partnerOf(partners[i], path) < partnerOf(partners[j], path)
	})
	return CoChangesResult{Partners: partners}, nil
}

func partnerOf(c model.CoChange, path string) string {
	if c.FileA == path {
		return c.FileB
	}
	return c.FileA
}

// ChangedFilesResult is changed_files's response: every file live at the
// current graph version, most recently first indexed first.
type ChangedFilesResult struct {
	Files []model.File
}

// ChangedFiles lists every live file, ordered by first_seen_ver descending
// (the version a file was first indexed at; re-indexing does not move it)
// then path ascending.
func (e *Engine) ChangedFiles(ctx context.Context) (ChangedFilesResult, error) {
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return ChangedFilesResult{}, err
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].FirstSeenVer != files[j].FirstSeenVer {
			return files[i].FirstSeenVer > files[j].FirstSeenVer
		}
		return files[i].Path < files[j].Path
	})
	return ChangedFilesResult{Files: files}, nil
}
