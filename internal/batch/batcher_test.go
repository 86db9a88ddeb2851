// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := store.Open(path, 4, 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testIndexConfig() config.IndexConfig {
	return config.IndexConfig{BatchSize: 100, FlushIntervalMS: 500, BatchMemLimitMB: 10, LargeFileSkipMB: 10}
}

func sampleExtraction(qualnamePrefix string) model.ExtractedFile {
	add := model.Symbol{Kind: model.KindFunction, Name: "Add", Qualname: qualnamePrefix + ".Add", Signature: "func Add(a, b int) int"}
	helper := model.Symbol{Kind: model.KindFunction, Name: "helper", Qualname: qualnamePrefix + ".helper", Signature: "func helper(a, b int) int"}
	return model.ExtractedFile{
		Symbols: []model.Symbol{add, helper},
		Edges: []model.Edge{
			{Kind: model.EdgeCalls, TargetQualname: "helper", Confidence: 1.0},
			{Kind: model.EdgeContains, TargetQualname: add.Qualname, Confidence: 1.0},
			{Kind: model.EdgeContains, TargetQualname: helper.Qualname, Confidence: 1.0},
		},
		ParseOK: true,
	}
}

func TestFlush_InsertsNewFileSymbolsAndEdges(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st, testIndexConfig(), nil)

	extracted := sampleExtraction("sample")
	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d1", Size: 100, Extracted: extracted}))
	require.NoError(t, b.Flush(ctx))

	f, err := st.FindFileByPath(ctx, "sample.go")
	require.NoError(t, err)

	version, err := st.CurrentVersion(ctx)
	require.NoError(t, err)
	syms, err := st.SymbolsForFile(ctx, f.ID, version)
	require.NoError(t, err)
	require.Len(t, syms, 2)
}

func TestFlush_ResolvesIntraFileCallEdge(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st, testIndexConfig(), nil)

	extracted := sampleExtraction("sample")
	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d1", Size: 100, Extracted: extracted}))
	require.NoError(t, b.Flush(ctx))

	version, err := st.CurrentVersion(ctx)
	require.NoError(t, err)
	syms, err := st.FindSymbolsByQualname(ctx, "sample.helper", version)
	require.NoError(t, err)
	require.Len(t, syms, 1)

	edges, err := st.EdgesTo(ctx, syms[0].ID, nil)
	require.NoError(t, err)

	var found bool
	for _, e := range edges {
		if e.Kind == model.EdgeCalls {
			found = true
		}
	}
	require.True(t, found, "expected helper's CALLS edge to have resolved to a target_symbol_id")
}

func TestFlush_ReindexOnlyTouchesChangedSymbols(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st, testIndexConfig(), nil)

	extracted := sampleExtraction("sample")
	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d1", Size: 100, Extracted: extracted}))
	require.NoError(t, b.Flush(ctx))

	v1, err := st.CurrentVersion(ctx)
	require.NoError(t, err)
	before, err := st.SymbolsForFile(ctx, mustFileID(t, ctx, st, "sample.go"), v1)
	require.NoError(t, err)
	beforeByQualname := map[string]model.Symbol{}
	for _, s := range before {
		beforeByQualname[s.Qualname] = s
	}

	// Re-extract with Add's signature changed, helper untouched.
	changed := sampleExtraction("sample")
	changed.Symbols[0].Signature = "func Add(a, b, c int) int"
	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d2", Size: 101, Extracted: changed}))
	require.NoError(t, b.Flush(ctx))

	v2, err := st.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Greater(t, v2, v1)

	after, err := st.SymbolsForFile(ctx, mustFileID(t, ctx, st, "sample.go"), v2)
	require.NoError(t, err)
	afterByQualname := map[string]model.Symbol{}
	for _, s := range after {
		afterByQualname[s.Qualname] = s
	}

	require.Equal(t, beforeByQualname["sample.helper"].ID, afterByQualname["sample.helper"].ID)
	require.Equal(t, "func Add(a, b, c int) int", afterByQualname["sample.Add"].Signature)
}

func TestAdd_FlushesAutomaticallyAtBatchSizeThreshold(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	cfg := testIndexConfig()
	cfg.BatchSize = 1
	b := New(st, cfg, nil)

	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d1", Size: 100, Extracted: sampleExtraction("sample")}))

	// Add's own threshold check should have already flushed without an
	// explicit Flush call.
	_, err := st.FindFileByPath(ctx, "sample.go")
	require.NoError(t, err)
}

func mustFileID(t *testing.T, ctx context.Context, st *store.Store, path string) int64 {
	t.Helper()
	f, err := st.FindFileByPath(ctx, path)
	require.NoError(t, err)
	return f.ID
}

func TestFlush_DeletedFileIsTombstoned(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st, testIndexConfig(), nil)

	extracted := sampleExtraction("sample")
	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Language: "go", Digest: "d1", Size: 100, Extracted: extracted}))
	require.NoError(t, b.Flush(ctx))

	require.NoError(t, b.Add(ctx, PendingFile{Path: "sample.go", Deleted: true}))
	require.NoError(t, b.Flush(ctx))

	f, err := st.FindFileByPath(ctx, "sample.go")
	require.NoError(t, err)
	require.NotNil(t, f.DeletedVersion)
}
