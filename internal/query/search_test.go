// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/extract/goext"
	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
)

func openIndexedRepo(t *testing.T, files map[string]string) (*store.Store, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "graph.db"), 4, 1)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := extract.NewRegistry(goext.New())
	cfg := config.IndexConfig{BatchSize: 100, FlushIntervalMS: 500, BatchMemLimitMB: 10, LargeFileSkipMB: 10}
	orch := index.New(root, st, registry, cfg, ignore, nil)
	res := orch.Run(context.Background())
	require.NoError(t, res.Err)
	return st, root
}

func TestFindSymbol_ExactNameOutranksSubstring(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn addHelper(a, b)\n}\n\nfunc addHelper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.FindSymbol(context.Background(), "Add", "", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Matches)
	require.Equal(t, "exact", res.Matches[0].Tier)
	require.Equal(t, "Add", res.Matches[0].Symbol.Name)
}

func TestSuggestQualnames_FuzzyMatchesTypo(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	matches, err := e.SuggestQualnames(context.Background(), "sample.Ad", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
}
