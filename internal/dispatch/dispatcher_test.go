// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package dispatch

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
	"github.com/kraklabs/codegraph/internal/query"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
)

func newIndexedDispatcher(t *testing.T, files map[string]string) *Dispatcher {
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

	engine := query.New(st, config.Config{}, root, nil, nil)
	d, err := New(engine, DefaultLimits())
	require.NoError(t, err)
	return d
}

func TestDispatch_FindSymbolRoundTrips(t *testing.T) {
	d := newIndexedDispatcher(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})

	resp, err := d.Dispatch(context.Background(), "find_symbol", map[string]any{"query": "Add"})
	require.NoError(t, err)
	require.Equal(t, "find_symbol", resp.Method)
	require.NotNil(t, resp.Data)
}

func TestDispatch_RejectsMissingRequiredParam(t *testing.T) {
	d := newIndexedDispatcher(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})

	_, err := d.Dispatch(context.Background(), "find_symbol", map[string]any{})
	require.Error(t, err)
}

func TestDispatch_UnknownMethodErrors(t *testing.T) {
	d := newIndexedDispatcher(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})

	_, err := d.Dispatch(context.Background(), "does_not_exist", map[string]any{})
	require.Error(t, err)
}

func TestDispatch_ListMethodsIncludesCoreMethods(t *testing.T) {
	d := newIndexedDispatcher(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})

	names := d.ListMethods()
	require.Contains(t, names, "find_symbol")
	require.Contains(t, names, "repo_map")
	require.Contains(t, names, "list_methods")
}
