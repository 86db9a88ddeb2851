// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/extract/goext"
	"github.com/kraklabs/codegraph/internal/scan"
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

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestRun_IndexesGoRepoSymbols(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)

	st := openTestStore(t)
	registry := extract.NewRegistry(goext.New())
	orch := New(root, st, registry, testIndexConfig(), ignore, nil)

	res := orch.Run(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, PhaseCommitted, res.Phase)
	require.Equal(t, 1, res.FilesChanged)
	require.EqualValues(t, PhaseCommitted, orch.Phase())

	f, err := st.FindFileByPath(context.Background(), "sample.go")
	require.NoError(t, err)
	syms, err := st.SymbolsForFile(context.Background(), f.ID, res.GraphVersion)
	require.NoError(t, err)
	require.Len(t, syms, 2)
}

func TestRun_DeletesTombstonedFilesOnRescan(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.go": "package sample\n\nfunc A() {}\n",
	})
	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)

	st := openTestStore(t)
	registry := extract.NewRegistry(goext.New())
	orch := New(root, st, registry, testIndexConfig(), ignore, nil)

	first := orch.Run(context.Background())
	require.NoError(t, first.Err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))

	second := orch.Run(context.Background())
	require.NoError(t, second.Err)
	require.Equal(t, 1, second.FilesDeleted)

	_, err = st.FindFileByPath(context.Background(), "a.go")
	require.NoError(t, err) // row still exists, tombstoned
	live, err := st.ListLiveFiles(context.Background())
	require.NoError(t, err)
	require.Empty(t, live)
}

func TestModulePath_StripsExtensionAndDotsSeparators(t *testing.T) {
	require.Equal(t, "pkg.sample", modulePath("pkg/sample.go"))
	require.Equal(t, "sample", modulePath("sample.py"))
}
