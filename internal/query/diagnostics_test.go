// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
)

func TestListLanguages_CountsByLanguage(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"a.go": "package sample\n\nfunc A() {}\n",
		"b.go": "package sample\n\nfunc B() {}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	langs, err := e.ListLanguages(context.Background())
	require.NoError(t, err)
	require.Len(t, langs, 1)
	require.Equal(t, "go", langs[0].Language)
	require.Equal(t, 2, langs[0].Files)
}

func TestRepoOverview_CountsFilesAndSymbols(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.RepoOverview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.FileCount)
	require.NotZero(t, res.SymbolCount)
}

func TestTopComplexity_RanksBranchierFunctionFirst(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": `package sample

func Simple() int {
	return 1
}

func Branchy(n int) int {
	if n > 0 {
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				n++
			}
		}
	}
	return n
}
`,
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.TopComplexity(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Symbols)
	require.Equal(t, "Branchy", res.Symbols[0].Symbol.Name)
	require.Greater(t, res.Symbols[0].Cyclomatic, 1)
}

func TestDuplicateGroups_FindsCopyPastedBody(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": `package sample

func First(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Second(x, y int) int {
	if x > y {
		return x
	}
	return y
}
`,
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.DuplicateGroups(context.Background(), 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Groups)
	require.GreaterOrEqual(t, len(res.Groups[0].Symbols), 2)
}

func TestDeadSymbols_FlagsUncalledFunction(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Used() int { return 1 }\n\nfunc Unused() int { return Used() }\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.DeadSymbols(context.Background())
	require.NoError(t, err)
	var names []string
	for _, s := range res.Symbols {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "Unused")
	require.NotContains(t, names, "Used")
}

func TestDiagnostics_CountsUnresolvedImports(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nimport \"nonexistent/pkg\"\n\nfunc A() { _ = pkg.X }\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.Diagnostics(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.UnresolvedByKind["IMPORTS"], 0)
}

func TestIndexStatus_ReportsGraphVersionWhenNoRunHeld(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc A() {}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.IndexStatus(context.Background())
	require.NoError(t, err)
	require.False(t, res.Running)
	require.NotZero(t, res.LiveFiles)
}

func TestReindex_WritesSentinelFile(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc A() {}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.Reindex(context.Background())
	require.NoError(t, err)
	require.True(t, res.Requested)
}
