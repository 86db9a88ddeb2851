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

func TestGatherContext_SymbolStrategyIncludesFullBodyAndNeighbors(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.GatherContext(context.Background(), []ContextSeed{{Symbol: "sample.Add"}}, 4000, "symbol")
	require.NoError(t, err)
	require.LessOrEqual(t, res.UsedBytes, res.BudgetBytes)

	var foundSeed bool
	for _, entry := range res.Entries {
		if entry.Qualname == "sample.Add" && entry.Tier == 0 {
			foundSeed = true
			require.Contains(t, entry.Text, "func Add")
		}
	}
	require.True(t, foundSeed)
}

func TestGatherContext_NeverExceedsBudget(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.GatherContext(context.Background(), []ContextSeed{{Symbol: "sample.Add"}}, 10, "symbol")
	require.NoError(t, err)
	require.LessOrEqual(t, res.UsedBytes, 10)
}
