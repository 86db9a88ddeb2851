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

func TestOpenSymbol_ReturnsSourceSnippet(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.OpenSymbol(context.Background(), "sample.Add")
	require.NoError(t, err)
	require.Equal(t, "Add", res.Symbol.Name)
	require.Contains(t, res.Source, "func Add")
}

func TestNeighbors_FindsOutgoingCallEdge(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.Neighbors(context.Background(), "sample.Add", nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Outgoing)
}

func TestSubgraph_ExpandsFromRootWithinDepth(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.Subgraph(context.Background(), []string{"sample.Add"}, nil, 2)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Symbols), 2)
}

func TestReferences_FindsCallerOfHelper(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.References(context.Background(), "sample.helper")
	require.NoError(t, err)
	require.NotEmpty(t, res.References)
}
