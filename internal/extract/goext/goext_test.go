// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package goext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

const sample = `package sample

func Add(a, b int) int {
	return helper(a, b)
}

func helper(a, b int) int {
	return a + b
}

type Greeter struct{}

func (g *Greeter) Greet(name string) string {
	return "hi " + name
}
`

func TestExtract_FunctionsAndMethods(t *testing.T) {
	e := New()
	result, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)
	require.True(t, result.ParseOK)

	names := map[string]model.Symbol{}
	for _, s := range result.Symbols {
		names[s.Qualname] = s
	}
	require.Contains(t, names, "sample.Add")
	require.Contains(t, names, "sample.helper")
	require.Contains(t, names, "sample.Greeter")
	require.Contains(t, names, "sample.Greeter.Greet")
	require.Equal(t, model.KindMethod, names["sample.Greeter.Greet"].Kind)
}

func TestExtract_CallsEdgeToLocalHelper(t *testing.T) {
	e := New()
	result, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)

	var found bool
	for _, edge := range result.Edges {
		if edge.Kind == model.EdgeCalls && edge.TargetQualname == "helper" {
			found = true
		}
	}
	require.True(t, found, "expected a CALLS edge targeting helper")
}

func TestExtract_StableIDIgnoresLineShift(t *testing.T) {
	e := New()
	r1, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)

	shifted := "\n\n\n" + sample
	r2, err := e.Extract([]byte(shifted), "sample")
	require.NoError(t, err)

	id1 := findStableID(r1.Symbols, "sample.Add")
	id2 := findStableID(r2.Symbols, "sample.Add")
	require.NotZero(t, id1)
	require.Equal(t, id1, id2)
}

func findStableID(symbols []model.Symbol, qualname string) uint64 {
	for _, s := range symbols {
		if s.Qualname == qualname {
			return s.StableID
		}
	}
	return 0
}

func TestExtract_FallsBackOnUnparsableSource(t *testing.T) {
	e := New()
	garbage := make([]byte, 0)
	for i := 0; i < 50; i++ {
		garbage = append(garbage, []byte("func func func ( ) { { { ")...)
	}
	result, err := e.Extract(garbage, "broken")
	require.NoError(t, err)
	require.False(t, result.ParseOK)
	require.Len(t, result.Symbols, 1)
	require.Equal(t, model.EdgeParseError, result.Edges[0].Kind)
}
