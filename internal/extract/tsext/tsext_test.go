// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package tsext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

const sample = `import { helper } from "./helper";

function add(a: number, b: number): number {
	return helper(a, b);
}

const multiply = (a: number, b: number): number => {
	return a * b;
};

class Greeter {
	greet(name: string): string {
		return "hi " + name;
	}
}
`

func TestExtract_FunctionsAndArrowsAndMethods(t *testing.T) {
	e := New()
	result, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)
	require.True(t, result.ParseOK)

	byName := map[string]model.Symbol{}
	for _, s := range result.Symbols {
		byName[s.Qualname] = s
	}
	require.Contains(t, byName, "sample.add")
	require.Contains(t, byName, "sample.multiply")
	require.Contains(t, byName, "sample.Greeter")
	require.Contains(t, byName, "sample.greet")
	require.Equal(t, model.KindMethod, byName["sample.greet"].Kind)
	require.Equal(t, model.KindClass, byName["sample.Greeter"].Kind)
}

func TestExtract_CallsEdgeToImportedHelper(t *testing.T) {
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

func TestExtract_ImportEdge(t *testing.T) {
	e := New()
	result, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)

	var found bool
	for _, edge := range result.Edges {
		if edge.Kind == model.EdgeImports && edge.TargetQualname == "./helper" {
			found = true
		}
	}
	require.True(t, found, "expected an IMPORTS edge targeting ./helper")
}

func TestExtract_StableIDIgnoresLineShift(t *testing.T) {
	e := New()
	r1, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)

	shifted := "\n\n\n" + sample
	r2, err := e.Extract([]byte(shifted), "sample")
	require.NoError(t, err)

	id1 := findStableID(r1.Symbols, "sample.add")
	id2 := findStableID(r2.Symbols, "sample.add")
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
		garbage = append(garbage, []byte("function function ( { { { ")...)
	}
	result, err := e.Extract(garbage, "broken")
	require.NoError(t, err)
	require.False(t, result.ParseOK)
	require.Len(t, result.Symbols, 1)
	require.Equal(t, model.EdgeParseError, result.Edges[0].Kind)
}

func TestJSExtractor_UsesJavaScriptGrammar(t *testing.T) {
	e := NewJS()
	require.Equal(t, []string{"javascript"}, e.Languages())

	jsSample := `function add(a, b) {
	return a + b;
}
`
	result, err := e.Extract([]byte(jsSample), "jssample")
	require.NoError(t, err)
	require.True(t, result.ParseOK)

	var found bool
	for _, s := range result.Symbols {
		if s.Qualname == "jssample.add" {
			found = true
		}
	}
	require.True(t, found)
}
