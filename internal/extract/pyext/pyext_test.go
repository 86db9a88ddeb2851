// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pyext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

const sample = `def add(a: int, b: int) -> int:
    return helper(a, b)


def helper(a, b):
    return a + b


class UserService:
    def __init__(self, repo):
        self.repo = repo

    def get_user(self, user_id):
        return self.repo.find(user_id)
`

func TestExtract_FunctionsAndMethods(t *testing.T) {
	e := New()
	result, err := e.Extract([]byte(sample), "sample")
	require.NoError(t, err)
	require.True(t, result.ParseOK)

	byName := map[string]model.Symbol{}
	for _, s := range result.Symbols {
		byName[s.Qualname] = s
	}
	require.Contains(t, byName, "sample.add")
	require.Contains(t, byName, "sample.helper")
	require.Contains(t, byName, "sample.UserService")
	require.Equal(t, model.KindClass, byName["sample.UserService"].Kind)
	require.Contains(t, byName, "sample.UserService.get_user")
	require.Equal(t, model.KindMethod, byName["sample.UserService.get_user"].Kind)
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
		garbage = append(garbage, []byte("def def def ( : : : ")...)
	}
	result, err := e.Extract(garbage, "broken")
	require.NoError(t, err)
	require.False(t, result.ParseOK)
	require.Len(t, result.Symbols, 1)
	require.Equal(t, model.EdgeParseError, result.Edges[0].Kind)
}
