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

func TestAnalyzeImpact_UpstreamFindsCaller(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	cfg := config.Config{Impact: config.ImpactConfig{BFSMaxDepth: 3, PerHopDecay: 0.7, MaxNodes: 500}}
	e := New(st, cfg, root, nil, nil)

	res, err := e.AnalyzeImpact(context.Background(), "sample.helper", "upstream", 2)
	require.NoError(t, err)
	require.Empty(t, res.LayerErrors["direct"])

	var foundCaller bool
	for _, hit := range res.Hits {
		if hit.Symbol.Qualname == "sample.Add" {
			foundCaller = true
			require.Greater(t, hit.Confidence, 0.0)
		}
	}
	require.True(t, foundCaller)
}

func TestFuseNoisyOR_CombinesIndependentLayers(t *testing.T) {
	got := fuseNoisyOR(map[string]float64{"direct": 0.5, "historical": 0.5})
	require.InDelta(t, 0.75, got, 1e-9)
}
