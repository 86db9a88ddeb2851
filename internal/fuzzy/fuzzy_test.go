// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRank_OrdersBySimilarityDescending(t *testing.T) {
	candidates := []string{"pkg.FetchUser", "pkg.FetchUsers", "pkg.Unrelated"}
	matches := Rank("pkg.FetchUser", candidates, 0.5)
	require.NotEmpty(t, matches)
	require.Equal(t, "pkg.FetchUser", matches[0].Qualname)
	require.Equal(t, 1.0, matches[0].Similarity)
}

func TestRank_DropsBelowThreshold(t *testing.T) {
	matches := Rank("pkg.FetchUser", []string{"zzz.Completely.Different.Symbol"}, 0.7)
	require.Empty(t, matches)
}

func TestRank_TiesBrokenByQualnameAscending(t *testing.T) {
	matches := Rank("abc", []string{"abd", "abe"}, 0.1)
	require.Len(t, matches, 2)
	require.Equal(t, "abd", matches[0].Qualname)
	require.Equal(t, "abe", matches[1].Qualname)
}
