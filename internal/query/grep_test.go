// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRipgrepOutput_SplitsPathLineText(t *testing.T) {
	output := "/repo/sample.go:3:func Add(a, b int) int {\n/repo/sample.go:7:func helper(a, b int) int {\n"
	matches, truncated := parseRipgrepOutput(output, "/repo", 10)
	require.False(t, truncated)
	require.Len(t, matches, 2)
	require.Equal(t, "sample.go", matches[0].Path)
	require.Equal(t, 3, matches[0].Line)
}

func TestParseRipgrepOutput_TruncatesAtLimit(t *testing.T) {
	output := "/repo/a.go:1:x\n/repo/a.go:2:y\n/repo/a.go:3:z\n"
	matches, truncated := parseRipgrepOutput(output, "/repo", 2)
	require.True(t, truncated)
	require.Len(t, matches, 2)
}
