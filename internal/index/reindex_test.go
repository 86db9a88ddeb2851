// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReindexRequest_RoundTrip(t *testing.T) {
	root := t.TempDir()

	requested, err := ConsumeReindexRequest(root)
	require.NoError(t, err)
	require.False(t, requested, "no request has been written yet")

	require.NoError(t, RequestReindex(root))

	requested, err = ConsumeReindexRequest(root)
	require.NoError(t, err)
	require.True(t, requested)

	requested, err = ConsumeReindexRequest(root)
	require.NoError(t, err)
	require.False(t, requested, "consuming a request removes it")
}
