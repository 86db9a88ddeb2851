// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpoint_LoadMissingReturnsNil(t *testing.T) {
	cm := NewCheckpointManager(t.TempDir())
	cp, err := cm.Load()
	require.NoError(t, err)
	require.Nil(t, cp)
}

func TestCheckpoint_SaveThenLoadRoundTrips(t *testing.T) {
	cm := NewCheckpointManager(t.TempDir())
	original := &Checkpoint{GraphVersion: 7, LastFilePath: "a/b.go", FilesIndexed: 42, SymbolsIndexed: 100, StartedAt: "t0", UpdatedAt: "t1"}
	require.NoError(t, cm.Save(original))

	loaded, err := cm.Load()
	require.NoError(t, err)
	require.Equal(t, original, loaded)
}

func TestCheckpoint_ClearRemovesFile(t *testing.T) {
	cm := NewCheckpointManager(t.TempDir())
	require.NoError(t, cm.Save(&Checkpoint{GraphVersion: 1}))
	require.NoError(t, cm.Clear())

	cp, err := cm.Load()
	require.NoError(t, err)
	require.Nil(t, cp)
}
