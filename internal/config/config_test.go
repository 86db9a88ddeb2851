// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Index.BatchSize = 250
	cfg.Watch.UrgentDebounceMS = 25

	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 250, loaded.Index.BatchSize)
	require.Equal(t, 25, loaded.Watch.UrgentDebounceMS)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(dir))
	t.Setenv("CODEGRAPH_BATCH_SIZE", "42")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Index.BatchSize)
}

func TestLoad_CorruptYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".codegraph")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "config.yaml"), []byte("index:\n  batch_size: [1, 2\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
