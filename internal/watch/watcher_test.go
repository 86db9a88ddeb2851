// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/scan"
)

func TestWatcher_DispatchesBatchOnFileWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))

	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)

	cfg := testWatchConfig()
	w := New(root, ignore, cfg, nil)

	var mu sync.Mutex
	var batches [][]string
	w.OnBatch = func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, paths)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, batches, "expected at least one dispatched batch after a file write")
	found := false
	for _, b := range batches {
		for _, p := range b {
			if p == "a.go" {
				found = true
			}
		}
	}
	require.True(t, found)
}
