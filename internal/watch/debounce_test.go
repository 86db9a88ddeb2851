// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
)

func testWatchConfig() config.WatchConfig {
	return config.WatchConfig{
		UrgentDebounceMS: 10,
		NormalDebounceMS: 20,
		UrgentWindowSecs: 60,
		BatchThreshold:   1000,
		FallbackPollSecs: 300,
	}
}

type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *batchCollector) collect(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *batchCollector) all() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.batches))
	copy(out, c.batches)
	return out
}

func TestDebouncer_CoalescesRepeatedNotifiesIntoOneBatch(t *testing.T) {
	collector := &batchCollector{}
	d := NewDebouncer(testWatchConfig(), collector.collect)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	d.Notify("a.go")
	time.Sleep(5 * time.Millisecond)
	d.Notify("a.go")
	d.Notify("b.go")

	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	var seen []string
	for _, b := range collector.all() {
		seen = append(seen, b...)
	}
	require.Contains(t, seen, "a.go")
	require.Contains(t, seen, "b.go")

	count := 0
	for _, p := range seen {
		if p == "a.go" {
			count++
		}
	}
	require.Equal(t, 1, count, "repeated notifies on the same path should coalesce into one appearance")
}

func TestDebouncer_FlushesImmediatelyAboveBatchThreshold(t *testing.T) {
	collector := &batchCollector{}
	cfg := testWatchConfig()
	cfg.BatchThreshold = 3
	cfg.NormalDebounceMS = 10_000 // long enough that only the threshold triggers a flush
	d := NewDebouncer(cfg, collector.collect)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify("a.go")
	d.Notify("b.go")
	d.Notify("c.go")
	d.Notify("d.go")

	time.Sleep(50 * time.Millisecond)
	require.NotEmpty(t, collector.all(), "batch threshold should force an immediate flush")
}
