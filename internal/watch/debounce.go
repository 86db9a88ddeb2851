// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/metrics"
)

// Debouncer coalesces repeated Notify calls on the same path into a single
// batch, using two debounce windows: paths edited recently (within
// UrgentWindowSecs) flush sooner (UrgentDebounceMS) than the rest
// (NormalDebounceMS). A small struct, a tick loop, and dotted slog event
// names, matching the rest of this codebase's style for background loops.
type Debouncer struct {
	cfg     config.WatchConfig
	dispatch func(paths []string)

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

type pendingEntry struct {
	deadline  time.Time
	lastEdit  time.Time
}

// NewDebouncer builds a Debouncer that calls dispatch with a sorted,
// deduplicated batch of paths whenever one or more entries come due.
func NewDebouncer(cfg config.WatchConfig, dispatch func(paths []string)) *Debouncer {
	return &Debouncer{cfg: cfg, dispatch: dispatch, pending: make(map[string]*pendingEntry)}
}

// Notify records a change to path, coalescing it with any already-pending
// notification for the same path and picking its debounce window based on
// whether the path was edited within the urgent window.
func (d *Debouncer) Notify(path string) {
	now := time.Now()
	debounce := time.Duration(d.cfg.NormalDebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	urgentDebounce := time.Duration(d.cfg.UrgentDebounceMS) * time.Millisecond
	if urgentDebounce <= 0 {
		urgentDebounce = 50 * time.Millisecond
	}
	urgentWindow := time.Duration(d.cfg.UrgentWindowSecs) * time.Second
	if urgentWindow <= 0 {
		urgentWindow = 60 * time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.pending[path]
	if ok {
		metrics.RecordWatchCoalesce(1)
		if now.Sub(existing.lastEdit) <= urgentWindow {
			existing.deadline = now.Add(urgentDebounce)
		} else {
			existing.deadline = now.Add(debounce)
		}
		existing.lastEdit = now
		return
	}

	d.pending[path] = &pendingEntry{deadline: now.Add(debounce), lastEdit: now}
}

// Run ticks until ctx is canceled, flushing any due entries on each tick and
// flushing everything immediately once the pending set crosses
// BatchThreshold (a burst is cheaper to amortize as one big incremental pass
// than to keep re-debouncing).
func (d *Debouncer) Run(ctx context.Context) {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flushAll()
			return
		case <-tick.C:
			d.flushDue()
		}
	}
}

func (d *Debouncer) flushDue() {
	now := time.Now()
	threshold := d.cfg.BatchThreshold
	if threshold <= 0 {
		threshold = 1000
	}

	d.mu.Lock()
	if len(d.pending) >= threshold {
		batch := d.drainLocked()
		d.mu.Unlock()
		d.emit(batch)
		return
	}

	var due []string
	for path, entry := range d.pending {
		if !now.Before(entry.deadline) {
			due = append(due, path)
		}
	}
	for _, path := range due {
		delete(d.pending, path)
	}
	d.mu.Unlock()

	d.emit(due)
}

func (d *Debouncer) flushAll() {
	d.mu.Lock()
	batch := d.drainLocked()
	d.mu.Unlock()
	d.emit(batch)
}

func (d *Debouncer) drainLocked() []string {
	batch := make([]string, 0, len(d.pending))
	for path := range d.pending {
		batch = append(batch, path)
	}
	d.pending = make(map[string]*pendingEntry)
	return batch
}

func (d *Debouncer) emit(batch []string) {
	if len(batch) == 0 {
		return
	}
	sort.Strings(batch)
	d.dispatch(batch)
}
