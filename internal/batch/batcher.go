// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package batch accumulates per-file extraction results and flushes them to
// the store in bounded transactions: a count/time/memory threshold decides
// when to flush, one flush applies every queued file's symbol diff and edge
// replacement in a single commit, then runs the edge-resolution pass.
//
// The threshold bookkeeping here generalizes a batcher that accumulates
// statements up to a target count/size before splitting off a batch; this
// package accumulates per-file deltas up to a count/time/memory threshold
// before flushing a SQL transaction instead of a script.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/metrics"
	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/store"
)

// PendingFile is one file's worth of fresh extraction queued for writing.
type PendingFile struct {
	Path      string
	Language  string
	Digest    string
	Size      int64
	Deleted   bool
	Extracted model.ExtractedFile
}

// Batcher accumulates PendingFile entries and flushes them to a Store.
type Batcher struct {
	st  *store.Store
	cfg config.IndexConfig
	log *slog.Logger

	mu            sync.Mutex
	pending       []PendingFile
	firstQueuedAt time.Time
	memEstimate   int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Batcher over st, using cfg's batch_size/flush_interval_ms/
// batch_mem_limit_mb thresholds.
func New(st *store.Store, cfg config.IndexConfig, log *slog.Logger) *Batcher {
	if log == nil {
		log = slog.Default()
	}
	return &Batcher{st: st, cfg: cfg, log: log}
}

// Start launches the background ticker that flushes on FLUSH_INTERVAL even
// when no count/memory threshold has been crossed.
func (b *Batcher) Start(ctx context.Context) {
	b.stopCh = make(chan struct{})
	interval := time.Duration(b.cfg.FlushIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				b.mu.Lock()
				due := len(b.pending) > 0 && time.Since(b.firstQueuedAt) >= interval
				b.mu.Unlock()
				if due {
					if err := b.Flush(ctx); err != nil {
						b.log.Error("interval flush failed", "error", err)
					}
				}
			}
		}
	}()
}

// Stop halts the background ticker and flushes any remaining pending files.
func (b *Batcher) Stop(ctx context.Context) error {
	if b.stopCh != nil {
		close(b.stopCh)
		b.wg.Wait()
	}
	return b.Flush(ctx)
}

// Add queues f for writing. It blocks (by performing a synchronous flush)
// once the batch's file count or estimated memory crosses its threshold,
// providing backpressure to producers.
func (b *Batcher) Add(ctx context.Context, f PendingFile) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.firstQueuedAt = time.Now()
	}
	b.pending = append(b.pending, f)
	b.memEstimate += estimateMemory(f)
	full := len(b.pending) >= b.cfg.BatchSize ||
		b.memEstimate >= int64(b.cfg.BatchMemLimitMB)*1024*1024
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush applies every currently queued file in a single transaction: one
// graph-version bump first, then file row upsert, symbol diff application,
// wholesale edge replacement, then the edge-resolution pass. A no-op when
// nothing is queued.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.memEstimate = 0
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	plans := make([]filePlan, 0, len(pending))
	for _, pf := range pending {
		plan, err := b.buildPlan(ctx, pf)
		if err != nil {
			return fmt.Errorf("plan file %s: %w", pf.Path, err)
		}
		plans = append(plans, plan)
	}

	err := b.st.Write(ctx, func(tx *sql.Tx) error {
		version, err := store.BumpVersion(ctx, tx)
		if err != nil {
			return fmt.Errorf("bump graph version: %w", err)
		}

		touchedFileIDs := make([]int64, 0, len(plans))
		for _, plan := range plans {
			fileID, err := applyPlan(ctx, tx, plan, version)
			if err != nil {
				return err
			}
			touchedFileIDs = append(touchedFileIDs, fileID)
		}

		for _, fileID := range touchedFileIDs {
			if err := resolveFileEdges(ctx, tx, fileID, version); err != nil {
				return fmt.Errorf("resolve edges for file %d: %w", fileID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordBatchFlush()
	for _, plan := range plans {
		metrics.RecordFileDelta(len(plan.delta.Added), len(plan.delta.Modified), len(plan.delta.Deleted), 0)
		metrics.RecordSymbolDelta(len(plan.delta.Added), len(plan.delta.Modified), len(plan.delta.Deleted))
	}
	return nil
}

// filePlan is the result of diffing one pending file against its stored
// symbols, computed before the write transaction opens so the (possibly
// slow) diff work never holds the single writer connection.
type filePlan struct {
	pf            PendingFile
	existingFile  model.File
	fileExisted   bool
	delta         model.SymbolDelta
	deletedLookup map[uint64]int64 // stable_id -> row id, for resolving delta.Deleted row ids
}

func (b *Batcher) buildPlan(ctx context.Context, pf PendingFile) (filePlan, error) {
	plan := filePlan{pf: pf}

	existing, err := b.st.FindFileByPath(ctx, pf.Path)
	if err == nil {
		plan.fileExisted = true
		plan.existingFile = existing
	} else if err != sql.ErrNoRows {
		return filePlan{}, err
	}

	if pf.Deleted && !plan.fileExisted {
		// Deleting a file we never indexed: nothing to do.
		return plan, nil
	}

	var stored []model.Symbol
	if plan.fileExisted {
		version, verr := b.st.CurrentVersion(ctx)
		if verr != nil {
			return filePlan{}, verr
		}
		stored, err = b.st.SymbolsForFile(ctx, plan.existingFile.ID, version)
		if err != nil {
			return filePlan{}, err
		}
	}

	fresh := pf.Extracted.Symbols
	if pf.Deleted {
		fresh = nil
	}
	plan.delta = identity.Diff(stored, fresh)

	byStableID := make(map[uint64]int64, len(stored))
	for _, s := range stored {
		byStableID[s.StableID] = s.ID
	}
	plan.deletedLookup = byStableID
	return plan, nil
}

// applyPlan writes one file's upsert, symbol delta, and edge replacement
// inside the shared transaction, returning the file's row id.
func applyPlan(ctx context.Context, tx *sql.Tx, plan filePlan, version int64) (int64, error) {
	pf := plan.pf

	if pf.Deleted {
		if !plan.fileExisted {
			return 0, nil
		}
		fileID := plan.existingFile.ID
		for _, d := range plan.delta.Deleted {
			if id, ok := plan.deletedLookup[d.StableID]; ok {
				if err := store.DeleteSymbol(ctx, tx, id, version); err != nil {
					return 0, err
				}
			}
		}
		if err := store.MarkFileDeleted(ctx, tx, fileID, version); err != nil {
			return 0, err
		}
		if err := store.ReplaceFileEdges(ctx, tx, fileID, nil); err != nil {
			return 0, err
		}
		return fileID, nil
	}

	fileID, err := store.UpsertFile(ctx, tx, model.File{
		Path:         pf.Path,
		Language:     pf.Language,
		Digest:       pf.Digest,
		Size:         pf.Size,
		FirstSeenVer: version,
	})
	if err != nil {
		return 0, err
	}

	complexity := pf.Extracted.Metrics.SymbolComplexity
	shingle := pf.Extracted.Metrics.SymbolShingle

	for _, added := range plan.delta.Added {
		added.FirstSeenVer = version
		added.LastSeenVer = version
		id, err := store.InsertSymbol(ctx, tx, fileID, added)
		if err != nil {
			return 0, err
		}
		if err := store.UpsertSymbolMetrics(ctx, tx, id, complexity[added.StableID], shingle[added.StableID]); err != nil {
			return 0, err
		}
	}
	for _, mod := range plan.delta.Modified {
		if err := store.UpdateSymbol(ctx, tx, mod.Old.ID, mod.New, version); err != nil {
			return 0, err
		}
		if err := store.UpsertSymbolMetrics(ctx, tx, mod.Old.ID, complexity[mod.New.StableID], shingle[mod.New.StableID]); err != nil {
			return 0, err
		}
	}
	for _, deleted := range plan.delta.Deleted {
		if id, ok := plan.deletedLookup[deleted.StableID]; ok {
			if err := store.DeleteSymbol(ctx, tx, id, version); err != nil {
				return 0, err
			}
		}
	}

	if err := store.ReplaceFileEdges(ctx, tx, fileID, pf.Extracted.Edges); err != nil {
		return 0, err
	}
	return fileID, nil
}

// estimateMemory gives a rough byte estimate for a pending file's footprint,
// used against batch_mem_limit_mb. It need not be exact, only monotonic in
// the size of what's actually queued.
func estimateMemory(pf PendingFile) int64 {
	total := int64(len(pf.Path)) + pf.Size
	for _, s := range pf.Extracted.Symbols {
		total += int64(len(s.Qualname) + len(s.Signature) + len(s.Docstring) + 128)
	}
	for _, e := range pf.Extracted.Edges {
		total += int64(len(e.TargetQualname) + len(e.Evidence) + 64)
	}
	return total
}
