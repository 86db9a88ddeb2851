// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package index orchestrates one full indexing run: scan the repository,
// extract every changed or new file in parallel, write the resulting deltas
// through the batch writer, then run the cross-language post-pass. The
// phase sequence (Scanning -> Extracting -> Writing -> PostPass) follows a
// load -> parse parallel -> resolve calls -> validate -> write pipeline
// shape, and the Extracting phase uses a worker-pool-over-channel design.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/batch"
	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/metrics"
	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"

	"github.com/google/uuid"
)

// Phase is one state of the indexing run's state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseExtracting Phase = "extracting"
	PhaseWriting    Phase = "writing"
	PhasePostPass   Phase = "postpass"
	PhaseCommitted  Phase = "committed"
	PhaseFailed     Phase = "failed"
)

// Result summarizes one completed (or failed) run.
type Result struct {
	// RunID identifies this run across its log lines; useful for
	// correlating a `codegraphd index` invocation's own output with what
	// a concurrently running `watch` process logged for the same commit.
	RunID          string
	Phase          Phase
	FilesScanned   int
	FilesChanged   int
	FilesDeleted   int
	FilesSkipped   int
	ParseErrors    int
	GraphVersion   int64
	ScanDuration   time.Duration
	ExtractDur     time.Duration
	WriteDuration  time.Duration
	Err            error
}

// Orchestrator runs indexing passes over one repository root. Every pass
// scans the whole tree; there is no entry point that takes a caller-supplied
// set of changed files.
type Orchestrator struct {
	root     string
	st       *store.Store
	registry *extract.Registry
	cfg      config.IndexConfig
	ignore   *scan.IgnoreSet
	log      *slog.Logger

	mu    sync.Mutex
	phase Phase
}

// New builds an Orchestrator rooted at root, writing through st.
func New(root string, st *store.Store, registry *extract.Registry, cfg config.IndexConfig, ignore *scan.IgnoreSet, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{root: root, st: st, registry: registry, cfg: cfg, ignore: ignore, log: log, phase: PhaseIdle}
}

// Phase returns the orchestrator's current state, safe to call from another
// goroutine (e.g. an index_status query handler) while a run is in flight.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// Run executes one full Scanning -> Extracting -> Writing -> PostPass pass
// and leaves the orchestrator in Committed or Failed.
func (o *Orchestrator) Run(ctx context.Context) *Result {
	res := &Result{RunID: uuid.NewString()}
	runStart := time.Now()

	checkpoints := batch.NewCheckpointManager(o.root)
	if prev, err := checkpoints.Load(); err == nil && prev != nil {
		o.log.Info("index.run.prior_checkpoint",
			"checkpoint_id", prev.CheckpointID, "prior_graph_version", prev.GraphVersion,
			"prior_updated_at", prev.UpdatedAt)
	}

	o.setPhase(PhaseScanning)
	scanStart := time.Now()
	scanner := scan.New(o.root, o.ignore, 0, o.log)
	scanResult, err := scanner.Walk()
	if err != nil {
		return o.fail(res, fmt.Errorf("scan: %w", err))
	}
	res.ScanDuration = time.Since(scanStart)
	res.FilesScanned = len(scanResult.Files)
	for _, n := range scanResult.SkipReasons {
		res.FilesSkipped += n
	}
	metrics.ObserveScan(res.ScanDuration.Seconds())

	deletedPaths, err := o.findDeletedPaths(ctx, scanResult)
	if err != nil {
		return o.fail(res, fmt.Errorf("diff live files: %w", err))
	}

	o.setPhase(PhaseExtracting)
	extractStart := time.Now()
	extracted, parseErrors := o.extractParallel(ctx, scanResult.Files)
	res.ExtractDur = time.Since(extractStart)
	res.ParseErrors = parseErrors

	o.setPhase(PhaseWriting)
	writeStart := time.Now()
	b := batch.New(o.st, o.cfg, o.log)

	symbolsIndexed := 0
	lastPath := ""
	for _, pf := range extracted {
		if err := b.Add(ctx, pf); err != nil {
			return o.fail(res, fmt.Errorf("queue %s: %w", pf.Path, err))
		}
		res.FilesChanged++
		symbolsIndexed += len(pf.Extracted.Symbols)
		lastPath = pf.Path
	}
	for _, path := range deletedPaths {
		if err := b.Add(ctx, batch.PendingFile{Path: path, Deleted: true}); err != nil {
			return o.fail(res, fmt.Errorf("queue delete %s: %w", path, err))
		}
		res.FilesDeleted++
	}
	if err := b.Stop(ctx); err != nil {
		return o.fail(res, fmt.Errorf("flush: %w", err))
	}
	res.WriteDuration = time.Since(writeStart)
	metrics.ObserveWrite(res.WriteDuration.Seconds())

	o.setPhase(PhasePostPass)
	if err := RunPostPass(ctx, o.st, o.log); err != nil {
		return o.fail(res, fmt.Errorf("postpass: %w", err))
	}

	version, err := o.st.CurrentVersion(ctx)
	if err != nil {
		return o.fail(res, fmt.Errorf("read graph version: %w", err))
	}
	res.GraphVersion = version

	now := time.Now().UTC().Format(time.RFC3339)
	if err := checkpoints.Save(&batch.Checkpoint{
		CheckpointID:   res.RunID,
		GraphVersion:   version,
		LastFilePath:   lastPath,
		FilesIndexed:   res.FilesChanged,
		SymbolsIndexed: symbolsIndexed,
		StartedAt:      runStart.UTC().Format(time.RFC3339),
		UpdatedAt:      now,
	}); err != nil {
		o.log.Warn("index.run.checkpoint_save_failed", "run_id", res.RunID, "error", err)
	}

	o.setPhase(PhaseCommitted)
	res.Phase = PhaseCommitted
	o.log.Info("index.run.committed", "run_id", res.RunID,
		"files_scanned", res.FilesScanned, "files_changed", res.FilesChanged,
		"files_deleted", res.FilesDeleted, "graph_version", version)
	return res
}

func (o *Orchestrator) fail(res *Result, err error) *Result {
	o.setPhase(PhaseFailed)
	res.Phase = PhaseFailed
	res.Err = err
	o.log.Error("index.run.failed", "run_id", res.RunID, "error", err)
	return res
}

// findDeletedPaths diffs the store's previously-live files against the
// current scan, returning paths that vanished from disk.
func (o *Orchestrator) findDeletedPaths(ctx context.Context, scanResult *scan.Result) ([]string, error) {
	live, err := o.st.ListLiveFiles(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(scanResult.Files))
	for _, f := range scanResult.Files {
		seen[f.Path] = struct{}{}
	}
	var deleted []string
	for _, f := range live {
		if _, ok := seen[f.Path]; !ok {
			deleted = append(deleted, f.Path)
		}
	}
	return deleted, nil
}

type extractJob struct {
	index int
	file  scan.File
}

type extractOutcome struct {
	index int
	pf    batch.PendingFile
	err   error
}

// extractParallel dispatches each scanned file to the extractor registered
// for its language, using a jobs/results channel pool of four workers;
// file sets smaller than ten files fall back to sequential extraction.
func (o *Orchestrator) extractParallel(ctx context.Context, files []scan.File) ([]batch.PendingFile, int) {
	if len(files) == 0 {
		return nil, 0
	}
	numWorkers := 4
	if len(files) < 10 || numWorkers <= 1 {
		return o.extractSequential(files)
	}

	jobs := make(chan extractJob, len(files))
	results := make(chan extractOutcome, len(files))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				pf, err := o.extractOne(job.file)
				results <- extractOutcome{index: job.index, pf: pf, err: err}
			}
		}()
	}

	for i, f := range files {
		jobs <- extractJob{index: i, file: f}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*batch.PendingFile, len(files))
	errCount := 0
	for out := range results {
		if out.err != nil {
			errCount++
			o.log.Warn("index.extract.error", "path", files[out.index].Path, "error", out.err)
			continue
		}
		pf := out.pf
		ordered[out.index] = &pf
	}

	pending := make([]batch.PendingFile, 0, len(files))
	for _, pf := range ordered {
		if pf != nil {
			pending = append(pending, *pf)
		}
	}
	return pending, errCount
}

func (o *Orchestrator) extractSequential(files []scan.File) ([]batch.PendingFile, int) {
	pending := make([]batch.PendingFile, 0, len(files))
	errCount := 0
	for _, f := range files {
		pf, err := o.extractOne(f)
		if err != nil {
			errCount++
			o.log.Warn("index.extract.error", "path", f.Path, "error", err)
			continue
		}
		pending = append(pending, pf)
	}
	return pending, errCount
}

func (o *Orchestrator) extractOne(f scan.File) (batch.PendingFile, error) {
	extractStart := time.Now()
	source, digest, err := readAndDigest(f.FullPath)
	if err != nil {
		return batch.PendingFile{}, err
	}

	extractor := o.registry.For(f.Language)
	var result model.ExtractedFile
	if extractor == nil {
		result = extract.Fallback(source, modulePath(f.Path))
	} else {
		result, err = extractor.Extract(source, modulePath(f.Path))
		if err != nil {
			result = extract.Fallback(source, modulePath(f.Path))
		}
	}
	metrics.ObserveExtract(time.Since(extractStart).Seconds())
	extract.AnnotateMetrics(source, &result)

	return batch.PendingFile{
		Path:      f.Path,
		Language:  f.Language,
		Digest:    digest,
		Size:      f.Size,
		Extracted: result,
	}, nil
}

func readAndDigest(fullPath string) ([]byte, string, error) {
	source, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(source)
	return source, hex.EncodeToString(sum[:]), nil
}

// modulePath turns a repo-relative, slash-separated path into the qualname
// prefix an extractor builds symbols under: extension stripped, separators
// dotted.
func modulePath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(trimmed, "/", ".")
}
