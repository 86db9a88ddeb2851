// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package watch registers OS-level filesystem watches over a repository
// root, falling back to a periodic poll when fsnotify watches are
// unavailable (e.g. certain network filesystems), and feeds every observed
// path through an adaptive debouncer before handing batches of changed
// paths to the indexer. Grounded on the recursive-watch/ignore-aware
// registration shape of standardbeagle-lci's FileWatcher.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/metrics"
	"github.com/kraklabs/codegraph/internal/scan"
)

// Watcher monitors root for changes and dispatches debounced, coalesced
// batches of changed repo-relative paths to OnBatch.
type Watcher struct {
	root   string
	ignore *scan.IgnoreSet
	cfg    config.WatchConfig
	log    *slog.Logger

	debouncer *Debouncer
	fsw       *fsnotify.Watcher

	// OnBatch is invoked once per debounced batch with the set of
	// repo-relative paths that changed. Set before calling Start.
	OnBatch func(paths []string)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher rooted at root.
func New(root string, ignore *scan.IgnoreSet, cfg config.WatchConfig, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{root: root, ignore: ignore, cfg: cfg, log: log}
}

// Start registers recursive watches and begins processing events. If
// fsnotify setup fails entirely, it falls back to periodic polling instead
// of returning an error: a repo that can't be watched live should still be
// reindexed eventually.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.debouncer = NewDebouncer(w.cfg, w.dispatch)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.debouncer.Run(ctx)
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("watch.fsnotify.unavailable", "error", err)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.pollLoop(ctx)
		}()
		return nil
	}
	w.fsw = fsw

	if err := w.addWatches(w.root); err != nil {
		w.log.Warn("watch.add_watches.partial_failure", "error", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents(ctx)
	}()
	return nil
}

// Stop halts watching and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.ignore.Match(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch.add_watch.failed", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch.fsnotify.error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.ignore.Match(rel) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
		}
	}

	w.debouncer.Notify(rel)
}

// pollLoop is the fallback path when fsnotify could not be initialized: it
// rescans the whole tree on a fixed interval and treats every scanned path
// as changed, letting the indexer's own digest comparison decide what
// actually needs re-extraction.
func (w *Watcher) pollLoop(ctx context.Context) {
	interval := time.Duration(w.cfg.FallbackPollSecs) * time.Second
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.RecordWatchFallbackPoll()
			scanner := scan.New(w.root, w.ignore, 0, w.log)
			result, err := scanner.Walk()
			if err != nil {
				w.log.Warn("watch.poll.scan_failed", "error", err)
				continue
			}
			for _, f := range result.Files {
				w.debouncer.Notify(f.Path)
			}
		}
	}
}

func (w *Watcher) dispatch(paths []string) {
	if w.OnBatch != nil {
		w.OnBatch(paths)
	}
}
