// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/internal/watch"
)

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Watch the repository and reindex incrementally on change",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics at /metrics on this address (e.g. :9090)",
		},
	},
	Action: func(c *cli.Context) error {
		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return fail(c, err)
		}
		log := newLogger(cfg)

		ignore, st, err := openRepo(root, cfg)
		if err != nil {
			return fail(c, err)
		}
		defer st.Close()

		lock := index.NewRunLock(root)
		ok, err := lock.TryAcquire()
		if err != nil {
			return fail(c, fmt.Errorf("acquire index lock: %w", err))
		}
		if !ok {
			return fail(c, fmt.Errorf("another codegraphd index or watch is already running against %s", root))
		}
		defer lock.Release()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if addr := c.String("metrics-addr"); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				log.Info("metrics.http.start", "addr", addr, "path", "/metrics")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Warn("metrics.http.error", "error", err)
				}
			}()
			go func() {
				<-ctx.Done()
				_ = srv.Close()
			}()
		}

		orch := index.New(root, st, extractorRegistry(), cfg.Index, ignore, log)
		stopSpinner := watchPhase(orch, ui.NewProgressConfig(jsonRequested(c), c.Bool("no-color")))
		res := orch.Run(ctx)
		stopSpinner()
		if res.Err != nil {
			return fail(c, fmt.Errorf("initial index failed: %w", res.Err))
		}
		ui.Success("initial index complete, watching for changes")

		var mu sync.Mutex
		w := watch.New(root, ignore, cfg.Watch, log)
		w.OnBatch = func(paths []string) {
			mu.Lock()
			defer mu.Unlock()
			log.Info("watch.reindex.triggered", "changed_paths", len(paths))
			res := orch.Run(ctx)
			if res.Err != nil {
				log.Error("watch.reindex.failed", "error", res.Err)
				return
			}
			ui.Infof("reindexed %d changed paths at graph version %d", len(paths), res.GraphVersion)
		}
		if err := w.Start(ctx); err != nil {
			return fail(c, fmt.Errorf("start watcher: %w", err))
		}

		go pollReindexRequests(ctx, root, &mu, orch, log)

		<-ctx.Done()
		_ = w.Stop()
		ui.Info("watch stopped")
		return nil
	},
}

// pollReindexRequests checks every reindexPollInterval for a sentinel file
// left by the reindex dispatcher method (or another codegraphd process)
// and runs a full pass when it finds one, holding the same mutex OnBatch
// uses so a requested reindex never overlaps a change-triggered one.
const reindexPollInterval = 2 * time.Second

func pollReindexRequests(ctx context.Context, root string, mu *sync.Mutex, orch *index.Orchestrator, log *slog.Logger) {
	ticker := time.NewTicker(reindexPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := index.ConsumeReindexRequest(root)
			if err != nil {
				log.Error("watch.reindex_request.check_failed", "error", err)
				continue
			}
			if !requested {
				continue
			}
			mu.Lock()
			log.Info("watch.reindex_request.honored")
			res := orch.Run(ctx)
			mu.Unlock()
			if res.Err != nil {
				log.Error("watch.reindex_request.failed", "error", res.Err)
			}
		}
	}
}
