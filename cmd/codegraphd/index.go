// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/gitmine"
	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
)

var indexCommand = &cli.Command{
	Name:  "index",
	Usage: "Scan, extract, and write one indexing pass over the repository",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-cochange",
			Usage: "Skip mining git history for co-change statistics",
		},
		&cli.IntFlag{
			Name:  "max-commits",
			Usage: "Maximum commits to mine for co-change statistics",
			Value: 2000,
		},
	},
	Action: runIndex,
}

func runIndex(c *cli.Context) error {
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
		if lock.Stale() {
			log.Warn("index.lock.stale_holder_detected")
		}
		ui.Info("another codegraphd index run is already in progress, skipping")
		return nil
	}
	defer lock.Release()

	orch := index.New(root, st, extractorRegistry(), cfg.Index, ignore, log)

	stopSpinner := watchPhase(orch, ui.NewProgressConfig(jsonRequested(c), c.Bool("no-color")))
	res := orch.Run(c.Context)
	stopSpinner()

	if res.Err != nil {
		return fail(c, fmt.Errorf("index run failed: %w", res.Err))
	}

	if !c.Bool("skip-cochange") {
		miner := gitmine.New(root, log)
		cochanges, err := miner.Mine(c.Context, c.Int("max-commits"), 0)
		if err != nil {
			log.Warn("index.cochange.mine_failed", "error", err)
		} else if err := gitmine.Persist(c.Context, st, cochanges); err != nil {
			log.Warn("index.cochange.persist_failed", "error", err)
		}
	}

	if jsonRequested(c) {
		return output.JSON(res)
	}

	ui.Success(fmt.Sprintf("indexed %d files (%d changed, %d deleted) at graph version %d",
		res.FilesScanned, res.FilesChanged, res.FilesDeleted, res.GraphVersion))
	if res.ParseErrors > 0 {
		ui.Warningf("%d files failed to parse", res.ParseErrors)
	}
	return nil
}

// watchPhase polls an in-flight orchestrator's current phase and reflects it
// in a spinner description, since Run doesn't expose a per-file progress
// callback. The returned func stops the spinner and must be called once Run
// returns.
func watchPhase(orch *index.Orchestrator, cfg ui.ProgressConfig) func() {
	spinner := ui.NewPhaseSpinner(cfg, string(index.PhaseScanning))
	if spinner == nil {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(65 * time.Millisecond)
		defer ticker.Stop()
		last := index.Phase("")
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if p := orch.Phase(); p != last {
					spinner.Describe(string(p))
					last = p
				}
				_ = spinner.Add(1)
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		_ = spinner.Clear()
	}
}
