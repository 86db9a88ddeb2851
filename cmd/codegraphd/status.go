// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
)

// statusReport is status's JSON shape; languages is sorted for determinism.
type statusReport struct {
	Root            string         `json:"root"`
	GraphVersion    int64          `json:"graph_version"`
	LiveFiles       int            `json:"live_files"`
	ByLanguage      map[string]int `json:"by_language"`
	IndexRunning    bool           `json:"index_running"`
	IndexRunnerPID  int            `json:"index_runner_pid,omitempty"`
	IndexRunningFor time.Duration  `json:"index_running_for,omitempty"`
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show the indexed graph's current version and file counts",
	Action: func(c *cli.Context) error {
		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return fail(c, err)
		}

		_, st, err := openRepo(root, cfg)
		if err != nil {
			return fail(c, err)
		}
		defer st.Close()

		version, err := st.CurrentVersion(c.Context)
		if err != nil {
			return fail(c, fmt.Errorf("read graph version: %w", err))
		}
		files, err := st.ListLiveFiles(c.Context)
		if err != nil {
			return fail(c, fmt.Errorf("list live files: %w", err))
		}

		byLang := map[string]int{}
		for _, f := range files {
			byLang[f.Language]++
		}
		report := statusReport{Root: root, GraphVersion: version, LiveFiles: len(files), ByLanguage: byLang}

		if lockInfo, err := index.NewRunLock(root).Info(); err == nil && lockInfo != nil {
			report.IndexRunning = true
			report.IndexRunnerPID = lockInfo.PID
			report.IndexRunningFor = time.Since(lockInfo.StartedAt)
		}

		if jsonRequested(c) {
			return output.JSON(report)
		}

		ui.Header("codegraph status")
		fmt.Printf("%s %s\n", ui.Label("Root:"), report.Root)
		fmt.Printf("%s %s\n", ui.Label("Graph version:"), ui.CountText(int(report.GraphVersion)))
		fmt.Printf("%s %s\n", ui.Label("Live files:"), ui.CountText(report.LiveFiles))
		ui.SubHeader("By language:")
		for lang, n := range report.ByLanguage {
			fmt.Printf("  %-12s %s\n", lang, ui.CountText(n))
		}
		if report.IndexRunning {
			fmt.Printf("%s pid %d, running for %s\n", ui.Label("Index run in progress:"), report.IndexRunnerPID, ui.FormatDuration(report.IndexRunningFor))
		}
		return nil
	},
}
