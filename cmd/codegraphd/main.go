// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package main implements the codegraphd CLI: index a repository into a
// local code graph, keep it current with a filesystem watch, and query it
// through the same method surface the dispatcher exposes over stdio.
//
// Usage:
//
//	codegraphd init                    Create .codegraph/config.yaml
//	codegraphd index                   Run one indexing pass
//	codegraphd watch                   Watch and reindex on change
//	codegraphd query <method> [json]   Call one dispatcher method
//	codegraphd status                  Show graph status
//	codegraphd reset                   Delete local graph data
//	codegraphd install-hook            Install a git post-commit hook
//
// Grounded on standardbeagle-lci's cmd/lci/main.go: one urfave/cli/v2 App
// with global flags (--root, --no-color, --json) and one
// *cli.Command per subcommand, generalized from lci's search/grep/tree
// command set to codegraphd's index/watch/query/status/reset surface.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:                   "codegraphd",
		Usage:                  "Local code graph indexer and query engine",
		Version:                fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		UseShortOptionHandling: true,
		EnableBashCompletion:   true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Repository root to operate on",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colorized output",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output machine-readable JSON instead of colorized text",
			},
		},
		Before: func(c *cli.Context) error {
			ui.InitColors(c.Bool("no-color") || c.Bool("json"))
			return nil
		},
		Commands: []*cli.Command{
			initCommand,
			indexCommand,
			watchCommand,
			queryCommand,
			statusCommand,
			resetCommand,
			installHookCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
