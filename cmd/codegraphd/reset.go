// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
)

var resetCommand = &cli.Command{
	Name:  "reset",
	Usage: "Delete the local graph database, forcing a full reindex next run",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "Skip the confirmation prompt",
		},
	},
	Action: func(c *cli.Context) error {
		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}
		path := storePath(root)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			ui.Info("no graph database to reset")
			return nil
		}

		if !c.Bool("yes") {
			fmt.Printf("This deletes %s and all indexed graph data. Continue? (y/N): ", path)
			var answer string
			_, _ = fmt.Scanln(&answer)
			if answer != "y" && answer != "Y" {
				ui.Info("reset cancelled")
				return nil
			}
		}

		if err := os.Remove(path); err != nil {
			return fail(c, codegrapherrors.NewPermissionError("cannot delete graph database", err.Error(), "check file permissions on .codegraph/graph.db", err))
		}
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(path + suffix)
		}
		ui.Success("graph database deleted, run 'codegraphd index' to rebuild")
		return nil
	},
}
