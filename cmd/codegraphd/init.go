// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/config"
	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
)

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "Create .codegraph/config.yaml with compiled-in defaults",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Overwrite an existing config",
		},
		&cli.BoolFlag{
			Name:  "hook",
			Usage: "Also install a git post-commit reindex hook",
		},
	},
	Action: func(c *cli.Context) error {
		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}

		configPath := filepath.Join(root, ".codegraph", "config.yaml")
		if _, err := os.Stat(configPath); err == nil && !c.Bool("force") {
			return fail(c, codegrapherrors.NewInputError(
				fmt.Sprintf("%s already exists", configPath), "", "use --force to overwrite"))
		}

		cfg := config.DefaultConfig()
		if err := cfg.Save(root); err != nil {
			return fail(c, fmt.Errorf("save config: %w", err))
		}
		ui.Success(fmt.Sprintf("created %s", configPath))
		addToGitignore(root)

		if c.Bool("hook") {
			gitDir, err := findGitDir(root)
			if err != nil {
				ui.Warningf("skipping hook install: %v", err)
			} else if err := installHook(filepath.Join(gitDir, "hooks", "post-commit"), false); err != nil {
				ui.Warningf("could not install git hook: %v", err)
			} else {
				ui.Success("git post-commit hook installed")
			}
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  1. Review .codegraph/config.yaml")
		fmt.Println("  2. Run 'codegraphd index' to build the graph")
		fmt.Println("  3. Run 'codegraphd status' to verify indexing")
		if !c.Bool("hook") {
			fmt.Println("  4. Run 'codegraphd install-hook' to reindex automatically on each commit")
		}
		return nil
	},
}

// addToGitignore appends .codegraph/ to root's .gitignore if present and
// not already listed, silently doing nothing when there is no .gitignore.
func addToGitignore(root string) {
	path := filepath.Join(root, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".codegraph/" || line == ".codegraph" || line == "/.codegraph/" || line == "/.codegraph" {
			return
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# codegraph\n.codegraph/\n")
	ui.Info("added .codegraph/ to .gitignore")
}
