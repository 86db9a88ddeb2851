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

	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
)

const hookMarker = "# codegraphd auto-index hook"

const postCommitHookContent = hookMarker + `
# Installed by: codegraphd init --hook / codegraphd install-hook
# Remove with: codegraphd install-hook --remove

codegraphd index --root "$(git rev-parse --show-toplevel)" --skip-cochange >/dev/null 2>&1 &
`

var installHookCommand = &cli.Command{
	Name:  "install-hook",
	Usage: "Install or remove a git post-commit hook that reindexes automatically",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing non-codegraphd hook"},
		&cli.BoolFlag{Name: "remove", Usage: "Remove the hook instead of installing it"},
	},
	Action: func(c *cli.Context) error {
		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}
		gitDir, err := findGitDir(root)
		if err != nil {
			return fail(c, codegrapherrors.NewInputError("not a git repository", err.Error(), "run this inside a git checkout"))
		}
		hookPath := filepath.Join(gitDir, "hooks", "post-commit")

		if c.Bool("remove") {
			if err := removeHook(hookPath); err != nil {
				return fail(c, err)
			}
			ui.Success("git hook removed")
			return nil
		}

		if err := installHook(hookPath, c.Bool("force")); err != nil {
			return fail(c, err)
		}
		ui.Success(fmt.Sprintf("git hook installed: %s", hookPath))
		return nil
	},
}

// findGitDir walks up from root looking for .git, resolving the gitdir
// pointer file git leaves in worktree checkouts.
func findGitDir(root string) (string, error) {
	dir := root
	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath)
			if err != nil {
				return "", fmt.Errorf("read .git worktree pointer: %w", err)
			}
			gitdir := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(content)), "gitdir:"))
			if filepath.IsAbs(gitdir) {
				return gitdir, nil
			}
			return filepath.Join(dir, gitdir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .git directory found above %s", root)
		}
		dir = parent
	}
}

func installHook(hookPath string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
		return codegrapherrors.NewPermissionError("cannot create hooks directory", err.Error(), "check .git/hooks permissions", err)
	}
	if content, err := os.ReadFile(hookPath); err == nil {
		if strings.Contains(string(content), hookMarker) {
			return nil // already installed
		}
		if !force {
			return codegrapherrors.NewInputError(
				fmt.Sprintf("hook already exists at %s", hookPath), "", "use --force to overwrite")
		}
	}
	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o755); err != nil {
		return codegrapherrors.NewPermissionError("cannot write hook", err.Error(), "check .git/hooks permissions", err)
	}
	return nil
}

func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath)
	if err != nil {
		if os.IsNotExist(err) {
			return codegrapherrors.NewNotFoundError(fmt.Sprintf("no hook found at %s", hookPath), "", "")
		}
		return codegrapherrors.NewPermissionError("cannot read hook", err.Error(), "", err)
	}
	if !strings.Contains(string(content), hookMarker) {
		return codegrapherrors.NewInputError(
			fmt.Sprintf("hook at %s was not installed by codegraphd", hookPath), "", "remove it manually if needed")
	}
	if err := os.Remove(hookPath); err != nil {
		return codegrapherrors.NewPermissionError("cannot remove hook", err.Error(), "", err)
	}
	return nil
}
