// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/config"
	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/extract/goext"
	"github.com/kraklabs/codegraph/internal/extract/protoext"
	"github.com/kraklabs/codegraph/internal/extract/pyext"
	"github.com/kraklabs/codegraph/internal/extract/tsext"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
)

// storePath is the on-disk location of a repository's graph database,
// relative to its root.
func storePath(root string) string {
	return filepath.Join(root, ".codegraph", "graph.db")
}

// repoRoot resolves the --root flag to an absolute path.
func repoRoot(c *cli.Context) (string, error) {
	root := c.String("root")
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", codegrapherrors.NewInputError("cannot resolve repository root", err.Error(), "pass an existing directory with --root")
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", codegrapherrors.NewInputError(fmt.Sprintf("repository root %q does not exist", abs), "", "run 'codegraphd init' in an existing directory, or pass --root")
	}
	return abs, nil
}

// newLogger builds the slog handler every command shares, honoring the
// project config's logging level and format once loaded.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// extractorRegistry wires every language extractor this build ships, one
// registry spanning the full multi-language corpus instead of a single
// language.
func extractorRegistry() *extract.Registry {
	return extract.NewRegistry(goext.New(), pyext.New(), tsext.New(), protoext.New())
}

// openRepo loads the ignore set and opens the graph store for root, using
// the already-loaded cfg,
// failing with a structured UserError (not a bare error) so every command
// reports consistently.
func openRepo(root string, cfg *config.Config) (*scan.IgnoreSet, *store.Store, error) {
	ignore, err := scan.LoadIgnoreSet(root)
	if err != nil {
		return nil, nil, codegrapherrors.NewInputError("cannot load ignore rules", err.Error(), "check .codegraphignore for syntax errors")
	}
	if err := os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755); err != nil {
		return nil, nil, codegrapherrors.NewPermissionError("cannot create .codegraph directory", err.Error(), "check directory permissions", err)
	}
	st, err := store.Open(storePath(root), cfg.Store.PoolSize, cfg.Store.PoolMinIdle)
	if err != nil {
		return nil, nil, err
	}
	return ignore, st, nil
}

// loadConfig loads root's project config, falling back to compiled-in
// defaults when none has been written yet.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, codegrapherrors.NewConfigError("cannot load project config", err.Error(), "fix .codegraph/config.yaml or remove it to use defaults", err)
	}
	return cfg, nil
}

func jsonRequested(c *cli.Context) bool {
	return c.Bool("json")
}

// fail reports err through the shared UserError formatter and exits; it
// never returns to the caller, but keeps the Action's (error) signature
// satisfied for urfave/cli.
func fail(c *cli.Context, err error) error {
	if err == nil {
		return nil
	}
	codegrapherrors.FatalError(err, jsonRequested(c))
	return nil
}
