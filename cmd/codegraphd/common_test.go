// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kraklabs/codegraph/internal/config"
)

func TestStorePath(t *testing.T) {
	got := storePath("/repo")
	want := filepath.Join("/repo", ".codegraph", "graph.db")
	if got != want {
		t.Errorf("storePath = %q, want %q", got, want)
	}
}

func TestNewLoggerRespectsConfiguredLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	log := newLogger(cfg)
	if log == nil {
		t.Fatal("newLogger returned nil")
	}
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger configured for debug level should report debug enabled")
	}
}

func TestExtractorRegistryIsNotEmpty(t *testing.T) {
	reg := extractorRegistry()
	if reg == nil {
		t.Fatal("extractorRegistry returned nil")
	}
}
