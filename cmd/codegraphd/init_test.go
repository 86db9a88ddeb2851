// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddToGitignore(t *testing.T) {
	t.Run("no .gitignore present is a silent no-op", func(t *testing.T) {
		root := t.TempDir()
		addToGitignore(root) // must not panic or create the file
		if _, err := os.Stat(filepath.Join(root, ".gitignore")); !os.IsNotExist(err) {
			t.Error("addToGitignore should not create a .gitignore that did not exist")
		}
	})

	t.Run("appends when absent", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, ".gitignore")
		if err := os.WriteFile(path, []byte("node_modules/\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		addToGitignore(root)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), ".codegraph/") {
			t.Errorf(".gitignore not updated: %q", content)
		}
	})

	t.Run("already listed is left untouched", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, ".gitignore")
		original := "node_modules/\n.codegraph/\n"
		if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
			t.Fatal(err)
		}
		addToGitignore(root)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != original {
			t.Errorf("gitignore changed when entry already present: got %q, want %q", content, original)
		}
	})
}
