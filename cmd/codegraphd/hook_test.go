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

func TestFindGitDir(t *testing.T) {
	t.Run("plain .git directory", func(t *testing.T) {
		root := t.TempDir()
		gitDir := filepath.Join(root, ".git")
		if err := os.Mkdir(gitDir, 0o755); err != nil {
			t.Fatal(err)
		}
		sub := filepath.Join(root, "a", "b")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatal(err)
		}

		got, err := findGitDir(sub)
		if err != nil {
			t.Fatalf("findGitDir: %v", err)
		}
		if got != gitDir {
			t.Errorf("findGitDir = %q, want %q", got, gitDir)
		}
	})

	t.Run("worktree gitdir pointer file", func(t *testing.T) {
		root := t.TempDir()
		realGitDir := filepath.Join(root, "main-checkout", ".git", "worktrees", "feature")
		if err := os.MkdirAll(realGitDir, 0o755); err != nil {
			t.Fatal(err)
		}
		worktreeRoot := filepath.Join(root, "feature-checkout")
		if err := os.MkdirAll(worktreeRoot, 0o755); err != nil {
			t.Fatal(err)
		}
		pointer := "gitdir: " + realGitDir + "\n"
		if err := os.WriteFile(filepath.Join(worktreeRoot, ".git"), []byte(pointer), 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := findGitDir(worktreeRoot)
		if err != nil {
			t.Fatalf("findGitDir: %v", err)
		}
		if got != realGitDir {
			t.Errorf("findGitDir = %q, want %q", got, realGitDir)
		}
	})

	t.Run("no .git anywhere", func(t *testing.T) {
		root := t.TempDir()
		if _, err := findGitDir(root); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})
}

func TestInstallAndRemoveHook(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(filepath.Join(gitDir, "hooks"), 0o755); err != nil {
		t.Fatal(err)
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if err := installHook(hookPath, false); err != nil {
		t.Fatalf("installHook: %v", err)
	}
	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), hookMarker) {
		t.Errorf("installed hook missing marker: %q", content)
	}

	// Installing again is a no-op, not an error.
	if err := installHook(hookPath, false); err != nil {
		t.Fatalf("re-installHook should be idempotent, got: %v", err)
	}

	// A foreign hook refuses to be overwritten without --force.
	foreign := filepath.Join(gitDir, "hooks", "pre-push")
	if err := os.WriteFile(foreign, []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := installHook(foreign, false); err == nil {
		t.Fatal("expected installHook to refuse a foreign hook without --force")
	}
	if err := installHook(foreign, true); err != nil {
		t.Fatalf("installHook with force: %v", err)
	}

	if err := removeHook(hookPath); err != nil {
		t.Fatalf("removeHook: %v", err)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook file should be gone after removeHook")
	}

	if err := removeHook(hookPath); err == nil {
		t.Fatal("expected removeHook on a missing hook to error")
	}
}

func TestRemoveHookRefusesForeignHook(t *testing.T) {
	root := t.TempDir()
	hookPath := filepath.Join(root, "post-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\necho not ours\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := removeHook(hookPath); err == nil {
		t.Fatal("expected removeHook to refuse a hook it did not install")
	}
}
