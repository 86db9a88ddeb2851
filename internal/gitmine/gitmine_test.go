// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitmine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// initTestRepo builds a throwaway git repo with three commits: the first
// two touch a.go and b.go together, the third touches only c.go. a.go and
// b.go should come out as a high-confidence co-change pair; c.go should not
// pair with anything.
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-b", "main")
	run("config", "commit.gpgsign", "false")

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("a.go", "package a\n")
	write("b.go", "package b\n")
	run("add", "a.go", "b.go")
	run("commit", "-m", "add a and b")

	write("a.go", "package a\n\nfunc A() {}\n")
	write("b.go", "package b\n\nfunc B() {}\n")
	run("add", "a.go", "b.go")
	run("commit", "-m", "extend a and b")

	write("c.go", "package c\n")
	run("add", "c.go")
	run("commit", "-m", "add c alone")

	return dir
}

func TestMine_PairsFilesChangedTogether(t *testing.T) {
	dir := initTestRepo(t)
	m := New(dir, nil)

	cochanges, err := m.Mine(context.Background(), 100, 10*time.Second)
	require.NoError(t, err)

	var pair *struct{ a, b string }
	for _, c := range cochanges {
		if (c.FileA == "a.go" && c.FileB == "b.go") || (c.FileA == "b.go" && c.FileB == "a.go") {
			pair = &struct{ a, b string }{c.FileA, c.FileB}
			require.Equal(t, 2, c.Count)
			require.Equal(t, 1.0, c.Confidence)
		}
	}
	require.NotNil(t, pair, "expected a.go/b.go to co-occur twice")

	for _, c := range cochanges {
		require.False(t, c.FileA == "c.go" || c.FileB == "c.go", "c.go changed alone, should not appear in any pair")
	}
}

func TestMine_CanonicalFileOrdering(t *testing.T) {
	dir := initTestRepo(t)
	m := New(dir, nil)

	cochanges, err := m.Mine(context.Background(), 100, 10*time.Second)
	require.NoError(t, err)

	for _, c := range cochanges {
		require.True(t, c.FileA < c.FileB, "expected canonical (a < b) ordering, got %s/%s", c.FileA, c.FileB)
	}
}
