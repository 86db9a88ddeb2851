// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package gitmine mines file-level co-change statistics from git history: a
// bounded `git log` subprocess walks recent commits, buckets the files
// touched by each, and turns every file pair that appears together into a
// weighted CoChange observation. Generalized from "diff two commits" to
// "walk N commits and tally co-occurring files", and run with its own
// timeout so it never competes with the store's writer lock.
package gitmine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kraklabs/codegraph/internal/model"
)

// Miner walks a git repository's history to produce co-change observations.
type Miner struct {
	repoPath string
	logger   *slog.Logger
}

// New returns a Miner rooted at repoPath.
func New(repoPath string, logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{repoPath: repoPath, logger: logger}
}

// pairKey canonicalizes a file pair for map lookups, matching the store's
// (file_a < file_b) ordering.
type pairKey struct{ a, b string }

func makePairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Mine walks up to maxCommits commits of history (newest first), bounded by
// timeout, and returns one CoChange record per file pair that co-occurred
// in at least one commit.
func (m *Miner) Mine(ctx context.Context, maxCommits int, timeout time.Duration) ([]model.CoChange, error) {
	if maxCommits <= 0 {
		maxCommits = 500
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", "log",
		"-n", strconv.Itoa(maxCommits),
		"--pretty=format:%x01%H%x00%ct",
		"--name-only",
	)
	cmd.Dir = m.repoPath

	out, err := cmd.Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("git log timed out after %s: %w", timeout, err)
		}
		return nil, fmt.Errorf("git log: %w", err)
	}

	commits := parseCommits(out)

	commitCounts := make(map[string]int)
	pairCounts := make(map[pairKey]int)
	pairLastTS := make(map[pairKey]int64)

	for _, c := range commits {
		files := dedupSorted(c.files)
		for _, f := range files {
			commitCounts[f]++
		}
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				key := makePairKey(files[i], files[j])
				pairCounts[key]++
				if c.timestamp > pairLastTS[key] {
					pairLastTS[key] = c.timestamp
				}
			}
		}
	}

	result := make([]model.CoChange, 0, len(pairCounts))
	for key, count := range pairCounts {
		commitsA := commitCounts[key.a]
		commitsB := commitCounts[key.b]
		result = append(result, model.CoChange{
			FileA:        key.a,
			FileB:        key.b,
			Count:        count,
			CommitsA:     commitsA,
			CommitsB:     commitsB,
			Confidence:   confidence(count, commitsA, commitsB),
			LastCommitTS: pairLastTS[key],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FileA != result[j].FileA {
			return result[i].FileA < result[j].FileA
		}
		return result[i].FileB < result[j].FileB
	})

	m.logger.Info("gitmine.done", "commits", len(commits), "pairs", len(result))
	return result, nil
}

// confidence is the co-change count relative to the less-frequently-changed
// file of the pair: a pair that always changes together when the rarer file
// changes is high confidence even if both files are individually common.
func confidence(count, commitsA, commitsB int) float64 {
	min := commitsA
	if commitsB < min {
		min = commitsB
	}
	if min == 0 {
		return 0
	}
	c := float64(count) / float64(min)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

type commitFiles struct {
	sha       string
	timestamp int64
	files     []string
}

// parseCommits splits `git log --pretty=format:%x01%H%x00%ct --name-only`
// output into per-commit file lists. %x01 is a start-of-commit marker that
// cannot appear in a commit hash or a file path, so it safely delimits
// commits even when a commit touches zero files.
func parseCommits(out []byte) []commitFiles {
	var commits []commitFiles
	var current *commitFiles

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "\x01") {
			if current != nil {
				commits = append(commits, *current)
			}
			header := strings.TrimPrefix(line, "\x01")
			parts := strings.SplitN(header, "\x00", 2)
			var ts int64
			if len(parts) == 2 {
				ts, _ = strconv.ParseInt(parts[1], 10, 64)
			}
			current = &commitFiles{sha: parts[0], timestamp: ts}
			continue
		}
		if line == "" || current == nil {
			continue
		}
		current.files = append(current.files, line)
	}
	if current != nil {
		commits = append(commits, *current)
	}
	return commits
}

func dedupSorted(files []string) []string {
	sort.Strings(files)
	out := files[:0:0]
	var prev string
	for i, f := range files {
		if i == 0 || f != prev {
			out = append(out, f)
		}
		prev = f
	}
	return out
}
