// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TextMatch is one search_text/grep hit.
type TextMatch struct {
	Path string
	Line int
	Text string
}

// SearchTextResult is search_text's response.
type SearchTextResult struct {
	Matches  []TextMatch
	Truncated bool
	NextHops []NextHop
}

const defaultPatternMaxLength = 10_000
const defaultSearchTimeoutSecs = 30
const defaultResultSizeCap = 1000

// SearchText wraps an external regex search (ripgrep) with a timeout,
// pattern-length cap, and a size cap on results. path, when non-empty, is
// validated to lie under the repo root before being passed to the
// subprocess; an empty path searches the whole root.
func (e *Engine) SearchText(ctx context.Context, pattern, path string, limit int) (SearchTextResult, error) {
	maxLen := e.cfg.Search.PatternMaxLength
	if maxLen <= 0 {
		maxLen = defaultPatternMaxLength
	}
	if len(pattern) > maxLen {
		return SearchTextResult{}, fmt.Errorf("pattern exceeds max length %d bytes", maxLen)
	}
	timeoutSecs := e.cfg.Search.TimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = defaultSearchTimeoutSecs
	}
	if limit <= 0 || limit > defaultResultSizeCap {
		limit = defaultResultSizeCap
	}

	searchRoot := e.root
	if path != "" {
		resolved, err := e.resolvePath(path)
		if err != nil {
			return SearchTextResult{}, err
		}
		searchRoot = resolved
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "rg",
		"--line-number", "--no-heading", "--color", "never",
		"--max-count", strconv.Itoa(limit),
		pattern, searchRoot)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if runCtx.Err() != nil {
			return SearchTextResult{}, fmt.Errorf("search timed out after %ds", timeoutSecs)
		}
		if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() == 1 {
			return SearchTextResult{}, nil // rg exit code 1 == no matches
		}
		return SearchTextResult{}, fmt.Errorf("rg: %w: %s", err, stderr.String())
	}

	matches, truncated := parseRipgrepOutput(stdout.String(), e.root, limit)
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Line < matches[j].Line
	})

	var hops []NextHop
	if len(matches) > 0 {
		hops = append(hops, hop("open_file", map[string]any{"path": matches[0].Path}))
	}
	return SearchTextResult{Matches: matches, Truncated: truncated, NextHops: hops}, nil
}

func parseRipgrepOutput(output, root string, limit int) ([]TextMatch, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var matches []TextMatch
	for scanner.Scan() {
		if len(matches) >= limit {
			return matches, true
		}
		line := scanner.Text()
		// rg --no-heading output is "path:lineno:text"
		firstColon := strings.Index(line, ":")
		if firstColon < 0 {
			continue
		}
		rest := line[firstColon+1:]
		secondColon := strings.Index(rest, ":")
		if secondColon < 0 {
			continue
		}
		lineNo, err := strconv.Atoi(rest[:secondColon])
		if err != nil {
			continue
		}
		path := strings.TrimPrefix(line[:firstColon], root+"/")
		matches = append(matches, TextMatch{Path: path, Line: lineNo, Text: rest[secondColon+1:]})
	}
	return matches, false
}
