// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludes are skipped even when no .codegraphignore file is present.
var defaultExcludes = []string{
	".git/**",
	".codegraph/**",
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"bin/**",
	".idea/**",
	".vscode/**",
	"*.min.js",
	"*.min.css",
	"*.lock",
}

// IgnoreSet matches repo-relative, slash-normalized paths against a set of
// doublestar glob patterns loaded from .codegraphignore plus defaults.
type IgnoreSet struct {
	patterns []string
}

// LoadIgnoreSet reads root/.codegraphignore (one glob per line, '#' comments,
// blank lines skipped) and merges it with the built-in defaults.
func LoadIgnoreSet(root string) (*IgnoreSet, error) {
	patterns := append([]string{}, defaultExcludes...)

	f, err := os.Open(filepath.Join(root, ".codegraphignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreSet{patterns: patterns}, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &IgnoreSet{patterns: patterns}, nil
}

// Match reports whether relPath (slash-separated, relative to repo root)
// matches any ignore pattern.
func (s *IgnoreSet) Match(relPath string) bool {
	norm := filepath.ToSlash(relPath)
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, norm); ok {
			return true
		}
		// Bare "dir/**" style patterns should also match the directory
		// itself, not just its contents.
		if strings.HasSuffix(p, "/**") {
			prefix := strings.TrimSuffix(p, "/**")
			if norm == prefix {
				return true
			}
		}
	}
	return false
}
