// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package scan walks a repository tree, honoring ignore rules and a closed
// extension-to-language table, and yields a deterministic sequence of
// candidate files for the indexer.
package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the size above which a file is skipped (10 MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// File is one scanned candidate, ready for extraction.
type File struct {
	Path     string // relative to root, slash-separated
	FullPath string // absolute
	Language string
	Size     int64
	ModTime  int64 // unix seconds
}

// Result is the scanner's full output for one pass.
type Result struct {
	Root        string
	Files       []File
	Languages   map[string]int
	SkipReasons map[string]int
}

// Scanner walks a repository root honoring an IgnoreSet and the closed
// language table.
type Scanner struct {
	root      string
	ignore    *IgnoreSet
	maxSize   int64
	logger    *slog.Logger
}

// New builds a Scanner rooted at root. If maxSize is 0, DefaultMaxFileSize
// is used.
func New(root string, ignore *IgnoreSet, maxSize int64, logger *slog.Logger) *Scanner {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	return &Scanner{root: absRoot, ignore: ignore, maxSize: maxSize, logger: logger}
}

// Walk produces a deterministic (path-sorted) sequence of scanned files.
func (s *Scanner) Walk() (*Result, error) {
	res := &Result{
		Root:        s.root,
		Languages:   make(map[string]int),
		SkipReasons: make(map[string]int),
	}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("scan.walk.error", "path", path, "err", err)
			return nil
		}

		relPath, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if s.ignore.Match(relPath) {
				res.SkipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if s.ignore.Match(relPath) {
			res.SkipReasons["excluded"]++
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.symlinkWithinRoot(path) {
				s.logger.Warn("scan.walk.symlink_escape", "path", relPath)
				res.SkipReasons["symlink_escape"]++
				return nil
			}
		}

		lang := DetectLanguage(relPath)
		if lang == "" {
			res.SkipReasons["unsupported_language"]++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if info.Size() > s.maxSize {
			s.logger.Warn("scan.walk.skip_large_file", "path", relPath, "size", info.Size())
			res.SkipReasons["too_large"]++
			return nil
		}
		if looksBinary(path) {
			res.SkipReasons["binary"]++
			return nil
		}

		res.Files = append(res.Files, File{
			Path:     relPath,
			FullPath: path,
			Language: lang,
			Size:     info.Size(),
			ModTime:  info.ModTime().Unix(),
		})
		res.Languages[lang]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	return res, nil
}

// symlinkWithinRoot resolves a symlink and rejects targets escaping root.
func (s *Scanner) symlinkWithinRoot(path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.root, resolved)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// looksBinary reads a small prefix and rejects the file if it contains a
// NUL byte, the same heuristic git and most text tools use.
func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8000)
	n, _ := f.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
