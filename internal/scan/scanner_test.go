// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalk_SkipsIgnoredAndUnsupported(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, "README.notes", "no extension mapping\n")

	ignore, err := LoadIgnoreSet(root)
	require.NoError(t, err)

	s := New(root, ignore, 0, nil)
	res, err := s.Walk()
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	require.Equal(t, "main.go", res.Files[0].Path)
	require.Equal(t, "go", res.Files[0].Language)
}

func TestWalk_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, root, "big.go", string(big))

	ignore, err := LoadIgnoreSet(root)
	require.NoError(t, err)

	s := New(root, ignore, 10, nil)
	res, err := s.Walk()
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Equal(t, 1, res.SkipReasons["too_large"])
}

func TestWalk_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "blob.go")
	require.NoError(t, os.WriteFile(path, []byte("abc\x00def"), 0o644))

	ignore, err := LoadIgnoreSet(root)
	require.NoError(t, err)

	s := New(root, ignore, 0, nil)
	res, err := s.Walk()
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Equal(t, 1, res.SkipReasons["binary"])
}

func TestWalk_CustomIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package keep\n")
	writeFile(t, root, "generated/gen.go", "package generated\n")
	writeFile(t, root, ".codegraphignore", "generated/**\n")

	ignore, err := LoadIgnoreSet(root)
	require.NoError(t, err)

	s := New(root, ignore, 0, nil)
	res, err := s.Walk()
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, "keep.go", res.Files[0].Path)
}

func TestDetectLanguage_ClosedTable(t *testing.T) {
	require.Equal(t, "go", DetectLanguage("x/y.go"))
	require.Equal(t, "python", DetectLanguage("a.py"))
	require.Equal(t, "", DetectLanguage("a.unknownext"))
}
