// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath canonicalizes a repo-relative path against e.root and refuses
// it if the result escapes the root, satisfying the "any path parameter
// must lie under the repo root" security constraint that applies to every
// method taking one.
func (e *Engine) resolvePath(relPath string) (string, error) {
	cleaned := filepath.Clean("/" + relPath)
	full := filepath.Join(e.root, cleaned)

	absRoot, err := filepath.Abs(e.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repo root", relPath)
	}
	return absFull, nil
}
