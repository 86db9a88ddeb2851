// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scan

import (
	"path/filepath"
	"strings"
)

// extToLanguage is the closed extension-to-language table. Extensions not
// present here are treated as unsupported and skipped by the scanner.
var extToLanguage = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rs":    "rust",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".proto": "protobuf",
	".sql":   "sql",
	".md":    "markdown",
}

// DetectLanguage returns the language tag for path's extension, or "" when
// the extension is not in the closed table.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return extToLanguage[ext]
}

// Supported reports whether DetectLanguage would recognize path.
func Supported(path string) bool {
	return DetectLanguage(path) != ""
}
