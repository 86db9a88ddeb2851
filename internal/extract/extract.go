// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package extract defines the per-language extractor contract and a
// registry of the extractors the indexer can dispatch to by language tag.
package extract

import "github.com/kraklabs/codegraph/internal/model"

// Extractor turns one file's source bytes into symbols, edges, and metrics.
// Implementations are pure functions of their input: no I/O, no shared
// mutable state, safe to call concurrently from a worker pool.
type Extractor interface {
	// Languages returns the language tags this extractor handles.
	Languages() []string

	// Extract parses source and returns everything found in it. modulePath
	// is the file's qualname prefix (derived from its repo-relative path),
	// used to build fully qualified symbol names.
	Extract(source []byte, modulePath string) (model.ExtractedFile, error)
}

// Registry dispatches by language tag to a registered Extractor.
type Registry struct {
	byLanguage map[string]Extractor
}

// NewRegistry builds a Registry from a set of extractors, indexing each by
// every language it declares.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byLanguage: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, lang := range e.Languages() {
			r.byLanguage[lang] = e
		}
	}
	return r
}

// For returns the extractor registered for language, or nil if none is.
func (r *Registry) For(language string) Extractor {
	return r.byLanguage[language]
}
