// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/codegraph/internal/model"
)

var decisionPoint = regexp.MustCompile(`\b(if|for|while|case|catch|except|elif|foreach)\b|&&|\|\|`)

// ComplexityOf gives a language-agnostic cyclomatic complexity estimate for
// body: one base path plus one per decision point (branch, loop, guard, or
// short-circuit boolean). It trades per-grammar precision for a single
// implementation every extractor's output can share.
func ComplexityOf(body string) int {
	return 1 + len(decisionPoint.FindAllString(body, -1))
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ShingleOf fingerprints body for duplicate detection: it tokenizes
// identifiers and keywords, discards whitespace/formatting noise by
// hashing the sorted unique token set, so two symbols with the same
// structure collide even when blank lines or indentation differ. Words
// inside comments are tokens like any other.
func ShingleOf(body string) string {
	words := identifierRe.FindAllString(body, -1)
	if len(words) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	uniq := make([]string, 0, len(seen))
	for w := range seen {
		uniq = append(uniq, w)
	}
	sort.Strings(uniq)
	sum := xxhash.Sum64String(strings.Join(uniq, "\x00"))
	return strconv.FormatUint(sum, 16)
}

// AnnotateMetrics fills result's per-symbol complexity/shingle maps and its
// rolled-up CyclomaticTotal by slicing source with each symbol's byte span.
// Maps are keyed by StableID, which every extractor assigns before
// returning, so the values survive the identity diff against previously
// stored symbols instead of being tied to a transient slice index.
func AnnotateMetrics(source []byte, result *model.ExtractedFile) {
	if len(result.Symbols) == 0 {
		return
	}
	complexity := make(map[uint64]int, len(result.Symbols))
	shingle := make(map[uint64]string, len(result.Symbols))
	total := 0
	for _, sym := range result.Symbols {
		body := spanText(source, sym.Span)
		c := ComplexityOf(body)
		complexity[sym.StableID] = c
		shingle[sym.StableID] = ShingleOf(body)
		total += c
	}
	result.Metrics.SymbolComplexity = complexity
	result.Metrics.SymbolShingle = shingle
	result.Metrics.CyclomaticTotal = total
}

func spanText(source []byte, span model.Span) string {
	start, end := span.StartByte, span.EndByte
	if start < 0 || end > len(source) || start >= end {
		return ""
	}
	return string(source[start:end])
}
