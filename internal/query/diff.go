// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/codegraph/internal/model"
)

// ChangeType classifies how a symbol was affected by a diff.
type ChangeType string

const (
	ChangeAdded            ChangeType = "added"
	ChangeDeleted          ChangeType = "deleted"
	ChangeModified         ChangeType = "modified"
	ChangeSignatureChanged ChangeType = "signature_changed"
)

// RiskFactor is one entry in analyze_diff's closed risk-factor vocabulary.
type RiskFactor string

const (
	RiskSignatureChangeHighFanin    RiskFactor = "signature_change_high_fanin"
	RiskCrossLanguageCaller         RiskFactor = "cross_language_caller"
	RiskNoTestCoverage              RiskFactor = "no_test_coverage"
	RiskInterfaceMethodChange       RiskFactor = "interface_method_change"
	RiskCoChangePartnerAbsent       RiskFactor = "high_confidence_co_change_partner_absent"
)

// Severity is how serious a risk factor is judged to be.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DiffEntry is one changed symbol with its risk assessment.
type DiffEntry struct {
	Symbol       model.Symbol
	ChangeType   ChangeType
	RiskFactors  map[RiskFactor]Severity
	TestCoverage []model.Symbol
	Checklist    []string
}

// DiffResult is analyze_diff's response.
type DiffResult struct {
	Entries  []DiffEntry
	NextHops []NextHop
}

// changedRange is one file's set of changed line spans from a unified diff.
type changedRange struct {
	path  string
	lines map[int]bool
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
var diffFileHeaderRe = regexp.MustCompile(`^\+\+\+ b/(.+)$`)

// AnalyzeDiff parses a unified diff, maps changed line ranges onto enclosing
// symbols, classifies each change, attaches test coverage, and assembles a
// risk report over the closed factor vocabulary. Coverage lists only tests
// with a direct TESTS edge to the symbol; tests that reach it through
// intermediate callers are not counted.
func (e *Engine) AnalyzeDiff(ctx context.Context, diffText string) (DiffResult, error) {
	ranges, err := parseUnifiedDiff(diffText)
	if err != nil {
		return DiffResult{}, err
	}
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return DiffResult{}, err
	}
	prevVersion := version - 1

	var entries []DiffEntry
	for _, cr := range ranges {
		file, err := e.st.FindFileByPath(ctx, cr.path)
		if err != nil {
			continue // file not tracked (e.g. outside the repo root, or deleted)
		}
		symbols, err := e.st.SymbolsForFile(ctx, file.ID, version)
		if err != nil {
			return DiffResult{}, err
		}
		for _, sym := range symbols {
			if !rangeTouchesSymbol(cr, sym) {
				continue
			}
			entry, err := e.buildDiffEntry(ctx, sym, prevVersion)
			if err != nil {
				return DiffResult{}, err
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol.Qualname < entries[j].Symbol.Qualname })

	var hops []NextHop
	for _, entry := range entries {
		if len(entry.RiskFactors) > 0 {
			hops = append(hops, hop("analyze_impact", map[string]any{"seed": entry.Symbol.Qualname, "direction": "upstream"}))
			break
		}
	}
	return DiffResult{Entries: entries, NextHops: hops}, nil
}

func (e *Engine) buildDiffEntry(ctx context.Context, sym model.Symbol, prevVersion int64) (DiffEntry, error) {
	changeType := ChangeModified
	if sym.FirstSeenVer > prevVersion {
		changeType = ChangeAdded
		// stable_id embeds signature, so an edited signature never surfaces
		// as an in-place update of the same row: the old stable_id's row
		// gets deleted and a new row inserted under the new stable_id, both
		// at sym.FirstSeenVer. Recover that deleted row by qualname to tell
		// a real signature change apart from a brand new symbol.
		if predecessor, perr := e.st.FindPredecessorSymbol(ctx, sym.Qualname, sym.FirstSeenVer, sym.ID); perr == nil &&
			predecessor.Signature != sym.Signature {
			changeType = ChangeSignatureChanged
		}
	}

	factors := make(map[RiskFactor]Severity)

	fanIn, ferr := e.st.FanIn(ctx, sym.ID)
	if ferr == nil && changeType == ChangeSignatureChanged && fanIn >= 10 {
		factors[RiskSignatureChangeHighFanin] = SeverityCritical
	}

	callers, err := e.st.EdgesTo(ctx, sym.ID, []model.EdgeKind{model.EdgeCalls, model.EdgeRPCCall, model.EdgeXRef})
	if err != nil {
		return DiffEntry{}, err
	}
	var coverage []model.Symbol
	crossLanguage := false
	checklist := []string{}
	for _, edge := range callers {
		if edge.SourceSymbolID == nil {
			continue
		}
		caller, err := e.st.SymbolByID(ctx, *edge.SourceSymbolID)
		if err != nil {
			continue
		}
		callerFile, err := e.st.FileByID(ctx, caller.FileID)
		if err != nil {
			continue
		}
		symFile, err := e.st.FileByID(ctx, sym.FileID)
		if err == nil && symFile.Language != "" && callerFile.Language != symFile.Language {
			crossLanguage = true
		}
		checklist = append(checklist, fmt.Sprintf("review caller %s in %s", caller.Qualname, callerFile.Path))
	}
	if crossLanguage {
		factors[RiskCrossLanguageCaller] = SeverityWarning
	}

	tests, err := e.st.EdgesTo(ctx, sym.ID, []model.EdgeKind{model.EdgeTests})
	if err != nil {
		return DiffEntry{}, err
	}
	for _, edge := range tests {
		if edge.SourceSymbolID == nil {
			continue
		}
		if t, err := e.st.SymbolByID(ctx, *edge.SourceSymbolID); err == nil {
			coverage = append(coverage, t)
		}
	}
	if len(coverage) == 0 {
		factors[RiskNoTestCoverage] = SeverityWarning
	}

	if sym.Kind == model.KindInterface || (sym.Kind == model.KindMethod && changeType == ChangeSignatureChanged) {
		factors[RiskInterfaceMethodChange] = SeverityWarning
	}

	file, ferr2 := e.st.FileByID(ctx, sym.FileID)
	if ferr2 == nil {
		partners, perr := e.st.CoChangesFor(ctx, file.Path, 10)
		if perr == nil {
			for _, p := range partners {
				if partnerConfidence(p) >= 0.8 {
					factors[RiskCoChangePartnerAbsent] = SeverityWarning
					checklist = append(checklist, fmt.Sprintf("confirm co-change partner %s/%s was also reviewed", p.FileA, p.FileB))
					break
				}
			}
		}
	}

	if len(checklist) == 0 {
		checklist = append(checklist, fmt.Sprintf("review %s for correctness", sym.Qualname))
	}

	return DiffEntry{
		Symbol:       sym,
		ChangeType:   changeType,
		RiskFactors:  factors,
		TestCoverage: coverage,
		Checklist:    checklist,
	}, nil
}

func rangeTouchesSymbol(cr changedRange, sym model.Symbol) bool {
	for line := range cr.lines {
		if line >= sym.Span.StartLine && line <= sym.Span.EndLine {
			return true
		}
	}
	return false
}

// parseUnifiedDiff extracts per-file changed-line sets from unified diff
// text, reading "+++ b/path" file headers and "@@ -a,b +c,d @@" hunk
// headers to compute which lines in the post-image changed.
func parseUnifiedDiff(diffText string) ([]changedRange, error) {
	scanner := bufio.NewScanner(strings.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var ranges []changedRange
	var current *changedRange
	var newLine int
	inHunk := false

	for scanner.Scan() {
		line := scanner.Text()
		if m := diffFileHeaderRe.FindStringSubmatch(line); m != nil {
			ranges = append(ranges, changedRange{path: m[1], lines: map[int]bool{}})
			current = &ranges[len(ranges)-1]
			inHunk = false
			continue
		}
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			newStart, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, fmt.Errorf("parse hunk header: %w", err)
			}
			newLine = newStart
			inHunk = true
			continue
		}
		if !inHunk || current == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			current.lines[newLine] = true
			newLine++
		case strings.HasPrefix(line, "-"):
			// removed line: doesn't advance the post-image counter
		default:
			newLine++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan diff: %w", err)
	}
	return ranges, nil
}
