// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/extract/goext"
	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
)

// reindexFile rewrites name's content under root and runs a second
// indexing pass against the same store, simulating a commit that edits a
// file already indexed by openIndexedRepo.
func reindexFile(t *testing.T, st *store.Store, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))

	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)
	registry := extract.NewRegistry(goext.New())
	cfg := config.IndexConfig{BatchSize: 100, FlushIntervalMS: 500, BatchMemLimitMB: 10, LargeFileSkipMB: 10}
	res := index.New(root, st, registry, cfg, ignore, nil).Run(context.Background())
	require.NoError(t, res.Err)
}

func TestParseUnifiedDiff_ExtractsChangedLinesFromHunk(t *testing.T) {
	diff := "--- a/sample.go\n+++ b/sample.go\n@@ -1,3 +1,4 @@\n package sample\n+\n func Add(a, b int) int {\n \treturn a + b\n"
	ranges, err := parseUnifiedDiff(diff)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Equal(t, "sample.go", ranges[0].path)
	require.True(t, ranges[0].lines[2])
}

func TestAnalyzeDiff_FlagsModifiedSymbolWithoutTestCoverage(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	diff := "--- a/sample.go\n+++ b/sample.go\n@@ -1,5 +1,5 @@\n package sample\n \n func Add(a, b int) int {\n-\treturn a + b\n+\treturn a + b + 1\n }\n"
	res, err := e.AnalyzeDiff(context.Background(), diff)
	require.NoError(t, err)
	require.NotEmpty(t, res.Entries)
	_, hasNoCoverage := res.Entries[0].RiskFactors[RiskNoTestCoverage]
	require.True(t, hasNoCoverage)
}

func chargeFile(signature string) string {
	var b strings.Builder
	b.WriteString("package sample\n\n")
	b.WriteString(fmt.Sprintf("func %s int64 {\n\treturn amount\n}\n\n", signature))
	for i := 1; i <= 10; i++ {
		b.WriteString(fmt.Sprintf("func Caller%d() int64 { return Charge(%d) }\n", i, i))
	}
	return b.String()
}

func TestAnalyzeDiff_FlagsSignatureChangeOnHighFaninSymbol(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": chargeFile("Charge(amount int64)"),
	})
	reindexFile(t, st, root, "sample.go", chargeFile("Charge(amount int64, currency string)"))

	e := New(st, config.Config{}, root, nil, nil)
	diff := "--- a/sample.go\n+++ b/sample.go\n@@ -3 +3 @@\n" +
		"-func Charge(amount int64) int64 {\n" +
		"+func Charge(amount int64, currency string) int64 {\n"

	res, err := e.AnalyzeDiff(context.Background(), diff)
	require.NoError(t, err)
	require.NotEmpty(t, res.Entries)

	var charge *DiffEntry
	for i := range res.Entries {
		if res.Entries[i].Symbol.Name == "Charge" {
			charge = &res.Entries[i]
		}
	}
	require.NotNil(t, charge, "Charge should be among the entries touched by the diff")
	require.Equal(t, ChangeSignatureChanged, charge.ChangeType)
	severity, ok := charge.RiskFactors[RiskSignatureChangeHighFanin]
	require.True(t, ok, "a signature change on a symbol with fan-in >= 10 must raise signature_change_high_fanin")
	require.Equal(t, SeverityCritical, severity)
}
