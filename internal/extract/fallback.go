// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"bytes"

	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/model"
)

// Fallback builds the single module-level symbol and PARSE_ERROR diagnostic
// edge an extractor emits when its grammar cannot parse the file. This keeps
// navigation possible on syntactically broken files instead of dropping
// them from the graph entirely.
func Fallback(source []byte, modulePath string) model.ExtractedFile {
	lineCount := bytes.Count(source, []byte("\n")) + 1
	sig := "module"
	sym := model.Symbol{
		Kind:      model.KindModule,
		Name:      modulePath,
		Qualname:  modulePath,
		Signature: sig,
		Span:      model.Span{StartLine: 1, EndLine: lineCount, EndByte: len(source)},
	}
	sym.StableID = identity.StableID(sym.Qualname, sym.Signature, sym.Kind)

	edge := model.Edge{
		Kind:           model.EdgeParseError,
		TargetQualname: modulePath,
		Evidence:       "parser could not build an AST for this file",
		EvidenceEndL:   lineCount,
		Confidence:     1.0,
	}

	return model.ExtractedFile{
		Symbols: []model.Symbol{sym},
		Edges:   []model.Edge{edge},
		Metrics: model.FileMetrics{LinesOfCode: lineCount},
		ParseOK: false,
	}
}
