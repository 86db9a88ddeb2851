// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package protoext extracts services, RPCs, and messages from .proto files.
// No tree-sitter grammar for protobuf is wired in, so this uses a
// line-scanning approach rather than an AST: brace-depth tracking finds
// service/message/enum block boundaries, and a small line matcher pulls rpc
// signatures out of a service body.
package protoext

import (
	"strings"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/model"
)

// Extractor parses protobuf source with a line-oriented block scanner.
type Extractor struct{}

// New returns a protobuf extractor.
func New() *Extractor { return &Extractor{} }

// Languages implements extract.Extractor.
func (e *Extractor) Languages() []string { return []string{"protobuf"} }

// Extract implements extract.Extractor.
func (e *Extractor) Extract(source []byte, modulePath string) (model.ExtractedFile, error) {
	lines := strings.Split(string(source), "\n")

	var symbols []model.Symbol
	var edges []model.Edge

	var currentService string
	var serviceStart int
	braceDepth := 0

	for i := 0; i < len(lines); i++ {
		lineNum := i + 1
		trimmed := strings.TrimSpace(lines[i])

		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if currentService == "" {
			if name, ok := blockName(trimmed, "service"); ok {
				currentService = name
				serviceStart = lineNum
				braceDepth = strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
				if braceDepth == 0 {
					symbols = append(symbols, blockSymbol(model.KindRPCService, modulePath, currentService, "service "+currentService, serviceStart, lineNum))
					currentService = ""
				}
				continue
			}
			if name, ok := blockName(trimmed, "message"); ok {
				end := blockEnd(lines, i)
				symbols = append(symbols, blockSymbol(model.KindProtoMsg, modulePath, name, "message "+name, lineNum, end+1))
				continue
			}
			if name, ok := blockName(trimmed, "enum"); ok {
				end := blockEnd(lines, i)
				symbols = append(symbols, blockSymbol(model.KindProtoMsg, modulePath, name, "enum "+name, lineNum, end+1))
				continue
			}
			continue
		}

		braceDepth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")

		if strings.HasPrefix(trimmed, "rpc ") {
			if name, sig := rpcSignature(trimmed); name != "" {
				qualname := modulePath + "." + currentService + "." + name
				sym := blockSymbol(model.KindRPCMethod, modulePath, currentService+"."+name, sig, lineNum, lineNum)
				sym.Qualname = qualname
				symbols = append(symbols, sym)
				// RPC_IMPL can't name its target qualname here: the
				// implementation lives in a different language's module
				// path, unknowable from a .proto file alone. Evidence
				// carries the bare method name so postpass's linkRPCImpl
				// can match it against implementing-language symbols by
				// naming convention.
				edges = append(edges, model.Edge{
					Kind:       model.EdgeRPCImpl,
					Evidence:   name,
					Confidence: 1.0,
				})
			}
		}

		if braceDepth == 0 {
			symbols = append(symbols, blockSymbol(model.KindRPCService, modulePath, currentService, "service "+currentService, serviceStart, lineNum))
			currentService = ""
		}
	}

	for i := range symbols {
		symbols[i].StableID = identity.StableID(symbols[i].Qualname, symbols[i].Signature, symbols[i].Kind)
	}

	for _, s := range symbols {
		edges = append(edges, model.Edge{Kind: model.EdgeContains, TargetQualname: s.Qualname, Confidence: 1.0})
	}

	return model.ExtractedFile{
		Symbols: symbols,
		Edges:   edges,
		Metrics: model.FileMetrics{LinesOfCode: len(lines)},
		ParseOK: true,
	}, nil
}

// blockName reports whether trimmed opens a `keyword Name {` block and
// returns Name if so.
func blockName(trimmed, keyword string) (string, bool) {
	prefix := keyword + " "
	if !strings.HasPrefix(trimmed, prefix) || !strings.Contains(trimmed, "{") {
		return "", false
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return "", false
	}
	return strings.TrimSuffix(fields[1], "{"), true
}

// blockEnd returns the 0-indexed line at which the brace block starting on
// lines[start] closes.
func blockEnd(lines []string, start int) int {
	depth := strings.Count(lines[start], "{") - strings.Count(lines[start], "}")
	for i := start + 1; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if depth <= 0 {
			return i
		}
	}
	return len(lines) - 1
}

// rpcSignature pulls the method name and a normalized "rpc Name(Req)
// returns (Res)" signature out of a single rpc declaration line.
func rpcSignature(trimmed string) (name, signature string) {
	body := strings.TrimPrefix(trimmed, "rpc ")
	parenIdx := strings.Index(body, "(")
	if parenIdx == -1 {
		return "", ""
	}
	name = strings.TrimSpace(body[:parenIdx])

	end := len(body)
	if semi := strings.Index(body, ";"); semi >= 0 {
		end = semi
	} else if brace := strings.Index(body, "{"); brace >= 0 {
		end = brace
	}
	return name, "rpc " + strings.TrimSpace(body[:end])
}

func blockSymbol(kind model.SymbolKind, modulePath, name, signature string, startLine, endLine int) model.Symbol {
	return model.Symbol{
		Kind:      kind,
		Name:      name,
		Qualname:  modulePath + "." + name,
		Signature: signature,
		Span:      model.Span{StartLine: startLine, EndLine: endLine},
	}
}

var _ extract.Extractor = (*Extractor)(nil)
