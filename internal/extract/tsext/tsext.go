// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package tsext extracts symbols and edges from TypeScript/JavaScript
// source: function declarations, arrow-function variable bindings, class
// methods, and class declarations all funnel into one declaration list
// before call extraction.
package tsext

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/model"
)

// Extractor parses TypeScript and JavaScript source with tree-sitter.
type Extractor struct{}

// New returns a TypeScript/JavaScript extractor.
func New() *Extractor { return &Extractor{} }

// Languages implements extract.Extractor. Extractor claims typescript only;
// javascript is claimed by the separate NewJS wrapper, so the two never
// compete for a language in a Registry.
func (e *Extractor) Languages() []string { return []string{"typescript"} }

type declWithNode struct {
	sym  model.Symbol
	node *sitter.Node
}

// Extract implements extract.Extractor.
func (e *Extractor) Extract(source []byte, modulePath string) (model.ExtractedFile, error) {
	return e.extractFor(source, modulePath, typescript.GetLanguage())
}

// extractFor parses source with lang: Extract passes the TypeScript
// grammar, and the NewJS wrapper passes the plain JavaScript grammar.
func (e *Extractor) extractFor(source []byte, modulePath string, lang *sitter.Language) (model.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return extract.Fallback(source, modulePath), nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() && countErrors(root) > 8 {
		return extract.Fallback(source, modulePath), nil
	}

	var decls []declWithNode
	byName := make(map[string]model.Symbol)
	walkDecls(root, source, modulePath, &decls)
	for _, d := range decls {
		byName[d.sym.Name] = d.sym
	}

	var symbols []model.Symbol
	var edges []model.Edge
	for _, d := range decls {
		symbols = append(symbols, d.sym)
		edges = append(edges, model.Edge{Kind: model.EdgeContains, TargetQualname: d.sym.Qualname, Confidence: 1.0})
		edges = append(edges, extractCalls(d.node, source)...)
	}
	edges = append(edges, extractImports(root, source)...)

	for i := range symbols {
		symbols[i].StableID = identity.StableID(symbols[i].Qualname, symbols[i].Signature, symbols[i].Kind)
	}

	return model.ExtractedFile{
		Symbols: symbols,
		Edges:   edges,
		Metrics: model.FileMetrics{LinesOfCode: strings.Count(string(source), "\n") + 1},
		ParseOK: true,
	}, nil
}

// jsExtractor is a thin wrapper so the registry can route .js/.jsx through
// the plain JavaScript grammar while .ts/.tsx use the TypeScript grammar.
type jsExtractor struct{ *Extractor }

// NewJS returns an extractor scoped to javascript that uses the JS grammar
// directly (no TS-only syntax support).
func NewJS() extract.Extractor { return jsExtractor{New()} }

func (j jsExtractor) Languages() []string { return []string{"javascript"} }

func (j jsExtractor) Extract(source []byte, modulePath string) (model.ExtractedFile, error) {
	return j.extractFor(source, modulePath, javascript.GetLanguage())
}

func countErrors(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.IsError() || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countErrors(n.Child(i))
	}
	return count
}

func walkDecls(node *sitter.Node, src []byte, modulePath string, out *[]declWithNode) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name := string(src[nameNode.StartByte():nameNode.EndByte()])
			*out = append(*out, declWithNode{sym: funcSymbol(node, model.KindFunction, name, modulePath+"."+name, src), node: node})
		}
		return
	case "method_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name := string(src[nameNode.StartByte():nameNode.EndByte()])
			*out = append(*out, declWithNode{sym: funcSymbol(node, model.KindMethod, name, modulePath+"."+name, src), node: node})
		}
	case "class_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name := string(src[nameNode.StartByte():nameNode.EndByte()])
			*out = append(*out, declWithNode{sym: funcSymbol(node, model.KindClass, name, modulePath+"."+name, src), node: node})
		}
	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function_expression", "function":
				name := string(src[nameNode.StartByte():nameNode.EndByte()])
				*out = append(*out, declWithNode{sym: funcSymbol(node, model.KindFunction, name, modulePath+"."+name, src), node: valueNode})
				return
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkDecls(node.Child(i), src, modulePath, out)
	}
}

func funcSymbol(node *sitter.Node, kind model.SymbolKind, name, qualname string, src []byte) model.Symbol {
	sig := name
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig = name + string(src[params.StartByte():params.EndByte()])
	}
	return model.Symbol{
		Kind:      kind,
		Name:      name,
		Qualname:  qualname,
		Signature: sig,
		Span: model.Span{
			StartByte: int(node.StartByte()),
			EndByte:   int(node.EndByte()),
			StartLine: int(node.StartPoint().Row) + 1,
			StartCol:  int(node.StartPoint().Column),
			EndLine:   int(node.EndPoint().Row) + 1,
			EndCol:    int(node.EndPoint().Column),
		},
	}
}

func extractCalls(node *sitter.Node, src []byte) []model.Edge {
	var edges []model.Edge
	seen := make(map[string]bool)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				callee := string(src[fn.StartByte():fn.EndByte()])
				if callee != "" && !seen[callee] {
					seen[callee] = true
					edges = append(edges, model.Edge{
						Kind:           model.EdgeCalls,
						TargetQualname: callee,
						EvidenceStartL: int(n.StartPoint().Row) + 1,
						EvidenceEndL:   int(n.EndPoint().Row) + 1,
						Confidence:     1.0,
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return edges
}

func extractImports(root *sitter.Node, src []byte) []model.Edge {
	var edges []model.Edge
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_statement" {
			if source := n.ChildByFieldName("source"); source != nil {
				path := strings.Trim(string(src[source.StartByte():source.EndByte()]), `"'`)
				edges = append(edges, model.Edge{Kind: model.EdgeImports, TargetQualname: path, Confidence: 1.0})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return edges
}
