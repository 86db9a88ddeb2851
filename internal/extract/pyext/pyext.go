// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pyext extracts symbols and edges from Python source using the
// tree-sitter Python grammar, following the same declaration-then-calls
// walk shape as the Go and TypeScript extractors.
package pyext

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/model"
)

// Extractor parses Python source with tree-sitter.
type Extractor struct{}

// New returns a Python extractor.
func New() *Extractor { return &Extractor{} }

// Languages implements extract.Extractor.
func (e *Extractor) Languages() []string { return []string{"python"} }

type declWithNode struct {
	sym  model.Symbol
	node *sitter.Node
}

// Extract implements extract.Extractor.
func (e *Extractor) Extract(source []byte, modulePath string) (model.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

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
	walkDecls(root, source, modulePath, "", &decls)

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

// walkDecls collects function_definition and class_definition nodes.
// classPrefix, when non-empty, qualifies methods as modulePath.Class.method.
func walkDecls(node *sitter.Node, src []byte, modulePath, classPrefix string, out *[]declWithNode) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := string(src[nameNode.StartByte():nameNode.EndByte()])
		qualname := modulePath + "." + name
		*out = append(*out, declWithNode{sym: symbolFromNode(node, model.KindClass, name, qualname, "class "+name), node: node})

		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				walkDecls(body.Child(i), src, modulePath, name, out)
			}
		}
		return
	case "function_definition":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := string(src[nameNode.StartByte():nameNode.EndByte()])
		kind := model.KindFunction
		qualname := modulePath + "." + name
		sig := "def " + name + fieldText(node, "parameters", src)
		if ret := node.ChildByFieldName("return_type"); ret != nil {
			sig += " -> " + string(src[ret.StartByte():ret.EndByte()])
		}
		if classPrefix != "" {
			kind = model.KindMethod
			qualname = modulePath + "." + classPrefix + "." + name
		}
		*out = append(*out, declWithNode{sym: symbolFromNode(node, kind, name, qualname, sig), node: node})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkDecls(node.Child(i), src, modulePath, classPrefix, out)
	}
}

func symbolFromNode(node *sitter.Node, kind model.SymbolKind, name, qualname, signature string) model.Symbol {
	return model.Symbol{
		Kind:      kind,
		Name:      name,
		Qualname:  qualname,
		Signature: signature,
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

func fieldText(node *sitter.Node, field string, src []byte) string {
	n := node.ChildByFieldName(field)
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func extractCalls(node *sitter.Node, src []byte) []model.Edge {
	var edges []model.Edge
	seen := make(map[string]bool)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
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
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				name := n.NamedChild(i)
				if name.Type() == "dotted_name" || name.Type() == "identifier" {
					edges = append(edges, model.Edge{
						Kind:           model.EdgeImports,
						TargetQualname: string(src[name.StartByte():name.EndByte()]),
						Confidence:     1.0,
					})
				}
			}
		case "import_from_statement":
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				edges = append(edges, model.Edge{
					Kind:           model.EdgeImports,
					TargetQualname: string(src[mod.StartByte():mod.EndByte()]),
					Confidence:     1.0,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return edges
}
