// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package goext extracts symbols and edges from Go source using the
// tree-sitter Go grammar: a first pass collects declarations with their
// nodes, a second pass walks each declaration's body for calls.
package goext

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/identity"
	"github.com/kraklabs/codegraph/internal/model"
)

// Extractor parses Go source with tree-sitter.
type Extractor struct{}

// New returns a Go extractor.
func New() *Extractor { return &Extractor{} }

// Languages implements extract.Extractor.
func (e *Extractor) Languages() []string { return []string{"go"} }

type declWithNode struct {
	sym  model.Symbol
	node *sitter.Node
}

// Extract implements extract.Extractor.
func (e *Extractor) Extract(source []byte, modulePath string) (model.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return extract.Fallback(source, modulePath), nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() && countErrors(root) > 8 {
		// Too broken to trust; fall back rather than emit garbage symbols.
		return extract.Fallback(source, modulePath), nil
	}

	pkg := extractPackageName(root, source)
	prefix := modulePath
	if pkg != "" {
		prefix = pkg
	}

	var decls []declWithNode
	byName := make(map[string]model.Symbol)
	walkDecls(root, source, prefix, &decls)
	for _, d := range decls {
		byName[d.sym.Name] = d.sym
	}

	var symbols []model.Symbol
	var edges []model.Edge
	var loc int

	for _, d := range decls {
		symbols = append(symbols, d.sym)
		edges = append(edges, model.Edge{
			Kind:           model.EdgeContains,
			TargetQualname: d.sym.Qualname,
			Confidence:     1.0,
		})
		edges = append(edges, extractCalls(d.node, source, d.sym.Qualname, byName)...)
		loc += d.sym.Span.EndLine - d.sym.Span.StartLine + 1
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

func extractPackageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "package_clause" {
			id := child.NamedChild(0)
			if id != nil {
				return string(src[id.StartByte():id.EndByte()])
			}
		}
	}
	return ""
}

func walkDecls(node *sitter.Node, src []byte, modulePath string, out *[]declWithNode) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		if sym := functionSymbol(node, src, modulePath); sym != nil {
			*out = append(*out, declWithNode{sym: *sym, node: node})
		}
		return
	case "method_declaration":
		if sym := methodSymbol(node, src, modulePath); sym != nil {
			*out = append(*out, declWithNode{sym: *sym, node: node})
		}
		return
	case "type_declaration":
		for _, sym := range typeSymbols(node, src, modulePath) {
			*out = append(*out, declWithNode{sym: sym, node: node})
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkDecls(node.Child(i), src, modulePath, out)
	}
}

func functionSymbol(node *sitter.Node, src []byte, modulePath string) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(src[nameNode.StartByte():nameNode.EndByte()])
	sig := "func " + name + fieldText(node, "parameters", src) + resultText(node, src)

	sym := symbolFromNode(node, model.KindFunction, name, modulePath+"."+name, sig)
	return &sym
}

func methodSymbol(node *sitter.Node, src []byte, modulePath string) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(src[nameNode.StartByte():nameNode.EndByte()])
	receiverType := receiverTypeName(node, src)

	qualname := modulePath + "." + name
	if receiverType != "" {
		qualname = modulePath + "." + receiverType + "." + name
	}
	sig := "func " + fieldText(node, "receiver", src) + " " + name + fieldText(node, "parameters", src) + resultText(node, src)

	sym := symbolFromNode(node, model.KindMethod, name, qualname, sig)
	return &sym
}

func typeSymbols(node *sitter.Node, src []byte, modulePath string) []model.Symbol {
	var out []model.Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		spec := node.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := string(src[nameNode.StartByte():nameNode.EndByte()])
		kind := model.KindStruct
		switch typeNode.Type() {
		case "interface_type":
			kind = model.KindInterface
		case "struct_type":
			kind = model.KindStruct
		default:
			kind = model.KindVariable
		}
		sig := string(src[typeNode.StartByte():typeNode.EndByte()])
		out = append(out, symbolFromNode(spec, kind, name, modulePath+"."+name, sig))
	}
	return out
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

func resultText(node *sitter.Node, src []byte) string {
	n := node.ChildByFieldName("result")
	if n == nil {
		return ""
	}
	return " " + string(src[n.StartByte():n.EndByte()])
}

func receiverTypeName(node *sitter.Node, src []byte) string {
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.ChildCount()); i++ {
		decl := receiver.Child(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		t := typeNode
		if t.Type() == "pointer_type" && t.NamedChildCount() > 0 {
			t = t.NamedChild(0)
		}
		return string(src[t.StartByte():t.EndByte()])
	}
	return ""
}

// extractCalls walks a declaration's body for call_expression nodes and
// emits a CALLS edge per callee, always as a textual target_qualname for
// the batch writer's exact/suffix resolution pass; byName is not consulted,
// even when the callee is declared in this same file.
func extractCalls(node *sitter.Node, src []byte, callerQualname string, byName map[string]model.Symbol) []model.Edge {
	var edges []model.Edge
	seen := make(map[string]bool)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				callee := calleeText(fn, src)
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

func calleeText(fn *sitter.Node, src []byte) string {
	switch fn.Type() {
	case "identifier":
		return string(src[fn.StartByte():fn.EndByte()])
	case "selector_expression":
		return string(src[fn.StartByte():fn.EndByte()])
	default:
		return ""
	}
}

func extractImports(root *sitter.Node, src []byte) []model.Edge {
	var edges []model.Edge
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_spec" {
			pathNode := n.ChildByFieldName("path")
			if pathNode != nil {
				path := strings.Trim(string(src[pathNode.StartByte():pathNode.EndByte()]), `"`)
				edges = append(edges, model.Edge{
					Kind:           model.EdgeImports,
					TargetQualname: path,
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
