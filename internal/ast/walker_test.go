package ast

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

func parseGo(t *testing.T, source string) (*tree_sitter.Tree, []byte) {
	t.Helper()
	parser := tree_sitter.NewParser()
	defer parser.Close()
	lang := tree_sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	src := []byte(source)
	tree := parser.Parse(src, nil)
	if tree == nil {
		t.Fatal("expected non-nil tree")
	}
	return tree, src
}

func TestWalker_VisitsEveryNode(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	defer tree.Close()

	count := 0
	v := VisitorFunc{
		ProcessFn: func(node *tree_sitter.Node, ctx *Context) (any, error) {
			count++
			return nil, nil
		},
	}
	_, err := NewWalker(v).Walk(tree.RootNode(), NewContext())
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if count < 5 {
		t.Errorf("expected the walker to visit several nodes, got %d", count)
	}
	_ = src
}

func TestWalker_CollectsFunctionDeclarations(t *testing.T) {
	tree, _ := parseGo(t, "package main\n\nfunc one() {}\nfunc two() {}\n")
	defer tree.Close()

	v := VisitorFunc{
		ProcessFn: func(node *tree_sitter.Node, ctx *Context) (any, error) {
			if node.Kind() == "function_declaration" {
				return node.Kind(), nil
			}
			return nil, nil
		},
	}
	results, err := NewWalker(v).Walk(tree.RootNode(), NewContext())
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 function_declaration nodes, got %d", len(results))
	}
}

func TestWalker_ShouldDescendPrunesSubtree(t *testing.T) {
	tree, _ := parseGo(t, "package main\n\nfunc outer() {\n\tfunc() {\n\t\t_ = 1\n\t}()\n}\n")
	defer tree.Close()

	seenFuncLit := false
	v := VisitorFunc{
		ProcessFn: func(node *tree_sitter.Node, ctx *Context) (any, error) {
			if node.Kind() == "func_literal" {
				seenFuncLit = true
			}
			return nil, nil
		},
		ShouldDescendFn: func(node *tree_sitter.Node, ctx *Context) bool {
			return node.Kind() != "function_declaration"
		},
	}
	_, err := NewWalker(v).Walk(tree.RootNode(), NewContext())
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if seenFuncLit {
		t.Error("expected pruning function_declaration to hide the nested func literal")
	}
}

func TestContext_ParentStackTracksAncestry(t *testing.T) {
	tree, _ := parseGo(t, "package main\n\nfunc f() {\n\treturn\n}\n")
	defer tree.Close()

	var sawParentInsideFunc bool
	v := VisitorFunc{
		ProcessFn: func(node *tree_sitter.Node, ctx *Context) (any, error) {
			if node.Kind() == "return_statement" && ctx.InParentType("function_declaration") {
				sawParentInsideFunc = true
			}
			return nil, nil
		},
	}
	_, err := NewWalker(v).Walk(tree.RootNode(), NewContext())
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if !sawParentInsideFunc {
		t.Error("expected return_statement to report function_declaration as an ancestor")
	}
}

func TestContext_ResetClearsState(t *testing.T) {
	ctx := NewContext()
	ctx.PushParent("a")
	ctx.MarkHandled(42)
	ctx.Set("k", "v")

	ctx.Reset()

	if ctx.ImmediateParent() != "" {
		t.Error("expected empty parent after reset")
	}
	if ctx.IsHandled(42) {
		t.Error("expected handled set to be cleared after reset")
	}
	if _, ok := ctx.Get("k"); ok {
		t.Error("expected values map to be cleared after reset")
	}
}
