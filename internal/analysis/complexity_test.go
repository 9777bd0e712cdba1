package analysis

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

func findKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := findKind(node.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}

func TestComplexityAnalyzer_SimpleFunctionHasBaseComplexity(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	if fn == nil {
		t.Fatal("expected to find function_declaration")
	}

	metrics, err := NewComplexityAnalyzer().Analyze(fn, src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.Cyclomatic != 1 {
		t.Errorf("expected cyclomatic 1 for branch-free function, got %d", metrics.Cyclomatic)
	}
	if metrics.Branches != 0 {
		t.Errorf("expected 0 branches, got %d", metrics.Branches)
	}
}

func TestComplexityAnalyzer_IfStatementIncrementsCyclomaticAndBranches(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc isPositive(n int) bool {\n\tif n > 0 {\n\t\treturn true\n\t}\n\treturn false\n}\n")
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewComplexityAnalyzer().Analyze(fn, src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.Cyclomatic != 2 {
		t.Errorf("expected cyclomatic 2 (1 base + 1 if), got %d", metrics.Cyclomatic)
	}
	if metrics.Branches != 1 {
		t.Errorf("expected 1 branch, got %d", metrics.Branches)
	}
}

func TestComplexityAnalyzer_NestedLoopsIncreaseMaxNesting(t *testing.T) {
	tree, src := parseGo(t, `package main

func sumPairs(xs []int) int {
	total := 0
	for _, x := range xs {
		for _, y := range xs {
			total += x * y
		}
	}
	return total
}
`)
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewComplexityAnalyzer().Analyze(fn, src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.Loops != 2 {
		t.Errorf("expected 2 loop nodes, got %d", metrics.Loops)
	}
	if metrics.MaxNesting < 2 {
		t.Errorf("expected max nesting >= 2 for nested loops inside a function, got %d", metrics.MaxNesting)
	}
}

func TestComplexityAnalyzer_CallExpressionCountedAsDependency(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc wrapper() {\n\thelper()\n}\n")
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewComplexityAnalyzer().Analyze(fn, src)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.FunctionCall != 1 {
		t.Errorf("expected 1 call expression, got %d", metrics.FunctionCall)
	}
	found := false
	for _, d := range metrics.Dependencies {
		if d == "helper" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected dependencies to include %q, got %v", "helper", metrics.Dependencies)
	}
}
