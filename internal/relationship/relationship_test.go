package relationship

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/standardbeagle/chunker/internal/types"
)

func TestTrack_EmitsParentChildEdge(t *testing.T) {
	parent := &types.Chunk{ChunkID: "f#1", Content: "func outer() {}"}
	child := &types.Chunk{ChunkID: "f#2", Content: "func inner() {}", ParentChunkID: "f#1"}

	rels := NewTracker().Track([]*types.Chunk{parent, child})
	if !hasEdge(rels, "f#1", "f#2", types.RelParentChild) {
		t.Fatalf("expected parent_child edge, got %+v", rels)
	}
}

func TestTrack_EmitsCallsEdgeWhenDependencyMatchesChunkName(t *testing.T) {
	callee := &types.Chunk{ChunkID: "f#1", Content: "func helper() {\n  return 1\n}"}
	caller := &types.Chunk{ChunkID: "f#2", Content: "func main() {\n  helper()\n}", Dependencies: []string{"helper"}}

	rels := NewTracker().Track([]*types.Chunk{callee, caller})
	if !hasEdge(rels, "f#2", "f#1", types.RelCalls) {
		t.Fatalf("expected calls edge, got %+v", rels)
	}
}

func TestDeclarationName_PrefersParentContext(t *testing.T) {
	c := &types.Chunk{Content: "func anything() {}", ParentContext: "explicit_name"}
	if got := DeclarationName(c); got != "explicit_name" {
		t.Errorf("expected explicit_name, got %q", got)
	}
}

func TestDeclarationName_MatchesGoFunc(t *testing.T) {
	c := &types.Chunk{Content: "func DoWork(x int) error {\n  return nil\n}"}
	if got := DeclarationName(c); got != "DoWork" {
		t.Errorf("expected DoWork, got %q", got)
	}
}

func TestDeclarationName_MatchesPythonDef(t *testing.T) {
	c := &types.Chunk{Content: "def process_items(items):\n    return items"}
	if got := DeclarationName(c); got != "process_items" {
		t.Errorf("expected process_items, got %q", got)
	}
}

func TestExtractImports_Go(t *testing.T) {
	src := []byte("package main\n\nimport \"fmt\"\n\nfunc main() {}\n")
	root := parseWith(t, tree_sitter.NewLanguage(tree_sitter_go.Language()), src)

	rels := ExtractImports(root, src, types.LangGo, "main.go#1")
	if !hasImport(rels, "fmt") {
		t.Fatalf("expected import of fmt, got %+v", rels)
	}
}

func TestExtractImports_Python(t *testing.T) {
	src := []byte("import os\n\nprint(os.getcwd())\n")
	root := parseWith(t, tree_sitter.NewLanguage(tree_sitter_python.Language()), src)

	rels := ExtractImports(root, src, types.LangPython, "script.py#1")
	if !hasImport(rels, "os") {
		t.Fatalf("expected import of os, got %+v", rels)
	}
}

func parseWith(t *testing.T, lang *tree_sitter.Language, src []byte) *tree_sitter.Node {
	t.Helper()
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		t.Fatal("parse returned nil tree")
	}
	t.Cleanup(tree.Close)
	return tree.RootNode()
}

func hasEdge(rels []types.ChunkRelationship, source, target string, kind types.RelationshipKind) bool {
	for _, r := range rels {
		if r.SourceID == source && r.TargetID == target && r.Kind == kind {
			return true
		}
	}
	return false
}

func hasImport(rels []types.ChunkRelationship, target string) bool {
	for _, r := range rels {
		if r.Kind == types.RelImports && r.TargetID == target {
			return true
		}
	}
	return false
}
