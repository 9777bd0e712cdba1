// Package chunking implements the tree-sitter-backed chunking strategies:
// one chunk per declaration (semantic), multi-granularity trees
// (hierarchical), size-targeted boundaries (adaptive), and a composite
// that fuses the results of several.
package chunking

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/types"
)

// Strategy is the contract every chunking strategy implements: whether it
// applies to a file, how it turns a parsed tree into chunks, and how its
// options are set.
type Strategy interface {
	CanHandle(path string, language types.Language) bool
	Chunk(root *tree_sitter.Node, source []byte, path string, language types.Language) ([]*types.Chunk, error)
	Configure(options map[string]any)
}

// declarationNodeTypes lists the tree-sitter node kinds treated as
// top-level "definitions" across the languages this module ships grammars
// for; strategies consult it to decide what counts as a chunk boundary.
var declarationNodeTypes = map[string]bool{
	"function_definition":  true,
	"function_declaration": true,
	"method_definition":    true,
	"method_declaration":   true,
	"class_definition":     true,
	"class_declaration":    true,
	"interface_declaration": true,
	"struct_declaration":   true,
	"type_declaration":     true,
	"impl_item":            true,
	"trait_item":           true,
}

// methodNodeTypes is the subset of declarationNodeTypes considered methods
// (nested inside a class/struct/impl) rather than top-level declarations.
var methodNodeTypes = map[string]bool{
	"method_definition": true,
	"method_declaration": true,
}

// newChunkFromNode builds a types.Chunk spanning node's byte/line range,
// deriving ChunkID from that range and content so it stays stable across
// traversal order and strategy choice.
func newChunkFromNode(node *tree_sitter.Node, source []byte, path string, language types.Language) *types.Chunk {
	start := node.StartByte()
	end := node.EndByte()
	startPoint := node.StartPosition()
	endPoint := node.EndPosition()
	content := string(source[start:end])

	return &types.Chunk{
		ChunkID:   types.NewChunkID(path, int(start), int(end), content),
		Language:  language,
		FilePath:  path,
		NodeType:  node.Kind(),
		StartLine: int(startPoint.Row) + 1,
		EndLine:   int(endPoint.Row) + 1,
		ByteStart: int(start),
		ByteEnd:   int(end),
		Content:   content,
		Metadata:  map[string]any{},
	}
}

// declarationNodeName returns the name of a function/class/method node, if any
// identifier child is present.
func declarationNodeName(node *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			start, end := child.StartByte(), child.EndByte()
			return string(source[start:end])
		}
	}
	return ""
}
