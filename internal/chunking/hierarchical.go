package chunking

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/types"
)

// Granularity controls how deep HierarchicalChunker descends.
type Granularity string

const (
	GranularityCoarse Granularity = "coarse"
	GranularityMedium  Granularity = "medium"
	GranularityFine    Granularity = "fine"
)

// HierarchicalChunker emits chunks at multiple granularities, recording a
// parent_chunk_id on each so callers can reconstruct the containment tree.
type HierarchicalChunker struct {
	granularity Granularity
	maxDepth    int
}

// NewHierarchicalChunker constructs a HierarchicalChunker with spec.md's
// defaults: medium granularity, unlimited depth.
func NewHierarchicalChunker() *HierarchicalChunker {
	return &HierarchicalChunker{granularity: GranularityMedium, maxDepth: -1}
}

func (h *HierarchicalChunker) CanHandle(path string, language types.Language) bool {
	switch language {
	case types.LangText, types.LangMarkdown, types.LangLog, types.LangUnknown, "":
		return false
	default:
		return true
	}
}

func (h *HierarchicalChunker) Configure(options map[string]any) {
	if v, ok := options["granularity"].(string); ok {
		h.granularity = Granularity(v)
	}
	if v, ok := options["max_depth"].(int); ok {
		h.maxDepth = v
	}
}

func (h *HierarchicalChunker) Chunk(root *tree_sitter.Node, source []byte, path string, language types.Language) ([]*types.Chunk, error) {
	var chunks []*types.Chunk

	var walk func(node *tree_sitter.Node, parentID string, depth int)
	walk = func(node *tree_sitter.Node, parentID string, depth int) {
		if node == nil {
			return
		}
		if h.maxDepth >= 0 && depth > h.maxDepth {
			return
		}

		kind := node.Kind()
		isTop := topLevelNodeTypes[kind]
		isMethod := methodNodeTypes[kind]
		isBlock := blockNodeTypes[kind]

		var emit bool
		switch h.granularity {
		case GranularityCoarse:
			emit = isTop
		case GranularityFine:
			emit = isTop || isMethod || isBlock
		default: // medium
			emit = isTop || isMethod
		}

		nextParent := parentID
		if emit {
			chunk := newChunkFromNode(node, source, path, language)
			chunk.ParentChunkID = parentID
			chunk.SetMetadata("strategy", "hierarchical")
			chunk.SetMetadata("granularity", string(h.granularity))
			chunks = append(chunks, chunk)
			nextParent = chunk.ChunkID
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i), nextParent, depth+1)
		}
	}

	walk(root, "", 0)
	return chunks, nil
}

var topLevelNodeTypes = map[string]bool{
	"function_definition":   true,
	"function_declaration":  true,
	"class_definition":      true,
	"class_declaration":     true,
	"interface_declaration": true,
	"struct_declaration":    true,
	"type_declaration":      true,
	"impl_item":             true,
	"trait_item":            true,
}

var blockNodeTypes = map[string]bool{
	"if_statement":     true,
	"for_statement":    true,
	"while_statement":  true,
	"block":            true,
	"compound_statement": true,
}
