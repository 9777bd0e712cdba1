package chunking

import (
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/types"
)

// AdaptiveChunker targets a base chunk size in lines, widening or
// narrowing each boundary by up to adaptiveAggressiveness*baseChunkSize to
// land on an AST node boundary rather than splitting mid-statement.
type AdaptiveChunker struct {
	baseChunkSize          int
	adaptiveAggressiveness float64
}

// NewAdaptiveChunker constructs an AdaptiveChunker with spec.md's defaults.
func NewAdaptiveChunker() *AdaptiveChunker {
	return &AdaptiveChunker{baseChunkSize: 50, adaptiveAggressiveness: 0.3}
}

func (a *AdaptiveChunker) CanHandle(path string, language types.Language) bool {
	switch language {
	case types.LangText, types.LangMarkdown, types.LangLog, types.LangUnknown, "":
		return false
	default:
		return true
	}
}

func (a *AdaptiveChunker) Configure(options map[string]any) {
	if v, ok := options["base_chunk_size"].(int); ok {
		a.baseChunkSize = v
	}
	if v, ok := options["adaptive_aggressiveness"].(float64); ok {
		a.adaptiveAggressiveness = v
	}
}

func (a *AdaptiveChunker) Chunk(root *tree_sitter.Node, source []byte, path string, language types.Language) ([]*types.Chunk, error) {
	var boundaries []*tree_sitter.Node
	collectCandidateBoundaries(root, &boundaries)
	sort.Slice(boundaries, func(i, j int) bool {
		return boundaries[i].StartByte() < boundaries[j].StartByte()
	})

	tolerance := int(float64(a.baseChunkSize) * a.adaptiveAggressiveness)

	var chunks []*types.Chunk
	var regionStart *tree_sitter.Node

	flush := func(regionEnd *tree_sitter.Node) {
		if regionStart == nil {
			return
		}
		byteStart, byteEnd := int(regionStart.StartByte()), int(regionEnd.EndByte())
		content := string(source[byteStart:byteEnd])
		chunk := &types.Chunk{
			ChunkID:   types.NewChunkID(path, byteStart, byteEnd, content),
			Language:  language,
			FilePath:  path,
			NodeType:  "adaptive_region",
			StartLine: int(regionStart.StartPosition().Row) + 1,
			EndLine:   int(regionEnd.EndPosition().Row) + 1,
			ByteStart: byteStart,
			ByteEnd:   byteEnd,
			Content:   content,
			Metadata:  map[string]any{"strategy": "adaptive"},
		}
		chunks = append(chunks, chunk)
	}

	var regionEnd *tree_sitter.Node
	for _, node := range boundaries {
		if regionStart == nil {
			regionStart = node
			regionEnd = node
			continue
		}
		lines := int(node.EndPosition().Row) + 1 - int(regionStart.StartPosition().Row) - 1

		if lines >= a.baseChunkSize-tolerance {
			flush(regionEnd)
			regionStart = node
			regionEnd = node
			continue
		}
		regionEnd = node
	}
	if regionStart != nil {
		flush(regionEnd)
	}

	return chunks, nil
}

// collectCandidateBoundaries gathers the top-level declaration nodes a
// region can legally end on, so the adaptive widen/narrow never splits a
// declaration in half.
func collectCandidateBoundaries(root *tree_sitter.Node, out *[]*tree_sitter.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if topLevelNodeTypes[child.Kind()] {
			*out = append(*out, child)
		} else {
			collectCandidateBoundaries(child, out)
		}
	}
}
