package chunking

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/analysis"
	"github.com/standardbeagle/chunker/internal/ast"
	"github.com/standardbeagle/chunker/internal/types"
)

// SemanticChunker emits one chunk per function/method/class definition,
// optionally merging a chunk with an immediately adjacent sibling of the
// same semantic role when both score above a cohesion threshold, and
// splitting subtrees whose complexity score exceeds complexityThreshold.
// That single threshold applies to every node type.
type SemanticChunker struct {
	cohesionMergeThreshold float64
	complexityThreshold    float64
	complexity             *analysis.ComplexityAnalyzer
	semantics              *analysis.SemanticAnalyzer
}

// NewSemanticChunker constructs a SemanticChunker with spec.md's defaults.
func NewSemanticChunker() *SemanticChunker {
	return &SemanticChunker{
		cohesionMergeThreshold: 0.8,
		complexityThreshold:    10,
		complexity:             analysis.NewComplexityAnalyzer(),
		semantics:              analysis.NewSemanticAnalyzer(),
	}
}

func (s *SemanticChunker) CanHandle(path string, language types.Language) bool {
	switch language {
	case types.LangText, types.LangMarkdown, types.LangLog, types.LangUnknown, "":
		return false
	default:
		return true
	}
}

func (s *SemanticChunker) Configure(options map[string]any) {
	if v, ok := options["cohesion_merge_threshold"].(float64); ok {
		s.cohesionMergeThreshold = v
	}
	if v, ok := options["complexity_threshold"].(float64); ok {
		s.complexityThreshold = v
	}
}

func (s *SemanticChunker) Chunk(root *tree_sitter.Node, source []byte, path string, language types.Language) ([]*types.Chunk, error) {
	var decls []*tree_sitter.Node
	collectDeclarations(root, &decls)

	chunks := make([]*types.Chunk, 0, len(decls))
	for _, node := range decls {
		metrics, err := s.complexity.Analyze(node, source)
		if err != nil {
			return nil, err
		}

		if metrics.Score > s.complexityThreshold {
			for _, sub := range splitByChildren(node) {
				chunks = append(chunks, s.buildChunk(sub, source, path, language))
			}
			continue
		}

		chunks = append(chunks, s.buildChunk(node, source, path, language))
	}

	merged := s.mergeCohesiveSiblings(chunks)
	for _, ch := range merged {
		// A merged chunk also spans the text between its parts, so its
		// content is re-read from source.
		if m, _ := ch.Metadata["merged"].(bool); m {
			ch.Content = string(source[ch.ByteStart:ch.ByteEnd])
		}
	}
	return merged, nil
}

func (s *SemanticChunker) buildChunk(node *tree_sitter.Node, source []byte, path string, language types.Language) *types.Chunk {
	chunk := newChunkFromNode(node, source, path, language)
	name := declarationNodeName(node, source)

	sem, err := s.semantics.Analyze(node, source, name)
	if err == nil {
		chunk.SetMetadata("semantic_role", string(sem.Role))
		chunk.SetMetadata("purity_score", sem.PurityScore)
		chunk.SetMetadata("cohesion_score", sem.Cohesion)
	}
	if metrics, err := s.complexity.Analyze(node, source); err == nil {
		chunk.SetMetadata("complexity_score", metrics.Score)
		chunk.Dependencies = metrics.Dependencies
	}
	chunk.SetMetadata("strategy", "semantic")
	return chunk
}

// mergeCohesiveSiblings folds chunk[i+1] into chunk[i] (in document order)
// when both carry the same semantic role and both score above the cohesion
// threshold; a run of such siblings collapses into its first chunk.
func (s *SemanticChunker) mergeCohesiveSiblings(chunks []*types.Chunk) []*types.Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	merged := make([]*types.Chunk, 0, len(chunks))
	i := 0
	for i < len(chunks) {
		current := chunks[i]
		for i+1 < len(chunks) && s.shouldMerge(current, chunks[i+1]) {
			current = mergeAdjacent(current, chunks[i+1])
			i++
		}
		merged = append(merged, current)
		i++
	}
	return merged
}

func (s *SemanticChunker) shouldMerge(a, b *types.Chunk) bool {
	roleA, _ := a.Metadata["semantic_role"].(string)
	roleB, _ := b.Metadata["semantic_role"].(string)
	if roleA == "" || roleA != roleB {
		return false
	}
	cohA, _ := a.Metadata["cohesion_score"].(float64)
	cohB, _ := b.Metadata["cohesion_score"].(float64)
	return cohA > s.cohesionMergeThreshold && cohB > s.cohesionMergeThreshold
}

func mergeAdjacent(a, b *types.Chunk) *types.Chunk {
	if b.ByteEnd > a.ByteEnd {
		a.EndLine = b.EndLine
		a.ByteEnd = b.ByteEnd
	}
	a.Content = a.Content + b.Content
	a.Dependencies = union(a.Dependencies, b.Dependencies)
	a.References = union(a.References, b.References)
	a.SetMetadata("merged", true)
	return a
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// collectDeclarations finds declarationNodeTypes nodes depth-first. It
// descends into every node, collected declarations included, so a method
// is collected as its own entry as well as lying inside its enclosing
// class's span.
func collectDeclarations(root *tree_sitter.Node, out *[]*tree_sitter.Node) {
	visitor := ast.VisitorFunc{
		ProcessFn: func(node *tree_sitter.Node, ctx *ast.Context) (any, error) {
			if declarationNodeTypes[node.Kind()] {
				*out = append(*out, node)
			}
			return nil, nil
		},
		ShouldDescendFn: func(node *tree_sitter.Node, ctx *ast.Context) bool {
			return true
		},
	}
	_, _ = ast.NewWalker(visitor).Walk(root, ast.NewContext())
}

// splitByChildren returns a declaration's immediate declaration/method
// children as separate subtrees, used when a single declaration's
// complexity exceeds the configured threshold.
func splitByChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	var children []*tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if declarationNodeTypes[child.Kind()] {
			children = append(children, child)
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			grandchild := child.Child(j)
			if grandchild != nil && declarationNodeTypes[grandchild.Kind()] {
				children = append(children, grandchild)
			}
		}
	}
	if len(children) == 0 {
		return []*tree_sitter.Node{node}
	}
	return children
}
