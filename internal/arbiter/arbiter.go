// Package arbiter implements the per-file routing decision between the
// tree-sitter strategies (internal/chunking), the text-level specialist
// processors and natural-break finder (internal/fallback), and the
// sliding-window chunker (internal/window): given a file, pick the
// cheapest tier that can produce usable chunks and fall through to the
// next when it can't.
package arbiter

import (
	"context"
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/chunking"
	"github.com/standardbeagle/chunker/internal/config"
	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/fallback"
	"github.com/standardbeagle/chunker/internal/grammar"
	"github.com/standardbeagle/chunker/internal/types"
	"github.com/standardbeagle/chunker/internal/window"
)

// Arbiter wires the grammar registry, a tree-sitter strategy, the
// specialist registry, and the sliding-window chunker together and
// enforces the five-way ChunkingDecision table.
type Arbiter struct {
	Grammars     *grammar.Registry
	Strategy     chunking.Strategy
	Specialists  *fallback.Registry
	Window       *window.Chunker
	Breaks       *fallback.NaturalBreakFinder
	Tokenizer    Tokenizer
	Model        string
	TokenLimit   int // 0 means no limit
	AutoDownload bool

	// SkipGenerated routes files IsGenerated flags to the specialist or
	// sliding-window tier rather than a tree-sitter parse, per
	// chunker.skip_generated.
	SkipGenerated bool

	WindowChunkSize   int
	WindowOverlapSize int
	WindowOverlapKind window.OverlapStrategy
	WindowUnit        window.Unit
}

// NewArbiter builds an Arbiter with spec defaults: a composite tree-sitter
// strategy, the default specialist registry, a grammar-checking sliding
// window chunker, and the heuristic tokenizer unless model names an exact
// one.
func NewArbiter(grammars *grammar.Registry, model string, tokenLimit int) *Arbiter {
	specialists := fallback.NewRegistry()
	return &Arbiter{
		Grammars:          grammars,
		Strategy:          chunking.NewCompositeChunker(),
		Specialists:       specialists,
		Window:            window.NewChunker(grammarChecker{grammars}),
		Breaks:            fallback.NewNaturalBreakFinder(nil, nil),
		Tokenizer:         NewTokenizer(model),
		Model:             model,
		TokenLimit:        tokenLimit,
		WindowChunkSize:   2000,
		WindowOverlapSize: 200,
		WindowOverlapKind: window.OverlapPercentage,
		WindowUnit:        window.UnitCharacters,
	}
}

// grammarChecker adapts *grammar.Registry to window.GrammarChecker.
type grammarChecker struct{ r *grammar.Registry }

func (g grammarChecker) HasGrammar(language string) bool {
	if g.r == nil {
		return false
	}
	return g.r.IsInstalled(types.Language(language))
}

func (g grammarChecker) LanguageForPath(path string) (string, bool) {
	lang, ok := ExtensionLanguage(path)
	if !ok || !isCodeLanguage(lang) {
		return "", false
	}
	return string(lang), true
}

// Decide implements the fixed ChunkingDecision table purely from a
// DecisionMetrics snapshot, independent of how that snapshot was produced.
func Decide(m types.DecisionMetrics) (types.ChunkingDecision, string) {
	if m.HasGrammar && m.ParseSuccess {
		if !m.TokenLimitExceeded {
			return types.DecisionTreeSitter, "tree-sitter parse successful, all chunks within token limit"
		}
		return types.DecisionTreeSitterWithSplit, "tree-sitter parse successful, some chunks exceed token limit"
	}
	if m.HasSpecializedProcessor {
		return types.DecisionSpecializedProc, "no grammar available, a registered specialist handles this file type"
	}
	return types.DecisionSlidingWindow, "no grammar and no specialist available, falling back to sliding window"
}

// skipGrammar reports whether a.SkipGenerated and the file's IsGenerated tag
// should bypass the tree-sitter tier entirely, landing on the specialist or
// sliding-window tier instead.
func (a *Arbiter) skipGrammar(m types.DecisionMetrics) bool {
	return a.SkipGenerated && m.IsGenerated
}

// DecisionReport is the diagnostic view of one ChunkFile routing decision,
// exposing the total-token count alongside the metrics table consults.
type DecisionReport struct {
	Language    types.Language
	Decision    types.ChunkingDecision
	Reason      string
	Metrics     types.DecisionMetrics
	TotalTokens int
}

// DescribeDecision runs the same routing logic as ChunkFile but returns
// only the decision and the metrics behind it, without materializing
// chunks. Useful for diagnostics and tests.
func (a *Arbiter) DescribeDecision(ctx context.Context, path, content string, explicitLanguage types.Language) DecisionReport {
	language := DetectLanguage(path, content, explicitLanguage)
	metrics := types.DecisionMetrics{IsCodeFile: isCodeLanguage(language)}
	metrics.IsGenerated = config.IsGeneratedFile(path, []byte(content))

	metrics.HasGrammar = metrics.IsCodeFile && !a.skipGrammar(metrics) && a.Grammars != nil && a.Grammars.IsInstalled(language)
	if metrics.HasGrammar {
		chunks, err := a.chunkWithGrammar(ctx, path, []byte(content), language)
		metrics.ParseSuccess = err == nil && len(chunks) > 0
		if metrics.ParseSuccess {
			exceeded, largest := a.tokenLimitStatus(chunks)
			metrics.TokenLimitExceeded = exceeded
			metrics.LargestChunkTokens = largest
		}
	}

	names := a.Specialists.FindProcessors(path, language)
	metrics.HasSpecializedProcessor = len(names) > 0

	decision, reason := Decide(metrics)
	metrics.Decision = decision
	metrics.FallbackReason = reason

	return DecisionReport{
		Language:    language,
		Decision:    decision,
		Reason:      reason,
		Metrics:     metrics,
		TotalTokens: a.Tokenizer.CountTokens(content),
	}
}

// ChunkFile routes path/content through the appropriate tier and returns
// the resulting chunks plus the DecisionMetrics that explain the routing.
func (a *Arbiter) ChunkFile(ctx context.Context, path string, content []byte, explicitLanguage types.Language) ([]*types.Chunk, types.DecisionMetrics, error) {
	text := string(content)
	language := DetectLanguage(path, text, explicitLanguage)
	metrics := types.DecisionMetrics{IsCodeFile: isCodeLanguage(language)}
	metrics.IsGenerated = config.IsGeneratedFile(path, content)

	metrics.HasGrammar = metrics.IsCodeFile && !a.skipGrammar(metrics) && a.Grammars != nil && a.Grammars.IsInstalled(language)
	if metrics.HasGrammar {
		chunks, parseErr := a.chunkWithGrammar(ctx, path, content, language)
		metrics.ParseSuccess = parseErr == nil && len(chunks) > 0
		if metrics.ParseSuccess {
			exceeded, largest := a.tokenLimitStatus(chunks)
			metrics.TokenLimitExceeded = exceeded
			metrics.LargestChunkTokens = largest

			decision, reason := Decide(metrics)
			if decision == types.DecisionTreeSitterWithSplit {
				chunks = a.splitOversizedChunks(ctx, chunks, path, content, language)
			}
			return a.finish(chunks, decision, reason, &metrics), metrics, nil
		}
		if parseErr != nil {
			metrics.FallbackReason = chunkererrors.FallbackReason(parseErr)
		}
	}

	names := a.Specialists.FindProcessors(path, language)
	metrics.HasSpecializedProcessor = len(names) > 0
	if metrics.HasSpecializedProcessor {
		chunks := a.chunkWithSpecialists(path, text, language, names)
		if len(chunks) > 0 {
			decision, reason := Decide(metrics)
			return a.finish(chunks, decision, reason, &metrics), metrics, nil
		}
	}

	chunks, err := a.chunkWithSlidingWindow(path, text, language)
	decision, reason := Decide(metrics)
	return a.finish(chunks, decision, reason, &metrics), metrics, err
}

// finish stamps decision metadata and per-chunk token counts (plus the parse
// error's fallback_reason when a parse failure caused the downshift), and
// fills in the metrics fields that depend on the final chunk set.
func (a *Arbiter) finish(chunks []*types.Chunk, decision types.ChunkingDecision, reason string, metrics *types.DecisionMetrics) []*types.Chunk {
	parseReason := metrics.FallbackReason
	metrics.Decision = decision
	metrics.FallbackReason = reason
	metrics.ChunkCount = len(chunks)
	for _, c := range chunks {
		count := a.Tokenizer.CountTokens(c.Content)
		c.SetMetadata("chunking_decision", string(decision))
		c.SetMetadata("token_count", count)
		if metrics.IsGenerated {
			c.SetMetadata("is_generated", true)
		}
		if parseReason != "" {
			c.SetMetadata("fallback_reason", parseReason)
		}
		if a.Model != "" {
			c.SetMetadata("tokenizer_model", a.Model)
		} else {
			c.SetMetadata("tokenizer_model", "heuristic")
		}
	}
	return chunks
}

// chunkWithGrammar parses content with the language's tree-sitter grammar
// and runs the configured Strategy over the resulting tree.
func (a *Arbiter) chunkWithGrammar(ctx context.Context, path string, content []byte, language types.Language) ([]*types.Chunk, error) {
	parser, err := a.Grammars.GetParser(ctx, language, a.AutoDownload)
	if err != nil {
		return nil, err
	}
	defer a.Grammars.Put(language, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, chunkererrors.NewParseFailureError(path, string(language), fmt.Errorf("parser returned no tree"))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, chunkererrors.NewParseFailureError(path, string(language), fmt.Errorf("empty parse tree"))
	}

	chunks, err := a.Strategy.Chunk(root, content, path, language)
	if err != nil {
		return nil, chunkererrors.NewParseFailureError(path, string(language), err)
	}
	return chunks, nil
}

// tokenLimitStatus reports whether any chunk exceeds TokenLimit and the
// largest observed token count. A TokenLimit of 0 means no limit, so no
// chunk can ever be reported as exceeding it.
func (a *Arbiter) tokenLimitStatus(chunks []*types.Chunk) (exceeded bool, largest int) {
	for _, c := range chunks {
		n := a.Tokenizer.CountTokens(c.Content)
		if n > largest {
			largest = n
		}
		if a.TokenLimit > 0 && n > a.TokenLimit {
			exceeded = true
		}
	}
	return exceeded, largest
}

// splitOversizedChunks recursively divides every chunk exceeding TokenLimit
// along its AST child boundaries, then tail-splits any leaf that still
// exceeds the limit using the natural-break finder over a fresh sliding
// window pass.
func (a *Arbiter) splitOversizedChunks(ctx context.Context, chunks []*types.Chunk, path string, content []byte, language types.Language) []*types.Chunk {
	parser, err := a.Grammars.GetParser(ctx, language, a.AutoDownload)
	if err != nil {
		return chunks
	}
	defer a.Grammars.Put(language, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return chunks
	}
	defer tree.Close()
	root := tree.RootNode()

	var out []*types.Chunk
	for _, c := range chunks {
		if a.TokenLimit <= 0 || a.Tokenizer.CountTokens(c.Content) <= a.TokenLimit {
			out = append(out, c)
			continue
		}
		node := findNodeForChunk(root, c.ByteStart, c.ByteEnd)
		if node == nil {
			out = append(out, a.tailSplit(c, path, language)...)
			continue
		}
		out = append(out, a.splitNodeToLimit(node, content, path, language)...)
	}
	return out
}

// findNodeForChunk walks the tree for the smallest node spanning exactly
// the chunk's byte range, falling back to nil when no exact match exists
// (e.g. the chunk came from a fused/merged composite strategy).
func findNodeForChunk(node *tree_sitter.Node, start, end int) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if int(node.StartByte()) == start && int(node.EndByte()) == end {
		best := node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if int(child.StartByte()) == start && int(child.EndByte()) == end {
				if found := findNodeForChunk(child, start, end); found != nil {
					best = found
				}
			}
		}
		return best
	}
	if int(node.StartByte()) > end || int(node.EndByte()) < start {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := findNodeForChunk(child, start, end); found != nil {
			return found
		}
	}
	return nil
}

// splitNodeToLimit recursively divides node into chunks that each fit
// TokenLimit, descending into child nodes; a leaf node that still exceeds
// the limit is tail-split by sliding window.
func (a *Arbiter) splitNodeToLimit(node *tree_sitter.Node, source []byte, path string, language types.Language) []*types.Chunk {
	chunk := a.newNodeChunk(node, source, path, language)
	if a.TokenLimit <= 0 || a.Tokenizer.CountTokens(chunk.Content) <= a.TokenLimit {
		return []*types.Chunk{chunk}
	}

	named := node.ChildCount()
	if named == 0 {
		return a.tailSplit(chunk, path, language)
	}

	var out []*types.Chunk
	for i := uint(0); i < named; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		out = append(out, a.splitNodeToLimit(child, source, path, language)...)
	}
	if len(out) == 0 {
		return a.tailSplit(chunk, path, language)
	}
	return out
}

func (a *Arbiter) newNodeChunk(node *tree_sitter.Node, source []byte, path string, language types.Language) *types.Chunk {
	start, end := node.StartByte(), node.EndByte()
	startPoint, endPoint := node.StartPosition(), node.EndPosition()
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
		Metadata:  map[string]any{"split_from_oversized_chunk": true},
	}
}

// tailSplit divides a chunk that tree-sitter can no longer structurally
// subdivide using the natural-break finder, at a character budget derived
// from TokenLimit and the heuristic chars-per-token ratio.
func (a *Arbiter) tailSplit(chunk *types.Chunk, path string, language types.Language) []*types.Chunk {
	maxChars := a.TokenLimit * types.DefaultTokenCharsPerToken
	if maxChars <= 0 || maxChars >= len(chunk.Content) {
		return []*types.Chunk{chunk}
	}

	breaks := a.Breaks.FindNaturalBreaks(chunk.Content, maxChars)
	bounds := append([]int{0}, breaks...)
	bounds = append(bounds, len(chunk.Content))

	var out []*types.Chunk
	line := chunk.StartLine
	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		if start >= end {
			continue
		}
		text := chunk.Content[start:end]
		endLine := line + strings.Count(text, "\n")
		byteStart, byteEnd := chunk.ByteStart+start, chunk.ByteStart+end
		out = append(out, &types.Chunk{
			ChunkID:   types.NewChunkID(path, byteStart, byteEnd, text),
			Language:  language,
			FilePath:  path,
			NodeType:  "sliding_window_tail_split",
			StartLine: line,
			EndLine:   endLine,
			ByteStart: byteStart,
			ByteEnd:   byteEnd,
			Content:   text,
			Metadata:  map[string]any{"tail_split_from": chunk.NodeType},
		})
		line = endLine
	}
	if len(out) == 0 {
		return []*types.Chunk{chunk}
	}
	return out
}

// chunkWithSpecialists runs the named specialists over text and converts
// their TextSegments into Chunks.
func (a *Arbiter) chunkWithSpecialists(path, text string, language types.Language, names []string) []*types.Chunk {
	chain := fallback.NewProcessorChain(a.Specialists, names)
	segments := chain.Process(text)

	var chunks []*types.Chunk
	line := 1
	for _, seg := range segments {
		startLine := line + strings.Count(text[:seg.Start], "\n")
		endLine := line + strings.Count(text[:seg.End], "\n")
		meta := map[string]any{"segment_type": string(seg.SegmentType)}
		for k, v := range seg.Metadata {
			meta[k] = v
		}
		chunks = append(chunks, &types.Chunk{
			ChunkID:   types.NewChunkID(path, seg.Start, seg.End, seg.Text),
			Language:  language,
			FilePath:  path,
			NodeType:  "specialist_segment",
			StartLine: startLine,
			EndLine:   endLine,
			ByteStart: seg.Start,
			ByteEnd:   seg.End,
			Content:   seg.Text,
			Metadata:  meta,
		})
	}
	return chunks
}

// chunkWithSlidingWindow is the final-tier fallback: fixed/percentage
// overlap chunking over the raw text. ChunkFile also lands here for a
// language with an installed grammar (SkipGenerated, or a parse that gave no
// chunks); Window refuses overlap for those, so they are cut into adjacent
// windows with no overlap instead.
func (a *Arbiter) chunkWithSlidingWindow(path, text string, language types.Language) ([]*types.Chunk, error) {
	chunks, err := a.Window.ChunkWithOverlap(text, path, a.WindowChunkSize, a.WindowOverlapSize, a.WindowOverlapKind, a.WindowUnit, string(language))
	if _, refused := err.(*chunkererrors.TreeSitterOverlapError); refused {
		return window.NewChunker(nil).ChunkWithOverlap(text, path, a.WindowChunkSize, 0, window.OverlapFixed, a.WindowUnit, string(language))
	}
	return chunks, err
}
