package chunking

import (
	"math"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/types"
)

// FusionMode selects how CompositeChunker combines its member strategies'
// results.
type FusionMode string

const (
	FusionUnion        FusionMode = "union"
	FusionIntersection FusionMode = "intersection"
	FusionConsensus    FusionMode = "consensus"
	FusionWeighted     FusionMode = "weighted"
)

// CompositeChunker runs multiple strategies and fuses their outputs,
// then applies overlap merging and a final quality filter.
type CompositeChunker struct {
	strategies map[string]Strategy
	weights    map[string]float64

	fusion FusionMode

	minConsensusStrategies int
	consensusThreshold     float64

	mergeOverlaps    bool
	overlapThreshold float64

	applyFilters    bool
	minChunkQuality float64
}

// NewCompositeChunker builds a CompositeChunker over semantic,
// hierarchical, and adaptive member strategies with spec.md's defaults.
func NewCompositeChunker() *CompositeChunker {
	return &CompositeChunker{
		strategies: map[string]Strategy{
			"semantic":     NewSemanticChunker(),
			"hierarchical": NewHierarchicalChunker(),
			"adaptive":     NewAdaptiveChunker(),
		},
		weights: map[string]float64{
			"semantic":     1.0,
			"hierarchical": 0.8,
			"adaptive":     0.9,
		},
		fusion:                  FusionConsensus,
		minConsensusStrategies:  2,
		consensusThreshold:      0.6,
		mergeOverlaps:           true,
		overlapThreshold:        0.7,
		applyFilters:            true,
		minChunkQuality:         0.5,
	}
}

func (c *CompositeChunker) CanHandle(path string, language types.Language) bool {
	for _, s := range c.strategies {
		if s.CanHandle(path, language) {
			return true
		}
	}
	return false
}

func (c *CompositeChunker) Configure(options map[string]any) {
	if v, ok := options["fusion_method"].(string); ok {
		c.fusion = FusionMode(v)
	}
	if v, ok := options["min_consensus_strategies"].(int); ok {
		c.minConsensusStrategies = v
	}
	if v, ok := options["consensus_threshold"].(float64); ok {
		c.consensusThreshold = v
	}
	if v, ok := options["merge_overlaps"].(bool); ok {
		c.mergeOverlaps = v
	}
	if v, ok := options["overlap_threshold"].(float64); ok {
		c.overlapThreshold = v
	}
	if v, ok := options["min_chunk_quality"].(float64); ok {
		c.minChunkQuality = v
	}
	if weights, ok := options["strategy_weights"].(map[string]float64); ok {
		for k, v := range weights {
			c.weights[k] = v
		}
	}
}

func (c *CompositeChunker) Chunk(root *tree_sitter.Node, source []byte, path string, language types.Language) ([]*types.Chunk, error) {
	results := map[string][]*types.Chunk{}
	for name, strat := range c.strategies {
		if !strat.CanHandle(path, language) {
			continue
		}
		chunks, err := strat.Chunk(root, source, path, language)
		if err != nil {
			results[name] = nil
			continue
		}
		for _, ch := range chunks {
			ch.SetMetadata("strategy", name)
		}
		results[name] = chunks
	}

	var combined []*types.Chunk
	switch c.fusion {
	case FusionUnion:
		combined = c.fusionUnion(results)
	case FusionIntersection:
		combined = c.fusionIntersection(results)
	case FusionWeighted:
		combined = c.fusionWeighted(results)
	default:
		combined = c.fusionConsensus(results)
	}

	if c.mergeOverlaps {
		combined = c.mergeOverlappingChunks(combined)
	}

	return c.ensureQuality(combined), nil
}

func (c *CompositeChunker) fusionUnion(results map[string][]*types.Chunk) []*types.Chunk {
	var all []*types.Chunk
	for _, chunks := range results {
		all = append(all, chunks...)
	}
	return all
}

type positionKey struct {
	startBucket int
	endBucket   int
	nodeType    string
}

func keyFor(chunk *types.Chunk) positionKey {
	return positionKey{
		startBucket: chunk.StartLine / 5,
		endBucket:   chunk.EndLine / 5,
		nodeType:    chunk.NodeType,
	}
}

type candidate struct {
	chunk      *types.Chunk
	strategies []string
}

func buildCandidates(results map[string][]*types.Chunk) map[positionKey]*candidate {
	candidates := map[positionKey]*candidate{}
	for name, chunks := range results {
		for _, ch := range chunks {
			key := keyFor(ch)
			cand, ok := candidates[key]
			if !ok {
				cand = &candidate{chunk: ch}
				candidates[key] = cand
			}
			cand.strategies = append(cand.strategies, name)
			if len(ch.Metadata) > len(cand.chunk.Metadata) {
				cand.chunk = ch
			}
		}
	}
	return candidates
}

func (c *CompositeChunker) fusionIntersection(results map[string][]*types.Chunk) []*types.Chunk {
	candidates := buildCandidates(results)
	minStrategies := c.minConsensusStrategies
	if n := len(results) / 2; n > minStrategies {
		minStrategies = n
	}

	var out []*types.Chunk
	for _, cand := range candidates {
		if len(cand.strategies) < minStrategies {
			continue
		}
		cand.chunk.SetMetadata("strategies", cand.strategies)
		cand.chunk.SetMetadata("agreement_score", float64(len(cand.strategies))/float64(len(results)))
		out = append(out, cand.chunk)
	}
	return out
}

func (c *CompositeChunker) fusionConsensus(results map[string][]*types.Chunk) []*types.Chunk {
	candidates := buildCandidates(results)
	total := len(results)
	if total == 0 {
		return nil
	}

	var out []*types.Chunk
	for _, cand := range candidates {
		consensusScore := float64(len(cand.strategies)) / float64(total)

		var weightSum float64
		for _, s := range cand.strategies {
			weightSum += c.weights[s]
		}
		qualityScore := weightSum / float64(len(cand.strategies))

		combinedScore := (consensusScore + qualityScore) / 2
		if combinedScore >= c.consensusThreshold {
			cand.chunk.SetMetadata("strategies", cand.strategies)
			cand.chunk.SetMetadata("consensus_score", consensusScore)
			out = append(out, cand.chunk)
		}
	}
	return out
}

func (c *CompositeChunker) fusionWeighted(results map[string][]*types.Chunk) []*types.Chunk {
	candidates := buildCandidates(results)

	var out []*types.Chunk
	for _, cand := range candidates {
		var weightSum float64
		for _, s := range cand.strategies {
			weightSum += c.weights[s]
		}
		cand.chunk.SetMetadata("weight_score", weightSum)
		cand.chunk.SetMetadata("strategies", cand.strategies)
		out = append(out, cand.chunk)
	}

	sort.Slice(out, func(i, j int) bool {
		wi, _ := out[i].Metadata["weight_score"].(float64)
		wj, _ := out[j].Metadata["weight_score"].(float64)
		return wi > wj
	})
	return out
}

// mergeOverlappingChunks groups chunks whose pairwise overlap ratio (over
// the smaller chunk) meets overlapThreshold and merges each group into the
// smallest bounding span.
func (c *CompositeChunker) mergeOverlappingChunks(chunks []*types.Chunk) []*types.Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].StartLine != chunks[j].StartLine {
			return chunks[i].StartLine < chunks[j].StartLine
		}
		return chunks[i].EndLine < chunks[j].EndLine
	})

	var groups [][]*types.Chunk
	group := []*types.Chunk{chunks[0]}
	for _, ch := range chunks[1:] {
		overlaps := false
		for _, g := range group {
			if c.overlapRatio(g, ch) >= c.overlapThreshold {
				overlaps = true
				break
			}
		}
		if overlaps {
			group = append(group, ch)
		} else {
			groups = append(groups, group)
			group = []*types.Chunk{ch}
		}
	}
	groups = append(groups, group)

	var merged []*types.Chunk
	for _, g := range groups {
		if len(g) == 1 {
			merged = append(merged, g[0])
			continue
		}
		merged = append(merged, mergeGroup(g))
	}
	return merged
}

func (c *CompositeChunker) overlapRatio(a, b *types.Chunk) float64 {
	overlapStart := a.StartLine
	if b.StartLine > overlapStart {
		overlapStart = b.StartLine
	}
	overlapEnd := a.EndLine
	if b.EndLine < overlapEnd {
		overlapEnd = b.EndLine
	}
	if overlapStart > overlapEnd {
		return 0
	}
	overlapLines := float64(overlapEnd - overlapStart + 1)
	aLines := float64(a.EndLine - a.StartLine + 1)
	bLines := float64(b.EndLine - b.StartLine + 1)

	ratioA := overlapLines / aLines
	ratioB := overlapLines / bLines
	return math.Max(ratioA, ratioB)
}

// mergeGroup merges a group of overlapping chunks: the largest member (ties
// broken by more metadata) is kept, widened to the group's bounding span,
// and given the union of the members' dependencies and references.
func mergeGroup(group []*types.Chunk) *types.Chunk {
	sort.Slice(group, func(i, j int) bool {
		li := group[i].EndLine - group[i].StartLine
		lj := group[j].EndLine - group[j].StartLine
		if li != lj {
			return li > lj
		}
		if len(group[i].Metadata) != len(group[j].Metadata) {
			return len(group[i].Metadata) > len(group[j].Metadata)
		}
		return li < lj
	})

	merged := group[0]
	var mergedStrategies []string
	for _, ch := range group {
		if ch.StartLine < merged.StartLine {
			merged.StartLine = ch.StartLine
			merged.ByteStart = ch.ByteStart
		}
		if ch.EndLine > merged.EndLine {
			merged.EndLine = ch.EndLine
			merged.ByteEnd = ch.ByteEnd
		}
		merged.Dependencies = union(merged.Dependencies, ch.Dependencies)
		merged.References = union(merged.References, ch.References)
		if strat, ok := ch.Metadata["strategy"].(string); ok {
			mergedStrategies = append(mergedStrategies, strat)
		}
	}
	merged.SetMetadata("merged_strategies", mergedStrategies)
	return merged
}

// ensureQuality discards chunks below minChunkQuality and stamps a
// quality_score computed as the mean of size, content-density,
// metadata-richness, and strategy-agreement scores.
func (c *CompositeChunker) ensureQuality(chunks []*types.Chunk) []*types.Chunk {
	var out []*types.Chunk
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		score := c.qualityScore(ch)
		ch.SetMetadata("quality_score", score)
		if score >= c.minChunkQuality {
			out = append(out, ch)
		}
	}
	return out
}

func (c *CompositeChunker) qualityScore(chunk *types.Chunk) float64 {
	lines := chunk.EndLine - chunk.StartLine + 1

	var sizeScore float64
	switch {
	case lines < 5:
		sizeScore = 0.5
	case lines > 200:
		sizeScore = 0.7
	default:
		sizeScore = 1.0
	}

	nonBlank := 0
	for _, l := range strings.Split(chunk.Content, "\n") {
		if strings.TrimSpace(l) != "" {
			nonBlank++
		}
	}
	contentScore := 0.0
	if lines > 0 {
		contentScore = math.Min(1.0, float64(nonBlank)/float64(lines))
	}

	metadataScore := math.Min(1.0, float64(len(chunk.Metadata))/5.0)

	agreementScore := 0.5
	if strategies, ok := chunk.Metadata["strategies"].([]string); ok {
		agreementScore = float64(len(strategies)) / float64(len(c.strategies))
	}

	return (sizeScore + contentScore + metadataScore + agreementScore) / 4
}
