// Package window implements sliding-window fallback chunking for files
// with no specialist match: fixed, percentage, asymmetric, and dynamic
// overlap modes, gated by a hard refusal to run on any language with an
// installed grammar.
package window

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// Unit selects whether chunk_size/overlap_size are measured in lines or
// characters.
type Unit string

const (
	UnitLines      Unit = "lines"
	UnitCharacters Unit = "characters"
)

// OverlapStrategy selects how the overlap between consecutive windows is
// computed.
type OverlapStrategy string

const (
	OverlapFixed      OverlapStrategy = "fixed"
	OverlapPercentage OverlapStrategy = "percentage"
	OverlapDynamic    OverlapStrategy = "dynamic"
	OverlapAsymmetric OverlapStrategy = "asymmetric"
)

// GrammarChecker reports whether a language or file extension has an
// installed tree-sitter grammar. internal/grammar's Registry satisfies
// this narrow interface without window importing it directly.
type GrammarChecker interface {
	HasGrammar(language string) bool
	LanguageForPath(path string) (string, bool)
}

// Chunker produces overlapping windows over fallback text content. It
// refuses, via a typed error, to run on any path or language an installed
// grammar already covers — overlap is exclusively a fallback affordance.
type Chunker struct {
	grammars GrammarChecker
}

// NewChunker builds a Chunker that consults grammars to enforce the
// tree-sitter refusal contract. A nil GrammarChecker disables the check
// (used in tests and for content with no associated file path).
func NewChunker(grammars GrammarChecker) *Chunker {
	return &Chunker{grammars: grammars}
}

func (c *Chunker) checkNoGrammarSupport(filePath, language string) error {
	if c.grammars == nil {
		return nil
	}
	if language != "" && c.grammars.HasGrammar(language) {
		return errors.NewTreeSitterOverlapError(language, filePath)
	}
	if inferred, ok := c.grammars.LanguageForPath(filePath); ok && c.grammars.HasGrammar(inferred) {
		return errors.NewTreeSitterOverlapError(inferred, filePath)
	}
	return nil
}

// ChunkWithOverlap splits content into overlapping windows per strategy.
func (c *Chunker) ChunkWithOverlap(content, filePath string, chunkSize, overlapSize int, strategy OverlapStrategy, unit Unit, language string) ([]*types.Chunk, error) {
	if err := c.checkNoGrammarSupport(filePath, language); err != nil {
		return nil, err
	}

	actualOverlap := calculateOverlap(chunkSize, overlapSize, strategy)
	if unit == UnitLines {
		return chunkByLinesWithOverlap(content, filePath, chunkSize, actualOverlap), nil
	}
	return chunkByCharsWithOverlap(content, filePath, chunkSize, actualOverlap), nil
}

// ChunkWithAsymmetricOverlap splits content into windows with distinct
// before/after overlap sizes.
func (c *Chunker) ChunkWithAsymmetricOverlap(content, filePath string, chunkSize, overlapBefore, overlapAfter int, unit Unit, language string) ([]*types.Chunk, error) {
	if err := c.checkNoGrammarSupport(filePath, language); err != nil {
		return nil, err
	}
	if unit == UnitLines {
		return chunkByLinesAsymmetric(content, filePath, chunkSize, overlapBefore, overlapAfter), nil
	}
	return chunkByCharsAsymmetric(content, filePath, chunkSize, overlapBefore, overlapAfter), nil
}

// ChunkWithDynamicOverlap splits content into windows whose overlap size
// is chosen per boundary by snapping to a natural break within
// [min_overlap, max_overlap].
func (c *Chunker) ChunkWithDynamicOverlap(content, filePath string, chunkSize, minOverlap, maxOverlap int, unit Unit, language string) ([]*types.Chunk, error) {
	if err := c.checkNoGrammarSupport(filePath, language); err != nil {
		return nil, err
	}
	if unit == UnitLines {
		return chunkByLinesDynamic(content, filePath, chunkSize, minOverlap, maxOverlap), nil
	}
	return chunkByCharsDynamic(content, filePath, chunkSize, minOverlap, maxOverlap), nil
}

func calculateOverlap(chunkSize, overlapSize int, strategy OverlapStrategy) int {
	switch strategy {
	case OverlapPercentage:
		return int(float64(chunkSize) * (float64(overlapSize) / 100.0))
	default:
		return overlapSize
	}
}

type boundaryPattern struct {
	pattern *regexp.Regexp
	weight  int
}

var naturalBoundaryPatterns = []boundaryPattern{
	{regexp.MustCompile(`\n\s*\n+`), 0},
	{regexp.MustCompile(`\n`), 1},
	{regexp.MustCompile(`[.!?]\s+`), 2},
	{regexp.MustCompile(`[,;:]\s+`), 3},
	{regexp.MustCompile(`\s+`), 4},
}

// FindNaturalOverlapBoundary searches a window around desiredPosition for
// the natural break (paragraph > line > sentence > clause > word) with the
// lowest score, where the score is the distance from desiredPosition plus 10
// for each priority level below paragraph; on equal scores the
// higher-priority boundary type wins.
func FindNaturalOverlapBoundary(content string, desiredPosition, searchWindow int) int {
	if desiredPosition <= 0 {
		return 0
	}
	if desiredPosition >= len(content) {
		return len(content)
	}

	start := desiredPosition - searchWindow/2
	if start < 0 {
		start = 0
	}
	end := desiredPosition + searchWindow/2
	if end > len(content) {
		end = len(content)
	}
	searchText := content[start:end]

	bestPosition := desiredPosition
	bestScore := -1
	for _, bp := range naturalBoundaryPatterns {
		for _, m := range bp.pattern.FindAllStringIndex(searchText, -1) {
			absPos := start + m[1]
			distance := absPos - desiredPosition
			if distance < 0 {
				distance = -distance
			}
			score := distance + bp.weight*10
			if bestScore == -1 || score < bestScore {
				bestScore = score
				bestPosition = absPos
			}
		}
	}
	return bestPosition
}

func chunkByLinesWithOverlap(content, filePath string, linesPerChunk, overlapLines int) []*types.Chunk {
	lines := splitKeepEnds(content)
	stepSize := linesPerChunk - overlapLines
	if stepSize <= 0 {
		stepSize = 1
	}

	var chunks []*types.Chunk
	i, chunkNum := 0, 0
	for i < len(lines) {
		startIdx := i
		endIdx := min(i+linesPerChunk, len(lines))
		chunkContent := strings.Join(lines[startIdx:endIdx], "")
		byteStart := sumLen(lines[:startIdx])
		byteEnd := byteStart + len(chunkContent)

		chunks = append(chunks, newWindowChunk(filePath, "fallback_overlapping_lines", chunkNum, startIdx+1, endIdx, byteStart, byteEnd, chunkContent))

		i += stepSize
		chunkNum++
		if i >= len(lines) {
			break
		}
	}
	return chunks
}

func chunkByCharsWithOverlap(content, filePath string, charsPerChunk, overlapChars int) []*types.Chunk {
	stepSize := charsPerChunk - overlapChars
	if stepSize <= 0 {
		stepSize = 1
	}

	var chunks []*types.Chunk
	i, chunkNum := 0, 0
	for i < len(content) {
		startIdx := i
		endIdx := min(i+charsPerChunk, len(content))
		chunkContent := content[startIdx:endIdx]

		chunks = append(chunks, newWindowChunk(filePath, "fallback_overlapping_chars", chunkNum,
			strings.Count(content[:startIdx], "\n")+1, strings.Count(content[:endIdx], "\n")+1,
			startIdx, endIdx, chunkContent))

		i += stepSize
		chunkNum++
		if i >= len(content) {
			break
		}
	}
	return chunks
}

func chunkByLinesAsymmetric(content, filePath string, linesPerChunk, overlapBefore, overlapAfter int) []*types.Chunk {
	lines := splitKeepEnds(content)
	var chunks []*types.Chunk
	i, chunkNum := 0, 0

	for i < len(lines) {
		startIdx := i
		endIdx := min(i+linesPerChunk, len(lines))

		overlapStart := startIdx
		if i > 0 && overlapBefore > 0 {
			overlapStart = max(0, i-overlapBefore)
		}
		overlapEnd := endIdx
		if endIdx < len(lines) && overlapAfter > 0 {
			overlapEnd = min(endIdx+overlapAfter, len(lines))
		}

		chunkContent := strings.Join(lines[overlapStart:overlapEnd], "")
		byteStart := sumLen(lines[:overlapStart])
		byteEnd := byteStart + len(chunkContent)

		chunks = append(chunks, newWindowChunk(filePath, "fallback_asymmetric_lines", chunkNum, overlapStart+1, overlapEnd, byteStart, byteEnd, chunkContent))

		i = endIdx
		chunkNum++
	}
	return chunks
}

func chunkByCharsAsymmetric(content, filePath string, charsPerChunk, overlapBefore, overlapAfter int) []*types.Chunk {
	var chunks []*types.Chunk
	i, chunkNum := 0, 0

	for i < len(content) {
		startIdx := i
		endIdx := min(i+charsPerChunk, len(content))

		overlapStart := startIdx
		if i > 0 && overlapBefore > 0 {
			overlapStart = max(0, i-overlapBefore)
		}
		overlapEnd := endIdx
		if endIdx < len(content) && overlapAfter > 0 {
			overlapEnd = min(endIdx+overlapAfter, len(content))
		}

		chunkContent := content[overlapStart:overlapEnd]
		chunks = append(chunks, newWindowChunk(filePath, "fallback_asymmetric_chars", chunkNum,
			strings.Count(content[:overlapStart], "\n")+1, strings.Count(content[:overlapEnd], "\n")+1,
			overlapStart, overlapEnd, chunkContent))

		i = endIdx
		chunkNum++
	}
	return chunks
}

func chunkByLinesDynamic(content, filePath string, linesPerChunk, minOverlap, maxOverlap int) []*types.Chunk {
	lines := splitKeepEnds(content)
	var chunks []*types.Chunk
	i, chunkNum := 0, 0

	for i < len(lines) {
		startIdx := i
		endIdx := min(i+linesPerChunk, len(lines))

		overlapStart := startIdx
		if i > 0 {
			desiredOverlapLines := (minOverlap + maxOverlap) / 2
			overlapPos := max(0, i-desiredOverlapLines)
			boundaryContent := strings.Join(lines[overlapPos:i], "")
			naturalPos := FindNaturalOverlapBoundary(boundaryContent, len(boundaryContent)/2, len(boundaryContent))
			linesBefore := strings.Count(boundaryContent[:naturalPos], "\n")
			actualOverlapLines := clamp(linesBefore, minOverlap, maxOverlap)
			overlapStart = max(0, i-actualOverlapLines)
		}

		chunkContent := strings.Join(lines[overlapStart:endIdx], "")
		byteStart := sumLen(lines[:overlapStart])
		byteEnd := byteStart + len(chunkContent)

		chunks = append(chunks, newWindowChunk(filePath, "fallback_dynamic_lines", chunkNum, overlapStart+1, endIdx, byteStart, byteEnd, chunkContent))

		i = endIdx
		chunkNum++
	}
	return chunks
}

func chunkByCharsDynamic(content, filePath string, charsPerChunk, minOverlap, maxOverlap int) []*types.Chunk {
	var chunks []*types.Chunk
	i, chunkNum := 0, 0

	for i < len(content) {
		startIdx := i
		endIdx := min(i+charsPerChunk, len(content))

		overlapStart := startIdx
		if i > 0 {
			desiredOverlap := (minOverlap + maxOverlap) / 2
			desiredPos := max(0, i-desiredOverlap)
			naturalPos := FindNaturalOverlapBoundary(content, desiredPos, maxOverlap-minOverlap)

			actualOverlap := i - naturalPos
			switch {
			case actualOverlap < minOverlap:
				overlapStart = max(0, i-minOverlap)
			case actualOverlap > maxOverlap:
				overlapStart = max(0, i-maxOverlap)
			default:
				overlapStart = naturalPos
			}
		}

		chunkContent := content[overlapStart:endIdx]
		chunks = append(chunks, newWindowChunk(filePath, "fallback_dynamic_chars", chunkNum,
			strings.Count(content[:overlapStart], "\n")+1, strings.Count(content[:endIdx], "\n")+1,
			overlapStart, endIdx, chunkContent))

		i = endIdx
		chunkNum++
	}
	return chunks
}

func newWindowChunk(filePath, nodeType string, chunkNum, startLine, endLine, byteStart, byteEnd int, content string) *types.Chunk {
	numStr := strconv.Itoa(chunkNum)
	return &types.Chunk{
		ChunkID:       types.NewChunkID(filePath, byteStart, byteEnd, content),
		Language:      types.LangText,
		FilePath:      filePath,
		NodeType:      nodeType,
		StartLine:     startLine,
		EndLine:       endLine,
		ByteStart:     byteStart,
		ByteEnd:       byteEnd,
		ParentContext: nodeType + "_" + numStr,
		Content:       content,
	}
}

func splitKeepEnds(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i+1])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

func sumLen(lines []string) int {
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	return total
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}


