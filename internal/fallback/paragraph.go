package fallback

import (
	"regexp"
	"strings"
)

var (
	blankLinePattern = regexp.MustCompile(`(?m)\n[ \t]*\n`)
	indentPattern    = regexp.MustCompile(`(?m)^[ \t]{2,}`)
	listPattern      = regexp.MustCompile(`^[ \t]*(?:[-*+•]|\d+[.)]\s|[a-zA-Z][.)]\s)\s*`)
	quotePattern     = regexp.MustCompile(`^[ \t]*>+[ \t]*`)
	headerPattern    = regexp.MustCompile(`^#{1,6}\s+.*|^\d+\.\s+[A-Z].*`)
	hrPattern        = regexp.MustCompile(`^[ \t]*(?:[-*_][ \t]*){3,}[ \t]*$`)
	fenceLinePattern = regexp.MustCompile("^```")
)

// ParagraphDetector finds paragraph boundaries using blank lines as the
// primary signal, with indentation changes as a fallback when no blank
// lines are present.
type ParagraphDetector struct {
	MinParagraphLength int
	DetectIndentation  bool
}

// NewParagraphDetector builds a ParagraphDetector with the default
// 20-character minimum paragraph length and indentation detection enabled.
func NewParagraphDetector() *ParagraphDetector {
	return &ParagraphDetector{MinParagraphLength: 20, DetectIndentation: true}
}

// DetectBoundaries implements BoundaryDetector.
func (p *ParagraphDetector) DetectBoundaries(text string) []TextBoundary {
	boundaries := p.detectByBlankLines(text)
	if len(boundaries) <= 1 && p.DetectIndentation {
		return p.detectByIndentation(text)
	}
	return boundaries
}

func (p *ParagraphDetector) detectByBlankLines(text string) []TextBoundary {
	type span struct{ start, end int }
	blanks := []span{{-1, 0}}
	for _, m := range blankLinePattern.FindAllStringIndex(text, -1) {
		blanks = append(blanks, span{m[0], m[1]})
	}
	blanks = append(blanks, span{len(text), len(text)})

	var boundaries []TextBoundary
	for i := 0; i < len(blanks)-1; i++ {
		startPos := blanks[i].end
		endPos := blanks[i+1].start
		if startPos >= endPos {
			continue
		}
		if strings.TrimSpace(text[startPos:endPos]) == "" {
			continue
		}

		actualStart := startPos
		for actualStart < endPos && isSpaceByte(text[actualStart]) {
			actualStart++
		}
		actualEnd := endPos
		for actualEnd > actualStart && isSpaceByte(text[actualEnd-1]) {
			actualEnd--
		}

		blankLines := 0
		if i > 0 {
			blankLines = strings.Count(text[blanks[i].start:blanks[i].end], "\n") - 1
		}
		paragraph := text[actualStart:actualEnd]
		metadata := map[string]any{
			"blank_lines":      blankLines,
			"structural_break": p.isStructuralBreak(text, actualStart),
			"list_item":        listPattern.MatchString(paragraph),
			"indented":         indentPattern.MatchString(paragraph),
			"quoted":           quotePattern.MatchString(paragraph),
		}
		boundaries = append(boundaries, TextBoundary{
			Start:        actualStart,
			End:          actualEnd,
			BoundaryType: BoundaryParagraph,
			Confidence:   p.confidence(paragraph, metadata),
			Metadata:     metadata,
		})
	}
	return boundaries
}

func (p *ParagraphDetector) detectByIndentation(text string) []TextBoundary {
	var boundaries []TextBoundary
	lines := strings.Split(text, "\n")
	currentStart := 0
	currentIndent := -1
	pos := 0

	for _, line := range lines {
		lineLen := len(line) + 1
		if strings.TrimSpace(line) == "" {
			pos += lineLen
			continue
		}

		indentLevel := 0
		for indentLevel < len(line) && (line[indentLevel] == ' ' || line[indentLevel] == '\t') {
			indentLevel++
		}

		if currentIndent >= 0 && abs(indentLevel-currentIndent) >= 2 {
			end := pos - 1
			if end < currentStart {
				end = currentStart
			}
			metadata := map[string]any{
				"indentation_change": true,
				"prev_indent":        currentIndent,
				"new_indent":         indentLevel,
			}
			boundaries = append(boundaries, TextBoundary{
				Start:        currentStart,
				End:          end,
				BoundaryType: BoundaryParagraph,
				Confidence:   p.confidence(text[currentStart:end], metadata),
				Metadata:     metadata,
			})
			currentStart = pos
		}
		currentIndent = indentLevel
		pos += lineLen
	}

	if currentStart < len(text) {
		metadata := map[string]any{"final_paragraph": true}
		boundaries = append(boundaries, TextBoundary{
			Start:        currentStart,
			End:          len(text),
			BoundaryType: BoundaryParagraph,
			Confidence:   p.confidence(text[currentStart:], metadata),
			Metadata:     metadata,
		})
	}
	return boundaries
}

func (p *ParagraphDetector) isStructuralBreak(text string, pos int) bool {
	lineStart, lineEnd := lineBounds(text, pos)
	line := text[lineStart:lineEnd]
	if headerPattern.MatchString(line) || hrPattern.MatchString(line) {
		return true
	}
	return fenceLinePattern.MatchString(strings.TrimSpace(line))
}

func (p *ParagraphDetector) confidence(paragraph string, metadata map[string]any) float64 {
	confidence := 0.8
	trimmed := strings.TrimSpace(paragraph)

	if blanks, _ := metadata["blank_lines"].(int); blanks > 1 {
		confidence += 0.1
	}
	if sb, _ := metadata["structural_break"].(bool); sb {
		confidence += 0.1
	}
	if len(trimmed) < p.MinParagraphLength {
		confidence -= 0.3
	}
	if trimmed != "" {
		r := []rune(trimmed)
		if r[0] >= 'A' && r[0] <= 'Z' && strings.ContainsRune(".!?", r[len(r)-1]) {
			confidence += 0.05
		}
	}
	if listItem, _ := metadata["list_item"].(bool); listItem {
		if blanks, _ := metadata["blank_lines"].(int); blanks == 0 {
			confidence -= 0.2
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func lineBounds(text string, pos int) (start, end int) {
	start = pos
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end = pos
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return start, end
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
