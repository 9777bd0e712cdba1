package fallback

import (
	"sort"
	"strings"
)

// BreakPriority orders boundary types when a break finder must choose
// between overlapping candidates.
type BreakPriority int

const (
	PriorityWord      BreakPriority = 10
	PriorityClause    BreakPriority = 50
	PriorityCodeBlock BreakPriority = 60
	PriorityQuote     BreakPriority = 70
	PrioritySentence  BreakPriority = 80
	PrioritySection   BreakPriority = 90
	PriorityParagraph BreakPriority = 100
)

func priorityFor(t BoundaryType) BreakPriority {
	switch t {
	case BoundaryParagraph:
		return PriorityParagraph
	case BoundarySection:
		return PrioritySection
	case BoundarySentence:
		return PrioritySentence
	case BoundaryQuote:
		return PriorityQuote
	case BoundaryCodeBlock:
		return PriorityCodeBlock
	default:
		return PriorityWord
	}
}

// breakPoint is a candidate split position scored by priority and content.
type breakPoint struct {
	position int
	priority BreakPriority
	boundary TextBoundary
	score    float64
}

var avoidAfterWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "of": true, "in": true, "to": true,
}

// NaturalBreakFinder combines sentence and paragraph boundaries into a
// single ranked set of break candidates, then greedily selects break
// points that respect a minimum and maximum chunk size.
type NaturalBreakFinder struct {
	PreferParagraphs bool
	MinChunkSize     int
	MaxChunkSize     int

	sentences  *SentenceDetector
	paragraphs *ParagraphDetector
}

// NewNaturalBreakFinder builds a NaturalBreakFinder over the given
// sentence and paragraph detectors, defaulting to a 100-1000 byte window
// with paragraph preference enabled.
func NewNaturalBreakFinder(sentences *SentenceDetector, paragraphs *ParagraphDetector) *NaturalBreakFinder {
	if sentences == nil {
		sentences = NewSentenceDetector("en")
	}
	if paragraphs == nil {
		paragraphs = NewParagraphDetector()
	}
	return &NaturalBreakFinder{
		PreferParagraphs: true,
		MinChunkSize:     100,
		MaxChunkSize:     1000,
		sentences:        sentences,
		paragraphs:       paragraphs,
	}
}

// DetectBoundaries merges sentence and paragraph boundaries sorted by
// start position, deduplicated on start position.
func (f *NaturalBreakFinder) DetectBoundaries(text string) []TextBoundary {
	var all []TextBoundary
	all = append(all, f.sentences.DetectBoundaries(text)...)
	all = append(all, f.paragraphs.DetectBoundaries(text)...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	seen := map[int]bool{}
	unique := all[:0]
	for _, b := range all {
		if seen[b.Start] {
			continue
		}
		seen[b.Start] = true
		unique = append(unique, b)
	}
	return unique
}

// scoreBreak computes a break point's score from the boundary's own
// confidence, a priority bonus, and context penalties/bonuses examined in
// a window around the break.
func (f *NaturalBreakFinder) scoreBreak(text string, position int, boundary TextBoundary) float64 {
	const contextSize = 50
	score := boundary.Confidence
	score += float64(priorityFor(boundary.BoundaryType)) / 200.0

	beforeStart := position - contextSize
	if beforeStart < 0 {
		beforeStart = 0
	}
	before := strings.TrimSpace(text[beforeStart:position])

	afterEnd := position + contextSize
	if afterEnd > len(text) {
		afterEnd = len(text)
	}
	after := strings.TrimSpace(text[position:afterEnd])

	if before != "" && strings.ContainsRune(".!?", rune(before[len(before)-1])) {
		score += 0.1
	}
	if after != "" {
		r := []rune(after)
		if r[0] >= 'A' && r[0] <= 'Z' {
			score += 0.05
		}
	}

	quoteCount := strings.Count(before, `"`) + strings.Count(before, "'")
	if quoteCount%2 != 0 {
		score -= 0.2
	}

	fields := strings.Fields(before)
	if len(fields) > 0 && avoidAfterWords[strings.ToLower(fields[len(fields)-1])] {
		score -= 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// FindNaturalBreaks returns byte positions at which text should be split,
// greedily choosing the highest-priority, highest-scoring candidate within
// each [current, current+maxLength] window, falling back to a hard cut at
// maxLength when no candidate qualifies.
func (f *NaturalBreakFinder) FindNaturalBreaks(text string, maxLength int) []int {
	boundaries := f.DetectBoundaries(text)

	breakPoints := make([]breakPoint, 0, len(boundaries))
	for _, b := range boundaries {
		breakPoints = append(breakPoints, breakPoint{
			position: b.End,
			priority: priorityFor(b.BoundaryType),
			boundary: b,
			score:    f.scoreBreak(text, b.End, b),
		})
	}
	sort.Slice(breakPoints, func(i, j int) bool { return breakPoints[i].position < breakPoints[j].position })

	var selected []int
	current := 0
	for current < len(text) {
		minPos := current + f.MinChunkSize
		maxPos := current + maxLength

		candidates := filterBreaks(breakPoints, func(bp breakPoint) bool {
			return bp.position > current && bp.position >= minPos && bp.position <= maxPos
		})

		if len(candidates) > 0 {
			if f.PreferParagraphs {
				var paras []breakPoint
				for _, c := range candidates {
					if c.priority == PriorityParagraph {
						paras = append(paras, c)
					}
				}
				if len(paras) > 0 {
					candidates = paras
				}
			}
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.priority > best.priority || (c.priority == best.priority && c.score > best.score) {
					best = c
				}
			}
			selected = append(selected, best.position)
			current = best.position
			continue
		}

		breakPos := current + maxLength
		if breakPos > len(text) {
			breakPos = len(text)
		}
		if breakPos < len(text) {
			selected = append(selected, breakPos)
		}
		current = breakPos
	}

	return selected
}

func filterBreaks(points []breakPoint, keep func(breakPoint) bool) []breakPoint {
	var out []breakPoint
	for _, p := range points {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
