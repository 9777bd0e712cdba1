// Package fallback implements the text-level chunking affordances used
// when no grammar applies to a file, or when the arbiter routes to a
// specialist: sentence and paragraph boundary detection, a natural-break
// finder that fuses the two, and specialist processors for markdown and
// log files.
package fallback

// BoundaryType classifies a detected text boundary.
type BoundaryType string

const (
	BoundarySentence  BoundaryType = "sentence"
	BoundaryParagraph BoundaryType = "paragraph"
	BoundarySection   BoundaryType = "section"
	BoundaryQuote     BoundaryType = "quote"
	BoundaryCodeBlock BoundaryType = "code_block"
)

// TextBoundary is a detected break point in a text span, with the
// confidence the detector assigns it and any heuristic metadata that fed
// that confidence.
type TextBoundary struct {
	Start        int
	End          int
	BoundaryType BoundaryType
	Confidence   float64
	Metadata     map[string]any
}

// Length returns the boundary span's length in bytes.
func (b TextBoundary) Length() int { return b.End - b.Start }

// BoundaryDetector finds boundaries of one kind in a text.
type BoundaryDetector interface {
	DetectBoundaries(text string) []TextBoundary
}
