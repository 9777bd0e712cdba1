package window

import (
	"strings"
	"testing"

	"github.com/standardbeagle/chunker/internal/errors"
)

type fakeGrammars struct {
	supported map[string]bool
	byExt     map[string]string
}

func (f *fakeGrammars) HasGrammar(language string) bool { return f.supported[language] }
func (f *fakeGrammars) LanguageForPath(path string) (string, bool) {
	for ext, lang := range f.byExt {
		if strings.HasSuffix(path, ext) {
			return lang, true
		}
	}
	return "", false
}

func TestChunkWithOverlap_FixedStrategySplitsByCharacters(t *testing.T) {
	c := NewChunker(nil)
	content := strings.Repeat("abcdefghij", 10) // 100 chars
	chunks, err := c.ChunkWithOverlap(content, "notes.txt", 30, 10, OverlapFixed, UnitCharacters, "")
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected multiple overlapping chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].ByteStart >= chunks[i-1].ByteEnd {
			t.Errorf("expected chunk %d to overlap with chunk %d", i, i-1)
		}
	}
}

func TestChunkWithOverlap_PercentageStrategyScalesOverlap(t *testing.T) {
	c := NewChunker(nil)
	content := strings.Repeat("x", 100)
	chunks, err := c.ChunkWithOverlap(content, "notes.txt", 50, 20, OverlapPercentage, UnitCharacters, "")
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestChunkWithOverlap_RefusesWhenGrammarCoversLanguage(t *testing.T) {
	g := &fakeGrammars{supported: map[string]bool{"go": true}, byExt: map[string]string{".go": "go"}}
	c := NewChunker(g)
	_, err := c.ChunkWithOverlap("package main\n", "main.go", 100, 10, OverlapFixed, UnitCharacters, "")
	if err == nil {
		t.Fatal("expected TreeSitterOverlapError")
	}
	var overlapErr *errors.TreeSitterOverlapError
	if !asTreeSitterOverlapError(err, &overlapErr) {
		t.Fatalf("expected *errors.TreeSitterOverlapError, got %T: %v", err, err)
	}
}

func asTreeSitterOverlapError(err error, target **errors.TreeSitterOverlapError) bool {
	if e, ok := err.(*errors.TreeSitterOverlapError); ok {
		*target = e
		return true
	}
	return false
}

func TestChunkWithAsymmetricOverlap_ExtendsWindowsUnevenly(t *testing.T) {
	c := NewChunker(nil)
	content := strings.Repeat("line one\nline two\nline three\n", 5)
	chunks, err := c.ChunkWithAsymmetricOverlap(content, "log.txt", 3, 1, 2, UnitLines, "")
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestChunkWithDynamicOverlap_StaysWithinBounds(t *testing.T) {
	c := NewChunker(nil)
	content := strings.Repeat("Sentence one. Sentence two.\n\nNext paragraph entirely here.\n", 10)
	chunks, err := c.ChunkWithDynamicOverlap(content, "doc.txt", 80, 10, 40, UnitCharacters, "")
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestFindNaturalOverlapBoundary_PrefersParagraphBreakOverWord(t *testing.T) {
	text := "first paragraph here\n\nsecond paragraph starts here and continues on"
	pos := FindNaturalOverlapBoundary(text, 23, 40)
	if pos <= 0 || pos >= len(text) {
		t.Fatalf("expected boundary within bounds, got %d", pos)
	}
}

func TestFindNaturalOverlapBoundary_ClampsToContentBounds(t *testing.T) {
	text := "short text"
	if pos := FindNaturalOverlapBoundary(text, 0, 10); pos != 0 {
		t.Errorf("expected 0 at start, got %d", pos)
	}
	if pos := FindNaturalOverlapBoundary(text, len(text), 10); pos != len(text) {
		t.Errorf("expected end clamp, got %d", pos)
	}
}
