package grammar

import (
	"context"
	"testing"

	"github.com/standardbeagle/chunker/internal/types"
)

func TestRegistry_PinnedLanguagesResolveWithoutBuilder(t *testing.T) {
	r := NewRegistry(nil)

	p, err := r.GetParser(context.Background(), types.LangGo, false)
	if err != nil {
		t.Fatalf("expected pinned language go to resolve without a builder: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil parser")
	}
	r.Put(types.LangGo, p)

	if !r.IsInstalled(types.LangGo) {
		t.Error("expected go to report installed")
	}
}

func TestRegistry_DifferentLanguagesGetDistinctParsers(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	goParser, err := r.GetParser(ctx, types.LangGo, false)
	if err != nil {
		t.Fatalf("go parser: %v", err)
	}
	pyParser, err := r.GetParser(ctx, types.LangPython, false)
	if err != nil {
		t.Fatalf("python parser: %v", err)
	}
	if goParser == pyParser {
		t.Error("expected distinct parser instances for distinct languages")
	}
}

func TestRegistry_UnpinnedLanguageWithoutAutoDownloadFails(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.GetParser(context.Background(), types.Language("cobol"), false)
	if err == nil {
		t.Fatal("expected an error for an unpinned language with auto-download disabled")
	}
}

func TestRegistry_LanguageForExtension(t *testing.T) {
	r := NewRegistry(nil)
	lang, ok := r.LanguageForExtension(".go")
	if !ok || lang != types.LangGo {
		t.Errorf("expected .go -> go, got %v, %v", lang, ok)
	}

	if _, ok := r.LanguageForExtension(".cob"); ok {
		t.Error("expected .cob to be unrecognized with no dynamic grammars installed")
	}
}

func TestCatalog_AddSourceRejectsNonGitHubURL(t *testing.T) {
	c := &Catalog{Sources: map[string]string{}}
	if err := c.AddSource("cobol", "https://gitlab.com/foo/tree-sitter-cobol"); err == nil {
		t.Error("expected non-github URL to be rejected")
	}
	if err := c.AddSource("cobol", "https://github.com/foo/tree-sitter-cobol"); err != nil {
		t.Errorf("expected valid github URL to be accepted: %v", err)
	}
}

func TestCatalog_RemoveSource(t *testing.T) {
	c := &Catalog{Sources: map[string]string{"cobol": "https://github.com/foo/tree-sitter-cobol"}}

	if !c.RemoveSource("cobol") {
		t.Error("expected removing a registered source to report true")
	}
	if _, ok := c.RepositoryURL("cobol"); ok {
		t.Error("expected cobol to be gone from the catalog")
	}
	if c.RemoveSource("cobol") {
		t.Error("expected removing an already-absent source to report false")
	}
}
