package grammar

import (
	"unsafe"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/chunker/internal/types"
)

// pinnedLanguage is statically linked at build time: no download/build step,
// no dlopen. These are the languages the module ships grammars for directly
// via their Go bindings.
type pinnedLanguage struct {
	extensions []string
	load       func() unsafe.Pointer
}

var pinnedLanguages = map[types.Language]pinnedLanguage{
	types.LangGo:         {[]string{".go"}, func() unsafe.Pointer { return tree_sitter_go.Language() }},
	types.LangPython:     {[]string{".py", ".pyi"}, func() unsafe.Pointer { return tree_sitter_python.Language() }},
	types.LangJavaScript: {[]string{".js", ".jsx", ".mjs", ".cjs"}, func() unsafe.Pointer { return tree_sitter_javascript.Language() }},
	types.LangTypeScript: {[]string{".ts", ".tsx"}, func() unsafe.Pointer { return tree_sitter_typescript.LanguageTypescript() }},
	types.LangJava:       {[]string{".java"}, func() unsafe.Pointer { return tree_sitter_java.Language() }},
	types.LangCpp:        {[]string{".cpp", ".cc", ".cxx", ".hpp", ".h", ".hh"}, func() unsafe.Pointer { return tree_sitter_cpp.Language() }},
	types.LangCSharp:     {[]string{".cs"}, func() unsafe.Pointer { return tree_sitter_csharp.Language() }},
	types.LangRust:       {[]string{".rs"}, func() unsafe.Pointer { return tree_sitter_rust.Language() }},
	types.LangPHP:        {[]string{".php"}, func() unsafe.Pointer { return tree_sitter_php.Language() }},
	types.LangZig:        {[]string{".zig"}, func() unsafe.Pointer { return tree_sitter_zig.Language() }},
}

// newPinnedLanguage materializes a *tree_sitter.Language for a pinned
// language id, or nil if the id isn't pinned.
func newPinnedLanguage(lang types.Language) *tree_sitter.Language {
	p, ok := pinnedLanguages[lang]
	if !ok {
		return nil
	}
	return tree_sitter.NewLanguage(p.load())
}

// pinnedExtensions returns the file extensions a pinned language claims.
func pinnedExtensions(lang types.Language) []string {
	return pinnedLanguages[lang].extensions
}

// isPinned reports whether lang is statically linked.
func isPinned(lang types.Language) bool {
	_, ok := pinnedLanguages[lang]
	return ok
}
