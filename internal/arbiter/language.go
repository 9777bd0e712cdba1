package arbiter

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/standardbeagle/chunker/internal/types"
)

// extensionLanguages maps a lowercased file extension to a canonical
// language tag, covering both grammar-backed languages and the
// fallback-tier tags (markdown, log, text).
var extensionLanguages = map[string]types.Language{
	".py":        types.LangPython,
	".pyw":       types.LangPython,
	".js":        types.LangJavaScript,
	".jsx":       types.LangJavaScript,
	".mjs":       types.LangJavaScript,
	".cjs":       types.LangJavaScript,
	".ts":        types.LangTypeScript,
	".tsx":       types.LangTypeScript,
	".java":      types.LangJava,
	".cpp":       types.LangCpp,
	".cc":        types.LangCpp,
	".cxx":       types.LangCpp,
	".hpp":       types.LangCpp,
	".hxx":       types.LangCpp,
	".h":         types.LangCpp,
	".cs":        types.LangCSharp,
	".rs":        types.LangRust,
	".php":       types.LangPHP,
	".zig":       types.LangZig,
	".go":        types.LangGo,
	".md":        types.LangMarkdown,
	".markdown":  types.LangMarkdown,
	".log":       types.LangLog,
	".out":       types.LangLog,
	".err":       types.LangLog,
	".txt":       types.LangText,
}

// shebangLanguages maps an interpreter token found on a script's first
// line (after the final path segment of the interpreter, e.g. "python3"
// out of "/usr/bin/env python3") to a canonical language tag.
var shebangLanguages = map[string]types.Language{
	"python":  types.LangPython,
	"python2": types.LangPython,
	"python3": types.LangPython,
	"node":    types.LangJavaScript,
	"nodejs":  types.LangJavaScript,
}

var shebangPattern = regexp.MustCompile(`^#!\s*(\S+)(?:\s+(\S+))?`)

// ExtensionLanguage looks up the canonical language for path's extension.
func ExtensionLanguage(path string) (types.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extensionLanguages[ext]
	return lang, ok
}

// shebangLanguage inspects content's first line for a "#!" interpreter
// directive and maps the interpreter (or its first argument, for "env
// <interpreter>" forms) to a canonical language tag.
func shebangLanguage(content string) (types.Language, bool) {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	m := shebangPattern.FindStringSubmatch(firstLine)
	if m == nil {
		return types.LangUnknown, false
	}
	candidates := []string{m[1]}
	if m[2] != "" {
		candidates = append(candidates, m[2])
	}
	for _, c := range candidates {
		name := filepath.Base(c)
		if lang, ok := shebangLanguages[name]; ok {
			return lang, true
		}
	}
	return types.LangUnknown, false
}

var (
	markdownHeaderSniff = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	logLineSniff        = regexp.MustCompile(`\b(ERROR|WARN|WARNING|INFO|DEBUG|TRACE|FATAL)\b`)
)

// contentSniffLanguage guesses markdown or log from structural content
// patterns when extension and shebang detection both fail, defaulting to
// plain text.
func contentSniffLanguage(content string) types.Language {
	if markdownHeaderSniff.MatchString(content) {
		return types.LangMarkdown
	}
	if logLineSniff.MatchString(content) {
		return types.LangLog
	}
	return types.LangText
}

// DetectLanguage resolves the canonical language for a file following the
// fixed precedence: an explicit caller-supplied language, then extension,
// then a shebang line, then a content sniff.
func DetectLanguage(path, content string, explicit types.Language) types.Language {
	if explicit != "" && explicit != types.LangUnknown {
		return explicit
	}
	if lang, ok := ExtensionLanguage(path); ok {
		return lang
	}
	if lang, ok := shebangLanguage(content); ok {
		return lang
	}
	return contentSniffLanguage(content)
}

// isCodeLanguage reports whether lang is one of the grammar-backed tags
// rather than a fallback-tier tag (text, markdown, log, unknown).
func isCodeLanguage(lang types.Language) bool {
	switch lang {
	case types.LangText, types.LangMarkdown, types.LangLog, types.LangUnknown, "":
		return false
	default:
		return true
	}
}
