// Package relationship infers edges between chunks (§4.10): parent/child
// structure already recorded on the chunk, calls/references resolved by
// matching recorded dependency and reference names against the set of
// chunk names, and imports walked directly from the parse tree. Inference
// is pure — no external symbol resolution is attempted.
package relationship

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/types"
)

// Tracker accumulates ChunkRelationships for one chunk set.
type Tracker struct{}

// NewTracker builds a Tracker. It carries no state of its own; every
// method operates on the chunk set or parse tree passed to it.
func NewTracker() *Tracker { return &Tracker{} }

// Track emits PARENT_CHILD edges from ParentChunkID and CALLS/REFERENCES
// edges by matching each chunk's Dependencies/References against the
// declaration names of every chunk in the set.
func (t *Tracker) Track(chunks []*types.Chunk) []types.ChunkRelationship {
	names := indexByName(chunks)

	var out []types.ChunkRelationship
	for _, c := range chunks {
		if c.ParentChunkID != "" {
			out = append(out, types.ChunkRelationship{
				SourceID: c.ParentChunkID,
				TargetID: c.ChunkID,
				Kind:     types.RelParentChild,
			})
		}
		for _, dep := range c.Dependencies {
			if targetID, ok := names[dep]; ok && targetID != c.ChunkID {
				out = append(out, types.ChunkRelationship{
					SourceID: c.ChunkID,
					TargetID: targetID,
					Kind:     types.RelCalls,
					Metadata: map[string]any{"name": dep},
				})
			}
		}
		for _, ref := range c.References {
			if targetID, ok := names[ref]; ok && targetID != c.ChunkID {
				out = append(out, types.ChunkRelationship{
					SourceID: c.ChunkID,
					TargetID: targetID,
					Kind:     types.RelReferences,
					Metadata: map[string]any{"name": ref},
				})
			}
		}
	}
	return out
}

// indexByName maps every chunk's declaration name to its chunk id, so
// dependency/reference names recorded elsewhere can be resolved to a
// concrete target chunk without any cross-file lookup.
func indexByName(chunks []*types.Chunk) map[string]string {
	names := map[string]string{}
	for _, c := range chunks {
		if name := DeclarationName(c); name != "" {
			names[name] = c.ChunkID
		}
	}
	return names
}

var declarationHeadPattern = regexp.MustCompile(
	`^\s*(?:export\s+)?(?:public\s+|private\s+|protected\s+|static\s+|async\s+|pub\s+)*` +
		`(?:func|function|def|fn|class|struct|interface|trait|impl|type|enum)\s+` +
		`(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`,
)

// DeclarationName returns the name a chunk should be matched against when
// resolving calls/references: ParentContext when the strategy recorded
// one, otherwise a regex match over the chunk's opening line against the
// common function/class/struct/interface declaration shapes.
func DeclarationName(c *types.Chunk) string {
	if c.ParentContext != "" {
		return c.ParentContext
	}
	// Declarations can wrap arguments across lines before the opening
	// brace; scanning the first few lines covers that without matching
	// too far into the body.
	lines := strings.SplitN(c.Content, "\n", 6)
	if len(lines) == 6 {
		lines = lines[:5] // the sixth element holds the rest of the chunk
	}
	head := strings.Join(lines, "\n")
	m := declarationHeadPattern.FindStringSubmatch(head)
	if m == nil {
		return ""
	}
	return m[1]
}

// importNodeKinds lists the tree-sitter node kinds that introduce an
// import/use declaration for the languages this module ships grammars for.
// C++ and Zig have no entry, so ExtractImports returns no edges for them.
var importNodeKinds = map[types.Language][]string{
	types.LangGo:         {"import_spec"},
	types.LangPython:     {"import_statement", "import_from_statement"},
	types.LangJavaScript: {"import_statement"},
	types.LangTypeScript: {"import_statement"},
	types.LangJava:       {"import_declaration"},
	types.LangCSharp:     {"using_directive"},
	types.LangRust:       {"use_declaration"},
	types.LangPHP:        {"namespace_use_declaration"},
}

// ExtractImports walks root for language's import node kinds and emits one
// IMPORTS edge per import statement found (per import spec in Go, so a
// grouped import yields one edge per path), from chunkID to the literal
// imported path/module text (no resolution against other chunks).
func ExtractImports(root *tree_sitter.Node, source []byte, language types.Language, chunkID string) []types.ChunkRelationship {
	kinds := importNodeKinds[language]
	if len(kinds) == 0 || root == nil {
		return nil
	}
	wanted := map[string]bool{}
	for _, k := range kinds {
		wanted[k] = true
	}

	var out []types.ChunkRelationship
	var walk func(node *tree_sitter.Node)
	walk = func(node *tree_sitter.Node) {
		if node == nil {
			return
		}
		if wanted[node.Kind()] {
			if path := importPathText(node, source); path != "" {
				out = append(out, types.ChunkRelationship{
					SourceID: chunkID,
					TargetID: path,
					Kind:     types.RelImports,
					Metadata: map[string]any{"node_type": node.Kind()},
				})
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return out
}

// importPathText finds the string literal or dotted module path inside an
// import node and returns it with any surrounding quotes trimmed.
func importPathText(node *tree_sitter.Node, source []byte) string {
	var found string
	var search func(n *tree_sitter.Node)
	search = func(n *tree_sitter.Node) {
		if n == nil || found != "" {
			return
		}
		switch n.Kind() {
		case "interpreted_string_literal", "string_literal", "string", "raw_string_literal":
			found = strings.Trim(string(source[n.StartByte():n.EndByte()]), "\"'`")
			return
		case "dotted_name", "scoped_identifier", "qualified_identifier":
			found = string(source[n.StartByte():n.EndByte()])
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			search(n.Child(i))
		}
	}
	search(node)
	return found
}
