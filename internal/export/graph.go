package export

import (
	"fmt"
	"io"
	"strings"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// chunkAttributes returns the node-attribute name/value pairs available on
// a chunk, filtered to the caller's requested attribute set when non-empty.
func chunkAttributes(c *types.Chunk, want []string) [][2]string {
	all := [][2]string{
		{"language", string(c.Language)},
		{"file_path", c.FilePath},
		{"node_type", c.NodeType},
		{"start_line", fmt.Sprint(c.StartLine)},
		{"end_line", fmt.Sprint(c.EndLine)},
		{"byte_start", fmt.Sprint(c.ByteStart)},
		{"byte_end", fmt.Sprint(c.ByteEnd)},
		{"parent_context", c.ParentContext},
	}
	for k, v := range c.Metadata {
		all = append(all, [2]string{"meta_" + k, fmt.Sprint(v)})
	}
	if len(want) == 0 {
		return all
	}
	wanted := map[string]bool{}
	for _, a := range want {
		wanted[a] = true
	}
	var filtered [][2]string
	for _, kv := range all {
		if wanted[kv[0]] {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}

func relAttributes(r types.ChunkRelationship, want []string) [][2]string {
	var all [][2]string
	for k, v := range r.Metadata {
		all = append(all, [2]string{k, fmt.Sprint(v)})
	}
	if len(want) == 0 {
		return all
	}
	wanted := map[string]bool{}
	for _, a := range want {
		wanted[a] = true
	}
	var filtered [][2]string
	for _, kv := range all {
		if wanted[kv[0]] {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// GraphMLExporter renders chunks as <node> elements and relationships as
// <edge> elements in a single GraphML document, attribute inclusion
// controlled by Options.NodeAttributes/EdgeAttributes.
type GraphMLExporter struct {
	Options
}

func NewGraphMLExporter(opts Options) *GraphMLExporter { return &GraphMLExporter{Options: opts} }

func (e *GraphMLExporter) SupportsFormat(f Format) bool { return f == FormatGraphML }

func (e *GraphMLExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<graphml xmlns="http://graphml.graphdrawing.org/xmlns">` + "\n")
	b.WriteString(`  <graph id="chunks" edgedefault="directed">` + "\n")

	for _, c := range chunks {
		fmt.Fprintf(&b, `    <node id=%q>`+"\n", c.ChunkID)
		for _, kv := range chunkAttributes(c, e.NodeAttributes) {
			fmt.Fprintf(&b, `      <data key=%q>%s</data>`+"\n", kv[0], xmlEscape(kv[1]))
		}
		b.WriteString("    </node>\n")
	}

	for i, r := range rels {
		fmt.Fprintf(&b, `    <edge id="e%d" source=%q target=%q>`+"\n", i, r.SourceID, r.TargetID)
		fmt.Fprintf(&b, `      <data key="relationship_type">%s</data>`+"\n", xmlEscape(string(r.Kind)))
		for _, kv := range relAttributes(r, e.EdgeAttributes) {
			fmt.Fprintf(&b, `      <data key=%q>%s</data>`+"\n", kv[0], xmlEscape(kv[1]))
		}
		b.WriteString("    </edge>\n")
	}

	b.WriteString("  </graph>\n</graphml>\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return chunkererrors.NewExportIOError(string(FormatGraphML), "", err)
	}
	return nil
}

func (e *GraphMLExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer) error {
	var chunkList []*types.Chunk
	chunks(func(c *types.Chunk) bool { chunkList = append(chunkList, c); return true })
	var relList []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool { relList = append(relList, r); return true })
	return e.Export(chunkList, relList, w)
}

// DOTExporter renders the same chunk/relationship graph as Graphviz DOT.
type DOTExporter struct {
	Options
}

func NewDOTExporter(opts Options) *DOTExporter { return &DOTExporter{Options: opts} }

func (e *DOTExporter) SupportsFormat(f Format) bool { return f == FormatDOT }

func dotEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (e *DOTExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph chunks {\n")

	for _, c := range chunks {
		attrs := chunkAttributes(c, e.NodeAttributes)
		var parts []string
		parts = append(parts, fmt.Sprintf(`label="%s"`, dotEscape(c.NodeType)))
		for _, kv := range attrs {
			parts = append(parts, fmt.Sprintf(`%s="%s"`, kv[0], dotEscape(kv[1])))
		}
		fmt.Fprintf(&b, "  %q [%s];\n", c.ChunkID, strings.Join(parts, ", "))
	}

	for _, r := range rels {
		parts := []string{fmt.Sprintf(`label="%s"`, dotEscape(string(r.Kind)))}
		for _, kv := range relAttributes(r, e.EdgeAttributes) {
			parts = append(parts, fmt.Sprintf(`%s="%s"`, kv[0], dotEscape(kv[1])))
		}
		fmt.Fprintf(&b, "  %q -> %q [%s];\n", r.SourceID, r.TargetID, strings.Join(parts, ", "))
	}

	b.WriteString("}\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return chunkererrors.NewExportIOError(string(FormatDOT), "", err)
	}
	return nil
}

func (e *DOTExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer) error {
	var chunkList []*types.Chunk
	chunks(func(c *types.Chunk) bool { chunkList = append(chunkList, c); return true })
	var relList []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool { relList = append(relList, r); return true })
	return e.Export(chunkList, relList, w)
}
