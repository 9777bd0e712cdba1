package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// Neo4jExporter writes Cypher statements rather than opening a driver
// connection: a constraint/index header, batched UNWIND...MERGE node
// creation, then one UNWIND...MERGE query per relationship type per batch.
type Neo4jExporter struct {
	Options
}

func NewNeo4jExporter(opts Options) *Neo4jExporter {
	if opts.NodeLabel == "" {
		opts.NodeLabel = "CodeChunk"
	}
	return &Neo4jExporter{Options: opts}
}

func (e *Neo4jExporter) SupportsFormat(f Format) bool { return f == FormatNeo4j }

func (e *Neo4jExporter) header() string {
	label := e.nodeLabel()
	return fmt.Sprintf(
		"// structured export (neo4j)\n\n"+
			"CREATE CONSTRAINT IF NOT EXISTS FOR (c:%s) REQUIRE c.chunk_id IS UNIQUE;\n"+
			"CREATE INDEX IF NOT EXISTS FOR (c:%s) ON (c.file_path);\n"+
			"CREATE INDEX IF NOT EXISTS FOR (c:%s) ON (c.node_type);\n"+
			"CREATE INDEX IF NOT EXISTS FOR (c:%s) ON (c.language);\n\n",
		label, label, label, label,
	)
}

type neo4jNode struct {
	ChunkID       string         `json:"chunk_id"`
	Language      string         `json:"language"`
	FilePath      string         `json:"file_path"`
	NodeType      string         `json:"node_type"`
	StartLine     int            `json:"start_line"`
	EndLine       int            `json:"end_line"`
	ByteStart     int            `json:"byte_start"`
	ByteEnd       int            `json:"byte_end"`
	ParentContext string         `json:"parent_context"`
	ParentChunkID string         `json:"parent_chunk_id"`
	References    []string       `json:"references"`
	Dependencies  []string       `json:"dependencies"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Content       string         `json:"content,omitempty"`
}

func (e *Neo4jExporter) nodeBatch(batch []*types.Chunk) (string, error) {
	label := e.nodeLabel()
	nodes := make([]neo4jNode, len(batch))
	for i, c := range batch {
		refs := c.References
		if refs == nil {
			refs = []string{}
		}
		deps := c.Dependencies
		if deps == nil {
			deps = []string{}
		}
		n := neo4jNode{
			ChunkID:       c.ChunkID,
			Language:      string(c.Language),
			FilePath:      c.FilePath,
			NodeType:      c.NodeType,
			StartLine:     c.StartLine,
			EndLine:       c.EndLine,
			ByteStart:     c.ByteStart,
			ByteEnd:       c.ByteEnd,
			ParentContext: c.ParentContext,
			ParentChunkID: c.ParentChunkID,
			References:    refs,
			Dependencies:  deps,
			Metadata:      c.Metadata,
		}
		if e.IncludeContent {
			n.Content = c.Content
		}
		nodes[i] = n
	}
	payload, err := gojson.Marshal(nodes)
	if err != nil {
		return "", err
	}

	op := "MERGE"
	var b strings.Builder
	fmt.Fprintf(&b, "UNWIND %s AS chunk\n", payload)
	fmt.Fprintf(&b, "%s (c:%s {chunk_id: chunk.chunk_id})\n", op, label)
	b.WriteString("SET c.language = chunk.language,\n")
	b.WriteString("    c.file_path = chunk.file_path,\n")
	b.WriteString("    c.node_type = chunk.node_type,\n")
	b.WriteString("    c.start_line = chunk.start_line,\n")
	b.WriteString("    c.end_line = chunk.end_line,\n")
	b.WriteString("    c.byte_start = chunk.byte_start,\n")
	b.WriteString("    c.byte_end = chunk.byte_end,\n")
	b.WriteString("    c.parent_context = chunk.parent_context,\n")
	b.WriteString("    c.parent_chunk_id = chunk.parent_chunk_id,\n")
	b.WriteString("    c.references = chunk.references,\n")
	b.WriteString("    c.dependencies = chunk.dependencies,\n")
	b.WriteString("    c.metadata = CASE WHEN chunk.metadata IS NOT NULL THEN chunk.metadata ELSE null END")
	if e.IncludeContent {
		b.WriteString(",\n    c.content = chunk.content\n")
	} else {
		b.WriteString(",\n    c.has_content = true\n")
	}
	b.WriteString(";\n")
	return b.String(), nil
}

type neo4jRel struct {
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e *Neo4jExporter) relationshipBatch(relType string, batch []types.ChunkRelationship) (string, error) {
	label := e.nodeLabel()
	neo4jType := strings.ToUpper(relType)

	rels := make([]neo4jRel, len(batch))
	hasMetadata := false
	for i, r := range batch {
		rels[i] = neo4jRel{SourceID: r.SourceID, TargetID: r.TargetID, Metadata: r.Metadata}
		if r.Metadata != nil {
			hasMetadata = true
		}
	}
	payload, err := gojson.Marshal(rels)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s relationships\n", relType)
	fmt.Fprintf(&b, "UNWIND %s AS rel\n", payload)
	fmt.Fprintf(&b, "MATCH (source:%s {chunk_id: rel.source_id})\n", label)
	fmt.Fprintf(&b, "MATCH (target:%s {chunk_id: rel.target_id})\n", label)
	fmt.Fprintf(&b, "MERGE (source)-[r:%s]->(target)\n", neo4jType)
	if hasMetadata {
		b.WriteString("SET r.metadata = CASE WHEN rel.metadata IS NOT NULL THEN rel.metadata ELSE null END\n")
	}
	b.WriteString(";\n")
	return b.String(), nil
}

func groupByRelationshipType(rels []types.ChunkRelationship) ([]string, map[string][]types.ChunkRelationship) {
	grouped := map[string][]types.ChunkRelationship{}
	var order []string
	for _, r := range rels {
		key := string(r.Kind)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}
	sort.Strings(order)
	return order, grouped
}

func (e *Neo4jExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer, meta Metadata) error {
	return e.ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(rels), w)
}

// ExportStreaming writes the header, then one UNWIND...MERGE node query per
// batch of chunks, then groups relationships by kind and emits one
// UNWIND...MERGE query per type per batch.
func (e *Neo4jExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer) error {
	write := func(s string) error {
		if _, err := io.WriteString(w, s); err != nil {
			return chunkererrors.NewExportIOError(string(FormatNeo4j), "", err)
		}
		return nil
	}

	if err := write(e.header()); err != nil {
		return err
	}
	if err := write("// code chunk nodes\n"); err != nil {
		return err
	}

	batchSize := e.batchSize()
	var chunkBatch []*types.Chunk
	var opErr error
	chunks(func(c *types.Chunk) bool {
		chunkBatch = append(chunkBatch, c)
		if len(chunkBatch) >= batchSize {
			query, err := e.nodeBatch(chunkBatch)
			if err != nil {
				opErr = err
				return false
			}
			if opErr = write(query + "\n"); opErr != nil {
				return false
			}
			chunkBatch = chunkBatch[:0]
		}
		return true
	})
	if opErr == nil && len(chunkBatch) > 0 {
		query, err := e.nodeBatch(chunkBatch)
		if err != nil {
			opErr = err
		} else {
			opErr = write(query + "\n")
		}
	}
	if opErr != nil {
		return opErr
	}

	var relList []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool {
		relList = append(relList, r)
		return true
	})

	if err := write("// relationships\n"); err != nil {
		return err
	}
	order, grouped := groupByRelationshipType(relList)
	for _, relType := range order {
		typed := grouped[relType]
		for i := 0; i < len(typed); i += batchSize {
			end := min(i+batchSize, len(typed))
			query, err := e.relationshipBatch(relType, typed[i:end])
			if err != nil {
				return err
			}
			if err := write(query + "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
