package export

import (
	"io"

	gojson "github.com/goccy/go-json"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// chunkRecord and relationshipRecord give every chunk/relationship field a
// fixed position in the emitted object, independent of Go map iteration
// order, matching the "stable field ordering" expectation.
type chunkRecord struct {
	ChunkID       string         `json:"chunk_id"`
	Language      string         `json:"language"`
	FilePath      string         `json:"file_path"`
	NodeType      string         `json:"node_type"`
	StartLine     int            `json:"start_line"`
	EndLine       int            `json:"end_line"`
	ByteStart     int            `json:"byte_start"`
	ByteEnd       int            `json:"byte_end"`
	ParentContext string         `json:"parent_context"`
	Content       string         `json:"content"`
	ParentChunkID string         `json:"parent_chunk_id"`
	References    []string       `json:"references"`
	Dependencies  []string       `json:"dependencies"`
	Metadata      map[string]any `json:"metadata"`
}

func toChunkRecord(c *types.Chunk) chunkRecord {
	refs := c.References
	if refs == nil {
		refs = []string{}
	}
	deps := c.Dependencies
	if deps == nil {
		deps = []string{}
	}
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return chunkRecord{
		ChunkID:       c.ChunkID,
		Language:      string(c.Language),
		FilePath:      c.FilePath,
		NodeType:      c.NodeType,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		ByteStart:     c.ByteStart,
		ByteEnd:       c.ByteEnd,
		ParentContext: c.ParentContext,
		Content:       c.Content,
		ParentChunkID: c.ParentChunkID,
		References:    refs,
		Dependencies:  deps,
		Metadata:      meta,
	}
}

type relationshipRecord struct {
	SourceChunkID    string         `json:"source_chunk_id"`
	TargetChunkID    string         `json:"target_chunk_id"`
	RelationshipType string         `json:"relationship_type"`
	Metadata         map[string]any `json:"metadata"`
}

func toRelationshipRecord(r types.ChunkRelationship) relationshipRecord {
	md := r.Metadata
	if md == nil {
		md = map[string]any{}
	}
	return relationshipRecord{
		SourceChunkID:    r.SourceID,
		TargetChunkID:    r.TargetID,
		RelationshipType: string(r.Kind),
		Metadata:         md,
	}
}

type metadataRecord struct {
	Format            string         `json:"format"`
	Version           string         `json:"version"`
	CreatedAt         string         `json:"created_at"`
	SourceFiles       []string       `json:"source_files"`
	ChunkCount        int            `json:"chunk_count"`
	RelationshipCount int            `json:"relationship_count"`
	Options           map[string]any `json:"options"`
}

func toMetadataRecord(m Metadata) metadataRecord {
	sourceFiles := m.SourceFiles
	if sourceFiles == nil {
		sourceFiles = []string{}
	}
	options := m.Options
	if options == nil {
		options = map[string]any{}
	}
	return metadataRecord{
		Format:            string(m.Format),
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		SourceFiles:       sourceFiles,
		ChunkCount:        m.ChunkCount,
		RelationshipCount: m.RelationshipCount,
		Options:           options,
	}
}

// JSONExporter writes the whole {metadata, chunks, relationships} document
// in one call. Streaming collects the iterators into slices first: the
// format needs the full array to close its brackets, so true incremental
// writing belongs to JSONLExporter instead.
type JSONExporter struct {
	Indent string // "" for compact, e.g. "  " for two-space indent
}

func NewJSONExporter() *JSONExporter { return &JSONExporter{Indent: "  "} }

func (e *JSONExporter) SupportsFormat(f Format) bool { return f == FormatJSON }

type jsonDocument struct {
	Metadata      metadataRecord       `json:"metadata"`
	Chunks        []chunkRecord        `json:"chunks"`
	Relationships []relationshipRecord `json:"relationships"`
}

func (e *JSONExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer, meta Metadata) error {
	doc := jsonDocument{
		Metadata:      toMetadataRecord(meta),
		Chunks:        make([]chunkRecord, len(chunks)),
		Relationships: make([]relationshipRecord, len(rels)),
	}
	for i, c := range chunks {
		doc.Chunks[i] = toChunkRecord(c)
	}
	for i, r := range rels {
		doc.Relationships[i] = toRelationshipRecord(r)
	}

	enc := gojson.NewEncoder(w)
	if e.Indent != "" {
		enc.SetIndent("", e.Indent)
	}
	if err := enc.Encode(doc); err != nil {
		return chunkererrors.NewExportIOError(string(FormatJSON), "", err)
	}
	return nil
}

func (e *JSONExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer, meta Metadata) error {
	var chunkList []*types.Chunk
	chunks(func(c *types.Chunk) bool {
		chunkList = append(chunkList, c)
		return true
	})
	var relList []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool {
		relList = append(relList, r)
		return true
	})
	meta.ChunkCount = len(chunkList)
	meta.RelationshipCount = len(relList)
	return e.Export(chunkList, relList, w, meta)
}

// JSONLExporter writes one JSON object per line: a metadata record first,
// then one record per chunk, then one per relationship. This is the format
// capable of true incremental export, per §4.11's streaming contract.
type JSONLExporter struct{}

func NewJSONLExporter() *JSONLExporter { return &JSONLExporter{} }

func (e *JSONLExporter) SupportsFormat(f Format) bool { return f == FormatJSONL }

type jsonlRecord struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func writeJSONLRecord(w io.Writer, recordType string, data any) error {
	line, err := gojson.Marshal(jsonlRecord{Type: recordType, Data: data})
	if err != nil {
		return chunkererrors.NewExportIOError(string(FormatJSONL), "", err)
	}
	if _, err := w.Write(line); err != nil {
		return chunkererrors.NewExportIOError(string(FormatJSONL), "", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return chunkererrors.NewExportIOError(string(FormatJSONL), "", err)
	}
	return nil
}

func (e *JSONLExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer, meta Metadata) error {
	return e.ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(rels), w, meta)
}

func (e *JSONLExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer, meta Metadata) error {
	if err := writeJSONLRecord(w, "metadata", toMetadataRecord(meta)); err != nil {
		return err
	}

	var streamErr error
	chunks(func(c *types.Chunk) bool {
		if err := writeJSONLRecord(w, "chunk", toChunkRecord(c)); err != nil {
			streamErr = err
			return false
		}
		return true
	})
	if streamErr != nil {
		return streamErr
	}

	rels(func(r types.ChunkRelationship) bool {
		if err := writeJSONLRecord(w, "relationship", toRelationshipRecord(r)); err != nil {
			streamErr = err
			return false
		}
		return true
	})
	return streamErr
}
