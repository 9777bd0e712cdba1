// Package export implements the structured export contract (§4.11): one
// coordinating set of types shared by every back-end, and a streaming form
// that accepts chunk/relationship iterators. The JSONL, PostgreSQL and
// SQLite back-ends write as the iterators yield (the SQL ones in batches of
// Options.BatchSize); the JSON, GraphML, DOT and Parquet back-ends collect
// the iterators into slices first, and Neo4j collects the relationships so
// it can group them by type.
package export

import (
	"github.com/google/uuid"

	"github.com/standardbeagle/chunker/internal/types"
)

// Format names one of the export back-ends.
type Format string

const (
	FormatJSON       Format = "json"
	FormatJSONL      Format = "jsonl"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgresql"
	FormatNeo4j      Format = "neo4j"
	FormatGraphML    Format = "graphml"
	FormatDOT        Format = "dot"
	FormatParquet    Format = "parquet"
)

// DefaultBatchSize is the flush threshold streaming exporters use absent an
// explicit BatchSize in Options.
const DefaultBatchSize = 1000

// Metadata describes one export run. CreatedAt is supplied by the caller
// rather than computed here. NewMetadata assigns a fresh random RunID, which
// the SQL back-ends record and the JSON/JSONL metadata records omit.
type Metadata struct {
	RunID             string
	Format            Format
	Version           string
	CreatedAt         string
	SourceFiles       []string
	ChunkCount        int
	RelationshipCount int
	Options           map[string]any
}

// NewMetadata builds a Metadata value for a non-streaming export, deriving
// SourceFiles, ChunkCount and RelationshipCount from the given slices.
func NewMetadata(format Format, createdAt string, chunks []*types.Chunk, rels []types.ChunkRelationship, options map[string]any) Metadata {
	seen := map[string]bool{}
	var sourceFiles []string
	for _, c := range chunks {
		if !seen[c.FilePath] {
			seen[c.FilePath] = true
			sourceFiles = append(sourceFiles, c.FilePath)
		}
	}
	return Metadata{
		RunID:             uuid.NewString(),
		Format:            format,
		Version:           "1.0",
		CreatedAt:         createdAt,
		SourceFiles:       sourceFiles,
		ChunkCount:        len(chunks),
		RelationshipCount: len(rels),
		Options:           options,
	}
}

// Options configures batch size and back-end specific table/label names.
// Zero values fall back to each exporter's defaults.
type Options struct {
	BatchSize int

	ChunksTable        string
	RelationshipsTable string
	MetadataTable      string
	Indexes            []string

	NodeLabel      string
	IncludeContent bool
	NodeAttributes []string
	EdgeAttributes []string

	Schema string // PostgreSQL schema name
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) chunksTable() string {
	if o.ChunksTable != "" {
		return o.ChunksTable
	}
	return "chunks"
}

func (o Options) relationshipsTable() string {
	if o.RelationshipsTable != "" {
		return o.RelationshipsTable
	}
	return "relationships"
}

func (o Options) metadataTable() string {
	if o.MetadataTable != "" {
		return o.MetadataTable
	}
	return "export_metadata"
}

func (o Options) indexes() []string {
	if len(o.Indexes) > 0 {
		return o.Indexes
	}
	return []string{"chunk_id", "file_path", "node_type", "language"}
}

func (o Options) nodeLabel() string {
	if o.NodeLabel != "" {
		return o.NodeLabel
	}
	return "CodeChunk"
}

// ChunkSeq and RelationshipSeq are the iterator forms the streaming
// exporters consume. They are plain function types rather than iter.Seq so
// callers without go1.23's range-over-func support can still implement
// them with a simple loop-and-yield.
type ChunkSeq func(yield func(*types.Chunk) bool)

type RelationshipSeq func(yield func(types.ChunkRelationship) bool)

// SliceChunkSeq adapts a slice to a ChunkSeq for tests and small inputs.
func SliceChunkSeq(chunks []*types.Chunk) ChunkSeq {
	return func(yield func(*types.Chunk) bool) {
		for _, c := range chunks {
			if !yield(c) {
				return
			}
		}
	}
}

// SliceRelationshipSeq adapts a slice to a RelationshipSeq.
func SliceRelationshipSeq(rels []types.ChunkRelationship) RelationshipSeq {
	return func(yield func(types.ChunkRelationship) bool) {
		for _, r := range rels {
			if !yield(r) {
				return
			}
		}
	}
}
