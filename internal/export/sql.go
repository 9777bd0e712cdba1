package export

import (
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// PostgresExporter emits a text SQL script (BEGIN; ...; COMMIT;) rather
// than opening a live connection. It uses the same tables and Options as
// SQLiteExporter, but renders every value into the script as escaped SQL
// text (SQLiteExporter binds parameters through database/sql), in
// PostgreSQL's JSONB/GIN-index dialect.
type PostgresExporter struct {
	Options
}

func NewPostgresExporter(opts Options) *PostgresExporter {
	return &PostgresExporter{Options: opts}
}

func (e *PostgresExporter) SupportsFormat(f Format) bool { return f == FormatPostgreSQL }

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (e *PostgresExporter) schemaPrefix() string {
	if e.Schema == "" || e.Schema == "public" {
		return ""
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;\nSET search_path TO %s;\n\n", e.Schema, e.Schema)
}

func (e *PostgresExporter) createTables() string {
	chunksTable := e.chunksTable()
	relsTable := e.relationshipsTable()
	metaTable := e.metadataTable()

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", chunksTable)
	b.WriteString("    chunk_id VARCHAR(64) PRIMARY KEY,\n")
	b.WriteString("    language VARCHAR(32) NOT NULL,\n")
	b.WriteString("    file_path TEXT NOT NULL,\n")
	b.WriteString("    node_type VARCHAR(64) NOT NULL,\n")
	b.WriteString("    start_line INTEGER NOT NULL,\n")
	b.WriteString("    end_line INTEGER NOT NULL,\n")
	b.WriteString("    byte_start INTEGER NOT NULL,\n")
	b.WriteString("    byte_end INTEGER NOT NULL,\n")
	b.WriteString("    parent_context TEXT,\n")
	b.WriteString("    content TEXT NOT NULL,\n")
	b.WriteString("    parent_chunk_id VARCHAR(64),\n")
	b.WriteString("    chunk_references JSONB DEFAULT '[]'::jsonb,\n")
	b.WriteString("    chunk_dependencies JSONB DEFAULT '[]'::jsonb,\n")
	b.WriteString("    chunk_metadata JSONB DEFAULT '{}'::jsonb,\n")
	b.WriteString("    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n")
	b.WriteString(");\n\n")

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", relsTable)
	b.WriteString("    id SERIAL PRIMARY KEY,\n")
	b.WriteString("    source_chunk_id VARCHAR(64) NOT NULL,\n")
	b.WriteString("    target_chunk_id VARCHAR(64) NOT NULL,\n")
	b.WriteString("    relationship_type VARCHAR(32) NOT NULL,\n")
	b.WriteString("    metadata JSONB,\n")
	b.WriteString("    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,\n")
	fmt.Fprintf(&b, "    FOREIGN KEY (source_chunk_id) REFERENCES %s(chunk_id),\n", chunksTable)
	fmt.Fprintf(&b, "    FOREIGN KEY (target_chunk_id) REFERENCES %s(chunk_id)\n", chunksTable)
	b.WriteString(");\n\n")

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", metaTable)
	b.WriteString("    id SERIAL PRIMARY KEY,\n")
	b.WriteString("    run_id VARCHAR(36),\n")
	b.WriteString("    format VARCHAR(32) NOT NULL,\n")
	b.WriteString("    version VARCHAR(16) NOT NULL,\n")
	b.WriteString("    created_at TIMESTAMP NOT NULL,\n")
	b.WriteString("    source_files JSONB NOT NULL,\n")
	b.WriteString("    chunk_count INTEGER NOT NULL,\n")
	b.WriteString("    relationship_count INTEGER NOT NULL,\n")
	b.WriteString("    options JSONB,\n")
	b.WriteString("    export_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n")
	b.WriteString(");\n")
	return b.String()
}

func (e *PostgresExporter) insertMetadata(meta Metadata) string {
	sourceFiles, _ := gojson.Marshal(meta.SourceFiles)
	options, _ := gojson.Marshal(meta.Options)
	return fmt.Sprintf(
		"INSERT INTO %s\n(run_id, format, version, created_at, source_files, chunk_count, relationship_count, options)\nVALUES (\n    '%s',\n    '%s',\n    '%s',\n    '%s',\n    '%s'::jsonb,\n    %d,\n    %d,\n    '%s'::jsonb\n);\n",
		e.metadataTable(), sqlEscape(meta.RunID), sqlEscape(string(meta.Format)), sqlEscape(meta.Version),
		sqlEscape(meta.CreatedAt), sqlEscape(string(sourceFiles)), meta.ChunkCount, meta.RelationshipCount,
		sqlEscape(string(options)),
	)
}

func (e *PostgresExporter) insertChunksBatch(batch []*types.Chunk) string {
	chunksTable := e.chunksTable()
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s\n", chunksTable)
	b.WriteString("(chunk_id, language, file_path, node_type, start_line, end_line,\n")
	b.WriteString(" byte_start, byte_end, parent_context, content, parent_chunk_id,\n")
	b.WriteString(" chunk_references, chunk_dependencies, chunk_metadata)\nVALUES\n")

	values := make([]string, len(batch))
	for i, c := range batch {
		refs, _ := gojson.Marshal(c.References)
		deps, _ := gojson.Marshal(c.Dependencies)
		metadata, _ := gojson.Marshal(c.Metadata)
		parentChunkID := "NULL"
		if c.ParentChunkID != "" {
			parentChunkID = fmt.Sprintf("'%s'", sqlEscape(c.ParentChunkID))
		}
		values[i] = fmt.Sprintf(
			"('%s', '%s', '%s', '%s', %d, %d, %d, %d, '%s', '%s', %s, '%s'::jsonb, '%s'::jsonb, '%s'::jsonb)",
			sqlEscape(c.ChunkID), sqlEscape(string(c.Language)), sqlEscape(c.FilePath), sqlEscape(c.NodeType),
			c.StartLine, c.EndLine, c.ByteStart, c.ByteEnd,
			sqlEscape(c.ParentContext), sqlEscape(c.Content), parentChunkID,
			sqlEscape(string(refs)), sqlEscape(string(deps)), sqlEscape(string(metadata)),
		)
	}
	b.WriteString(strings.Join(values, ",\n"))
	b.WriteString("\nON CONFLICT (chunk_id) DO UPDATE SET\n")
	b.WriteString("    content = EXCLUDED.content,\n")
	b.WriteString("    chunk_references = EXCLUDED.chunk_references,\n")
	b.WriteString("    chunk_dependencies = EXCLUDED.chunk_dependencies,\n")
	b.WriteString("    chunk_metadata = EXCLUDED.chunk_metadata;\n")
	return b.String()
}

func (e *PostgresExporter) insertRelationshipsBatch(batch []types.ChunkRelationship) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s\n", e.relationshipsTable())
	b.WriteString("(source_chunk_id, target_chunk_id, relationship_type, metadata)\nVALUES\n")

	values := make([]string, len(batch))
	for i, r := range batch {
		metadata := "NULL"
		if r.Metadata != nil {
			md, _ := gojson.Marshal(r.Metadata)
			metadata = fmt.Sprintf("'%s'::jsonb", sqlEscape(string(md)))
		}
		values[i] = fmt.Sprintf("('%s', '%s', '%s', %s)",
			sqlEscape(r.SourceID), sqlEscape(r.TargetID), sqlEscape(string(r.Kind)), metadata)
	}
	b.WriteString(strings.Join(values, ",\n"))
	b.WriteString(";\n")
	return b.String()
}

func (e *PostgresExporter) createIndexes() string {
	chunksTable := e.chunksTable()
	relsTable := e.relationshipsTable()
	indexable := map[string]bool{
		"chunk_id": true, "file_path": true, "node_type": true,
		"language": true, "parent_chunk_id": true,
	}
	var b strings.Builder
	for _, col := range e.indexes() {
		if !indexable[col] {
			continue
		}
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);\n", chunksTable, col, chunksTable, col)
	}
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(source_chunk_id);\n", relsTable, relsTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_target ON %s(target_chunk_id);\n", relsTable, relsTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_type ON %s(relationship_type);\n", relsTable, relsTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_references_gin ON %s USING GIN (chunk_references);\n", chunksTable, chunksTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_dependencies_gin ON %s USING GIN (chunk_dependencies);\n", chunksTable, chunksTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_chunk_metadata_gin ON %s USING GIN (chunk_metadata);\n", chunksTable, chunksTable)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_metadata_gin ON %s USING GIN (metadata);\n", relsTable, relsTable)
	return b.String()
}

func (e *PostgresExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, w io.Writer, meta Metadata) error {
	return e.ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(rels), w, &meta)
}

// ExportStreaming writes the header, schema, batched DML and index
// statements to w, each chunk or relationship batch as soon as it fills;
// w itself is never flushed. meta may be nil.
func (e *PostgresExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, w io.Writer, meta *Metadata) error {
	write := func(s string) error {
		if _, err := io.WriteString(w, s); err != nil {
			return chunkererrors.NewExportIOError(string(FormatPostgreSQL), "", err)
		}
		return nil
	}

	if err := write("-- structured export (postgresql)\n\nBEGIN;\n\n"); err != nil {
		return err
	}
	if err := write(e.schemaPrefix()); err != nil {
		return err
	}
	if err := write(e.createTables() + "\n"); err != nil {
		return err
	}
	if meta != nil {
		if err := write(e.insertMetadata(*meta) + "\n"); err != nil {
			return err
		}
	}

	batchSize := e.batchSize()
	var chunkBatch []*types.Chunk
	var writeErr error
	chunks(func(c *types.Chunk) bool {
		chunkBatch = append(chunkBatch, c)
		if len(chunkBatch) >= batchSize {
			if writeErr = write(e.insertChunksBatch(chunkBatch) + "\n"); writeErr != nil {
				return false
			}
			chunkBatch = chunkBatch[:0]
		}
		return true
	})
	if writeErr == nil && len(chunkBatch) > 0 {
		writeErr = write(e.insertChunksBatch(chunkBatch) + "\n")
	}
	if writeErr != nil {
		return writeErr
	}

	var relBatch []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool {
		relBatch = append(relBatch, r)
		if len(relBatch) >= batchSize {
			if writeErr = write(e.insertRelationshipsBatch(relBatch) + "\n"); writeErr != nil {
				return false
			}
			relBatch = relBatch[:0]
		}
		return true
	})
	if writeErr == nil && len(relBatch) > 0 {
		writeErr = write(e.insertRelationshipsBatch(relBatch) + "\n")
	}
	if writeErr != nil {
		return writeErr
	}

	if err := write(e.createIndexes() + "\n"); err != nil {
		return err
	}
	return write("COMMIT;\n")
}
