package export

import (
	"database/sql"
	"fmt"

	gojson "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// SQLiteExporter writes chunks, relationships, and one export_metadata row
// to a SQLite database file. It takes a file path rather than an io.Writer:
// SQLite needs random-access file I/O, not a stream.
type SQLiteExporter struct {
	Options
}

func NewSQLiteExporter(opts Options) *SQLiteExporter {
	return &SQLiteExporter{Options: opts}
}

func (e *SQLiteExporter) SupportsFormat(f Format) bool { return f == FormatSQLite }

// Export opens dbPath, creates the schema, inserts chunks and relationships
// inside a single transaction, and creates the configured indexes.
func (e *SQLiteExporter) Export(chunks []*types.Chunk, rels []types.ChunkRelationship, dbPath string, meta Metadata) error {
	return e.ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(rels), dbPath, &meta)
}

// ExportStreaming batches chunks and relationships from the given iterators
// into the configured batch size, inserting each batch as it fills, all
// within one transaction. meta may be nil for a pure streaming export with
// no known final counts.
func (e *SQLiteExporter) ExportStreaming(chunks ChunkSeq, rels RelationshipSeq, dbPath string, meta *Metadata) error {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := e.createTables(tx); err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}

	if meta != nil {
		if err := e.insertMetadata(tx, *meta); err != nil {
			return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
		}
	}

	batchSize := e.batchSize()

	var chunkBatch []*types.Chunk
	var insertErr error
	chunks(func(c *types.Chunk) bool {
		chunkBatch = append(chunkBatch, c)
		if len(chunkBatch) >= batchSize {
			if insertErr = e.insertChunks(tx, chunkBatch); insertErr != nil {
				return false
			}
			chunkBatch = chunkBatch[:0]
		}
		return true
	})
	if insertErr == nil && len(chunkBatch) > 0 {
		insertErr = e.insertChunks(tx, chunkBatch)
	}
	if insertErr != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, insertErr)
	}

	var relBatch []types.ChunkRelationship
	rels(func(r types.ChunkRelationship) bool {
		relBatch = append(relBatch, r)
		if len(relBatch) >= batchSize {
			if insertErr = e.insertRelationships(tx, relBatch); insertErr != nil {
				return false
			}
			relBatch = relBatch[:0]
		}
		return true
	})
	if insertErr == nil && len(relBatch) > 0 {
		insertErr = e.insertRelationships(tx, relBatch)
	}
	if insertErr != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, insertErr)
	}

	if err := e.createIndexes(tx); err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}

	if err := tx.Commit(); err != nil {
		return chunkererrors.NewExportIOError(string(FormatSQLite), dbPath, err)
	}
	committed = true
	return nil
}

func (e *SQLiteExporter) createTables(tx *sql.Tx) error {
	chunksTable := e.chunksTable()
	relsTable := e.relationshipsTable()
	metaTable := e.metadataTable()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT PRIMARY KEY,
			language TEXT NOT NULL,
			file_path TEXT NOT NULL,
			node_type TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			byte_start INTEGER NOT NULL,
			byte_end INTEGER NOT NULL,
			parent_context TEXT,
			content TEXT NOT NULL,
			parent_chunk_id TEXT,
			chunk_references TEXT,
			chunk_dependencies TEXT,
			chunk_metadata TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, chunksTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_chunk_id TEXT NOT NULL,
			target_chunk_id TEXT NOT NULL,
			relationship_type TEXT NOT NULL,
			metadata TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (source_chunk_id) REFERENCES %s(chunk_id),
			FOREIGN KEY (target_chunk_id) REFERENCES %s(chunk_id)
		)`, relsTable, chunksTable, chunksTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			format TEXT NOT NULL,
			version TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			source_files TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			relationship_count INTEGER NOT NULL,
			options TEXT,
			export_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, metaTable),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLiteExporter) insertMetadata(tx *sql.Tx, meta Metadata) error {
	sourceFiles, err := gojson.Marshal(meta.SourceFiles)
	if err != nil {
		return err
	}
	options, err := gojson.Marshal(meta.Options)
	if err != nil {
		return err
	}
	_, err = tx.Exec(fmt.Sprintf(
		`INSERT INTO %s (run_id, format, version, created_at, source_files, chunk_count, relationship_count, options)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, e.metadataTable()),
		meta.RunID, string(meta.Format), meta.Version, meta.CreatedAt, string(sourceFiles),
		meta.ChunkCount, meta.RelationshipCount, string(options),
	)
	return err
}

func (e *SQLiteExporter) insertChunks(tx *sql.Tx, chunks []*types.Chunk) error {
	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT OR REPLACE INTO %s
		 (chunk_id, language, file_path, node_type, start_line, end_line,
		  byte_start, byte_end, parent_context, content, parent_chunk_id,
		  chunk_references, chunk_dependencies, chunk_metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, e.chunksTable()))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		refs, err := gojson.Marshal(c.References)
		if err != nil {
			return err
		}
		deps, err := gojson.Marshal(c.Dependencies)
		if err != nil {
			return err
		}
		metadata, err := gojson.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			c.ChunkID, string(c.Language), c.FilePath, c.NodeType, c.StartLine, c.EndLine,
			c.ByteStart, c.ByteEnd, c.ParentContext, c.Content, c.ParentChunkID,
			string(refs), string(deps), string(metadata),
		); err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLiteExporter) insertRelationships(tx *sql.Tx, rels []types.ChunkRelationship) error {
	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (source_chunk_id, target_chunk_id, relationship_type, metadata)
		 VALUES (?, ?, ?, ?)`, e.relationshipsTable()))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rels {
		var metadata any
		if r.Metadata != nil {
			md, err := gojson.Marshal(r.Metadata)
			if err != nil {
				return err
			}
			metadata = string(md)
		}
		if _, err := stmt.Exec(r.SourceID, r.TargetID, string(r.Kind), metadata); err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLiteExporter) createIndexes(tx *sql.Tx) error {
	chunksTable := e.chunksTable()
	relsTable := e.relationshipsTable()
	indexable := map[string]bool{
		"chunk_id": true, "file_path": true, "node_type": true,
		"language": true, "parent_chunk_id": true,
	}
	for _, col := range e.indexes() {
		if !indexable[col] {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", chunksTable, col, chunksTable, col)
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	rest := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(source_chunk_id)", relsTable, relsTable),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_target ON %s(target_chunk_id)", relsTable, relsTable),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_type ON %s(relationship_type)", relsTable, relsTable),
	}
	for _, stmt := range rest {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
