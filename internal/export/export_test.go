package export

import (
	"bytes"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/chunker/internal/types"
)

func sampleData() ([]*types.Chunk, []types.ChunkRelationship) {
	chunks := []*types.Chunk{
		{ChunkID: "a.py#1", Language: types.LangPython, FilePath: "a.py", NodeType: "function_definition",
			StartLine: 1, EndLine: 2, ByteStart: 0, ByteEnd: 10, Content: "def f(): 1"},
		{ChunkID: "a.py#2", Language: types.LangPython, FilePath: "a.py", NodeType: "function_definition",
			StartLine: 4, EndLine: 5, ByteStart: 11, ByteEnd: 25, Content: "def g(): f()",
			Dependencies: []string{"f"}},
	}
	rels := []types.ChunkRelationship{
		{SourceID: "a.py#2", TargetID: "a.py#1", Kind: types.RelCalls, Metadata: map[string]any{"name": "f"}},
	}
	return chunks, rels
}

func TestJSONExporter_StableStructure(t *testing.T) {
	chunks, rels := sampleData()
	meta := NewMetadata(FormatJSON, "2026-01-01T00:00:00Z", chunks, rels, nil)

	var buf bytes.Buffer
	require.NoError(t, NewJSONExporter().Export(chunks, rels, &buf, meta))

	out := buf.String()
	assert.True(t, strings.Index(out, `"metadata"`) < strings.Index(out, `"chunks"`))
	assert.True(t, strings.Index(out, `"chunks"`) < strings.Index(out, `"relationships"`))
	assert.Contains(t, out, `"chunk_id": "a.py#1"`)
	assert.Contains(t, out, `"relationship_type": "calls"`)
}

func TestJSONLExporter_RecordOrderAndCount(t *testing.T) {
	chunks, rels := sampleData()
	meta := NewMetadata(FormatJSONL, "2026-01-01T00:00:00Z", chunks, rels, nil)

	var buf bytes.Buffer
	require.NoError(t, NewJSONLExporter().Export(chunks, rels, &buf, meta))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4) // 1 metadata + 2 chunks + 1 relationship

	assert.Contains(t, lines[0], `"type":"metadata"`)
	assert.Contains(t, lines[1], `"type":"chunk"`)
	assert.Contains(t, lines[2], `"type":"chunk"`)
	assert.Contains(t, lines[3], `"type":"relationship"`)
}

func TestSQLiteExporter_SingleTransactionAndIndexes(t *testing.T) {
	chunks, rels := sampleData()
	meta := NewMetadata(FormatSQLite, "2026-01-01T00:00:00Z", chunks, rels, nil)

	dbPath := filepath.Join(t.TempDir(), "export.db")
	exp := NewSQLiteExporter(Options{})
	require.NoError(t, exp.Export(chunks, rels, dbPath, meta))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var chunkCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&chunkCount))
	assert.Equal(t, 2, chunkCount)

	var relCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM relationships").Scan(&relCount))
	assert.Equal(t, 1, relCount)

	var metaCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM export_metadata").Scan(&metaCount))
	assert.Equal(t, 1, metaCount)

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index'")
	require.NoError(t, err)
	defer rows.Close()
	var indexNames []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexNames = append(indexNames, name)
	}
	assert.Contains(t, indexNames, "idx_chunks_chunk_id")
	assert.Contains(t, indexNames, "idx_relationships_source")
}

func TestSQLiteExporter_StreamingRespectsBatchSize(t *testing.T) {
	var chunks []*types.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, &types.Chunk{
			ChunkID: fmt.Sprintf("f.py#%d", i), Language: types.LangPython,
			FilePath: "f.py", NodeType: "function_definition",
			StartLine: i + 1, EndLine: i + 1, ByteStart: i, ByteEnd: i + 1, Content: "x",
		})
	}
	dbPath := filepath.Join(t.TempDir(), "stream.db")
	exp := NewSQLiteExporter(Options{BatchSize: 2})
	require.NoError(t, exp.ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(nil), dbPath, nil))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestPostgresExporter_EscapesSingleQuotesAndWrapsTransaction(t *testing.T) {
	chunks := []*types.Chunk{
		{ChunkID: "a.py#1", Language: types.LangPython, FilePath: "a.py", NodeType: "function_definition",
			StartLine: 1, EndLine: 1, ByteStart: 0, ByteEnd: 9, Content: "print('hi')"},
	}
	meta := NewMetadata(FormatPostgreSQL, "2026-01-01T00:00:00Z", chunks, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, NewPostgresExporter(Options{}).Export(chunks, nil, &buf, meta))

	out := buf.String()
	assert.Contains(t, out, "BEGIN;")
	assert.Contains(t, out, "COMMIT;")
	assert.Contains(t, out, `print(''hi'')`)
	assert.True(t, strings.Index(out, "BEGIN;") < strings.Index(out, "INSERT INTO chunks"))
	assert.True(t, strings.Index(out, "INSERT INTO chunks") < strings.Index(out, "COMMIT;"))
}

func TestNeo4jExporter_GroupsRelationshipsByType(t *testing.T) {
	chunks, _ := sampleData()
	rels := []types.ChunkRelationship{
		{SourceID: "a.py#2", TargetID: "a.py#1", Kind: types.RelCalls},
		{SourceID: "a.py#1", TargetID: "a.py#2", Kind: types.RelReferences},
		{SourceID: "a.py#2", TargetID: "a.py#1", Kind: types.RelCalls},
	}

	var buf bytes.Buffer
	require.NoError(t, NewNeo4jExporter(Options{}).ExportStreaming(SliceChunkSeq(chunks), SliceRelationshipSeq(rels), &buf))

	out := buf.String()
	assert.Contains(t, out, "CREATE CONSTRAINT IF NOT EXISTS FOR (c:CodeChunk) REQUIRE c.chunk_id IS UNIQUE;")
	assert.Contains(t, out, "// calls relationships")
	assert.Contains(t, out, "// references relationships")
	assert.Contains(t, out, "MERGE (source)-[r:CALLS]->(target)")
	assert.Equal(t, 1, strings.Count(out, "// calls relationships"))
}

func TestGraphMLExporter_EmitsNodesAndEdges(t *testing.T) {
	chunks, rels := sampleData()
	var buf bytes.Buffer
	require.NoError(t, NewGraphMLExporter(Options{}).Export(chunks, rels, &buf))

	out := buf.String()
	assert.Contains(t, out, `<node id="a.py#1">`)
	assert.Contains(t, out, `<edge id="e0" source="a.py#2" target="a.py#1">`)
}

func TestDOTExporter_EmitsDigraph(t *testing.T) {
	chunks, rels := sampleData()
	var buf bytes.Buffer
	require.NoError(t, NewDOTExporter(Options{}).Export(chunks, rels, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph chunks {\n"))
	assert.Contains(t, out, `"a.py#1"`)
	assert.Contains(t, out, `"a.py#2" -> "a.py#1"`)
}

func TestParquetExporter_WritesColumnarContainer(t *testing.T) {
	chunks, rels := sampleData()
	var buf bytes.Buffer
	require.NoError(t, NewParquetExporter().Export(chunks, rels, &buf))

	out := buf.Bytes()
	require.True(t, len(out) > len(parquetMagic))
	assert.Equal(t, parquetMagic[:], out[:len(parquetMagic)])
}
