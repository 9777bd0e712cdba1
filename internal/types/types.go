// Package types holds the data model shared across the chunking engine:
// Chunk, ChunkRelationship, GrammarDescriptor and the small value types the rest of the core threads through function
// signatures instead of passing around loosely-typed maps.
package types

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Common system-wide constants.
const (
	// DefaultMaxFileSize is a 10MB per-file size bound. No code in this
	// module reads it; the arbiter applies no file-size limit.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	// BinaryPreCheckBytes is a sample length, in leading bytes, for judging
	// whether a file looks binary. No code in this module reads it or
	// classifies files as binary.
	BinaryPreCheckBytes = 512

	// BinaryNonTextRatioThreshold is a fraction of non-text bytes for that
	// binary classification; like BinaryPreCheckBytes, nothing reads it.
	BinaryNonTextRatioThreshold = 0.30

	// DefaultTokenCharsPerToken is the heuristic characters-per-token ratio
	// used by the default tokenizer when no exact tokenizer is configured.
	DefaultTokenCharsPerToken = 4
)

// Language is a canonical language tag. Code languages use their tree-sitter
// grammar name ("python", "go", ...); fallback tiers use synthetic tags
// ("text", "markdown", "log").
type Language string

// Recognized canonical language tags with first-class grammar support.
const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCpp        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangZig        Language = "zig"

	// Fallback-tier tags; never backed by a tree-sitter grammar.
	LangText     Language = "text"
	LangMarkdown Language = "markdown"
	LangLog      Language = "log"
	LangUnknown  Language = "unknown"
)

// RelationshipKind enumerates the fixed set of edge kinds the relationship
// tracker may emit between two chunks.
type RelationshipKind string

const (
	RelParentChild RelationshipKind = "parent_child"
	RelCalls       RelationshipKind = "calls"
	RelImports     RelationshipKind = "imports"
	RelInherits    RelationshipKind = "inherits"
	RelImplements  RelationshipKind = "implements"
	RelUses        RelationshipKind = "uses"
	RelDefines     RelationshipKind = "defines"
	RelReferences  RelationshipKind = "references"
	RelDependsOn   RelationshipKind = "depends_on"
)

// ChunkingDecision is one of the four routing choices the arbiter makes per
// file (§4.9 of the specification). Recursive splitting of oversized chunks
// happens under DecisionTreeSitterWithSplit.
type ChunkingDecision string

const (
	DecisionTreeSitter          ChunkingDecision = "tree_sitter"
	DecisionTreeSitterWithSplit ChunkingDecision = "tree_sitter_with_split"
	DecisionSpecializedProc     ChunkingDecision = "specialized_processor"
	DecisionSlidingWindow       ChunkingDecision = "sliding_window"
)

// Chunk is the central product of the system: a self-contained source
// substring plus metadata and relationships to other chunks.
type Chunk struct {
	ChunkID  string
	Language Language
	FilePath string

	// NodeType is the AST node label when parser-derived ("function_definition",
	// "class_declaration", ...) or a synthetic label for fallback-tier output
	// ("fallback_overlapping_lines", "specialist_segment",
	// "sliding_window_tail_split", ...).
	NodeType string

	StartLine int
	EndLine   int
	ByteStart int
	ByteEnd   int

	ParentContext string
	Content       string

	ParentChunkID string // empty when the chunk has no hierarchical parent

	References   []string
	Dependencies []string

	// Metadata is an open key -> value mapping for strategy-specific
	// annotations: complexity score, chunking decision, processor name,
	// token count, fallback reason, strategy provenance, and so on.
	Metadata map[string]any
}

// NewChunkID derives a chunk's identifier as a pure function of
// file_path, byte_start, byte_end and content: the same range and text
// in the same file always hashes to the same id, regardless of
// traversal order, strategy, or what else in the file changed.
func NewChunkID(filePath string, byteStart, byteEnd int, content string) string {
	buf := make([]byte, 0, len(filePath)+len(content)+32)
	buf = append(buf, filePath...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, int64(byteStart), 10)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, int64(byteEnd), 10)
	buf = append(buf, 0)
	buf = append(buf, content...)
	return fmt.Sprintf("%016x", xxhash.Sum64(buf))
}

// TokenCount returns the chunk's recorded token count from metadata, or -1
// if none has been stamped.
func (c *Chunk) TokenCount() int {
	if c.Metadata == nil {
		return -1
	}
	if v, ok := c.Metadata["token_count"]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return -1
}

// SetMetadata assigns a metadata key, lazily allocating the map.
func (c *Chunk) SetMetadata(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// Validate checks the chunk invariants from §3: byte_end > byte_start,
// end_line >= start_line >= 1, and that the byte range is a valid slice of
// the given source.
func (c *Chunk) Validate(source []byte) error {
	if c.ByteEnd <= c.ByteStart {
		return fmt.Errorf("chunk %s: byte_end (%d) must be > byte_start (%d)", c.ChunkID, c.ByteEnd, c.ByteStart)
	}
	if c.StartLine < 1 {
		return fmt.Errorf("chunk %s: start_line (%d) must be >= 1", c.ChunkID, c.StartLine)
	}
	if c.EndLine < c.StartLine {
		return fmt.Errorf("chunk %s: end_line (%d) must be >= start_line (%d)", c.ChunkID, c.EndLine, c.StartLine)
	}
	if c.ByteStart < 0 || c.ByteEnd > len(source) {
		return fmt.Errorf("chunk %s: byte range [%d,%d) out of bounds for source of length %d", c.ChunkID, c.ByteStart, c.ByteEnd, len(source))
	}
	if c.Content != string(source[c.ByteStart:c.ByteEnd]) {
		return fmt.Errorf("chunk %s: content does not match source[%d:%d]", c.ChunkID, c.ByteStart, c.ByteEnd)
	}
	return nil
}

// ChunkRelationship is a directed edge between two chunk ids.
type ChunkRelationship struct {
	SourceID string
	TargetID string
	Kind     RelationshipKind
	Metadata map[string]any
}

// GrammarStatus is the lifecycle state of a GrammarDescriptor.
type GrammarStatus string

const (
	GrammarNotFound GrammarStatus = "not_found"
	GrammarNotBuilt GrammarStatus = "not_built"
	GrammarBuilding GrammarStatus = "building"
	GrammarReady    GrammarStatus = "ready"
	GrammarError    GrammarStatus = "error"
	GrammarOutdated GrammarStatus = "outdated"
)

// GrammarDescriptor records everything the registry and download subsystem
// know about a single language grammar.
type GrammarDescriptor struct {
	Name                string
	RepositoryURL       string
	Version             string
	CommitHash          string
	ABIVersion          int
	SupportedExtensions []string
	Status              GrammarStatus
	LocalPath           string
	Err                 string
}

// DecisionMetrics is the per-file record the arbiter produces while routing
// a file to a chunking tier.
type DecisionMetrics struct {
	HasGrammar             bool
	ParseSuccess           bool
	ChunkCount             int
	LargestChunkTokens     int
	TokenLimitExceeded     bool
	IsCodeFile             bool
	HasSpecializedProcessor bool
	IsGenerated            bool
	Decision               ChunkingDecision
	FallbackReason         string
}

// CacheEntry is used by the parse-tree cache and the grammar cache.
type CacheEntry struct {
	Key        string
	Value      any
	CreatedAt  int64 // unix nanos; caller-supplied
	AccessedAt int64
	TTLSeconds int64 // 0 means no expiry
}
