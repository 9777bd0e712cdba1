// Package errors implements the chunker's error taxonomy (§7 of the
// specification): a fixed set of error kinds, each carrying enough context
// to decide whether the caller should downshift to the next chunking tier
// or abort the current operation.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies one of the taxonomy's error kinds.
type Kind string

const (
	KindGrammarUnavailable Kind = "grammar_unavailable"
	KindParseFailure       Kind = "parse_failure"
	KindEncoding           Kind = "encoding_error"
	KindBinaryFile         Kind = "binary_file"
	KindTreeSitterOverlap  Kind = "tree_sitter_overlap_misuse"
	KindInvalidConfig      Kind = "invalid_config"
	KindExportIO           Kind = "export_io_error"
	KindToolchainMissing   Kind = "toolchain_missing"
)

// GrammarUnavailableError reports that a language has no installed grammar
// and either auto-download was disabled or the download/compile attempt
// failed. Surfaced to the caller, not recovered internally.
type GrammarUnavailableError struct {
	Language   string
	Underlying error
	Timestamp  time.Time
}

func NewGrammarUnavailableError(language string, underlying error) *GrammarUnavailableError {
	return &GrammarUnavailableError{Language: language, Underlying: underlying, Timestamp: time.Now()}
}

func (e *GrammarUnavailableError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("grammar unavailable for language %q: %v", e.Language, e.Underlying)
	}
	return fmt.Sprintf("grammar unavailable for language %q", e.Language)
}

func (e *GrammarUnavailableError) Unwrap() error      { return e.Underlying }
func (e *GrammarUnavailableError) Kind() Kind         { return KindGrammarUnavailable }
func (e *GrammarUnavailableError) Recoverable() bool  { return false }

// ParseFailureError reports that a parser ran but returned no usable tree or
// zero chunks. Recovered: the arbiter routes to a specialist or sliding
// window and stamps FallbackReason() on the emitted chunks.
type ParseFailureError struct {
	FilePath   string
	Language   string
	Underlying error
	Timestamp  time.Time
}

func NewParseFailureError(filePath, language string, underlying error) *ParseFailureError {
	return &ParseFailureError{FilePath: filePath, Language: language, Underlying: underlying, Timestamp: time.Now()}
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse failure for %s (%s): %v", e.FilePath, e.Language, e.Underlying)
}

func (e *ParseFailureError) Unwrap() error    { return e.Underlying }
func (e *ParseFailureError) Kind() Kind       { return KindParseFailure }
func (e *ParseFailureError) Recoverable() bool { return true }
func (e *ParseFailureError) FallbackReason() string {
	return fmt.Sprintf("parse_failure: %v", e.Underlying)
}

// EncodingError reports that text could not be decoded as UTF-8 with the
// requested encoding. Recovered: the caller retries with the Unicode
// replacement character and emits a warning.
type EncodingError struct {
	FilePath   string
	Encoding   string
	Underlying error
	Timestamp  time.Time
}

func NewEncodingError(filePath, encoding string, underlying error) *EncodingError {
	return &EncodingError{FilePath: filePath, Encoding: encoding, Underlying: underlying, Timestamp: time.Now()}
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error for %s (encoding %s): %v", e.FilePath, e.Encoding, e.Underlying)
}

func (e *EncodingError) Unwrap() error    { return e.Underlying }
func (e *EncodingError) Kind() Kind       { return KindEncoding }
func (e *EncodingError) Recoverable() bool { return true }
func (e *EncodingError) FallbackReason() string {
	return fmt.Sprintf("encoding_error: retried with replacement (%s)", e.Encoding)
}

// BinaryFileError reports that a file appears binary (null bytes or >30%
// non-text bytes in the sampled prefix). Recovered: the caller returns an
// empty chunk list and this diagnostic.
type BinaryFileError struct {
	FilePath     string
	NonTextRatio float64
	Timestamp    time.Time
}

func NewBinaryFileError(filePath string, nonTextRatio float64) *BinaryFileError {
	return &BinaryFileError{FilePath: filePath, NonTextRatio: nonTextRatio, Timestamp: time.Now()}
}

func (e *BinaryFileError) Error() string {
	return fmt.Sprintf("binary file detected: %s (non-text ratio %.2f)", e.FilePath, e.NonTextRatio)
}

func (e *BinaryFileError) Kind() Kind        { return KindBinaryFile }
func (e *BinaryFileError) Recoverable() bool { return true }
func (e *BinaryFileError) FallbackReason() string {
	return "binary_file: empty chunk list returned"
}

// TreeSitterOverlapError is raised when the sliding-window overlap chunker
// is called on a path whose extension or explicitly-declared language maps
// to an installed grammar. Fatal for that call: overlap chunking is
// exclusively a fallback affordance (§4.8).
type TreeSitterOverlapError struct {
	Language string
	FilePath string
}

func NewTreeSitterOverlapError(language, filePath string) *TreeSitterOverlapError {
	return &TreeSitterOverlapError{Language: language, FilePath: filePath}
}

func (e *TreeSitterOverlapError) Error() string {
	return fmt.Sprintf("overlap chunking refused: %q has an installed grammar for language %q", e.FilePath, e.Language)
}

func (e *TreeSitterOverlapError) Kind() Kind        { return KindTreeSitterOverlap }
func (e *TreeSitterOverlapError) Recoverable() bool { return false }

// InvalidConfigError reports a malformed configuration file. Fatal at load
// time.
type InvalidConfigError struct {
	Path       string
	Field      string
	Underlying error
}

func NewInvalidConfigError(path, field string, underlying error) *InvalidConfigError {
	return &InvalidConfigError{Path: path, Field: field, Underlying: underlying}
}

func (e *InvalidConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid config %s (field %s): %v", e.Path, e.Field, e.Underlying)
	}
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Underlying)
}

func (e *InvalidConfigError) Unwrap() error     { return e.Underlying }
func (e *InvalidConfigError) Kind() Kind        { return KindInvalidConfig }
func (e *InvalidConfigError) Recoverable() bool { return false }

// ExportIOError reports that an exporter could not write its output. Fatal
// for that export call.
type ExportIOError struct {
	Backend    string
	Target     string
	Underlying error
}

func NewExportIOError(backend, target string, underlying error) *ExportIOError {
	return &ExportIOError{Backend: backend, Target: target, Underlying: underlying}
}

func (e *ExportIOError) Error() string {
	return fmt.Sprintf("export %s to %s failed: %v", e.Backend, e.Target, e.Underlying)
}

func (e *ExportIOError) Unwrap() error     { return e.Underlying }
func (e *ExportIOError) Kind() Kind        { return KindExportIO }
func (e *ExportIOError) Recoverable() bool { return false }

// ToolchainMissingError reports that no C/C++ compiler was found while
// building a grammar. Fatal for that grammar only; other grammars and files
// continue to be processed.
type ToolchainMissingError struct {
	Language string
	Tried    []string
}

func NewToolchainMissingError(language string, tried []string) *ToolchainMissingError {
	return &ToolchainMissingError{Language: language, Tried: tried}
}

func (e *ToolchainMissingError) Error() string {
	return fmt.Sprintf("no C/C++ toolchain available to build grammar %q (tried: %v)", e.Language, e.Tried)
}

func (e *ToolchainMissingError) Kind() Kind        { return KindToolchainMissing }
func (e *ToolchainMissingError) Recoverable() bool { return false }

// Recoverable reports whether err is one of the taxonomy's kinds marked
// recoverable. Unrecognized errors are treated as fatal.
func Recoverable(err error) bool {
	type recoverableErr interface{ Recoverable() bool }
	if r, ok := err.(recoverableErr); ok {
		return r.Recoverable()
	}
	return false
}

// FallbackReason extracts the human-readable downshift reason from a
// recoverable error, for stamping onto chunk metadata per §7's propagation
// policy. Returns "" if err does not carry one.
func FallbackReason(err error) string {
	type reasoner interface{ FallbackReason() string }
	if r, ok := err.(reasoner); ok {
		return r.FallbackReason()
	}
	return ""
}

// MultiError aggregates multiple errors encountered while processing a
// batch of files; a single failure does not abort the rest of the batch
// (§7 propagation policy: "Fatal errors abort the current operation only").
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred, first: %v", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error { return e.Errors }
