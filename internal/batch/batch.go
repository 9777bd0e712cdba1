// Package batch walks a directory tree and chunks every matching file
// through a bounded, priority-ordered worker pool, then tracks
// relationships across the accumulated chunk set. It also supports
// watch mode: re-chunking files as they change on disk.
package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/chunker/internal/arbiter"
	"github.com/standardbeagle/chunker/internal/config"
	"github.com/standardbeagle/chunker/internal/diag"
	"github.com/standardbeagle/chunker/internal/relationship"
	"github.com/standardbeagle/chunker/internal/types"
	"github.com/standardbeagle/chunker/internal/workerpool"
)

// FileResult is the outcome of chunking one file within a tree, or of
// observing its removal during watch mode.
type FileResult struct {
	Path    string
	Chunks  []*types.Chunk
	Metrics types.DecisionMetrics
	Removed bool
	Err     error
}

// Result aggregates one ProcessTree run: every file's chunks (or error)
// plus the relationships tracked across the whole set of chunks produced.
type Result struct {
	Files         []FileResult
	Relationships []types.ChunkRelationship
}

// Chunker walks a directory tree and routes each matching file through an
// Arbiter, bounding concurrency with internal/workerpool.
type Chunker struct {
	Config      *config.Config
	Arbiter     *arbiter.Arbiter
	Concurrency int
}

// New creates a Chunker. concurrency <= 0 is treated as 1 (see workerpool.New).
func New(cfg *config.Config, arb *arbiter.Arbiter, concurrency int) *Chunker {
	return &Chunker{Config: cfg, Arbiter: arb, Concurrency: concurrency}
}

// ProcessTree discovers files under root matching the configured
// include/exclude globs and any root-level .gitignore, chunks them
// concurrently, and tracks relationships across every produced chunk.
// Larger files are given higher scheduling priority so they don't end up
// queued behind a long tail of small ones. A failure on one file does not
// prevent the rest of the tree from being processed; if any file failed,
// the returned error is non-nil (a *chunkererrors.MultiError when more
// than one failed) alongside the still-populated Result.
func (c *Chunker) ProcessTree(ctx context.Context, root string) (*Result, error) {
	files, err := c.discoverFiles(root)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	pool := workerpool.New(c.Concurrency)
	for i, f := range files {
		i, f := i, f
		pool.Submit(workerpool.Task{
			Priority: int(f.size),
			Label:    f.path,
			Run: func(ctx context.Context) error {
				res := c.chunkFile(ctx, f.path)
				results[i] = res
				return res.Err
			},
		})
	}

	poolErr := pool.Wait(ctx)
	if poolErr != nil {
		diag.Warn("batch", "tree processing at %s finished with errors: %v", root, poolErr)
	}

	var allChunks []*types.Chunk
	for _, r := range results {
		allChunks = append(allChunks, r.Chunks...)
	}
	rels := relationship.NewTracker().Track(allChunks)

	return &Result{Files: results, Relationships: rels}, poolErr
}

func (c *Chunker) chunkFile(ctx context.Context, path string) FileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	chunks, metrics, err := c.Arbiter.ChunkFile(ctx, path, content, types.Language(""))
	return FileResult{Path: path, Chunks: chunks, Metrics: metrics, Err: err}
}

type discoveredFile struct {
	path string
	size int64
}

func (c *Chunker) discoverFiles(root string) ([]discoveredFile, error) {
	gi := c.loadGitignore(root)

	var out []discoveredFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel := relSlash(root, path)

		if d.IsDir() {
			if rel != "." && c.shouldSkipDir(rel, gi) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.shouldProcess(rel, gi) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, discoveredFile{path: path, size: info.Size()})
		return nil
	})
	return out, err
}

func (c *Chunker) loadGitignore(root string) *config.GitignoreParser {
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); err != nil {
		return nil
	}
	gi := config.NewGitignoreParser()
	if err := gi.LoadGitignore(root); err != nil {
		diag.Warn("batch", "failed to load .gitignore under %s: %v", root, err)
		return nil
	}
	return gi
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (c *Chunker) shouldSkipDir(rel string, gi *config.GitignoreParser) bool {
	for _, pattern := range c.Config.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel+"/"); matched {
			return true
		}
	}
	if gi != nil && gi.ShouldIgnore(rel, true) {
		return true
	}
	return false
}

func (c *Chunker) shouldProcess(rel string, gi *config.GitignoreParser) bool {
	for _, pattern := range c.Config.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	if gi != nil && gi.ShouldIgnore(rel, false) {
		return false
	}
	if len(c.Config.Include) == 0 {
		return true
	}
	for _, pattern := range c.Config.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
