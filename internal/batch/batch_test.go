package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/chunker/internal/arbiter"
	"github.com/standardbeagle/chunker/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestChunker(cfg *config.Config) *Chunker {
	return New(cfg, arbiter.NewArbiter(nil, "", 0), 2)
}

func TestChunker_ProcessTree_SkipsExcludedAndHonorsInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), "def f():\n    return 1\n")
	writeFile(t, filepath.Join(root, "vendor", "lib.py"), "def skipped():\n    return 0\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "just some text describing the project in detail")

	cfg := &config.Config{
		Include: []string{"**/*.py"},
		Exclude: []string{"**/vendor/**"},
	}
	c := newTestChunker(cfg)

	result, err := c.ProcessTree(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(root, "main.py"), result.Files[0].Path)
	assert.NotEmpty(t, result.Files[0].Chunks)
}

func TestChunker_ProcessTree_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "ignored/\n")
	writeFile(t, filepath.Join(root, "keep.py"), "def f():\n    return 1\n")
	writeFile(t, filepath.Join(root, "ignored", "drop.py"), "def g():\n    return 2\n")

	cfg := &config.Config{Include: []string{"**/*.py"}}
	c := newTestChunker(cfg)

	result, err := c.ProcessTree(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, filepath.Base(f.Path))
	}
	assert.Contains(t, paths, "keep.py")
	assert.NotContains(t, paths, "drop.py")
}

func TestChunker_ProcessTree_CollectsRelationships(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "def helper():\n    return 1\n\n\ndef caller():\n    return helper()\n")

	cfg := &config.Config{Include: []string{"**/*.py"}}
	c := newTestChunker(cfg)

	result, err := c.ProcessTree(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.NotEmpty(t, result.Files[0].Chunks)
	// relationship tracking ran over the combined chunk set without error
	_ = result.Relationships
}

func TestChunker_ProcessTree_ReportsPerFileErrorsWithoutAbortingBatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.py"), "def f():\n    return 1\n")

	cfg := &config.Config{Include: []string{"**/*.py"}}
	c := newTestChunker(cfg)

	result, err := c.ProcessTree(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	// Remove the file's read permission to force a per-file error path
	// without touching discovery, then process the tree holding it and ok.py.
	bad := filepath.Join(root, "bad.py")
	writeFile(t, bad, "def g():\n    return 2\n")
	require.NoError(t, os.Chmod(bad, 0000))
	defer os.Chmod(bad, 0644)

	result, err = c.ProcessTree(context.Background(), root)
	if os.Getuid() == 0 {
		t.Skip("running as root: file permissions don't block reads")
	}
	require.Error(t, err)
	require.Len(t, result.Files, 2)
}
