package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/chunker/internal/config"
)

func TestWatcher_RechunksOnWrite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "def f():\n    return 1\n")

	cfg := &config.Config{Include: []string{"**/*.py"}}
	c := newTestChunker(cfg)

	w, err := c.NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)

	var mu sync.Mutex
	var results []FileResult
	w.OnResult = func(r FileResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Watch(ctx, root)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(root, "a.py"), "def f():\n    return 2\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, results)
	assert.False(t, results[0].Removed)
	assert.NoError(t, results[0].Err)
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.py")
	writeFile(t, target, "def f():\n    return 1\n")

	cfg := &config.Config{Include: []string{"**/*.py"}}
	c := newTestChunker(cfg)

	w, err := c.NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)

	var mu sync.Mutex
	var results []FileResult
	w.OnResult = func(r FileResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Watch(ctx, root)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(target))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range results {
			if r.Removed {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
