package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/chunker/internal/diag"
)

// DefaultWatchDebounce collapses bursts of writes (editors that save in
// several small operations) into a single re-chunk per file.
const DefaultWatchDebounce = 300 * time.Millisecond

// Watcher re-chunks files under a root as they change on disk, debouncing
// bursts of fsnotify events per path before invoking OnResult.
type Watcher struct {
	chunker  *Chunker
	debounce time.Duration
	watcher  *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	// OnResult is invoked, from the debounce goroutine, once per changed
	// file after it has been re-chunked.
	OnResult func(FileResult)
}

// NewWatcher creates a Watcher over c using the given debounce window.
// debounce <= 0 uses DefaultWatchDebounce.
func (c *Chunker) NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{
		chunker:  c,
		debounce: debounce,
		watcher:  fw,
		pending:  make(map[string]struct{}),
	}, nil
}

// Watch adds recursive watches under root and blocks, re-chunking changed
// files until ctx is cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context, root string) error {
	ctx, cancel := context.WithCancel(ctx)
	w.ctx, w.cancel = ctx, cancel

	if err := w.addWatches(root); err != nil {
		cancel()
		return err
	}

	w.wg.Add(1)
	go w.run(root)

	<-ctx.Done()
	w.watcher.Close()
	w.wg.Wait()
	return nil
}

// Stop cancels the watch; Watch returns once its event loop has exited.
// Re-chunks still waiting on the debounce timer are not waited for.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) addWatches(root string) error {
	visited := map[string]bool{}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		real, rerr := filepath.EvalSymlinks(path)
		if rerr != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel := relSlash(root, path)
		if rel != "." && w.chunker.shouldSkipDir(rel, nil) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			diag.Warn("batch", "failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(root string) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(root, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			diag.Warn("batch", "watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(root string, ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	if statErr != nil {
		if ev.Op&fsnotify.Remove != 0 {
			rel := relSlash(root, ev.Name)
			if w.chunker.shouldProcess(rel, nil) {
				w.reportRemoval(ev.Name)
			}
		}
		return
	}

	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			rel := relSlash(root, ev.Name)
			if !w.chunker.shouldSkipDir(rel, nil) {
				if err := w.watcher.Add(ev.Name); err != nil {
					diag.Warn("batch", "failed to watch new directory %s: %v", ev.Name, err)
				}
			}
		}
		return
	}

	rel := relSlash(root, ev.Name)
	if !w.chunker.shouldProcess(rel, nil) {
		return
	}
	w.schedule(ev.Name)
}

func (w *Watcher) reportRemoval(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
	if w.OnResult != nil {
		w.OnResult(FileResult{Path: path, Removed: true})
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for _, path := range paths {
		result := w.chunker.chunkFile(w.ctx, path)
		if w.OnResult != nil {
			w.OnResult(result)
		}
	}
}
