package grammar

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/chunker/internal/types"
)

// diskCache tracks compiled grammar artifacts under a process-user-writable
// directory, keyed by language. clean_cache(keep_recent) evicts the
// least-recently-accessed entries beyond the retention count; entries
// record both path and a types.CacheEntry for TTL/LRU bookkeeping.
type diskCache struct {
	dir string

	mu      sync.Mutex
	entries map[types.Language]*types.CacheEntry
}

func newDiskCache(dir string) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &diskCache{dir: dir, entries: map[types.Language]*types.CacheEntry{}}, nil
}

func (c *diskCache) artifactPath(lang types.Language, version string) string {
	return filepath.Join(c.dir, string(lang)+"-"+version+sharedLibExt())
}

// IsCached reports whether lang has both a recorded cache entry and the
// compiled artifact still present on disk.
func (c *diskCache) IsCached(lang types.Language, version string) bool {
	c.mu.Lock()
	entry, ok := c.entries[lang]
	c.mu.Unlock()
	if !ok {
		return false
	}
	if _, err := os.Stat(entry.Value.(string)); err != nil {
		return false
	}
	_ = version
	return true
}

func (c *diskCache) record(lang types.Language, path string, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[lang] = &types.CacheEntry{
		Key:        string(lang),
		Value:      path,
		CreatedAt:  now,
		AccessedAt: now,
	}
}

func (c *diskCache) touch(lang types.Language, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[lang]; ok {
		e.AccessedAt = now
	}
}

// Remove deletes lang's compiled artifact and cache entry.
func (c *diskCache) Remove(lang types.Language) error {
	c.mu.Lock()
	entry, ok := c.entries[lang]
	delete(c.entries, lang)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return os.Remove(entry.Value.(string))
}

// CleanCache removes least-recently-accessed compiled artifacts beyond
// keepRecent entries.
func (c *diskCache) CleanCache(keepRecent int) error {
	c.mu.Lock()
	type keyed struct {
		lang  types.Language
		entry *types.CacheEntry
	}
	all := make([]keyed, 0, len(c.entries))
	for lang, e := range c.entries {
		all = append(all, keyed{lang, e})
	}
	c.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].entry.AccessedAt > all[j].entry.AccessedAt
	})

	if len(all) <= keepRecent {
		return nil
	}
	for _, k := range all[keepRecent:] {
		if err := c.Remove(k.lang); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func sharedLibExt() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

var nowFunc = func() int64 { return time.Now().UnixNano() }
