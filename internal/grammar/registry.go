// Package grammar is the grammar lifecycle manager: resolving a language id
// to a usable tree-sitter parser (C1), enumerating what's available to
// install (C2), and fetching/compiling/caching grammars that aren't pinned
// in at build time (C3).
package grammar

import (
	"context"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/types"
)

// poolEntry holds a per-language sync.Pool of ready-to-use *tree_sitter.Parser
// values plus the lazily-constructed *tree_sitter.Language backing them.
type poolEntry struct {
	once     sync.Once
	language *tree_sitter.Language
	pool     sync.Pool
	err      error
}

// Registry resolves language -> Parser on demand, triggering download+build
// via Builder for languages that aren't statically pinned. Concurrent
// first-calls for the same language collapse onto a single build via
// sync.Once per language.
type Registry struct {
	mu      sync.RWMutex
	entries map[types.Language]*poolEntry
	descs   map[types.Language]*types.GrammarDescriptor

	builder *Builder
}

// NewRegistry creates a Registry backed by builder for on-demand grammar
// materialization. builder may be nil if auto-download is never needed.
func NewRegistry(builder *Builder) *Registry {
	r := &Registry{
		entries: make(map[types.Language]*poolEntry),
		descs:   make(map[types.Language]*types.GrammarDescriptor),
		builder: builder,
	}
	for lang, p := range pinnedLanguages {
		r.descs[lang] = &types.GrammarDescriptor{
			Name:                string(lang),
			SupportedExtensions: p.extensions,
			Status:              types.GrammarReady,
		}
	}
	return r
}

// GetParser resolves a ready-to-use parser for lang. Callers must return it
// via Put when done. If lang isn't pinned and autoDownload is false, returns
// a GrammarUnavailableError. Otherwise, delegates to the Builder.
func (r *Registry) GetParser(ctx context.Context, lang types.Language, autoDownload bool) (*tree_sitter.Parser, error) {
	entry := r.entryFor(lang)

	entry.once.Do(func() {
		language := newPinnedLanguage(lang)
		if language == nil {
			if !autoDownload || r.builder == nil {
				entry.err = chunkererrors.NewGrammarUnavailableError(string(lang), nil)
				return
			}
			compiled, err := r.builder.EnsureBuilt(ctx, lang)
			if err != nil {
				entry.err = chunkererrors.NewGrammarUnavailableError(string(lang), err)
				r.setStatus(lang, types.GrammarError, err.Error())
				return
			}
			language = compiled.Language
			r.setStatus(lang, types.GrammarReady, "")
		}
		entry.language = language
		entry.pool.New = func() any {
			p := tree_sitter.NewParser()
			_ = p.SetLanguage(entry.language)
			return p
		}
	})

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.pool.Get().(*tree_sitter.Parser), nil
}

// Put returns a parser to its language pool for reuse.
func (r *Registry) Put(lang types.Language, p *tree_sitter.Parser) {
	r.entryFor(lang).pool.Put(p)
}

func (r *Registry) entryFor(lang types.Language) *poolEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[lang]
	if !ok {
		e = &poolEntry{}
		r.entries[lang] = e
	}
	return e
}

// IsInstalled reports whether lang currently resolves without a download.
func (r *Registry) IsInstalled(lang types.Language) bool {
	if isPinned(lang) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[lang]
	return ok && d.Status == types.GrammarReady
}

// ListInstalled returns every language currently ready to parse.
func (r *Registry) ListInstalled() []types.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Language
	for lang, d := range r.descs {
		if d.Status == types.GrammarReady {
			out = append(out, lang)
		}
	}
	return out
}

// Install fetches and builds lang at the given version (HEAD if empty).
func (r *Registry) Install(ctx context.Context, lang types.Language, version string) error {
	if isPinned(lang) {
		return nil
	}
	if r.builder == nil {
		return chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("no builder configured"))
	}
	_, err := r.builder.Build(ctx, lang, version)
	if err != nil {
		r.setStatus(lang, types.GrammarError, err.Error())
		return err
	}
	r.setStatus(lang, types.GrammarReady, "")
	return nil
}

// Uninstall removes a built grammar from the cache and its registry entry.
func (r *Registry) Uninstall(lang types.Language) error {
	if isPinned(lang) {
		return fmt.Errorf("grammar %q is statically pinned and cannot be uninstalled", lang)
	}
	if r.builder != nil {
		if err := r.builder.cache.Remove(lang); err != nil {
			return err
		}
	}
	r.mu.Lock()
	delete(r.descs, lang)
	delete(r.entries, lang)
	r.mu.Unlock()
	return nil
}

// GetMetadata returns what the registry knows about lang.
func (r *Registry) GetMetadata(lang types.Language) (types.GrammarDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[lang]
	if !ok {
		return types.GrammarDescriptor{}, false
	}
	return *d, true
}

func (r *Registry) setStatus(lang types.Language, status types.GrammarStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descs[lang]
	if !ok {
		d = &types.GrammarDescriptor{Name: string(lang)}
		r.descs[lang] = d
	}
	d.Status = status
	d.Err = errMsg
}

// LanguageForExtension maps a file extension (including the leading dot) to
// a canonical language tag, checking pinned grammars first and then any
// dynamically installed ones recorded in the registry.
func (r *Registry) LanguageForExtension(ext string) (types.Language, bool) {
	for lang, p := range pinnedLanguages {
		for _, e := range p.extensions {
			if e == ext {
				return lang, true
			}
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for lang, d := range r.descs {
		for _, e := range d.SupportedExtensions {
			if e == ext {
				return lang, true
			}
		}
	}
	return types.LangUnknown, false
}
