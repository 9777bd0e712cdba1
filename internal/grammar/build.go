package grammar

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
	"github.com/standardbeagle/chunker/internal/diag"
	"github.com/standardbeagle/chunker/internal/types"
)

// CompiledGrammar is the opaque handle a build produces: a Language usable
// to construct parsers, plus the descriptor the Registry consulted.
type CompiledGrammar struct {
	Language   *tree_sitter.Language
	Descriptor types.GrammarDescriptor
}

// Builder implements the download-extract-compile-validate pipeline: given
// a language name and optional version, it produces a validated compiled
// grammar on disk, fetching source via go-git and invoking the host C
// toolchain.
type Builder struct {
	catalog *Catalog
	cache   *diskCache
	workDir string
}

// NewBuilder creates a Builder that clones grammar sources under workDir
// and caches compiled artifacts under cacheDir.
func NewBuilder(catalog *Catalog, cacheDir, workDir string) (*Builder, error) {
	cache, err := newDiskCache(cacheDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}
	return &Builder{catalog: catalog, cache: cache, workDir: workDir}, nil
}

// EnsureBuilt returns a cached compiled grammar for lang at HEAD, building
// it first if necessary.
func (b *Builder) EnsureBuilt(ctx context.Context, lang types.Language) (*CompiledGrammar, error) {
	return b.Build(ctx, lang, "")
}

// Build runs the full protocol: cache check, clone, compile, validate.
func (b *Builder) Build(ctx context.Context, lang types.Language, version string) (*CompiledGrammar, error) {
	if version == "" {
		version = "HEAD"
	}

	if b.cache.IsCached(lang, version) {
		path := b.cache.artifactPath(lang, version)
		diag.Debug("grammar", "cache hit for %s@%s", lang, version)
		return b.validate(lang, path)
	}

	repoURL, ok := b.catalog.RepositoryURL(string(lang))
	if !ok {
		return nil, chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("no catalog entry for %q", lang))
	}

	srcDir := filepath.Join(b.workDir, string(lang))
	if err := b.clone(ctx, repoURL, version, srcDir); err != nil {
		return nil, chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("clone: %w", err))
	}

	artifactPath := b.cache.artifactPath(lang, version)
	if err := b.compile(ctx, lang, srcDir, artifactPath); err != nil {
		return nil, chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("compile: %w", err))
	}

	b.cache.record(lang, artifactPath, nowFunc())
	diag.Info("grammar", "built %s@%s -> %s", lang, version, artifactPath)

	return b.validate(lang, artifactPath)
}

// clone fetches the grammar repository at revision into dir, overwriting any
// existing checkout.
func (b *Builder) clone(ctx context.Context, repoURL, revision, dir string) error {
	_ = os.RemoveAll(dir)
	opts := &git.CloneOptions{URL: repoURL, Depth: 1, SingleBranch: true}
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return err
	}
	if revision != "" && revision != "HEAD" {
		wt, err := repo.Worktree()
		if err != nil {
			return err
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(revision)}); err != nil {
			return err
		}
	}
	return nil
}

// compile finds src/*.c (and *.cc scanner sources) under srcDir and invokes
// a C/C++ toolchain to produce a shared library at outPath.
func (b *Builder) compile(ctx context.Context, lang types.Language, srcDir, outPath string) error {
	srcRoot := filepath.Join(srcDir, "src")
	var cSources, cxxSources []string
	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return fmt.Errorf("reading grammar src dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(e.Name(), ".c"):
			cSources = append(cSources, filepath.Join(srcRoot, e.Name()))
		case strings.HasSuffix(e.Name(), ".cc") || strings.HasSuffix(e.Name(), ".cpp"):
			cxxSources = append(cxxSources, filepath.Join(srcRoot, e.Name()))
		}
	}
	if len(cSources) == 0 && len(cxxSources) == 0 {
		return fmt.Errorf("no grammar sources found under %s", srcRoot)
	}

	compiler := "cc"
	if len(cxxSources) > 0 {
		compiler = "c++"
	}
	if _, err := exec.LookPath(compiler); err != nil {
		return chunkererrors.NewToolchainMissingError(string(lang), []string{compiler})
	}

	args := []string{"-shared", "-fPIC", "-O2", "-I", srcRoot, "-o", outPath}
	args = append(args, cSources...)
	args = append(args, cxxSources...)

	cmd := exec.CommandContext(ctx, compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", compiler, err, out)
	}
	return nil
}

// validate opens the compiled shared library, resolves the entry symbol for
// lang, and records the ABI version.
func (b *Builder) validate(lang types.Language, path string) (*CompiledGrammar, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("dlopen %s: %w", path, err))
	}

	symbol := "tree_sitter_" + string(lang)
	var languageFunc func() uintptr
	purego.RegisterFunc(&languageFunc, purego.Dlsym(handle, symbol))
	ptr := languageFunc()
	if ptr == 0 {
		return nil, chunkererrors.NewGrammarUnavailableError(string(lang), fmt.Errorf("symbol %s resolved to null", symbol))
	}

	language := tree_sitter.NewLanguage(unsafe.Pointer(ptr))
	desc := types.GrammarDescriptor{
		Name:       string(lang),
		LocalPath:  path,
		ABIVersion: int(language.Version()),
		Status:     types.GrammarReady,
	}
	return &CompiledGrammar{Language: language, Descriptor: desc}, nil
}
