package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chunker/internal/config"
	"github.com/standardbeagle/chunker/internal/grammar"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "chunkerctl",
		Usage:   "Chunk source trees into semantically coherent units",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Directory to search for chunker.config.* (overrides --root for config discovery only)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to operate on",
				Value:   ".",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g. --include '**/*.py')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns, in addition to configured defaults",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit machine-readable JSON instead of text",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum number of files chunked concurrently",
				Value: 4,
			},
		},
		Commands: []*cli.Command{
			chunkCommand(),
			grammarsCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chunkerctl: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigWithOverrides resolves configuration for the invocation's
// --root, applying --config (as an alternate config search start),
// --include and --exclude CLI overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	searchFrom := absRoot
	if cfgFlag := c.String("config"); cfgFlag != "" {
		absCfg, err := filepath.Abs(cfgFlag)
		if err != nil {
			return nil, fmt.Errorf("resolving config path %q: %w", cfgFlag, err)
		}
		searchFrom = absCfg
	}

	cfg, err := config.Load(searchFrom)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ProjectRoot = absRoot

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	return cfg, nil
}

// grammarHomeDir is where the grammar catalog, build cache, and clone
// workspace live, mirroring chunker.plugin_dirs' own tilde-expansion base.
func grammarHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chunker"
	}
	return filepath.Join(home, ".chunker")
}

// newRegistry builds a grammar.Registry backed by the on-disk catalog and
// build cache under grammarHomeDir.
func newRegistry(cfg *config.Config) (*grammar.Registry, error) {
	base := grammarHomeDir()
	catalog, err := grammar.LoadCatalog(filepath.Join(base, "grammar_sources.json"))
	if err != nil {
		return nil, fmt.Errorf("loading grammar catalog: %w", err)
	}
	builder, err := grammar.NewBuilder(catalog, filepath.Join(base, "cache"), filepath.Join(base, "work"))
	if err != nil {
		return nil, fmt.Errorf("creating grammar builder: %w", err)
	}
	return grammar.NewRegistry(builder), nil
}
