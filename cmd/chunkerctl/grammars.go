package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chunker/internal/grammar"
	"github.com/standardbeagle/chunker/internal/types"
)

func grammarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "grammars",
		Usage: "Manage tree-sitter grammar sources and builds",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List installed and available grammars",
				Action: runGrammarsList,
			},
			{
				Name:      "install",
				Usage:     "Download and build a grammar",
				ArgsUsage: "<language>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "version", Usage: "Grammar repository ref to build (tag, branch, or commit)"},
				},
				Action: runGrammarsInstall,
			},
			{
				Name:      "uninstall",
				Usage:     "Remove a built grammar from the cache",
				ArgsUsage: "<language>",
				Action:    runGrammarsUninstall,
			},
			{
				Name:      "add-source",
				Usage:     "Register a GitHub repository as a grammar's source",
				ArgsUsage: "<language> <repo-url>",
				Action:    runGrammarsAddSource,
			},
			{
				Name:      "remove-source",
				Usage:     "Drop a language's registered grammar source",
				ArgsUsage: "<language>",
				Action:    runGrammarsRemoveSource,
			},
			{
				Name:   "list-sources",
				Usage:  "List every language with a registered grammar source",
				Action: runGrammarsListSources,
			},
		},
	}
}

func runGrammarsList(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	catalog, err := grammar.LoadCatalog(filepath.Join(grammarHomeDir(), "grammar_sources.json"))
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, lang := range registry.ListInstalled() {
		seen[string(lang)] = true
		fmt.Printf("%-20s installed\n", lang)
	}
	for _, name := range catalog.ListAvailable() {
		if seen[name] {
			continue
		}
		fmt.Printf("%-20s available\n", name)
	}
	return nil
}

func runGrammarsInstall(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: chunkerctl grammars install <language>")
	}
	lang := types.Language(c.Args().First())

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	if err := registry.Install(c.Context, lang, c.String("version")); err != nil {
		return fmt.Errorf("installing %s: %w", lang, err)
	}
	fmt.Printf("installed grammar %s\n", lang)
	return nil
}

func runGrammarsUninstall(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: chunkerctl grammars uninstall <language>")
	}
	lang := types.Language(c.Args().First())

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	if err := registry.Uninstall(lang); err != nil {
		return fmt.Errorf("uninstalling %s: %w", lang, err)
	}
	fmt.Printf("uninstalled grammar %s\n", lang)
	return nil
}

func runGrammarsAddSource(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: chunkerctl grammars add-source <language> <repo-url>")
	}
	lang := c.Args().Get(0)
	repoURL := c.Args().Get(1)

	catalog, err := grammar.LoadCatalog(filepath.Join(grammarHomeDir(), "grammar_sources.json"))
	if err != nil {
		return err
	}
	if err := catalog.AddSource(lang, repoURL); err != nil {
		return err
	}
	if err := catalog.Save(); err != nil {
		return fmt.Errorf("saving grammar catalog: %w", err)
	}
	fmt.Printf("registered %s -> %s\n", lang, repoURL)
	return nil
}

func runGrammarsRemoveSource(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: chunkerctl grammars remove-source <language>")
	}
	lang := c.Args().Get(0)

	catalog, err := grammar.LoadCatalog(filepath.Join(grammarHomeDir(), "grammar_sources.json"))
	if err != nil {
		return err
	}
	if !catalog.RemoveSource(lang) {
		return fmt.Errorf("no registered grammar source for %s", lang)
	}
	if err := catalog.Save(); err != nil {
		return fmt.Errorf("saving grammar catalog: %w", err)
	}
	fmt.Printf("removed source for %s\n", lang)
	return nil
}

func runGrammarsListSources(c *cli.Context) error {
	catalog, err := grammar.LoadCatalog(filepath.Join(grammarHomeDir(), "grammar_sources.json"))
	if err != nil {
		return err
	}
	for _, name := range catalog.ListAvailable() {
		repoURL, _ := catalog.RepositoryURL(name)
		fmt.Printf("%-20s %s\n", name, repoURL)
	}
	return nil
}
