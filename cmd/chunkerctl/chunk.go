package main

import (
	"context"
	"fmt"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chunker/internal/arbiter"
	"github.com/standardbeagle/chunker/internal/batch"
	"github.com/standardbeagle/chunker/internal/diag"
	"github.com/standardbeagle/chunker/internal/processor"
	"github.com/standardbeagle/chunker/internal/types"
)

func chunkCommand() *cli.Command {
	return &cli.Command{
		Name:  "chunk",
		Usage: "Chunk a single file or walk --root and chunk every matching file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Chunk a single file instead of walking --root",
			},
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "Force a language instead of auto-detecting from the extension",
			},
			&cli.IntFlag{
				Name:  "token-limit",
				Usage: "Token budget per chunk before a strategy is forced to split further (0 = no limit)",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Tokenizer model name used for token counting",
			},
			&cli.BoolFlag{
				Name:  "auto-download",
				Usage: "Automatically fetch and build missing grammars on demand",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "After the initial tree walk, keep running and re-chunk files as they change",
			},
		},
		Action: runChunk,
	}
}

func runChunk(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	arb := arbiter.NewArbiter(registry, c.String("model"), c.Int("token-limit"))
	arb.AutoDownload = c.Bool("auto-download")
	arb.SkipGenerated = cfg.Chunker.SkipGenerated
	arb.Specialists = processor.NewRegistry().Build(cfg)

	ctx := c.Context

	if file := c.String("file"); file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		chunks, metrics, err := arb.ChunkFile(ctx, file, content, types.Language(c.String("language")))
		if err != nil {
			return err
		}
		return printChunks(c, chunks, metrics)
	}

	bc := batch.New(cfg, arb, c.Int("concurrency"))

	result, err := bc.ProcessTree(ctx, cfg.ProjectRoot)
	if err != nil {
		diag.Warn("chunkerctl", "tree processing finished with errors: %v", err)
	}
	if printErr := printResult(c, result); printErr != nil {
		return printErr
	}

	if !c.Bool("watch") {
		return nil
	}
	return watchTree(ctx, c, bc, cfg.ProjectRoot)
}

func watchTree(ctx context.Context, c *cli.Context, bc *batch.Chunker, root string) error {
	w, err := bc.NewWatcher(batch.DefaultWatchDebounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	w.OnResult = func(r batch.FileResult) {
		switch {
		case r.Removed:
			fmt.Fprintf(os.Stderr, "removed: %s\n", r.Path)
		case r.Err != nil:
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
		default:
			fmt.Fprintf(os.Stderr, "rechunked %s (%d chunks)\n", r.Path, len(r.Chunks))
		}
	}

	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", root)
	return w.Watch(ctx, root)
}

func printChunks(c *cli.Context, chunks []*types.Chunk, metrics types.DecisionMetrics) error {
	if c.Bool("json") {
		enc := gojson.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Decision types.DecisionMetrics `json:"decision"`
			Chunks   []*types.Chunk        `json:"chunks"`
		}{metrics, chunks})
	}
	for _, ch := range chunks {
		fmt.Printf("%s:%d-%d\t%s\t%s\n", ch.FilePath, ch.StartLine, ch.EndLine, ch.NodeType, ch.ChunkID)
	}
	return nil
}

func printResult(c *cli.Context, result *batch.Result) error {
	if c.Bool("json") {
		enc := gojson.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var total int
	for _, f := range result.Files {
		if f.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", f.Path, f.Err)
			continue
		}
		for _, ch := range f.Chunks {
			fmt.Printf("%s:%d-%d\t%s\t%s\n", ch.FilePath, ch.StartLine, ch.EndLine, ch.NodeType, ch.ChunkID)
		}
		total += len(f.Chunks)
	}
	fmt.Fprintf(os.Stderr, "%d files, %d chunks, %d relationships\n", len(result.Files), total, len(result.Relationships))
	return nil
}
