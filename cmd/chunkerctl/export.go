package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chunker/internal/arbiter"
	"github.com/standardbeagle/chunker/internal/batch"
	"github.com/standardbeagle/chunker/internal/diag"
	"github.com/standardbeagle/chunker/internal/export"
	"github.com/standardbeagle/chunker/internal/processor"
	"github.com/standardbeagle/chunker/internal/types"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Chunk --root and write the result in a structured export format",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "format",
				Aliases:  []string{"f"},
				Usage:    "json|jsonl|sqlite|postgresql|neo4j|graphml|dot|parquet",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path ('-' for stdout); required for sqlite",
				Value:   "-",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Rows flushed per batch by streaming back-ends",
				Value: export.DefaultBatchSize,
			},
			&cli.BoolFlag{
				Name:  "include-content",
				Usage: "Include chunk source text in graph/document exports",
			},
		},
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	arb := arbiter.NewArbiter(registry, "", 0)
	arb.SkipGenerated = cfg.Chunker.SkipGenerated
	arb.Specialists = processor.NewRegistry().Build(cfg)

	bc := batch.New(cfg, arb, c.Int("concurrency"))
	result, err := bc.ProcessTree(c.Context, cfg.ProjectRoot)
	if err != nil {
		diag.Warn("chunkerctl", "export input tree finished with errors: %v", err)
	}

	var chunks []*types.Chunk
	for _, f := range result.Files {
		chunks = append(chunks, f.Chunks...)
	}

	format := export.Format(c.String("format"))
	opts := export.Options{
		BatchSize:      c.Int("batch-size"),
		IncludeContent: c.Bool("include-content"),
	}
	meta := export.NewMetadata(format, time.Now().UTC().Format(time.RFC3339), chunks, result.Relationships, nil)

	out := c.String("output")

	if format == export.FormatSQLite {
		if out == "" || out == "-" {
			return fmt.Errorf("sqlite export requires --output <path>")
		}
		return export.NewSQLiteExporter(opts).Export(chunks, result.Relationships, out, meta)
	}

	w, closeFn, err := openExportOutput(out)
	if err != nil {
		return err
	}
	defer closeFn()

	switch format {
	case export.FormatJSON:
		return export.NewJSONExporter().Export(chunks, result.Relationships, w, meta)
	case export.FormatJSONL:
		return export.NewJSONLExporter().Export(chunks, result.Relationships, w, meta)
	case export.FormatPostgreSQL:
		return export.NewPostgresExporter(opts).Export(chunks, result.Relationships, w, meta)
	case export.FormatNeo4j:
		return export.NewNeo4jExporter(opts).Export(chunks, result.Relationships, w, meta)
	case export.FormatGraphML:
		return export.NewGraphMLExporter(opts).Export(chunks, result.Relationships, w)
	case export.FormatDOT:
		return export.NewDOTExporter(opts).Export(chunks, result.Relationships, w)
	case export.FormatParquet:
		return export.NewParquetExporter().Export(chunks, result.Relationships, w)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func openExportOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
