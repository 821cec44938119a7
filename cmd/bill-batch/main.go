package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/app"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/ingest"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
	"github.com/joseph-ayodele/gst-bills/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inmem       = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir         = flag.String("dir", "", "directory of invoice images (required)")
		out         = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr     = flag.String("from", "", "from invoice date YYYY-MM-DD")
		toStr       = flag.String("to", "", "to invoice date YYYY-MM-DD")
		sourceStr   = flag.String("source", "image", "source kind of the images: image | camera")
		concurrency = flag.Int("concurrency", 0, "invoices processed at once (default BATCH_CONCURRENCY)")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	source, ok := constants.ParseSourceKind(*sourceStr)
	if !ok || source == constants.SourceVoice {
		printError("Error: --source must be image or camera\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		parentDir := filepath.Dir(*dir)
		*out = filepath.Join(parentDir, "gst-purchase-register.xlsx")
	}

	// Parse date filters
	var from, to *time.Time
	if *fromStr != "" {
		if parsed, err := time.Parse(time.DateOnly, *fromStr); err != nil {
			printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			from = &parsed
		}
	}
	if *toStr != "" {
		if parsed, err := time.Parse(time.DateOnly, *toStr); err != nil {
			printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			to = &parsed
		}
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = repository.DriverSQLite
	}
	if *concurrency > 0 {
		cfg.Pipeline.BatchConcurrency = *concurrency
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	dbResult, err := app.InitDatabase(ctx, cfg, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()

	proc, closeGen, err := app.NewProcessor(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeGen()
	svc := app.NewBillsService(proc, dbResult.DB, logger)

	// Collect images
	logger.Info("scanning directory", "dir", *dir)
	files, _, stats, err := ingest.ScanDirectory(ctx, *dir, nil, true, logger)
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}

	items := make([]pipeline.BatchItem, len(files))
	for i, f := range files {
		items[i] = pipeline.BatchItem{Name: f.Path, Image: f.Data, Source: source}
	}

	start := time.Now()
	results := proc.Batch(ctx, items, cfg.Pipeline.BatchConcurrency)

	var stored, manual, failures int
	for _, r := range results {
		if r.Err != nil {
			logger.Error("failed to extract invoice", "file", r.Name, "error", r.Err)
			failures++
			continue
		}
		x := r.Extraction
		if x.NeedsManualEntry {
			logger.Warn("invoice needs manual entry", "file", r.Name, "rules", x.Applied)
			manual++
			continue
		}
		b, err := svc.Confirm(ctx, x.Record, x.Source)
		if err != nil {
			logger.Error("failed to store bill", "file", r.Name, "error", err)
			failures++
			continue
		}
		logger.Info("bill stored", "file", r.Name, "bill_id", b.ID, "confidence", b.ExtractionConfidence)
		stored++
	}
	logger.Info("extraction complete",
		"files", len(files),
		"stored", stored,
		"manual", manual,
		"failures", failures,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	// Export to XLSX
	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := svc.Export(ctx, from, to)
	if err != nil {
		logger.Error("failed to export bills", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files scanned: %d (duplicates skipped: %d)\n", stats.Matched, stats.Deduplicated)
	fmt.Printf("- Bills stored: %d\n", stored)
	fmt.Printf("- Needs manual entry: %d\n", manual)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}
