package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/app"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		imagePath = flag.String("image", "", "invoice image to recognise")
		textPath  = flag.String("text-file", "", "file holding text recognised elsewhere")
		text      = flag.String("text", "", "text recognised elsewhere")
		voice     = flag.String("voice", "", "speech-to-text transcript")
		sourceStr = flag.String("source", "image", "source kind: image | camera")
		raw       = flag.Bool("raw", false, "also print the raw text-generation reply")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	source, ok := constants.ParseSourceKind(*sourceStr)
	if !ok || source == constants.SourceVoice {
		printError("Error: --source must be image or camera\n")
		os.Exit(2)
	}
	if *textPath != "" {
		b, err := os.ReadFile(*textPath)
		if err != nil {
			printError("Error: reading --text-file: %v\n", err)
			os.Exit(2)
		}
		*text = string(b)
	}

	cfg := common.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	proc, closeGen, err := app.NewProcessor(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeGen()

	progress := func(p int) { logger.Debug("extract.progress", "percent", p) }

	var x *pipeline.Extraction
	switch {
	case *imagePath != "":
		image, err := os.ReadFile(*imagePath)
		if err != nil {
			printError("Error: reading --image: %v\n", err)
			os.Exit(2)
		}
		x, err = proc.ProcessImage(ctx, image, source, progress)
		if err != nil {
			logger.Error("extraction failed", "error", err)
			os.Exit(1)
		}
	case *voice != "":
		x, err = proc.ProcessVoice(ctx, *voice, progress)
	case *text != "":
		x, err = proc.ProcessText(ctx, *text, source, progress)
	default:
		printError("Error: one of --image, --text, --text-file or --voice is required\n")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(x); err != nil {
		printError("Error: encoding result: %v\n", err)
		os.Exit(1)
	}
	if *raw {
		fmt.Println(x.RawReply)
	}
}
