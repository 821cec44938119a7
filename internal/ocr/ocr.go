// Package ocr recognises invoice text from image bytes with the tesseract CLI.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Text is the outcome of one recognition pass.
type Text struct {
	Text       string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Recognizer turns image bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Text, error)
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Recognize writes the image to a temp file and runs tesseract over it.
func (e *Extractor) Recognize(ctx context.Context, image []byte) (Text, error) {
	start := time.Now()
	if len(image) == 0 {
		return Text{}, fmt.Errorf("empty image")
	}

	ext, ok := imageExt(image)
	if !ok {
		e.logger.Error("ocr.unsupported_image", "content_type", http.DetectContentType(image))
		return Text{}, fmt.Errorf("unsupported image type %q", http.DetectContentType(image))
	}

	f, err := os.CreateTemp("", "gst-ocr-*"+ext)
	if err != nil {
		return Text{}, fmt.Errorf("create temp image: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("ocr.temp_remove_error", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return Text{}, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return Text{}, fmt.Errorf("close temp image: %w", err)
	}

	raw, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Text{Warnings: warn, Duration: time.Since(start)}, err
	}
	txt := Normalize(raw)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, w, err := e.tesseractTSVConfidence(ctx, path); err == nil {
			ocrConf = c
			warn = append(warn, w...)
		} else {
			warn = append(warn, err.Error())
		}
	}
	conf := blendConfidence(ocrConf, heuristicConfidence(txt))

	e.logger.Debug("ocr.recognize.ok",
		"chars", len(txt),
		"confidence", conf,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Text{
		Text:       txt,
		Language:   e.cfg.TesseractLang,
		Duration:   time.Since(start),
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.baseArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}

func imageExt(b []byte) (string, bool) {
	switch http.DetectContentType(b) {
	case "image/png":
		return ".png", true
	case "image/jpeg":
		return ".jpg", true
	case "image/webp":
		return ".webp", true
	case "image/bmp":
		return ".bmp", true
	case "image/gif":
		return ".gif", true
	}
	return "", false
}
