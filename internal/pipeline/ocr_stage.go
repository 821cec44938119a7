package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/ocr"
)

type OCRStage struct {
	Recognizer ocr.Recognizer
	Enhancer   ocr.Enhancer
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewOCRStage(rec ocr.Recognizer, enh ocr.Enhancer, timeout time.Duration, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Recognizer: rec, Enhancer: enh, Timeout: timeout, Logger: logger}
}

// Run recognises the image. When the text is shorter than the source's minimum it
// tries once more on an enhanced derivative and keeps the longer text. A short result
// after that is an *InsufficientTextError.
func (s *OCRStage) Run(ctx context.Context, image []byte, source constants.SourceKind, progress ProgressFunc) (ocr.Text, error) {
	progress.report(ProgressOCRStart)
	best, err := s.recognize(ctx, image)
	if err != nil {
		return ocr.Text{}, fmt.Errorf("recognize: %w", err)
	}
	progress.report(ProgressOCRFirst)

	if textLength(best.Text) >= source.MinTextLength() || s.Enhancer == nil {
		return best, checkLength(best.Text, source)
	}

	s.Logger.Info("pipeline.ocr.fallback",
		"source", source,
		"chars", textLength(best.Text),
		"min", source.MinTextLength(),
	)
	progress.report(ProgressOCRRetry)

	enhanced, err := s.Enhancer.Enhance(image)
	if err != nil {
		s.Logger.Warn("pipeline.ocr.enhance_failed", "error", err)
		return best, checkLength(best.Text, source)
	}
	second, err := s.recognize(ctx, enhanced)
	if err != nil {
		if ctx.Err() != nil {
			return ocr.Text{}, ctx.Err()
		}
		s.Logger.Warn("pipeline.ocr.fallback_failed", "error", err)
		return best, checkLength(best.Text, source)
	}
	if textLength(second.Text) > textLength(best.Text) {
		best = second
	}
	return best, checkLength(best.Text, source)
}

func (s *OCRStage) recognize(ctx context.Context, image []byte) (ocr.Text, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Recognizer.Recognize(ctx, image)
}

func textLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func checkLength(text string, source constants.SourceKind) error {
	n, want := textLength(text), source.MinTextLength()
	if n < want {
		return &InsufficientTextError{Source: source, Length: n, Min: want}
	}
	return nil
}
