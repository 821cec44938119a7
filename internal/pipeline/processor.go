// Package pipeline runs one invoice extraction end to end: recognition, local hints,
// the text-generation round trip and reconciliation. Each invocation is sequential
// and owns all of its state, so different invoices may be processed concurrently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/hints"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/ocr"
	"github.com/joseph-ayodele/gst-bills/internal/reconcile"
)

// Progress milestones reported to a ProgressFunc.
const (
	ProgressStart    = 0
	ProgressOCRStart = 10
	ProgressOCRFirst = 40
	ProgressOCRRetry = 50
	ProgressOCRDone  = 60
	ProgressReplied  = 90
	ProgressDone     = 100
)

// ProgressFunc receives coarse completion percentages. It may be nil.
type ProgressFunc func(percent int)

func (f ProgressFunc) report(p int) {
	if f != nil {
		f(p)
	}
}

// Config holds per-call deadlines. Zero means no deadline beyond the caller's context.
type Config struct {
	OCRTimeout time.Duration
	LLMTimeout time.Duration
	// Now is the clock used to resolve relative dates in voice input; default time.Now.
	Now func() time.Time
}

// Extraction is everything one run produced. Nothing here has been persisted.
type Extraction struct {
	ID               uuid.UUID            `json:"id"`
	Source           constants.SourceKind `json:"source"`
	RawText          string               `json:"rawText"`
	OCRConfidence    float32              `json:"ocrConfidence,omitempty"`
	Hints            hints.LocalHints     `json:"hints"`
	Candidate        llm.Candidate        `json:"candidate"`
	Record           entity.InvoiceRecord `json:"record"`
	NeedsManualEntry bool                 `json:"needsManualEntry"`
	Applied          []string             `json:"applied,omitempty"`
	RawReply         string               `json:"-"`
}

// Processor coordinates OCR (text extract) then the LLM parse and reconciliation.
type Processor struct {
	Logger *slog.Logger
	Cfg    Config
	OCR    *OCRStage
	Parse  *ParseStage
}

func NewProcessor(logger *slog.Logger, cfg Config, rec ocr.Recognizer, enh ocr.Enhancer, gen llm.Generator, engine reconcile.Engine) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{
		Logger: logger,
		Cfg:    cfg,
		OCR:    NewOCRStage(rec, enh, cfg.OCRTimeout, logger),
		Parse:  NewParseStage(gen, engine, cfg.LLMTimeout, logger),
	}
}

// ProcessImage recognises an invoice photo or camera capture and reconciles it.
func (p *Processor) ProcessImage(ctx context.Context, image []byte, source constants.SourceKind, progress ProgressFunc) (*Extraction, error) {
	if source != constants.SourceImage && source != constants.SourceCamera {
		return nil, fmt.Errorf("%w: %q for image input", ErrInvalidSource, source)
	}
	progress.report(ProgressStart)

	text, err := p.OCR.Run(ctx, image, source, progress)
	if err != nil {
		p.Logger.Error("processor.ocr.failed", "source", source, "error", err)
		return nil, err
	}
	p.Logger.Info("processor.ocr.ok",
		"source", source,
		"chars", len(text.Text),
		"confidence", text.Confidence,
	)
	progress.report(ProgressOCRDone)

	x, err := p.fromText(ctx, text.Text, source, progress)
	if err != nil {
		return nil, err
	}
	x.OCRConfidence = text.Confidence
	return x, nil
}

// ProcessText reconciles text that was recognised elsewhere, e.g. on the device.
func (p *Processor) ProcessText(ctx context.Context, rawText string, source constants.SourceKind, progress ProgressFunc) (*Extraction, error) {
	if source == constants.SourceVoice {
		return p.ProcessVoice(ctx, rawText, progress)
	}
	if _, ok := constants.ParseSourceKind(string(source)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	progress.report(ProgressStart)
	if err := checkLength(rawText, source); err != nil {
		return nil, err
	}
	progress.report(ProgressOCRDone)
	return p.fromText(ctx, rawText, source, progress)
}

// ProcessVoice reconciles a speech-to-text transcript.
func (p *Processor) ProcessVoice(ctx context.Context, transcript string, progress ProgressFunc) (*Extraction, error) {
	progress.report(ProgressStart)
	if err := checkLength(transcript, constants.SourceVoice); err != nil {
		return nil, err
	}
	progress.report(ProgressOCRDone)

	req := llm.BuildVoiceRequest(transcript, p.Cfg.Now())
	return p.run(ctx, transcript, hints.LocalHints{}, req, progress)
}

func (p *Processor) fromText(ctx context.Context, rawText string, source constants.SourceKind, progress ProgressFunc) (*Extraction, error) {
	h := hints.Parse(rawText)
	p.Logger.Debug("processor.hints",
		"source", source,
		"taxable", h.Taxable,
		"total", h.Total,
		"tax", h.TaxAmount,
		"gst_percent", h.GSTPercent,
	)
	req := llm.BuildImageRequest(rawText, h, source)
	return p.run(ctx, rawText, h, req, progress)
}

func (p *Processor) run(ctx context.Context, rawText string, h hints.LocalHints, req llm.Request, progress ProgressFunc) (*Extraction, error) {
	id := uuid.New()
	start := time.Now()

	out, err := p.Parse.Run(ctx, req, h)
	if err != nil {
		p.Logger.Error("processor.parse.failed", "extraction_id", id, "source", req.Source, "error", err)
		return nil, err
	}
	progress.report(ProgressReplied)

	x := &Extraction{
		ID:               id,
		Source:           req.Source,
		RawText:          rawText,
		Hints:            h,
		Candidate:        out.Candidate,
		Record:           out.Result.Record,
		NeedsManualEntry: out.Result.NeedsManualEntry,
		Applied:          out.Result.Applied,
		RawReply:         out.Reply,
	}
	p.Logger.Info("processor.parse.ok",
		"extraction_id", id,
		"source", req.Source,
		"confidence", x.Record.ExtractionConfidence,
		"needs_manual_entry", x.NeedsManualEntry,
		"rules", x.Applied,
		"deviation", out.Result.Deviation,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	progress.report(ProgressDone)
	return x, nil
}
