package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/internal/hints"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/reconcile"
)

type ParseStage struct {
	Generator llm.Generator
	Engine    reconcile.Engine
	Timeout   time.Duration
	Logger    *slog.Logger
}

// ParseOutcome is the service reply and what reconciliation made of it.
type ParseOutcome struct {
	Reply     string
	Cleaned   []byte
	Candidate llm.Candidate
	Result    reconcile.Result
}

func NewParseStage(gen llm.Generator, engine reconcile.Engine, timeout time.Duration, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Generator: gen, Engine: engine, Timeout: timeout, Logger: logger}
}

// Run sends the request, parses the reply and reconciles the candidate.
// *llm.ServiceError and *llm.ParseError are returned unwrapped.
func (s *ParseStage) Run(ctx context.Context, req llm.Request, h hints.LocalHints) (ParseOutcome, error) {
	rid := uuid.New().String()
	start := time.Now()

	reply, err := s.generate(ctx, req)
	if err != nil {
		s.Logger.Error("pipeline.parse.generate_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ParseOutcome{}, err
	}

	c, cleaned, err := llm.ParseReply(reply)
	if err != nil {
		s.Logger.Error("pipeline.parse.reply_invalid",
			"req_id", rid, "error", err, "reply_len", len(reply),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ParseOutcome{Reply: reply}, err
	}

	res := s.Engine.Reconcile(c, h.RawPercent)
	s.Logger.Debug("pipeline.parse.reconciled",
		"req_id", rid,
		"rules", res.Applied,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ParseOutcome{Reply: reply, Cleaned: cleaned, Candidate: c, Result: res}, nil
}

func (s *ParseStage) generate(ctx context.Context, req llm.Request) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Generator.Generate(ctx, req)
}
